// Package config loads and validates the HCL project description: the
// command templates, the alias table seed, the job matrix, resource limits
// and versioning. Expressions may reference the process environment through
// the `env` object, e.g. execute = "${env.HOME}/bin/solver".
package config

import (
	"fmt"
	"time"
)

// Project is the decoded project description.
type Project struct {
	Version     string            `hcl:"version"`
	Description string            `hcl:"description,optional"`
	Timeout     string            `hcl:"timeout,optional"`
	Required    []string          `hcl:"required,optional"`
	ZipWith     []string          `hcl:"zip_with,optional"`
	Aliases     map[string]string `hcl:"aliases,optional"`

	Commands   Commands    `hcl:"commands,block"`
	Versioning *Versioning `hcl:"versioning,block"`
	Limits     *Limits     `hcl:"limits,block"`
	Matrix     *Matrix     `hcl:"matrix,block"`
	Jobs       []JobBlock  `hcl:"job,block"`
}

// Commands holds the templated command lines. Build and clean run as direct
// processes; execute runs through a shell interpreter so it may carry shell
// syntax. FailureRegex, when set, reclassifies a clean exit as a logical
// failure if the pattern matches the job's stderr log.
type Commands struct {
	Build        string `hcl:"build"`
	Execute      string `hcl:"execute"`
	Clean        string `hcl:"clean,optional"`
	FailureRegex string `hcl:"failure_regex,optional"`
}

// Versioning pins the source checkout used by fetch.
type Versioning struct {
	Repository string `hcl:"repository"`
	Commit     string `hcl:"commit,optional"`
}

// Limits are process resource limits applied before scheduling. Zero means
// leave the inherited limit untouched.
type Limits struct {
	OpenFiles      uint64 `hcl:"open_files,optional"`
	CPUSeconds     uint64 `hcl:"cpu_seconds,optional"`
	AddressSpaceMB uint64 `hcl:"address_space_mb,optional"`
}

// Matrix is the Cartesian-product part of the job set.
type Matrix struct {
	Dimensions []Dimension `hcl:"dimension,block"`
}

// Dimension is one named axis of the matrix.
type Dimension struct {
	Name   string   `hcl:"name,label"`
	Values []string `hcl:"values"`
}

// JobBlock is an explicit shortcut cell with literal parameter bindings.
type JobBlock struct {
	Name       string            `hcl:"name,label"`
	Parameters map[string]string `hcl:"parameters"`
	Timeout    string            `hcl:"timeout,optional"`
}

// GlobalTimeout parses the project-wide per-job timeout. Zero means none.
func (p *Project) GlobalTimeout() (time.Duration, error) {
	return parseTimeout(p.Timeout, "timeout")
}

// TimeoutDuration parses the job's timeout override. Zero means none.
func (j *JobBlock) TimeoutDuration() (time.Duration, error) {
	return parseTimeout(j.Timeout, fmt.Sprintf("job %q timeout", j.Name))
}

func parseTimeout(s, what string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %s %q: %w", what, s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", what)
	}
	return d, nil
}
