package config

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// ArchiveMemberName is the configuration member inside a snapshot archive.
const ArchiveMemberName = "configuration.hcl"

// AcceptedVersions are the configuration versions this binary understands.
var AcceptedVersions = []string{"0.5.0", "0.6.0", "0.6.1", "0.6.2"}

// Load reads a project description from a plain .hcl file, or from the
// configuration.hcl member of a .zip snapshot. It reports whether the source
// was an archive so callers can treat the campaign as read-only.
func Load(path string) (*Project, bool, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		p, err := loadFromArchive(path)
		return p, true, err
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("cannot open configuration file %q: %w", path, err)
	}
	p, err := Parse(filepath.Base(path), src)
	return p, false, err
}

func loadFromArchive(path string) (*Project, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read archive %q: %w", path, err)
	}
	defer archive.Close()

	member, err := archive.Open(ArchiveMemberName)
	if err != nil {
		return nil, fmt.Errorf("archive %q has no %s member; was it built by benchgrid?: %w", path, ArchiveMemberName, err)
	}
	defer member.Close()

	src, err := io.ReadAll(member)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s from %q: %w", ArchiveMemberName, path, err)
	}
	return Parse(ArchiveMemberName, src)
}

// Parse decodes and validates HCL source.
func Parse(filename string, src []byte) (*Project, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}

	var p Project
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &p); diags.HasErrors() {
		return nil, diags
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// evalContext exposes the process environment to configuration expressions.
func evalContext() *hcl.EvalContext {
	env := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = cty.StringVal(v)
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
		},
	}
}

// Validate checks everything that must hold before any job is scheduled:
// version acceptance, matrix well-formedness, duration syntax and the
// failure policy pattern. Alias cycle validation happens later, after the
// reserved names and CLI overrides join the table.
func (p *Project) Validate() error {
	if err := p.validateVersion(); err != nil {
		return err
	}

	if strings.TrimSpace(p.Commands.Build) == "" {
		return fmt.Errorf("commands.build must not be empty")
	}
	if strings.TrimSpace(p.Commands.Execute) == "" {
		return fmt.Errorf("commands.execute must not be empty")
	}
	if p.Commands.FailureRegex != "" {
		if _, err := regexp.Compile(p.Commands.FailureRegex); err != nil {
			return fmt.Errorf("invalid failure_regex: %w", err)
		}
	}

	if _, err := p.GlobalTimeout(); err != nil {
		return err
	}

	seenDims := map[string]bool{}
	if p.Matrix != nil {
		for _, dim := range p.Matrix.Dimensions {
			if seenDims[dim.Name] {
				return fmt.Errorf("duplicate matrix dimension %q", dim.Name)
			}
			seenDims[dim.Name] = true
			if reservedColumn(dim.Name) {
				return fmt.Errorf("matrix dimension %q collides with a reserved summary column", dim.Name)
			}
			if len(dim.Values) == 0 {
				return fmt.Errorf("matrix dimension %q has no values", dim.Name)
			}
		}
	}

	seenJobs := map[string]bool{}
	for i := range p.Jobs {
		job := &p.Jobs[i]
		if seenJobs[job.Name] {
			return fmt.Errorf("duplicate job %q", job.Name)
		}
		seenJobs[job.Name] = true
		if len(job.Parameters) == 0 {
			return fmt.Errorf("job %q has no parameters", job.Name)
		}
		for key := range job.Parameters {
			if reservedColumn(key) {
				return fmt.Errorf("job %q parameter %q collides with a reserved summary column", job.Name, key)
			}
		}
		if _, err := job.TimeoutDuration(); err != nil {
			return err
		}
	}

	if (p.Matrix == nil || len(p.Matrix.Dimensions) == 0) && len(p.Jobs) == 0 {
		return fmt.Errorf("project defines no jobs: add a matrix block or job blocks")
	}
	return nil
}

// reservedColumn reports whether a parameter name would shadow one of the
// fixed summary columns appended after the parameter columns.
func reservedColumn(name string) bool {
	return name == "status" || name == "elapsed"
}

func (p *Project) validateVersion() error {
	got, err := version.NewVersion(p.Version)
	if err != nil {
		return fmt.Errorf("cannot parse configuration version %q: %w", p.Version, err)
	}
	for _, accepted := range AcceptedVersions {
		if v, err := version.NewVersion(accepted); err == nil && v.Equal(got) {
			return nil
		}
	}
	return fmt.Errorf("configuration version %s is not accepted; valid versions are %s",
		p.Version, strings.Join(AcceptedVersions, ", "))
}
