// Package runner spawns the external processes behind the build, clean,
// fetch and execute operations. Build-style commands run as direct processes
// with inherited stdio; execution cells run through a shell interpreter so
// the templated string may contain shell syntax.
package runner

import (
	"errors"
	"strings"
)

// Direct is an explicit executable plus positional arguments, split on
// whitespace after alias substitution. Used for build/clean/fetch steps.
type Direct struct {
	Executable string
	Args       []string
}

// Shell is a script handed verbatim to `sh -c`. Used for execution cells.
type Shell struct {
	Script string
}

// ParseDirect splits a resolved command line into executable and arguments.
func ParseDirect(resolved string) (Direct, error) {
	fields := strings.Fields(resolved)
	if len(fields) == 0 {
		return Direct{}, errors.New("empty command line")
	}
	return Direct{Executable: fields[0], Args: fields[1:]}, nil
}

// String renders the command the way it would be typed at a prompt.
func (c Direct) String() string {
	if len(c.Args) == 0 {
		return c.Executable
	}
	return c.Executable + " " + strings.Join(c.Args, " ")
}

// String returns the script handed to the interpreter.
func (c Shell) String() string {
	return c.Script
}
