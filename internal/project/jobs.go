package project

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vk/benchgrid/internal/scheduler"
)

// Jobs expands the configured job set: the Cartesian product of the matrix
// dimensions plus the explicit job blocks. globalTimeout is the effective
// project-wide bound (the CLI override already folded in); explicit blocks
// may override it per job.
func (p *Project) Jobs(globalTimeout time.Duration) ([]scheduler.Job, error) {
	var jobs []scheduler.Job

	if p.cfg.Matrix != nil && len(p.cfg.Matrix.Dimensions) > 0 {
		dims := p.cfg.Matrix.Dimensions
		indices := make([]int, len(dims))
		for {
			bindings := make(map[string]string, len(dims))
			for i, dim := range dims {
				bindings[dim.Name] = dim.Values[indices[i]]
			}
			jobs = append(jobs, scheduler.Job{
				ID:       JobID(bindings),
				Bindings: bindings,
				Timeout:  globalTimeout,
			})

			// Odometer increment over the dimension value lists.
			i := len(indices) - 1
			for ; i >= 0; i-- {
				indices[i]++
				if indices[i] < len(dims[i].Values) {
					break
				}
				indices[i] = 0
			}
			if i < 0 {
				break
			}
		}
	}

	for i := range p.cfg.Jobs {
		block := &p.cfg.Jobs[i]
		timeout, err := block.TimeoutDuration()
		if err != nil {
			return nil, err
		}
		if timeout == 0 {
			timeout = globalTimeout
		}
		jobs = append(jobs, scheduler.Job{
			ID:       block.Name,
			Bindings: block.Parameters,
			Timeout:  timeout,
		})
	}

	seen := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		if seen[job.ID] {
			return nil, fmt.Errorf("job id %q is not unique; rename the conflicting job block", job.ID)
		}
		seen[job.ID] = true
	}
	return jobs, nil
}

// JobID derives the stable identifier of a matrix cell from its parameter
// bindings: `k=v` pairs joined with `,` in sorted key order.
func JobID(bindings map[string]string) string {
	keys := make([]string, 0, len(bindings))
	for k := range bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + bindings[k]
	}
	return strings.Join(parts, ",")
}

// ParameterColumns is the sorted union of matrix dimension names and
// explicit job parameter names; it fixes the summary header.
func (p *Project) ParameterColumns() []string {
	set := map[string]bool{}
	if p.cfg.Matrix != nil {
		for _, dim := range p.cfg.Matrix.Dimensions {
			set[dim.Name] = true
		}
	}
	for i := range p.cfg.Jobs {
		for name := range p.cfg.Jobs[i].Parameters {
			set[name] = true
		}
	}

	columns := make([]string, 0, len(set))
	for name := range set {
		columns = append(columns, name)
	}
	sort.Strings(columns)
	return columns
}
