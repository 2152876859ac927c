package project

import (
	"github.com/vk/benchgrid/internal/summary"
)

// StatusTable builds the per-job state view for `show status`. only, when
// non-empty, restricts the rows to the named job ids.
func (p *Project) StatusTable(only []string) (*summary.Table, error) {
	globalTimeout, err := p.cfg.GlobalTimeout()
	if err != nil {
		return nil, err
	}
	jobs, err := p.Jobs(globalTimeout)
	if err != nil {
		return nil, err
	}

	var onlySet map[string]bool
	if len(only) > 0 {
		onlySet = make(map[string]bool, len(only))
		for _, id := range only {
			onlySet[id] = true
		}
	}

	t := &summary.Table{Header: []string{"job", "state", "elapsed", "updated"}}
	for _, job := range jobs {
		if onlySet != nil && !onlySet[job.ID] {
			continue
		}
		marker, err := p.store.Read(job.ID)
		if err != nil {
			return nil, err
		}
		elapsed, updated := "", ""
		if marker.Elapsed > 0 {
			elapsed = marker.Elapsed.String()
		}
		if !marker.UpdatedAt.IsZero() {
			updated = marker.UpdatedAt.Format("2006-01-02 15:04:05")
		}
		t.Rows = append(t.Rows, []string{job.ID, string(marker.State), elapsed, updated})
	}
	return t, nil
}
