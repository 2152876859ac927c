// Package status persists the durable per-job lifecycle markers that make
// interrupted campaigns resumable. One JSON marker file per job lives under
// the log directory; absence of the file means the job has not started.
package status

import "time"

// State is a job's lifecycle stage.
type State string

const (
	// NotStarted is the implicit state of a job without a marker.
	NotStarted State = "not_started"
	// InProgress marks a claimed job. A job read as InProgress at the start
	// of a fresh run is presumed to come from an interrupted prior attempt
	// and is skipped unless explicitly re-admitted.
	InProgress State = "in_progress"
	// Ok is a terminal clean completion.
	Ok State = "ok"
	// Error is a terminal nonzero exit or spawn failure.
	Error State = "error"
	// TimedOut is a terminal forced reclamation at the timeout bound.
	TimedOut State = "timed_out"
	// Failed is a terminal logical failure assigned by the orchestrator's
	// failure policy on top of a clean process exit.
	Failed State = "failed"
)

// Terminal reports whether the state ends a job's lifecycle for this attempt.
func (s State) Terminal() bool {
	switch s {
	case Ok, Error, TimedOut, Failed:
		return true
	}
	return false
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case NotStarted, InProgress, Ok, Error, TimedOut, Failed:
		return true
	}
	return false
}

// Marker is the durable record written per job.
type Marker struct {
	State     State         `json:"state"`
	Elapsed   time.Duration `json:"elapsed_ns,omitempty"`
	Attempt   string        `json:"attempt,omitempty"`
	UpdatedAt time.Time     `json:"updated_at"`
}
