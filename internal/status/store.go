package status

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const markerSuffix = ".status.json"

// Store reads and writes the per-job markers of one campaign. Writes go
// through a temp-file-then-rename pair so a crash mid-write can never
// resurrect a stale marker as a different valid state.
type Store struct {
	mu  sync.Mutex
	dir string
}

// NewStore returns a store rooted at dir (normally the log directory).
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Read returns the persisted marker for a job. A missing marker reads as
// NotStarted; a corrupt one is an error rather than a silent reset.
func (s *Store) Read(jobID string) (Marker, error) {
	data, err := os.ReadFile(s.markerPath(jobID))
	if os.IsNotExist(err) {
		return Marker{State: NotStarted}, nil
	}
	if err != nil {
		return Marker{}, fmt.Errorf("read marker for %q: %w", jobID, err)
	}
	var m Marker
	if err := json.Unmarshal(data, &m); err != nil {
		return Marker{}, fmt.Errorf("parse marker for %q: %w", jobID, err)
	}
	return m, nil
}

// Transition durably writes the marker for a job. The marker's UpdatedAt is
// stamped here.
func (s *Store) Transition(jobID string, m Marker) error {
	if !m.State.Valid() {
		return fmt.Errorf("invalid state %q for job %q", m.State, jobID)
	}
	m.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal marker for %q: %w", jobID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create marker directory: %w", err)
	}

	target := s.markerPath(jobID)
	tmp, err := os.CreateTemp(s.dir, ".marker-*")
	if err != nil {
		return fmt.Errorf("create marker temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write marker for %q: %w", jobID, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync marker for %q: %w", jobID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close marker for %q: %w", jobID, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("publish marker for %q: %w", jobID, err)
	}
	return nil
}

// Unlock resets every job currently in the given state back to NotStarted by
// removing its marker. It is idempotent and never touches jobs in other
// states. Returns the ids of the jobs it reset.
func (s *Store) Unlock(state State) ([]string, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var reset []string
	for jobID, m := range all {
		if m.State != state {
			continue
		}
		if err := os.Remove(s.markerPath(jobID)); err != nil && !os.IsNotExist(err) {
			return reset, fmt.Errorf("reset marker for %q: %w", jobID, err)
		}
		reset = append(reset, jobID)
	}
	return reset, nil
}

// List returns every persisted marker keyed by job id. Unreadable entries
// are skipped: a half-finished temp file must not break a resume.
func (s *Store) List() (map[string]Marker, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return map[string]Marker{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan marker directory: %w", err)
	}

	out := make(map[string]Marker)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, markerSuffix) {
			continue
		}
		jobID, err := url.PathUnescape(strings.TrimSuffix(name, markerSuffix))
		if err != nil {
			continue
		}
		m, err := s.Read(jobID)
		if err != nil {
			continue
		}
		out[jobID] = m
	}
	return out, nil
}

// markerPath escapes the job id so parameter values with separators cannot
// escape the marker directory.
func (s *Store) markerPath(jobID string) string {
	return filepath.Join(s.dir, url.PathEscape(jobID)+markerSuffix)
}
