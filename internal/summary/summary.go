// Package summary produces and reads the tab-separated campaign summary:
// a header row naming the columns, then one append-only row per completed
// job in completion order.
package summary

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Writer appends rows to the summary file. Appends are serialized by an
// internal mutex and issued as a single write each, so a crash can truncate
// at most the in-flight row and never corrupts prior ones. The file is never
// rewritten in place during a run.
type Writer struct {
	mu      sync.Mutex
	path    string
	columns []string
}

// NewWriter returns a writer for the given path and column set. The header
// is written lazily, on the first append into an empty or absent file, so a
// resumed campaign keeps appending to the existing file.
func NewWriter(path string, columns []string) *Writer {
	return &Writer{path: path, columns: columns}
}

// Columns returns the column names in header order.
func (w *Writer) Columns() []string {
	return w.columns
}

// Append writes one row. The row must have one value per column.
func (w *Writer) Append(row []string) error {
	if len(row) != len(w.columns) {
		return fmt.Errorf("summary row has %d fields, want %d", len(row), len(w.columns))
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open summary file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat summary file: %w", err)
	}

	var b strings.Builder
	if info.Size() == 0 {
		b.WriteString(strings.Join(w.columns, "\t"))
		b.WriteByte('\n')
	}
	b.WriteString(strings.Join(row, "\t"))
	b.WriteByte('\n')

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("append summary row: %w", err)
	}
	return f.Sync()
}
