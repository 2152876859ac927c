// Package alias implements the substitution table used to expand {key}
// placeholders in command templates and paths. Values may themselves contain
// placeholders; Resolve repeats whole substitution passes until a pass
// changes nothing, so multi-level indirection resolves in a single call.
package alias

import (
	"fmt"
	"sort"
	"strings"
)

// maxPasses bounds the fixpoint loop. A well-formed table converges in a
// handful of passes; hitting the cap means a self-referential definition
// slipped past Validate.
const maxPasses = 64

// Table is a name → value string mapping. Later writes win, which is how
// file-based configuration, CLI overrides and job-local parameter bindings
// layer on top of the reserved defaults.
type Table struct {
	entries map[string]string
}

// New returns an empty table.
func New() *Table {
	return &Table{entries: make(map[string]string)}
}

// FromMap returns a table seeded with the given entries.
func FromMap(entries map[string]string) *Table {
	t := New()
	for k, v := range entries {
		t.entries[k] = v
	}
	return t
}

// Set inserts or replaces an entry.
func (t *Table) Set(key, value string) {
	t.entries[key] = value
}

// Get reports the value bound to key.
func (t *Table) Get(key string) (string, bool) {
	v, ok := t.entries[key]
	return v, ok
}

// Has reports whether key is bound.
func (t *Table) Has(key string) bool {
	_, ok := t.entries[key]
	return ok
}

// Len reports the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Keys returns the bound names in sorted order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of the underlying entries.
func (t *Table) Snapshot() map[string]string {
	out := make(map[string]string, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}

// Overlay returns a new table containing the receiver's entries with the
// given bindings applied on top. The receiver is not modified; workers use
// this to layer a job's parameter bindings over the shared table.
func (t *Table) Overlay(bindings map[string]string) *Table {
	out := FromMap(t.entries)
	for k, v := range bindings {
		out.entries[k] = v
	}
	return out
}

// Resolve expands every {key} occurrence for every key in the table,
// repeating the full pass until an iteration produces no change. A template
// that still changes after maxPasses passes is reported as an error rather
// than looped forever.
func (t *Table) Resolve(template string) (string, error) {
	current := template
	for pass := 0; pass < maxPasses; pass++ {
		next := current
		for key, value := range t.entries {
			next = strings.ReplaceAll(next, "{"+key+"}", value)
		}
		if next == current {
			return current, nil
		}
		current = next
	}
	return "", fmt.Errorf("alias substitution of %q did not reach a fixed point after %d passes; check for self-referential aliases", template, maxPasses)
}

// Validate detects self-referential alias chains. A key whose value expands,
// directly or transitively, into a placeholder for itself would make Resolve
// diverge, so it is rejected at configuration-load time.
func (t *Table) Validate() error {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(t.entries))

	var visit func(key string, path []string) error
	visit = func(key string, path []string) error {
		switch state[key] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("alias cycle detected: %s -> %s", strings.Join(path, " -> "), key)
		}
		state[key] = visiting
		for _, ref := range t.references(key) {
			if err := visit(ref, append(path, key)); err != nil {
				return err
			}
		}
		state[key] = done
		return nil
	}

	for _, key := range t.Keys() {
		if err := visit(key, nil); err != nil {
			return err
		}
	}
	return nil
}

// references lists the table keys whose placeholder appears in key's value.
func (t *Table) references(key string) []string {
	value := t.entries[key]
	var refs []string
	for _, other := range t.Keys() {
		if strings.Contains(value, "{"+other+"}") {
			refs = append(refs, other)
		}
	}
	return refs
}
