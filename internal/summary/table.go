package summary

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/maruel/natural"
)

// Table is a summary file read back into memory.
type Table struct {
	Header []string
	Rows   [][]string
}

// Read loads a summary file. A missing file reads as an empty table.
func Read(path string) (*Table, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open summary file: %w", err)
	}
	defer f.Close()

	t := &Table{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), "\t")
		if t.Header == nil {
			t.Header = parts
			continue
		}
		t.Rows = append(t.Rows, parts)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read summary file: %w", err)
	}
	return t, nil
}

// Sort orders the rows by the named columns, in natural ("human") order,
// case-insensitive on the column name. A leading '~' reverses that column.
// Unknown columns are ignored. The header row is never moved.
func (t *Table) Sort(columns []string) {
	type key struct {
		index   int
		reverse bool
	}
	var keys []key
	for _, column := range columns {
		name, reverse := column, false
		if strings.HasPrefix(name, "~") {
			name, reverse = name[1:], true
		}
		for i, h := range t.Header {
			if strings.EqualFold(h, name) {
				keys = append(keys, key{index: i, reverse: reverse})
				break
			}
		}
	}
	if len(keys) == 0 {
		return
	}

	cell := func(row []string, i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	sort.SliceStable(t.Rows, func(a, b int) bool {
		for _, k := range keys {
			lhs, rhs := cell(t.Rows[a], k.index), cell(t.Rows[b], k.index)
			if lhs == rhs {
				continue
			}
			less := natural.Less(lhs, rhs)
			if k.reverse {
				return !less
			}
			return less
		}
		return false
	})
}

// Render draws the table for the terminal.
func (t *Table) Render() string {
	if len(t.Header) == 0 {
		return "(empty summary)"
	}
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(t.Header...).
		Rows(t.Rows...)
	return tbl.Render()
}
