package summary

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.tsv")
	w := NewWriter(path, []string{"n", "solver", "status", "elapsed"})

	require.NoError(t, w.Append([]string{"10", "greedy", "ok", "1.2s"}))
	require.NoError(t, w.Append([]string{"100", "exact", "error", "0.4s"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"n\tsolver\tstatus\telapsed\n10\tgreedy\tok\t1.2s\n100\texact\terror\t0.4s\n",
		string(data))
}

func TestAppendResumesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.tsv")

	require.NoError(t, NewWriter(path, []string{"a", "status"}).Append([]string{"1", "ok"}))
	require.NoError(t, NewWriter(path, []string{"a", "status"}).Append([]string{"2", "ok"}))

	tbl, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "status"}, tbl.Header)
	assert.Len(t, tbl.Rows, 2, "resume must not rewrite or re-header the file")
}

func TestAppendRejectsArityMismatch(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "s.tsv"), []string{"a", "b"})
	require.Error(t, w.Append([]string{"only-one"}))
}

func TestConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.tsv")
	w := NewWriter(path, []string{"i", "status"})

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			require.NoError(t, w.Append([]string{strconv.Itoa(i), "ok"}))
		}(i)
	}
	wg.Wait()

	tbl, err := Read(path)
	require.NoError(t, err)
	require.Len(t, tbl.Rows, n)

	seen := make(map[string]bool)
	for _, row := range tbl.Rows {
		require.Len(t, row, 2, "no byte-level interleaving")
		assert.False(t, seen[row[0]], "no duplicate rows")
		seen[row[0]] = true
	}
}

func TestReadMissingFile(t *testing.T) {
	tbl, err := Read(filepath.Join(t.TempDir(), "nope.tsv"))
	require.NoError(t, err)
	assert.Empty(t, tbl.Header)
	assert.Empty(t, tbl.Rows)
}

func TestSort(t *testing.T) {
	newTable := func() *Table {
		return &Table{
			Header: []string{"n", "solver"},
			Rows: [][]string{
				{"100", "exact"},
				{"9", "greedy"},
				{"20", "exact"},
			},
		}
	}

	t.Run("natural order", func(t *testing.T) {
		tbl := newTable()
		tbl.Sort([]string{"n"})
		assert.Equal(t, [][]string{
			{"9", "greedy"},
			{"20", "exact"},
			{"100", "exact"},
		}, tbl.Rows)
	})

	t.Run("reversed with tilde", func(t *testing.T) {
		tbl := newTable()
		tbl.Sort([]string{"~n"})
		assert.Equal(t, [][]string{
			{"100", "exact"},
			{"20", "exact"},
			{"9", "greedy"},
		}, tbl.Rows)
	})

	t.Run("secondary column breaks ties", func(t *testing.T) {
		tbl := newTable()
		tbl.Sort([]string{"solver", "n"})
		assert.Equal(t, [][]string{
			{"20", "exact"},
			{"100", "exact"},
			{"9", "greedy"},
		}, tbl.Rows)
	})

	t.Run("header match is case insensitive, unknown ignored", func(t *testing.T) {
		tbl := newTable()
		tbl.Sort([]string{"bogus", "N"})
		assert.Equal(t, "9", tbl.Rows[0][0])
	})
}
