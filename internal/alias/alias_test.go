package alias

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Run("single level", func(t *testing.T) {
		tbl := FromMap(map[string]string{"CMD": "echo", "X": "1"})

		out, err := tbl.Resolve("{CMD} --x {X}")
		require.NoError(t, err)
		assert.Equal(t, "echo --x 1", out)
	})

	t.Run("multi level indirection", func(t *testing.T) {
		tbl := FromMap(map[string]string{
			"BIN":   "{PROJECT}/target/solver",
			"PROJECT": "/tmp/proj",
			"RUN":   "{BIN} --fast",
		})

		out, err := tbl.Resolve("{RUN}")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/proj/target/solver --fast", out)
	})

	t.Run("unknown placeholder survives", func(t *testing.T) {
		tbl := FromMap(map[string]string{"A": "a"})

		out, err := tbl.Resolve("{A} {NOPE}")
		require.NoError(t, err)
		assert.Equal(t, "a {NOPE}", out)
	})

	t.Run("no registered key remains after fixpoint", func(t *testing.T) {
		tbl := FromMap(map[string]string{
			"A": "x{B}x",
			"B": "y{C}y",
			"C": "z",
		})

		out, err := tbl.Resolve("{A}{B}{C}")
		require.NoError(t, err)
		for _, key := range tbl.Keys() {
			assert.NotContains(t, out, "{"+key+"}")
		}
	})

	t.Run("growing self reference hits the pass cap", func(t *testing.T) {
		tbl := FromMap(map[string]string{"A": "a{A}"})

		_, err := tbl.Resolve("{A}")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "fixed point")
	})

	t.Run("identity self reference is a fixpoint", func(t *testing.T) {
		// {A} -> {A} changes nothing, so the loop terminates with the
		// placeholder still present. Validate is the layer that rejects it.
		tbl := FromMap(map[string]string{"A": "{A}"})

		out, err := tbl.Resolve("{A}")
		require.NoError(t, err)
		assert.Equal(t, "{A}", out)
	})
}

func TestValidate(t *testing.T) {
	t.Run("acyclic table passes", func(t *testing.T) {
		tbl := FromMap(map[string]string{
			"A": "{B}",
			"B": "{C} {C}",
			"C": "leaf",
		})
		require.NoError(t, tbl.Validate())
	})

	t.Run("direct cycle rejected", func(t *testing.T) {
		tbl := FromMap(map[string]string{"A": "{A}"})
		err := tbl.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cycle")
	})

	t.Run("transitive cycle rejected", func(t *testing.T) {
		tbl := FromMap(map[string]string{
			"A": "{B}",
			"B": "{C}",
			"C": "{A}",
		})
		err := tbl.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cycle")
	})
}

func TestOverlay(t *testing.T) {
	base := FromMap(map[string]string{"X": "1", "Y": "2"})
	job := base.Overlay(map[string]string{"X": "9", "Z": "3"})

	out, err := job.Resolve("{X}{Y}{Z}")
	require.NoError(t, err)
	assert.Equal(t, "923", out)

	// Base table is untouched.
	v, ok := base.Get("X")
	require.True(t, ok)
	assert.Equal(t, "1", v)
	assert.False(t, base.Has("Z"))
}

func TestSetLastWriteWins(t *testing.T) {
	tbl := New()
	tbl.Set("KEY", "from-config")
	tbl.Set("KEY", "from-cli")

	v, _ := tbl.Get("KEY")
	assert.Equal(t, "from-cli", v)
}
