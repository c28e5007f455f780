package updater_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/ankihorse/pkg/core"
	"github.com/aretw0/ankihorse/pkg/updater"
)

func TestShouldApply(t *testing.T) {
	spy := newSpy([]string{"Expression"}, []string{"Picture"})

	tests := []struct {
		name     string
		filter   string
		template core.Template
		want     bool
	}{
		{"NoFilterEligible", "", japaneseBasic(), true},
		{"FilterMatchesCaseInsensitive", "japanese", japaneseBasic(), true},
		{"FilterMisses", "french", japaneseBasic(), false},
		{"FilterMatchesButMissingField", "japanese", core.Template{Name: "Japanese", Fields: []string{"Expression"}}, false},
		{"NoFilterMissingSource", "", core.Template{Name: "Basic", Fields: []string{"Picture"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := updater.New("pictures", spy, updater.WithNameFilter(tt.filter))
			got := c.ShouldApply(tt.template)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.template.NameContains(tt.filter) && spy.IsEligible(tt.template), got)
		})
	}
}

func TestShouldApplyIsNotCached(t *testing.T) {
	spy := newSpy([]string{"Expression"}, []string{"Picture"})
	c := updater.New("pictures", spy)

	tmpl := core.Template{Name: "Basic", Fields: []string{"Expression"}}
	assert.False(t, c.ShouldApply(tmpl))

	tmpl.Fields = append(tmpl.Fields, "Picture")
	assert.True(t, c.ShouldApply(tmpl))
}

func TestApplyTo(t *testing.T) {
	ctx := context.Background()

	t.Run("Ineligible Note Is Untouched", func(t *testing.T) {
		spy := newSpy([]string{"Expression"}, []string{"Picture"})
		c := updater.New("pictures", spy)

		tmpl := core.Template{Name: "Basic", Fields: []string{"Expression", "Back"}}
		n := &recordingNote{MemoryNote: core.NewMemoryNote("n1", tmpl, map[string]string{"Expression": "cat"})}

		changed, err := c.ApplyTo(ctx, n)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, spy.calls, "strategy must not be invoked")
		assert.Empty(t, n.writes, "no field may be written")
	})

	t.Run("Filtered Out By Name", func(t *testing.T) {
		spy := newSpy([]string{"Expression"}, []string{"Picture"})
		c := updater.New("pictures", spy, updater.WithNameFilter("french"))

		n := core.NewMemoryNote("n1", japaneseBasic(), map[string]string{"Expression": "cat"})
		changed, err := c.ApplyTo(ctx, n)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, spy.calls)
	})

	t.Run("Eligible Note Is Updated", func(t *testing.T) {
		spy := newSpy([]string{"Expression"}, []string{"Picture"})
		c := updater.New("pictures", spy)

		n := core.NewMemoryNote("n1", japaneseBasic(), map[string]string{"Expression": "猫"})
		changed, err := c.ApplyTo(ctx, n)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "done:猫", n.Get("Picture"))
		assert.Equal(t, updater.PhaseActive, c.Phase())
	})

	t.Run("Unexpected Error Propagates", func(t *testing.T) {
		spy := newSpy([]string{"Expression"}, []string{"Picture"})
		spy.results["n1"] = spyResult{err: errBoom}
		c := updater.New("pictures", spy)

		n := core.NewMemoryNote("n1", japaneseBasic(), nil)
		_, err := c.ApplyTo(ctx, n)
		assert.ErrorIs(t, err, errBoom)
	})
}

func TestOnFieldBlur(t *testing.T) {
	ctx := context.Background()

	t.Run("Never Clears Flag", func(t *testing.T) {
		spy := newSpy([]string{"Expression"}, []string{"Picture"})
		spy.results["n1"] = spyResult{changed: false}
		c := updater.New("pictures", spy)

		n := core.NewMemoryNote("n1", japaneseBasic(), map[string]string{"Expression": "cat"})
		flag, err := c.OnFieldBlur(ctx, true, n, 0)
		require.NoError(t, err)
		assert.True(t, flag)
		assert.Len(t, spy.calls, 1)
	})

	t.Run("Non Source Field Skips Strategy", func(t *testing.T) {
		spy := newSpy([]string{"Expression"}, []string{"Picture"})
		c := updater.New("pictures", spy)

		n := core.NewMemoryNote("n1", japaneseBasic(), map[string]string{"Expression": "cat"})
		for _, flag := range []bool{false, true} {
			got, err := c.OnFieldBlur(ctx, flag, n, 1) // Meaning
			require.NoError(t, err)
			assert.Equal(t, flag, got)
		}
		assert.Empty(t, spy.calls)
	})

	t.Run("Whitespace Source Falls Back To Next", func(t *testing.T) {
		spy := newSpy([]string{"Expression", "Reading"}, []string{"Picture"})
		c := updater.New("pictures", spy, updater.WithNameFilter("japanese"))

		n := core.NewMemoryNote("n1", japaneseBasic(), map[string]string{
			"Expression": "   ",
			"Reading":    "ねこ",
		})
		flag, err := c.OnFieldBlur(ctx, false, n, 0)
		require.NoError(t, err)
		assert.True(t, flag)
		assert.Equal(t, []string{"n1"}, spy.calls)
		assert.Equal(t, "done:ねこ", n.Get("Picture"))
	})

	t.Run("Index Out Of Range", func(t *testing.T) {
		spy := newSpy([]string{"Expression"}, []string{"Picture"})
		c := updater.New("pictures", spy)

		n := core.NewMemoryNote("n1", japaneseBasic(), nil)
		flag, err := c.OnFieldBlur(ctx, true, n, 42)
		assert.ErrorIs(t, err, core.ErrFieldIndex)
		assert.True(t, flag)
		assert.Empty(t, spy.calls)
	})
}

func TestRegenerateAll(t *testing.T) {
	ctx := context.Background()

	t.Run("Declined", func(t *testing.T) {
		spy := newSpy([]string{"Expression"}, []string{"Picture"})
		col := newMockCollection(japaneseBasic())
		col.add(core.NewMemoryNote("n1", japaneseBasic(), map[string]string{"Expression": "cat"}))

		var messages []string
		c := updater.New("pictures", spy, updater.WithNotifier(func(m string) { messages = append(messages, m) }))

		var prompt string
		count, err := c.RegenerateAll(ctx, col, func(p string) bool { prompt = p; return false })
		require.NoError(t, err)
		assert.Equal(t, 0, count)
		assert.Zero(t, col.listed, "no enumeration after decline")
		assert.Empty(t, col.persisted)
		assert.Empty(t, spy.calls)
		assert.Empty(t, messages)
		assert.Contains(t, prompt, "regenerate all pictures")
	})

	t.Run("Per Note Failure Does Not Abort", func(t *testing.T) {
		spy := newSpy([]string{"Expression"}, []string{"Picture"})
		spy.results["n2"] = spyResult{changed: false}

		col := newMockCollection(japaneseBasic())
		for _, id := range []string{"n1", "n2", "n3"} {
			col.add(core.NewMemoryNote(id, japaneseBasic(), map[string]string{"Expression": id}))
		}

		var messages []string
		c := updater.New("pictures", spy, updater.WithNotifier(func(m string) { messages = append(messages, m) }))

		count, err := c.RegenerateAll(ctx, col, updater.AlwaysConfirm)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.Equal(t, []string{"n1", "n3"}, col.persisted)
		assert.Equal(t, 1, col.refreshed)
		require.Len(t, messages, 1)
		assert.True(t, containsAll(messages[0], "pictures", "2"), messages[0])
	})

	t.Run("Skips Templates That Should Not Apply", func(t *testing.T) {
		spy := newSpy([]string{"Expression"}, []string{"Picture"})
		other := core.Template{Name: "Basic", Fields: []string{"Front", "Back"}}

		col := newMockCollection(japaneseBasic(), other)
		col.add(core.NewMemoryNote("j1", japaneseBasic(), map[string]string{"Expression": "x"}))
		col.add(core.NewMemoryNote("b1", other, map[string]string{"Front": "x"}))

		c := updater.New("pictures", spy, updater.WithNotifier(func(string) {}))
		count, err := c.RegenerateAll(ctx, col, updater.AlwaysConfirm)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Equal(t, []string{"j1"}, spy.calls)
	})

	t.Run("Template Edited Mid Batch Is Skipped", func(t *testing.T) {
		spy := newSpy([]string{"Expression"}, []string{"Picture"})
		edited := core.Template{Name: "JapaneseBasic", Fields: []string{"Expression"}}

		col := newMockCollection(japaneseBasic())
		col.add(core.NewMemoryNote("n1", japaneseBasic(), map[string]string{"Expression": "x"}))
		col.add(core.NewMemoryNote("n2", edited, map[string]string{"Expression": "y"}))

		c := updater.New("pictures", spy, updater.WithNotifier(func(string) {}))
		count, err := c.RegenerateAll(ctx, col, updater.AlwaysConfirm)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Equal(t, []string{"n1"}, spy.calls)
	})

	t.Run("Template Is Resolved Again For Each Note", func(t *testing.T) {
		col := newResolvingCollection(japaneseBasic())
		for _, id := range []string{"n1", "n2"} {
			col.add(core.NewMemoryNote(id, japaneseBasic(), map[string]string{"Expression": id}))
		}

		spy := newSpy([]string{"Expression"}, []string{"Picture"})
		spy.before = func(n core.Note) {
			if n.ID() == "n1" {
				col.current["JapaneseBasic"] = core.Template{Name: "JapaneseBasic", Fields: []string{"Expression", "Meaning"}}
			}
		}

		c := updater.New("pictures", spy, updater.WithNameFilter("japanese"), updater.WithNotifier(func(string) {}))
		count, err := c.RegenerateAll(ctx, col, updater.AlwaysConfirm)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Equal(t, []string{"n1"}, spy.calls)
		assert.Equal(t, []string{"n1"}, col.persisted)
	})

	t.Run("Template Removed Mid Batch Is Skipped", func(t *testing.T) {
		col := newResolvingCollection(japaneseBasic())
		for _, id := range []string{"n1", "n2"} {
			col.add(core.NewMemoryNote(id, japaneseBasic(), map[string]string{"Expression": id}))
		}

		spy := newSpy([]string{"Expression"}, []string{"Picture"})
		spy.before = func(core.Note) { delete(col.current, "JapaneseBasic") }

		c := updater.New("pictures", spy, updater.WithNotifier(func(string) {}))
		count, err := c.RegenerateAll(ctx, col, updater.AlwaysConfirm)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		assert.Equal(t, []string{"n1"}, spy.calls)
	})

	t.Run("Template Lookup Error Aborts", func(t *testing.T) {
		col := newResolvingCollection(japaneseBasic())
		col.add(core.NewMemoryNote("n1", japaneseBasic(), map[string]string{"Expression": "x"}))
		col.err = errBoom

		spy := newSpy([]string{"Expression"}, []string{"Picture"})
		c := updater.New("pictures", spy, updater.WithNotifier(func(string) {}))
		count, err := c.RegenerateAll(ctx, col, updater.AlwaysConfirm)
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, 0, count)
		assert.Empty(t, spy.calls)
	})

	t.Run("Nothing Changed Skips Refresh", func(t *testing.T) {
		spy := newSpy([]string{"Expression"}, []string{"Picture"})
		col := newMockCollection(japaneseBasic())
		col.add(core.NewMemoryNote("n1", japaneseBasic(), nil))

		var messages []string
		c := updater.New("pictures", spy, updater.WithNotifier(func(m string) { messages = append(messages, m) }))
		count, err := c.RegenerateAll(ctx, col, updater.AlwaysConfirm)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
		assert.Zero(t, col.refreshed)
		assert.Equal(t, []string{"pictures: regenerated 0 notes"}, messages)
	})

	t.Run("Unexpected Error Aborts With Partial Count", func(t *testing.T) {
		spy := newSpy([]string{"Expression"}, []string{"Picture"})
		spy.results["n2"] = spyResult{err: errBoom}

		col := newMockCollection(japaneseBasic())
		for _, id := range []string{"n1", "n2", "n3"} {
			col.add(core.NewMemoryNote(id, japaneseBasic(), map[string]string{"Expression": id}))
		}

		var messages []string
		c := updater.New("pictures", spy, updater.WithNotifier(func(m string) { messages = append(messages, m) }))
		count, err := c.RegenerateAll(ctx, col, updater.AlwaysConfirm)
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, 1, count)
		assert.Equal(t, []string{"n1", "n2"}, spy.calls)
		assert.Equal(t, 1, col.refreshed)
		assert.Len(t, messages, 1)
	})

	t.Run("Persist Error Aborts", func(t *testing.T) {
		spy := newSpy([]string{"Expression"}, []string{"Picture"})
		col := newMockCollection(japaneseBasic())
		col.add(core.NewMemoryNote("n1", japaneseBasic(), map[string]string{"Expression": "x"}))
		col.persistErr["n1"] = core.ErrReadOnly

		c := updater.New("pictures", spy, updater.WithNotifier(func(string) {}))
		count, err := c.RegenerateAll(ctx, col, updater.AlwaysConfirm)
		assert.True(t, errors.Is(err, core.ErrReadOnly))
		assert.Equal(t, 0, count)
	})

	t.Run("Cancelled Context Stops Between Notes", func(t *testing.T) {
		spy := newSpy([]string{"Expression"}, []string{"Picture"})
		col := newMockCollection(japaneseBasic())
		col.add(core.NewMemoryNote("n1", japaneseBasic(), map[string]string{"Expression": "x"}))

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		c := updater.New("pictures", spy, updater.WithNotifier(func(string) {}))
		count, err := c.RegenerateAll(cctx, col, updater.AlwaysConfirm)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, count)
		assert.Empty(t, spy.calls)
	})
}

func TestCoordinatorState(t *testing.T) {
	spy := newSpy([]string{"Expression"}, []string{"Picture"})
	c := updater.New("pictures", spy, updater.WithNameFilter("japanese"), updater.WithFieldBlur(false))

	st, ok := c.State().(updater.CoordinatorState)
	require.True(t, ok)
	assert.Equal(t, "pictures", st.Name)
	assert.Equal(t, updater.PhaseCreated, st.Phase)
	assert.Equal(t, "japanese", st.NameFilter)
	assert.False(t, st.FieldBlur)
	assert.Equal(t, "coordinator", c.ComponentType())
}
