package updater_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/ankihorse/pkg/core"
	"github.com/aretw0/ankihorse/pkg/updater"
)

func TestRegistry_Register(t *testing.T) {
	r := updater.NewRegistry(nil)
	c := updater.New("pictures", newSpy([]string{"Expression"}, []string{"Picture"}))

	require.NoError(t, r.Register(c))
	assert.Equal(t, updater.PhaseRegistered, c.Phase())

	t.Run("Twice", func(t *testing.T) {
		assert.ErrorIs(t, r.Register(c), updater.ErrAlreadyRegistered)
	})

	t.Run("Same Name", func(t *testing.T) {
		dup := updater.New("pictures", newSpy(nil, nil))
		assert.ErrorIs(t, r.Register(dup), updater.ErrAlreadyRegistered)
	})

	t.Run("Other Registry", func(t *testing.T) {
		assert.ErrorIs(t, updater.NewRegistry(nil).Register(c), updater.ErrAlreadyRegistered)
	})

	t.Run("Commands", func(t *testing.T) {
		cmds := r.Commands()
		require.Len(t, cmds, 1)
		assert.Equal(t, "pictures: regenerate all", cmds[0].Label)
	})

	t.Run("Lookup", func(t *testing.T) {
		got, err := r.Lookup("pictures")
		require.NoError(t, err)
		assert.Same(t, c, got)

		_, err = r.Lookup("missing")
		assert.ErrorIs(t, err, updater.ErrNotRegistered)
	})
}

func TestRegistry_FieldBlur(t *testing.T) {
	ctx := context.Background()
	tmpl := core.Template{Name: "JapaneseBasic", Fields: []string{"Expression", "Picture", "Audio"}}

	pictures := newSpy([]string{"Expression"}, []string{"Picture"})
	pictures.results["n1"] = spyResult{changed: true}
	audio := newSpy([]string{"Expression"}, []string{"Audio"})
	audio.results["n1"] = spyResult{changed: false}
	batchOnly := newSpy([]string{"Expression"}, []string{"Audio"})

	r := updater.NewRegistry(nil)
	require.NoError(t, r.Register(updater.New("pictures", pictures)))
	require.NoError(t, r.Register(updater.New("audio", audio)))
	require.NoError(t, r.Register(updater.New("batch", batchOnly, updater.WithFieldBlur(false))))

	n := core.NewMemoryNote("n1", tmpl, map[string]string{"Expression": "cat"})
	flag, err := r.FieldBlur(ctx, false, n, 0)
	require.NoError(t, err)
	assert.True(t, flag, "a later false must not clear an earlier true")
	assert.Len(t, pictures.calls, 1)
	assert.Len(t, audio.calls, 1)
	assert.Empty(t, batchOnly.calls)

	t.Run("Commands Run Regeneration", func(t *testing.T) {
		col := newMockCollection(tmpl)
		col.add(core.NewMemoryNote("n2", tmpl, map[string]string{"Expression": "dog"}))

		for _, cmd := range r.Commands() {
			if cmd.Name != "batch" {
				continue
			}
			count, err := cmd.Run(ctx, col, updater.AlwaysConfirm)
			require.NoError(t, err)
			assert.Equal(t, 1, count)
		}
		assert.Equal(t, []string{"n2"}, batchOnly.calls)
	})
}

func TestRegistry_State(t *testing.T) {
	r := updater.NewRegistry(nil)
	require.NoError(t, r.Register(updater.New("a", newSpy(nil, nil))))
	require.NoError(t, r.Register(updater.New("b", newSpy(nil, nil))))

	st, ok := r.State().(updater.RegistryState)
	require.True(t, ok)
	require.Len(t, st.Coordinators, 2)
	assert.Equal(t, "a", st.Coordinators[0].Name)
	assert.Equal(t, "registry", r.ComponentType())
}
