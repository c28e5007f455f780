package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/ankihorse/pkg/core"
)

func validTemplate() core.Template {
	return core.Template{
		Name:   "testName",
		Fields: []string{"src1", "src2", "tgt1", "tgt2"},
	}
}

func TestRequiredFields(t *testing.T) {
	s := core.NewNull([]string{"a", "b"}, []string{"b", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, core.RequiredFields(s))
}

func TestFieldsIsEligible(t *testing.T) {
	f := core.Fields{Sources: []string{"src1", "src2"}, Targets: []string{"tgt1", "tgt2"}}

	t.Run("All Required Fields", func(t *testing.T) {
		assert.True(t, f.IsEligible(validTemplate()))
	})

	t.Run("Only Source Fields", func(t *testing.T) {
		assert.False(t, f.IsEligible(core.Template{Name: "testName", Fields: []string{"src1", "src2"}}))
	})

	t.Run("Only Target Fields", func(t *testing.T) {
		assert.False(t, f.IsEligible(core.Template{Name: "testName", Fields: []string{"tgt1", "tgt2"}}))
	})

	t.Run("Empty Template", func(t *testing.T) {
		assert.False(t, f.IsEligible(core.Template{Name: "testName"}))
	})
}

func TestFieldsReturnsCopies(t *testing.T) {
	f := core.Fields{Sources: []string{"a"}}
	got := f.SourceFields()
	got[0] = "mutated"
	assert.Equal(t, "a", f.Sources[0])
}

func TestFirstQuery(t *testing.T) {
	tmpl := core.Template{Name: "t", Fields: []string{"a", "b", "c"}}

	t.Run("Skips Blank And Whitespace Fields", func(t *testing.T) {
		n := core.NewMemoryNote("n1", tmpl, map[string]string{"a": "  \t", "b": "query", "c": "other"})
		field, query, ok := core.FirstQuery(n, []string{"a", "b", "c"}, nil)
		require.True(t, ok)
		assert.Equal(t, "b", field)
		assert.Equal(t, "query", query)
	})

	t.Run("Skips Fields The Note Lacks", func(t *testing.T) {
		n := core.NewMemoryNote("n1", tmpl, map[string]string{"c": "kana"})
		field, _, ok := core.FirstQuery(n, []string{"missing", "c"}, nil)
		require.True(t, ok)
		assert.Equal(t, "c", field)
	})

	t.Run("Applies Cleaner Before Blank Check", func(t *testing.T) {
		n := core.NewMemoryNote("n1", tmpl, map[string]string{"a": "<br>", "b": "x"})
		clean := func(s string) string {
			if s == "<br>" {
				return ""
			}
			return s
		}
		field, _, ok := core.FirstQuery(n, []string{"a", "b"}, clean)
		require.True(t, ok)
		assert.Equal(t, "b", field)
	})

	t.Run("None Filled", func(t *testing.T) {
		n := core.NewMemoryNote("n1", tmpl, nil)
		_, _, ok := core.FirstQuery(n, []string{"a", "b", "c"}, nil)
		assert.False(t, ok)
	})
}

func TestMemoryNote(t *testing.T) {
	n := core.NewMemoryNote("n1", validTemplate(), map[string]string{"src1": "x", "unknown": "y"})

	assert.True(t, n.Has("tgt2"))
	assert.False(t, n.Has("unknown"))
	assert.Equal(t, "x", n.Get("src1"))

	n.Set("unknown", "z")
	assert.False(t, n.Has("unknown"))

	n.Set("tgt1", "value")
	assert.Equal(t, "value", n.Fields()["tgt1"])
}

func TestTemplate(t *testing.T) {
	tmpl := core.Template{Name: "JapaneseBasic", Fields: []string{"Expression", "Picture"}}

	name, ok := tmpl.FieldName(1)
	assert.True(t, ok)
	assert.Equal(t, "Picture", name)

	_, ok = tmpl.FieldName(2)
	assert.False(t, ok)
	_, ok = tmpl.FieldName(-1)
	assert.False(t, ok)

	assert.True(t, tmpl.NameContains("japanese"))
	assert.True(t, tmpl.NameContains(""))
	assert.False(t, tmpl.NameContains("horse"))
}

func TestStatic(t *testing.T) {
	tmpl := core.Template{Name: "t", Fields: []string{"src", "tgt"}}
	ctx := context.Background()

	t.Run("Copies Query", func(t *testing.T) {
		s := core.NewStatic([]string{"src"}, []string{"tgt"}, core.QueryPlaceholder)
		n := core.NewMemoryNote("n", tmpl, map[string]string{"src": " cat "})

		changed, err := s.Update(ctx, n)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, "cat", n.Get("tgt"))

		changed, err = s.Update(ctx, n)
		require.NoError(t, err)
		assert.False(t, changed, "second run with the same source must not report a change")
	})

	t.Run("Blank Source", func(t *testing.T) {
		s := core.NewStatic([]string{"src"}, []string{"tgt"}, "fixed")
		n := core.NewMemoryNote("n", tmpl, map[string]string{"src": "   ", "tgt": "keep"})

		changed, err := s.Update(ctx, n)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, "keep", n.Get("tgt"))
	})
}

func TestNull(t *testing.T) {
	s := core.NewNull(nil, []string{"tgt"})
	n := core.NewMemoryNote("n", core.Template{Name: "t", Fields: []string{"tgt"}}, nil)

	changed, err := s.Update(context.Background(), n)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, s.SourceFields())
}
