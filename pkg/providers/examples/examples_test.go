package examples

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/ankihorse/pkg/core"
)

var corpusLines = []string{
	"A: 彼は忙しい生活の中で家族と会うことがない。\tHe doesn't see his family in his busy life.#ID=303645_100000",
	"B: 彼(かれ)[01] は 忙しい{忙しい} 生活 の 中 で 家族 と 会う 事{こと}~ が 無い{ない}",
	"A: 猫が好きです。\tI like cats.#ID=1_1",
	"B: 猫(ねこ)~ が 好き です",
	"A: 猫を飼っている。\tI keep a cat.#ID=2_2",
	"B: 猫(ねこ) を 飼う{飼っている}",
	"A: 本を読みます。\tI read books.#ID=3_3",
	"B: 本 を 読む{読みます}",
}

func fixedRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func TestBuildIndex(t *testing.T) {
	idx := BuildIndex(corpusLines)

	assert.Contains(t, idx.Priority, "事")
	assert.Contains(t, idx.Priority, "こと")
	assert.Contains(t, idx.Priority, "猫")
	assert.NotContains(t, idx.Normal, "01", "sense numbers are not words")
	assert.NotContains(t, idx.Normal, "B:")
	assert.Contains(t, idx.Normal, "無い", "the last word of a line is indexed")

	// 猫 is checked in line 2 and plain in line 4.
	assert.Equal(t, []Entry{{Line: 2, Length: 20}}, idx.Priority["猫"])
	require.Len(t, idx.Normal["猫"], 1)
	assert.Equal(t, 4, idx.Normal["猫"][0].Line)
}

func TestIndexSortedByLength(t *testing.T) {
	lines := []string{
		"A: とても長い文です、本当にとても長い。\tlong#ID=1",
		"B: 文 です",
		"A: 文。\tshort#ID=2",
		"B: 文 。",
	}
	idx := BuildIndex(lines)
	require.Len(t, idx.Normal["文"], 2)
	assert.Equal(t, 2, idx.Normal["文"][0].Line)
}

func TestFind(t *testing.T) {
	c := NewCorpus(corpusLines)

	t.Run("Checked First", func(t *testing.T) {
		got := c.Find("猫", 1, true, fixedRand())
		require.Len(t, got, 1)
		assert.True(t, got[0].Checked)
		assert.Equal(t, `<FONT COLOR="#ff0000">猫</FONT>が好きです。`, got[0].Sentence)
		assert.Equal(t, got[0].Sentence+CheckedMark, got[0].Display())
		assert.Equal(t, "I like cats.", got[0].Translation)
	})

	t.Run("Fills From Both Dictionaries", func(t *testing.T) {
		got := c.Find("猫", 5, false, fixedRand())
		assert.Len(t, got, 2)
	})

	t.Run("Surface Form", func(t *testing.T) {
		got := c.Find("読む", 1, true, fixedRand())
		require.Len(t, got, 1)
		assert.Equal(t, "読みます", got[0].Surface)
		assert.Contains(t, got[0].Sentence, `<FONT COLOR="#ff0000">読みます</FONT>`)
	})

	t.Run("Slash Fallback", func(t *testing.T) {
		got := c.Find("本／ほん", 1, true, fixedRand())
		require.Len(t, got, 1)
		assert.Equal(t, "I read books.", got[0].Translation)
	})

	t.Run("Paren Fallback", func(t *testing.T) {
		got := c.Find("猫（ねこ）", 1, true, fixedRand())
		assert.Empty(t, got, "猫ねこ is not indexed")

		got = c.Find("生（活）", 1, true, fixedRand())
		require.Len(t, got, 1)
	})

	t.Run("Unknown", func(t *testing.T) {
		assert.Empty(t, c.Find("犬", 1, true, fixedRand()))
	})
}

func TestWeightedSamplePrefersMidLength(t *testing.T) {
	entries := []Entry{{Line: 0, Length: 10}, {Line: 2, Length: 200}}
	counts := map[int]int{}
	rng := fixedRand()
	for range 200 {
		got := weightedSample(entries, 1, rng)
		require.Len(t, got, 1)
		counts[got[0]]++
	}
	assert.Greater(t, counts[0], counts[2])

	assert.ElementsMatch(t, []int{0, 2}, weightedSample(entries, 2, rng), "no entry is picked twice")
}

func TestLoadCorpusCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "japanese_examples.utf")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(corpusLines, "\n")+"\n"), 0644))

	c, err := LoadCorpus(path, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, c.Find("猫", 1, true, fixedRand()))

	cache := path + IndexSuffix
	info, err := os.Stat(cache)
	require.NoError(t, err)

	// A fresh cache is used as is.
	require.NoError(t, os.WriteFile(cache, []byte(`{"priority":{},"normal":{}}`), 0644))
	future := info.ModTime().Add(time.Hour)
	require.NoError(t, os.Chtimes(cache, future, future))
	c, err = LoadCorpus(path, nil)
	require.NoError(t, err)
	assert.Empty(t, c.Find("猫", 1, true, fixedRand()))

	// A corpus newer than the cache triggers a rebuild.
	later := future.Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))
	c, err = LoadCorpus(path, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, c.Find("猫", 1, true, fixedRand()))
}

func TestStrategy(t *testing.T) {
	tmpl := core.Template{Name: "Japanese", Fields: []string{"Expression", "Sentence", "Translation", "Cloze"}}
	s, err := New([]string{"Expression"}, []string{"Sentence", "Translation", "Cloze"}, NewCorpus(corpusLines), true, nil)
	require.NoError(t, err)
	s.rng = fixedRand()
	ctx := context.Background()

	t.Run("Fills Targets", func(t *testing.T) {
		n := core.NewMemoryNote("n1", tmpl, map[string]string{"Expression": "本"})
		changed, err := s.Update(ctx, n)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, `<FONT COLOR="#ff0000">本</FONT>を読みます。`, n.Get("Sentence"))
		assert.Equal(t, "I read books.", n.Get("Translation"))
		assert.Equal(t, `<FONT COLOR="#ff0000">（　）</FONT>を読みます。`, n.Get("Cloze"))
	})

	t.Run("Marks Checked Sentences", func(t *testing.T) {
		n := core.NewMemoryNote("n1", tmpl, map[string]string{"Expression": "猫"})
		changed, err := s.Update(ctx, n)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, `<FONT COLOR="#ff0000">猫</FONT>が好きです。`+CheckedMark, n.Get("Sentence"))
		assert.Equal(t, "I like cats.", n.Get("Translation"))
		assert.Equal(t, `<FONT COLOR="#ff0000">（　）</FONT>が好きです。`, n.Get("Cloze"), "the cloze is not marked")
	})

	t.Run("Never Overwrites", func(t *testing.T) {
		n := core.NewMemoryNote("n1", tmpl, map[string]string{"Expression": "本", "Translation": "mine"})
		changed, err := s.Update(ctx, n)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, n.Get("Sentence"))
	})

	t.Run("No Example", func(t *testing.T) {
		n := core.NewMemoryNote("n1", tmpl, map[string]string{"Expression": "犬"})
		changed, err := s.Update(ctx, n)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("Two Targets", func(t *testing.T) {
		two, err := New([]string{"Expression"}, []string{"Sentence", "Cloze"}, NewCorpus(corpusLines), false, nil)
		require.NoError(t, err)
		n := core.NewMemoryNote("n1", tmpl, map[string]string{"Expression": "本"})
		changed, err := two.Update(ctx, n)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.Empty(t, n.Get("Translation"))
		assert.Contains(t, n.Get("Cloze"), Cloze)
	})

	t.Run("Bad Targets", func(t *testing.T) {
		_, err := New([]string{"Expression"}, []string{"Sentence"}, NewCorpus(corpusLines), false, nil)
		assert.Error(t, err)
	})
}
