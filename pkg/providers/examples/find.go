package examples

import (
	"fmt"
	"regexp"
	"strings"
)

// Highlight wraps the expression in an example sentence.
const Highlight = `<FONT COLOR="#ff0000">%s</FONT>`

// CheckedMark is appended to the displayed form of checked sentences.
const CheckedMark = " {CHECKED}"

// Sampler is the source of randomness for picking sentences.
// *rand.Rand from math/rand/v2 satisfies it.
type Sampler interface {
	Float64() float64
	IntN(n int) int
}

// Example is one sentence of the corpus.
type Example struct {
	// Sentence is the Japanese sentence with the expression highlighted.
	Sentence    string
	Translation string
	// Surface is the form of the expression as it appears in the sentence.
	Surface string
	// Checked is set for sentences that were verified for the expression.
	Checked bool
}

// Display is the sentence as written into a note: checked sentences carry
// CheckedMark.
func (e Example) Display() string {
	if e.Checked {
		return e.Sentence + CheckedMark
	}
	return e.Sentence
}

// Weighted sampling favours sentences between these lengths, in characters.
const (
	minLength = 25
	maxLength = 70
	power     = 3
)

var (
	slashFallback = regexp.MustCompile(`^(.*?)[／/]`)
	parenFallback = regexp.MustCompile(`^(.*?)[(（](.+?)[)）]`)
)

// Find returns up to limit examples for expression, checked sentences first.
// When the expression is not indexed, "A／B" is retried as "A" and "A（B）"
// as "AB".
func (c *Corpus) Find(expression string, limit int, weighted bool, rng Sampler) []Example {
	var out []Example
	found := false

	dicts := []struct {
		entries map[string][]Entry
		checked bool
	}{
		{c.index.Priority, true},
		{c.index.Normal, false},
	}
	for _, d := range dicts {
		entries, ok := d.entries[expression]
		if !ok {
			continue
		}
		found = true
		if limit <= 0 {
			break
		}

		k := min(len(entries), limit)
		var lines []int
		if weighted {
			lines = weightedSample(entries, k, rng)
		} else {
			lines = randomSample(entries, k, rng)
		}
		limit -= len(lines)

		for _, line := range lines {
			ex, ok := c.example(line, expression)
			if !ok {
				continue
			}
			ex.Checked = d.checked
			out = append(out, ex)
		}
	}
	if found || expression == "" {
		return out
	}

	if m := slashFallback.FindStringSubmatch(expression); m != nil && limit > 0 {
		res := c.Find(m[1], limit, weighted, rng)
		limit -= len(res)
		out = append(out, res...)
	}
	if m := parenFallback.FindStringSubmatch(expression); m != nil && limit > 0 && strings.TrimSpace(m[1]) != "" {
		out = append(out, c.Find(m[1]+m[2], limit, weighted, rng)...)
	}
	return out
}

func (c *Corpus) example(line int, expression string) (Example, bool) {
	if line < 0 || line+1 >= len(c.lines) {
		return Example{}, false
	}
	japanese, english, _ := strings.Cut(sentenceText(c.lines[line]), "\t")

	surface := surfaceForm(c.lines[line+1], expression)
	if !strings.Contains(japanese, surface) {
		surface = expression
	}
	return Example{
		Sentence:    strings.ReplaceAll(japanese, surface, fmt.Sprintf(Highlight, surface)),
		Translation: strings.TrimSpace(english),
		Surface:     surface,
	}, true
}

// surfaceForm finds how expression is written in the sentence, using the
// {surface} annotation of the B line, or the word read as (expression).
func surfaceForm(words, expression string) string {
	quoted := regexp.QuoteMeta(expression)

	annotated := regexp.MustCompile(`(?:\(*` + quoted + `\)*)(?:\([^\s]+?\))*(?:\[\d+\])*\{(.+?)\}`)
	if m := annotated.FindStringSubmatch(words); m != nil {
		return m[1]
	}
	reading := regexp.MustCompile(`(?:\s([^\s]*?))(?:\(` + quoted + `\))`)
	if m := reading.FindStringSubmatch(words); m != nil && m[1] != "" {
		return m[1]
	}
	return expression
}

func weightedSample(entries []Entry, n int, rng Sampler) []int {
	weights := make([]float64, len(entries))
	total := 0.0
	for i, e := range entries {
		b := max(e.Length, minLength)
		b = min(b, maxLength)
		b = maxLength - b + 1
		w := 1.0
		for range power {
			w *= float64(b)
		}
		weights[i] = w
		total += w
	}

	out := make([]int, 0, n)
	for range n {
		g := total * rng.Float64()
		for i, w := range weights {
			if w == 0 {
				continue
			}
			if g < w {
				out = append(out, entries[i].Line)
				total -= w
				weights[i] = 0
				break
			}
			g -= w
		}
	}
	return out
}

func randomSample(entries []Entry, n int, rng Sampler) []int {
	picked := make([]int, len(entries))
	for i := range picked {
		picked[i] = i
	}
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(picked)-i)
		picked[i], picked[j] = picked[j], picked[i]
		out = append(out, entries[picked[i]].Line)
	}
	return out
}
