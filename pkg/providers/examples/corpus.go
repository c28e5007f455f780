// Package examples finds Japanese example sentences in the Tanaka corpus.
//
// The corpus is a text file of line pairs:
//
//	A: 彼は忙しい生活の中で家族と会うことがない。	He doesn't see his family in his busy life.#ID=303645_100000
//	B: 彼(かれ)[01] は 忙しい{忙しい} 生活 の 中 で 家族 と 会う 事{こと}[01]~ が 無い{ない}
//
// The A line holds the sentence and its translation, the B line the indexed
// words. Words marked with "~" are checked examples and are preferred.
package examples

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Entry locates a sentence in the corpus.
type Entry struct {
	Line   int `json:"line"`
	Length int `json:"length"`
}

// Index maps words to the sentences that use them, shortest first.
type Index struct {
	Priority map[string][]Entry `json:"priority"`
	Normal   map[string][]Entry `json:"normal"`
}

// Corpus is a loaded example corpus and its index.
type Corpus struct {
	lines []string
	index Index
}

// IndexSuffix is appended to the corpus path to name the index cache.
const IndexSuffix = ".index.json"

var wordSplitter = regexp.MustCompile(`[\s\[\](){}]`)

// LoadCorpus reads the corpus at path. The word index is read from the cache
// next to it when the cache is newer than the corpus, and rebuilt and saved
// otherwise. A cache that cannot be written is logged and ignored.
func LoadCorpus(path string, logger *slog.Logger) (*Corpus, error) {
	if logger == nil {
		logger = slog.Default()
	}

	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	c := &Corpus{lines: lines}

	cachePath := path + IndexSuffix
	if fresh(cachePath, path) {
		idx, err := readIndex(cachePath)
		if err == nil {
			c.index = idx
			return c, nil
		}
		logger.Warn("ignoring unreadable example index", "path", cachePath, "error", err)
	}

	c.index = BuildIndex(lines)
	if err := writeIndex(cachePath, c.index); err != nil {
		logger.Warn("failed to cache example index", "path", cachePath, "error", err)
	}
	return c, nil
}

// NewCorpus builds a corpus from lines already in memory.
func NewCorpus(lines []string) *Corpus {
	return &Corpus{lines: lines, index: BuildIndex(lines)}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	return lines, nil
}

func fresh(cache, source string) bool {
	ci, err := os.Stat(cache)
	if err != nil {
		return false
	}
	si, err := os.Stat(source)
	if err != nil {
		return false
	}
	return ci.ModTime().After(si.ModTime())
}

func readIndex(path string) (Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Index{}, err
	}
	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return Index{}, err
	}
	if idx.Priority == nil || idx.Normal == nil {
		return Index{}, fmt.Errorf("incomplete index")
	}
	return idx, nil
}

func writeIndex(path string, idx Index) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// BuildIndex indexes the B lines of a corpus.
func BuildIndex(lines []string) Index {
	idx := Index{
		Priority: make(map[string][]Entry),
		Normal:   make(map[string][]Entry),
	}

	for i := 0; i+1 < len(lines); i += 2 {
		length := utf8.RuneCountInString(sentenceText(lines[i]))
		tokens := splitWords(lines[i+1])
		if len(tokens) < 2 {
			continue
		}

		seen := make(map[string]struct{})
		// tokens[0] is the "B:" marker.
		for _, word := range tokens[1:] {
			if _, dup := seen[word]; dup {
				continue
			}
			seen[word] = struct{}{}

			dict := idx.Normal
			if strings.HasSuffix(word, "~") {
				dict = idx.Priority
				word = strings.TrimRight(word, "~")
			}
			if word == "" || isDigits(word) {
				continue
			}
			dict[word] = append(dict[word], Entry{Line: i, Length: length})
		}
	}

	for _, dict := range []map[string][]Entry{idx.Priority, idx.Normal} {
		for _, entries := range dict {
			sort.SliceStable(entries, func(a, b int) bool { return entries[a].Length < entries[b].Length })
		}
	}
	return idx
}

// splitWords tokenizes a B line. A standalone "~" marks the two preceding
// word tokens (the headword and its reading or surface form) as checked.
// Sense numbers such as [01] are skipped when looking back.
func splitWords(line string) []string {
	var out []string
	for _, t := range wordSplitter.Split(line, -1) {
		switch {
		case t == "":
		case t == "~":
			marked := 0
			for j := len(out) - 1; j >= 0 && marked < 2; j-- {
				if isDigits(out[j]) {
					continue
				}
				out[j] += "~"
				marked++
			}
		default:
			out = append(out, t)
		}
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// sentenceText strips the "A: " prefix and the "#ID=" suffix of an A line.
func sentenceText(line string) string {
	if len(line) >= 3 {
		line = line[3:]
	}
	text, _, _ := strings.Cut(line, "#ID=")
	return text
}
