// Package sanitize turns raw field content into plain search queries.
package sanitize

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	clozeRe = regexp.MustCompile(`\{\{c\d+::(.*?)(?:::.*?)?\}\}`)
	soundRe = regexp.MustCompile(`\[sound:[^\]]*\]`)
)

// Cloze replaces cloze deletions with their answer text, dropping hints.
func Cloze(s string) string {
	return clozeRe.ReplaceAllString(s, "$1")
}

// StripMedia removes [sound:...] references.
func StripMedia(s string) string {
	return soundRe.ReplaceAllString(s, "")
}

// StripHTML keeps the text content of s. Script and style elements are dropped
// and entities are decoded. Block-level breaks become spaces.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Script, atom.Style:
				skip++
			case atom.Br, atom.Div, atom.P, atom.Li:
				b.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if atom.Lookup(name) == atom.Br {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Script, atom.Style:
				if skip > 0 {
					skip--
				}
			}
		}
	}
}

// Query cleans a field for use as a provider query.
func Query(s string) string {
	return strings.TrimSpace(StripHTML(StripMedia(Cloze(s))))
}
