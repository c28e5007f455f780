package sanitize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/ankihorse/pkg/sanitize"
)

func TestQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Plain", "cat", "cat"},
		{"Whitespace", "  \t\n", ""},
		{"Cloze", "the {{c1::cat}} sat", "the cat sat"},
		{"ClozeHint", "{{c2::猫::animal}}", "猫"},
		{"Sound", "dog [sound:dog.mp3]", "dog"},
		{"HTML", "<b>big</b> <i>cat</i>", "big cat"},
		{"Entities", "fish &amp; chips", "fish & chips"},
		{"Script", "<script>alert(1)</script>text", "text"},
		{"Image Only", `<img src="a.png" />`, ""},
		{"Break", "one<br>two", "one two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitize.Query(tt.in))
		})
	}
}
