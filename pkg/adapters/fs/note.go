package fs

import (
	"time"

	"github.com/aretw0/ankihorse/pkg/core"
)

// Note is a note file of a vault. It implements core.Note.
//
// Field writes are held in memory until the note is passed to Vault.Persist.
// Fields present in the file but not declared by the template are kept
// as they are.
type Note struct {
	id       string
	path     string
	ext      string
	template core.Template
	doc      *Document
	modTime  time.Time
}

var _ core.Note = (*Note)(nil)

// ID is the slash-separated path of the note relative to the vault.
func (n *Note) ID() string { return n.id }

// Template is the template the note was bound to when it was read. Later edits
// of the template file are not seen; Vault.Template returns the current one.
func (n *Note) Template() core.Template { return n.template }

// Path is the absolute path of the note file.
func (n *Note) Path() string { return n.path }

// Body is the free text that follows the fields, if the format has one.
func (n *Note) Body() string { return n.doc.Body }

// ModTime is the modification time of the file when it was read.
func (n *Note) ModTime() time.Time { return n.modTime }

func (n *Note) Has(field string) bool {
	return n.template.HasField(field)
}

func (n *Note) Get(field string) string {
	if !n.Has(field) {
		return ""
	}
	return n.doc.Fields[field]
}

// Set writes a field. Fields the template does not declare are ignored.
func (n *Note) Set(field, value string) {
	if !n.Has(field) {
		return
	}
	n.doc.Fields[field] = value
}

// Fields returns the contents of the template's fields.
func (n *Note) Fields() map[string]string {
	out := make(map[string]string, len(n.template.Fields))
	for _, f := range n.template.Fields {
		out[f] = n.doc.Fields[f]
	}
	return out
}

// changedFields lists, in template order, the indices of fields whose content
// differs from before. A nil before means every non-empty field changed.
func changedFields(t core.Template, before, after map[string]string) []int {
	var out []int
	for i, f := range t.Fields {
		if before == nil {
			if after[f] != "" {
				out = append(out, i)
			}
			continue
		}
		if before[f] != after[f] {
			out = append(out, i)
		}
	}
	return out
}
