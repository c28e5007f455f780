// Package core holds the host-agnostic contracts of ankihorse.
//
// The host application (a flashcard collection, a vault of files, a database)
// is consumed only through the narrow interfaces declared here. Update
// behaviours plug in through Strategy.
package core

import "strings"

// Template is the schema of a card type: a name and an ordered list of fields.
// It is owned by the host and read-only from the core's perspective.
type Template struct {
	Name   string   `json:"name" yaml:"name"`
	Fields []string `json:"fields" yaml:"fields"`
}

// FieldName resolves a field index to its name.
func (t Template) FieldName(index int) (string, bool) {
	if index < 0 || index >= len(t.Fields) {
		return "", false
	}
	return t.Fields[index], true
}

// FieldIndex returns the position of a field, or -1.
func (t Template) FieldIndex(name string) int {
	for i, f := range t.Fields {
		if f == name {
			return i
		}
	}
	return -1
}

// HasField reports whether the template declares the field.
func (t Template) HasField(name string) bool {
	return t.FieldIndex(name) >= 0
}

// NameContains is the case-insensitive substring test used by name filters.
// An empty substring matches every template.
func (t Template) NameContains(substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Name), strings.ToLower(substr))
}

// Note is one card's data: field contents bound to exactly one Template.
type Note interface {
	ID() string
	Template() Template
	Has(field string) bool
	Get(field string) string
	Set(field, value string)
}

// MemoryNote is a Note held entirely in memory.
type MemoryNote struct {
	id       string
	template Template
	fields   map[string]string
}

// NewMemoryNote creates a note bound to t. Fields missing from values start empty.
func NewMemoryNote(id string, t Template, values map[string]string) *MemoryNote {
	fields := make(map[string]string, len(t.Fields))
	for _, f := range t.Fields {
		fields[f] = values[f]
	}
	return &MemoryNote{id: id, template: t, fields: fields}
}

func (n *MemoryNote) ID() string         { return n.id }
func (n *MemoryNote) Template() Template { return n.template }

func (n *MemoryNote) Has(field string) bool {
	_, ok := n.fields[field]
	return ok
}

func (n *MemoryNote) Get(field string) string {
	return n.fields[field]
}

// Set writes a field. Writing a field the template does not declare is ignored.
func (n *MemoryNote) Set(field, value string) {
	if _, ok := n.fields[field]; !ok {
		return
	}
	n.fields[field] = value
}

// Fields returns a copy of the field contents.
func (n *MemoryNote) Fields() map[string]string {
	out := make(map[string]string, len(n.fields))
	for k, v := range n.fields {
		out[k] = v
	}
	return out
}
