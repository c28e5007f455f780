package fs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Keys of a note document.
const (
	KeyTemplate = "template"
	KeyFields   = "fields"
	KeyContent  = "content"
)

// errNotANote marks files that parse but carry no template binding.
var errNotANote = errors.New("document has no template")

// Document is the on-disk form of a note: the template it is bound to, its
// field contents, and whatever else the file holds. Extra keys and the
// Markdown body survive a round trip untouched.
type Document struct {
	Template string
	Fields   map[string]string
	Extra    map[string]any
	Body     string
}

// Serializer defines how to read and write a note file format.
type Serializer interface {
	// Parse decodes a document. Files without a template binding return errNotANote.
	Parse(data []byte) (*Document, error)
	// Serialize encodes doc, writing fields in the given order first.
	Serialize(doc *Document, order []string) ([]byte, error)
}

// DefaultSerializers returns the serializers keyed by file extension.
func DefaultSerializers() map[string]Serializer {
	y := YAMLSerializer{}
	return map[string]Serializer{
		".md":   MarkdownSerializer{},
		".yaml": y,
		".yml":  y,
		".json": JSONSerializer{},
	}
}

// --- Markdown ---

// MarkdownSerializer reads notes as YAML frontmatter followed by a free body.
type MarkdownSerializer struct{}

var delimiter = []byte("---")

func (MarkdownSerializer) Parse(data []byte) (*Document, error) {
	front, body, ok := splitFrontmatter(data)
	if !ok {
		return nil, errNotANote
	}
	var payload map[string]any
	if err := yaml.Unmarshal(front, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	doc, err := fromPayload(payload)
	if err != nil {
		return nil, err
	}
	doc.Body = string(body)
	return doc, nil
}

func (MarkdownSerializer) Serialize(doc *Document, order []string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	if err := encodeYAML(&buf, toNode(doc, order, false)); err != nil {
		return nil, err
	}
	buf.WriteString("---\n")
	buf.WriteString(doc.Body)
	return buf.Bytes(), nil
}

// splitFrontmatter cuts a leading "---" block. The closing delimiter must sit
// on its own line.
func splitFrontmatter(data []byte) (front, body []byte, ok bool) {
	var rest []byte
	switch {
	case bytes.HasPrefix(data, []byte("---\n")):
		rest = data[4:]
	case bytes.HasPrefix(data, []byte("---\r\n")):
		rest = data[5:]
	default:
		return nil, nil, false
	}

	for offset := 0; offset <= len(rest); {
		line := rest[offset:]
		end := bytes.IndexByte(line, '\n')
		next := offset + end + 1
		if end < 0 {
			end = len(line)
			next = len(rest)
		}
		if bytes.Equal(bytes.TrimRight(line[:end], "\r"), delimiter) {
			return rest[:offset], rest[next:], true
		}
		if end == len(line) {
			break
		}
		offset = next
	}
	return nil, nil, false
}

// --- YAML ---

// YAMLSerializer reads notes stored as plain YAML documents. The body, if
// any, lives under the content key.
type YAMLSerializer struct{}

func (YAMLSerializer) Parse(data []byte) (*Document, error) {
	var payload map[string]any
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	return fromPayload(payload)
}

func (YAMLSerializer) Serialize(doc *Document, order []string) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeYAML(&buf, toNode(doc, order, true)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeYAML(buf *bytes.Buffer, node *yaml.Node) error {
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(node); err != nil {
		return err
	}
	return enc.Close()
}

func toNode(doc *Document, order []string, withBody bool) *yaml.Node {
	root := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, value *yaml.Node) {
		root.Content = append(root.Content, str(key), value)
	}

	add(KeyTemplate, str(doc.Template))
	fields := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range fieldOrder(doc.Fields, order) {
		fields.Content = append(fields.Content, str(k), str(doc.Fields[k]))
	}
	add(KeyFields, fields)

	for _, k := range sortedKeys(doc.Extra) {
		v := &yaml.Node{}
		if err := v.Encode(doc.Extra[k]); err != nil {
			v = str(fmt.Sprint(doc.Extra[k]))
		}
		add(k, v)
	}
	if withBody && doc.Body != "" {
		add(KeyContent, str(doc.Body))
	}
	return root
}

func str(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

// --- JSON ---

// JSONSerializer reads notes stored as JSON objects.
type JSONSerializer struct{}

func (JSONSerializer) Parse(data []byte) (*Document, error) {
	var payload map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return fromPayload(payload)
}

// Serialize writes keys in a stable order: template, fields in template
// order, extra keys sorted, content.
func (JSONSerializer) Serialize(doc *Document, order []string) ([]byte, error) {
	var buf bytes.Buffer
	member := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	buf.WriteByte('{')
	if err := member(KeyTemplate, doc.Template); err != nil {
		return nil, err
	}
	if err := member(KeyFields, orderedFields{doc.Fields, fieldOrder(doc.Fields, order)}); err != nil {
		return nil, err
	}
	for _, k := range sortedKeys(doc.Extra) {
		if err := member(k, doc.Extra[k]); err != nil {
			return nil, err
		}
	}
	if doc.Body != "" {
		if err := member(KeyContent, doc.Body); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

type orderedFields struct {
	values map[string]string
	keys   []string
}

func (o orderedFields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(o.values[k])
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// --- helpers ---

func fromPayload(payload map[string]any) (*Document, error) {
	name, ok := payload[KeyTemplate].(string)
	if !ok || name == "" {
		return nil, errNotANote
	}
	doc := &Document{
		Template: name,
		Fields:   make(map[string]string),
		Extra:    make(map[string]any),
	}

	switch fields := payload[KeyFields].(type) {
	case nil:
	case map[string]any:
		for k, v := range fields {
			doc.Fields[k] = stringify(v)
		}
	default:
		return nil, fmt.Errorf("%q must be a mapping, got %T", KeyFields, fields)
	}
	if body, ok := payload[KeyContent].(string); ok {
		doc.Body = body
	}

	for k, v := range payload {
		switch k {
		case KeyTemplate, KeyFields, KeyContent:
		default:
			doc.Extra[k] = v
		}
	}
	return doc, nil
}

// stringify renders a decoded scalar as field text. Numbers keep their
// literal form; composite values are stored as JSON.
func stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}

// fieldOrder lists the keys of fields: the ones named in order first, the
// rest sorted.
func fieldOrder(fields map[string]string, order []string) []string {
	keys := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(fields))
	for _, k := range order {
		if _, ok := fields[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	var rest []string
	for k := range fields {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
