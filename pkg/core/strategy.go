package core

import (
	"context"
	"strings"
)

// Strategy is a pluggable behaviour that reads some fields of a note and
// writes others.
type Strategy interface {
	// SourceFields are the fields whose change triggers an update, in order of
	// preference. An empty list is legal and makes the strategy batch-only.
	SourceFields() []string

	// TargetFields are the fields the strategy may overwrite.
	TargetFields() []string

	// IsEligible reports whether notes of t can be updated.
	IsEligible(t Template) bool

	// Update populates target fields from source fields. The caller guarantees
	// the note's template is eligible. It returns true iff a field was mutated.
	//
	// Predictable failures (blank query, provider errors, empty results) are
	// reported as (false, nil). The error is reserved for unexpected failures
	// that the host should surface.
	Update(ctx context.Context, n Note) (bool, error)
}

// RequiredFields returns sources followed by targets, without duplicates.
func RequiredFields(s Strategy) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, group := range [][]string{s.SourceFields(), s.TargetFields()} {
		for _, f := range group {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

// HasFields reports whether t declares every one of fields.
func HasFields(t Template, fields []string) bool {
	for _, f := range fields {
		if !t.HasField(f) {
			return false
		}
	}
	return true
}

// Fields is embedded by strategies to declare their field sets and inherit the
// default eligibility rule: every source and target field must be present.
type Fields struct {
	Sources []string
	Targets []string
}

func (f Fields) SourceFields() []string { return append([]string(nil), f.Sources...) }
func (f Fields) TargetFields() []string { return append([]string(nil), f.Targets...) }

func (f Fields) IsEligible(t Template) bool {
	return HasFields(t, f.SourceFields()) && HasFields(t, f.TargetFields())
}

// FirstQuery walks fields in order and returns the first one the note has whose
// cleaned content is not blank. clean may be nil.
func FirstQuery(n Note, fields []string, clean func(string) string) (field, query string, ok bool) {
	for _, f := range fields {
		if !n.Has(f) {
			continue
		}
		q := n.Get(f)
		if clean != nil {
			q = clean(q)
		}
		q = strings.TrimSpace(q)
		if q != "" {
			return f, q, true
		}
	}
	return "", "", false
}

// AnyFilled reports whether any of fields holds non-blank content.
func AnyFilled(n Note, fields []string) bool {
	for _, f := range fields {
		if n.Has(f) && strings.TrimSpace(n.Get(f)) != "" {
			return true
		}
	}
	return false
}
