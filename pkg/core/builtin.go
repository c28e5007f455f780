package core

import "context"

// Null never changes a note. With no source fields it is never triggered by
// field events, which makes it useful as a placeholder addon.
type Null struct {
	Fields
}

// NewNull creates a Null strategy over the given fields.
func NewNull(sources, targets []string) *Null {
	return &Null{Fields: Fields{Sources: sources, Targets: targets}}
}

func (*Null) Update(context.Context, Note) (bool, error) { return false, nil }

// Static writes a fixed value into every target field once one of the source
// fields is filled in. A value of "{query}" copies the source text instead.
type Static struct {
	Fields
	Value string
	Clean func(string) string
}

// QueryPlaceholder in a Static value is replaced by the source query.
const QueryPlaceholder = "{query}"

// NewStatic creates a Static strategy.
func NewStatic(sources, targets []string, value string) *Static {
	return &Static{Fields: Fields{Sources: sources, Targets: targets}, Value: value}
}

func (s *Static) Update(_ context.Context, n Note) (bool, error) {
	_, query, ok := FirstQuery(n, s.Sources, s.Clean)
	if !ok {
		return false, nil
	}

	value := s.Value
	if value == QueryPlaceholder {
		value = query
	}

	changed := false
	for _, f := range s.Targets {
		if n.Get(f) == value {
			continue
		}
		n.Set(f, value)
		changed = true
	}
	return changed, nil
}
