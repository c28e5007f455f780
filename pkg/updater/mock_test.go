package updater_test

import (
	"context"
	"errors"
	"strings"

	"github.com/aretw0/ankihorse/pkg/core"
)

// spyStrategy records every Update call. Results are keyed by note ID; notes
// without an entry write "done" to the first target and report true.
type spyStrategy struct {
	core.Fields
	calls   []string
	results map[string]spyResult
	// before runs at the start of every Update.
	before func(n core.Note)
}

type spyResult struct {
	changed bool
	err     error
}

func newSpy(sources, targets []string) *spyStrategy {
	return &spyStrategy{
		Fields:  core.Fields{Sources: sources, Targets: targets},
		results: make(map[string]spyResult),
	}
}

func (s *spyStrategy) Update(_ context.Context, n core.Note) (bool, error) {
	s.calls = append(s.calls, n.ID())
	if s.before != nil {
		s.before(n)
	}
	if r, ok := s.results[n.ID()]; ok {
		return r.changed, r.err
	}
	if _, query, ok := core.FirstQuery(n, s.Sources, nil); ok || len(s.Sources) == 0 {
		if len(s.Targets) > 0 {
			n.Set(s.Targets[0], "done:"+query)
		}
		return true, nil
	}
	return false, nil
}

// mockCollection implements core.Collection and core.Refresher in memory.
type mockCollection struct {
	templates  []core.Template
	notes      map[string][]core.Note
	persisted  []string
	listed     int
	refreshed  int
	persistErr map[string]error
}

func newMockCollection(templates ...core.Template) *mockCollection {
	return &mockCollection{
		templates:  templates,
		notes:      make(map[string][]core.Note),
		persistErr: make(map[string]error),
	}
}

func (m *mockCollection) add(n core.Note) {
	name := n.Template().Name
	m.notes[name] = append(m.notes[name], n)
}

func (m *mockCollection) Templates(context.Context) ([]core.Template, error) {
	m.listed++
	return m.templates, nil
}

func (m *mockCollection) NotesFor(_ context.Context, t core.Template) ([]core.Note, error) {
	m.listed++
	return m.notes[t.Name], nil
}

func (m *mockCollection) Persist(_ context.Context, n core.Note) error {
	if err := m.persistErr[n.ID()]; err != nil {
		return err
	}
	m.persisted = append(m.persisted, n.ID())
	return nil
}

func (m *mockCollection) Refresh(context.Context) error {
	m.refreshed++
	return nil
}

// resolvingCollection also implements core.TemplateResolver. Templates edited
// through it are seen by later lookups but not by notes already listed.
type resolvingCollection struct {
	*mockCollection
	current map[string]core.Template
	err     error
}

func newResolvingCollection(templates ...core.Template) *resolvingCollection {
	r := &resolvingCollection{
		mockCollection: newMockCollection(templates...),
		current:        make(map[string]core.Template),
	}
	for _, t := range templates {
		r.current[t.Name] = t
	}
	return r
}

func (r *resolvingCollection) Template(_ context.Context, name string) (core.Template, error) {
	if r.err != nil {
		return core.Template{}, r.err
	}
	t, ok := r.current[name]
	if !ok {
		return core.Template{}, core.ErrTemplateNotFound
	}
	return t, nil
}

// recordingNote fails the test run if any field is written.
type recordingNote struct {
	*core.MemoryNote
	writes []string
}

func (r *recordingNote) Set(field, value string) {
	r.writes = append(r.writes, field)
	r.MemoryNote.Set(field, value)
}

var errBoom = errors.New("boom")

func japaneseBasic() core.Template {
	return core.Template{Name: "JapaneseBasic", Fields: []string{"Expression", "Meaning", "Reading", "Picture"}}
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
