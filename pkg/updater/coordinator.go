// Package updater dispatches a Strategy against the notes of a collection.
//
// A Coordinator binds one strategy to a name filter and is the single place
// where eligibility is enforced, both for interactive field-blur events and for
// batch regeneration. A Registry holds the coordinators a host has installed.
package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/introspection"

	"github.com/aretw0/ankihorse/pkg/core"
)

// Confirm asks the user a yes/no question.
type Confirm func(prompt string) bool

// AlwaysConfirm answers yes without asking.
func AlwaysConfirm(string) bool { return true }

// Phase is the lifecycle position of a coordinator.
type Phase string

const (
	PhaseCreated    Phase = "created"
	PhaseRegistered Phase = "registered"
	PhaseActive     Phase = "active"
)

// Coordinator binds a strategy to a name filter.
type Coordinator struct {
	name     string
	strategy core.Strategy
	opts     options

	mu          sync.Mutex
	phase       Phase
	registered  bool
	applied     int
	regenerated int
}

// New creates a coordinator for s, identified by name in prompts and summaries.
func New(name string, s core.Strategy, opts ...Option) *Coordinator {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.notify == nil {
		logger := o.logger
		o.notify = func(msg string) { logger.Info(msg) }
	}
	return &Coordinator{
		name:     name,
		strategy: s,
		opts:     o,
		phase:    PhaseCreated,
	}
}

func (c *Coordinator) Name() string            { return c.name }
func (c *Coordinator) Strategy() core.Strategy { return c.strategy }
func (c *Coordinator) NameFilter() string      { return c.opts.nameFilter }
func (c *Coordinator) FieldBlurEnabled() bool  { return c.opts.fieldBlur }

// ShouldApply reports whether notes of t may be updated: the name filter must
// match and the strategy must accept the template.
func (c *Coordinator) ShouldApply(t core.Template) bool {
	return t.NameContains(c.opts.nameFilter) && c.strategy.IsEligible(t)
}

// ApplyTo runs the strategy on n if its template is eligible. It returns true
// iff the note was modified. Ineligible notes are left untouched.
func (c *Coordinator) ApplyTo(ctx context.Context, n core.Note) (bool, error) {
	if !c.ShouldApply(n.Template()) {
		return false, nil
	}
	c.activate()

	changed, err := c.strategy.Update(ctx, n)
	if err != nil {
		return false, fmt.Errorf("%s: %w", c.name, err)
	}
	if changed {
		c.mu.Lock()
		c.applied++
		c.mu.Unlock()
	}
	return changed, nil
}

// OnFieldBlur is the handler for a field losing focus in the host editor.
// flag is the result folded so far by previous handlers; the returned value
// is never less than flag.
func (c *Coordinator) OnFieldBlur(ctx context.Context, flag bool, n core.Note, fieldIndex int) (bool, error) {
	t := n.Template()
	field, ok := t.FieldName(fieldIndex)
	if !ok {
		return flag, fmt.Errorf("%s: index %d of %q: %w", c.name, fieldIndex, t.Name, core.ErrFieldIndex)
	}
	if !isSource(c.strategy, field) {
		return flag, nil
	}

	changed, err := c.ApplyTo(ctx, n)
	if err != nil {
		return flag, err
	}
	return flag || changed, nil
}

// Prompt is the confirmation question asked by RegenerateAll.
func (c *Coordinator) Prompt() string {
	return fmt.Sprintf("Do you want to regenerate all %s? This may take some time and will overwrite the destination fields.", c.name)
}

// RegenerateAll applies the strategy to every eligible note of col after the
// user confirms. Only modified notes are persisted and counted. A summary is
// always sent to the notifier once the batch has started.
//
// A strategy error, a persistence error or a cancelled context stops the
// batch; the count of notes persisted so far is returned with the error.
func (c *Coordinator) RegenerateAll(ctx context.Context, col core.Collection, confirm Confirm) (int, error) {
	if confirm == nil || !confirm(c.Prompt()) {
		return 0, nil
	}
	c.activate()

	count, err := c.regenerate(ctx, col)

	if count > 0 {
		if r, ok := col.(core.Refresher); ok {
			if rerr := r.Refresh(ctx); rerr != nil {
				c.opts.logger.Warn("refresh after regeneration failed", "coordinator", c.name, "error", rerr)
			}
		}
	}

	c.mu.Lock()
	c.regenerated += count
	c.mu.Unlock()

	c.opts.notify(c.Summary(count))
	return count, err
}

// Summary is the message delivered at the end of RegenerateAll.
func (c *Coordinator) Summary(count int) string {
	return fmt.Sprintf("%s: regenerated %d notes", c.name, count)
}

func (c *Coordinator) regenerate(ctx context.Context, col core.Collection) (int, error) {
	templates, err := col.Templates(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: list templates: %w", c.name, err)
	}

	count := 0
	for _, t := range templates {
		if !c.ShouldApply(t) {
			continue
		}
		notes, err := col.NotesFor(ctx, t)
		if err != nil {
			return count, fmt.Errorf("%s: list notes of %q: %w", c.name, t.Name, err)
		}

		for _, n := range notes {
			if err := ctx.Err(); err != nil {
				return count, err
			}
			current, err := currentTemplate(ctx, col, n)
			if err != nil {
				return count, fmt.Errorf("%s: resolve template of note %s: %w", c.name, n.ID(), err)
			}
			// The template may have been edited, renamed or removed since enumeration.
			if current == nil || !c.ShouldApply(*current) {
				c.opts.logger.Debug("skipping note whose template is no longer eligible",
					"coordinator", c.name, "note", n.ID())
				continue
			}

			changed, err := c.strategy.Update(ctx, n)
			if err != nil {
				return count, fmt.Errorf("%s: update note %s: %w", c.name, n.ID(), err)
			}
			if !changed {
				continue
			}
			if err := col.Persist(ctx, n); err != nil {
				return count, fmt.Errorf("%s: persist note %s: %w", c.name, n.ID(), err)
			}
			count++
			c.opts.logger.Debug("note regenerated", "coordinator", c.name, "note", n.ID())
		}
	}
	return count, nil
}

// currentTemplate returns the definition the note's template has now. It is
// nil when the collection no longer knows the template. Collections that
// cannot resolve templates are trusted to return notes bound to it.
func currentTemplate(ctx context.Context, col core.Collection, n core.Note) (*core.Template, error) {
	t := n.Template()
	r, ok := col.(core.TemplateResolver)
	if !ok {
		return &t, nil
	}
	t, err := r.Template(ctx, t.Name)
	if errors.Is(err, core.ErrTemplateNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// markRegistered records that a registry owns the coordinator. It fails if
// another registry already does.
func (c *Coordinator) markRegistered() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registered {
		return fmt.Errorf("%s: %w", c.name, ErrAlreadyRegistered)
	}
	c.registered = true
	if c.phase == PhaseCreated {
		c.phase = PhaseRegistered
	}
	return nil
}

// activate moves a coordinator to active on its first dispatch. Coordinators
// used without a registry go straight from created to active.
func (c *Coordinator) activate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = PhaseActive
}

// Phase returns the current lifecycle phase.
func (c *Coordinator) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func isSource(s core.Strategy, field string) bool {
	for _, f := range s.SourceFields() {
		if f == field {
			return true
		}
	}
	return false
}

// CoordinatorState exposes internal state for observability.
type CoordinatorState struct {
	Name         string   `json:"name"`
	Phase        Phase    `json:"phase"`
	NameFilter   string   `json:"name_filter,omitempty"`
	SourceFields []string `json:"source_fields"`
	TargetFields []string `json:"target_fields"`
	FieldBlur    bool     `json:"field_blur"`
	Applied      int      `json:"applied"`
	Regenerated  int      `json:"regenerated"`
}

// State implements introspection.Introspectable.
func (c *Coordinator) State() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CoordinatorState{
		Name:         c.name,
		Phase:        c.phase,
		NameFilter:   c.opts.nameFilter,
		SourceFields: c.strategy.SourceFields(),
		TargetFields: c.strategy.TargetFields(),
		FieldBlur:    c.opts.fieldBlur,
		Applied:      c.applied,
		Regenerated:  c.regenerated,
	}
}

// ComponentType implements introspection.Component.
func (c *Coordinator) ComponentType() string {
	return "coordinator"
}

var _ introspection.Introspectable = (*Coordinator)(nil)
var _ introspection.Component = (*Coordinator)(nil)
