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

var (
	ErrAlreadyRegistered = errors.New("coordinator already registered")
	ErrNotRegistered     = errors.New("coordinator not registered")
)

// Command is a host-visible action created for each registered coordinator.
type Command struct {
	Name  string
	Label string
	Run   func(ctx context.Context, col core.Collection, confirm Confirm) (int, error)
}

// Registry holds the coordinators installed by the host and fans field-blur
// events out to them in registration order.
type Registry struct {
	mu           sync.RWMutex
	logger       *slog.Logger
	coordinators []*Coordinator
	byName       map[string]*Coordinator
	commands     []Command
}

// NewRegistry creates an empty registry. logger may be nil.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger,
		byName: make(map[string]*Coordinator),
	}
}

// Register installs c. A coordinator can be registered once, and names must
// be unique within a registry.
func (r *Registry) Register(c *Coordinator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[c.Name()]; exists {
		return fmt.Errorf("%s: %w", c.Name(), ErrAlreadyRegistered)
	}
	if err := c.markRegistered(); err != nil {
		return err
	}

	r.coordinators = append(r.coordinators, c)
	r.byName[c.Name()] = c
	r.commands = append(r.commands, Command{
		Name:  c.Name(),
		Label: c.Name() + ": regenerate all",
		Run:   c.RegenerateAll,
	})

	r.logger.Debug("coordinator registered",
		"name", c.Name(),
		"filter", c.NameFilter(),
		"field_blur", c.FieldBlurEnabled())
	return nil
}

// FieldBlur folds every blur-enabled coordinator over flag. The first error
// stops the fold and is returned with the flag accumulated so far.
func (r *Registry) FieldBlur(ctx context.Context, flag bool, n core.Note, fieldIndex int) (bool, error) {
	for _, c := range r.Coordinators() {
		if !c.FieldBlurEnabled() {
			continue
		}
		var err error
		flag, err = c.OnFieldBlur(ctx, flag, n, fieldIndex)
		if err != nil {
			return flag, err
		}
	}
	return flag, nil
}

// Coordinators returns the registered coordinators in registration order.
func (r *Registry) Coordinators() []*Coordinator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Coordinator(nil), r.coordinators...)
}

// Commands returns one regenerate command per coordinator.
func (r *Registry) Commands() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Command(nil), r.commands...)
}

// Lookup finds a coordinator by name.
func (r *Registry) Lookup(name string) (*Coordinator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNotRegistered)
	}
	return c, nil
}

// RegistryState exposes internal state for observability.
type RegistryState struct {
	Coordinators []CoordinatorState `json:"coordinators"`
}

// State implements introspection.Introspectable.
func (r *Registry) State() any {
	cs := r.Coordinators()
	st := RegistryState{Coordinators: make([]CoordinatorState, 0, len(cs))}
	for _, c := range cs {
		st.Coordinators = append(st.Coordinators, c.State().(CoordinatorState))
	}
	return st
}

// ComponentType implements introspection.Component.
func (r *Registry) ComponentType() string {
	return "registry"
}

var _ introspection.Introspectable = (*Registry)(nil)
var _ introspection.Component = (*Registry)(nil)
