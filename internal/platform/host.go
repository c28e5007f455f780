package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aretw0/introspection"

	"github.com/aretw0/ankihorse/pkg/adapters/fs"
	"github.com/aretw0/ankihorse/pkg/config"
	"github.com/aretw0/ankihorse/pkg/updater"
)

// Host is an opened vault with its addons installed. It plays the part of
// the flashcard application: it routes field edits to the registry and runs
// the regenerate commands.
type Host struct {
	Vault    *fs.Vault
	Config   *config.Config
	Registry *updater.Registry
	// Disabled lists the addons that could not be installed, by name.
	Disabled map[string]error

	logger *slog.Logger
}

// Apply runs every installed addon on the note id, as if each of its source
// fields had been edited, and persists the note if any addon changed it.
// It returns the names of the addons that changed the note.
func (h *Host) Apply(ctx context.Context, id string) ([]string, error) {
	n, err := h.Vault.Note(ctx, id)
	if err != nil {
		return nil, err
	}

	var applied []string
	var errs []error
	for _, c := range h.Registry.Coordinators() {
		changed, err := c.ApplyTo(ctx, n)
		if err != nil {
			errs = append(errs, err)
			break
		}
		if changed {
			applied = append(applied, c.Name())
		}
	}
	if len(applied) > 0 {
		if err := h.Vault.Persist(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return applied, errors.Join(errs...)
}

// Regenerate runs the regenerate command of the addon called name while
// holding the vault lock. When the vault is versioned, the batch is recorded
// as one commit.
func (h *Host) Regenerate(ctx context.Context, name string, confirm updater.Confirm) (int, error) {
	c, err := h.Registry.Lookup(name)
	if err != nil {
		if reason, ok := h.Disabled[name]; ok {
			return 0, fmt.Errorf("addon %q is disabled: %w", name, reason)
		}
		return 0, err
	}

	unlock, err := h.Vault.Lock(ctx)
	if err != nil {
		return 0, err
	}
	defer func() {
		if uerr := unlock(); uerr != nil {
			h.logger.Warn("failed to release vault lock", "error", uerr)
		}
	}()

	count, err := c.RegenerateAll(ctx, h.Vault, confirm)
	if count > 0 {
		if cerr := h.Vault.Commit(ctx, c.Summary(count)); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to commit: %w", cerr))
		}
	}
	return count, err
}

// Watch blocks until ctx is done, treating every edited field of a note file
// as a field losing focus.
func (h *Host) Watch(ctx context.Context, opts ...fs.WatchOption) error {
	return h.Vault.Watch(ctx, h.FieldBlur, opts...)
}

// FieldBlur folds the registry over one edited field and persists the note if
// an addon changed it. Changes made before a failing addon are kept.
func (h *Host) FieldBlur(ctx context.Context, n *fs.Note, fieldIndex int) error {
	changed, err := h.Registry.FieldBlur(ctx, false, n, fieldIndex)
	if changed {
		if perr := h.Vault.Persist(ctx, n); perr != nil {
			err = errors.Join(err, perr)
		}
	}
	return err
}

// HostState exposes internal state for observability.
type HostState struct {
	Vault    any      `json:"vault"`
	Registry any      `json:"registry"`
	Disabled []string `json:"disabled,omitempty"`
}

// State implements introspection.Introspectable.
func (h *Host) State() any {
	disabled := make([]string, 0, len(h.Disabled))
	for name := range h.Disabled {
		disabled = append(disabled, name)
	}
	sort.Strings(disabled)
	return HostState{
		Vault:    h.Vault.State(),
		Registry: h.Registry.State(),
		Disabled: disabled,
	}
}

// ComponentType implements introspection.Component.
func (h *Host) ComponentType() string {
	return "host"
}

var _ introspection.Introspectable = (*Host)(nil)
var _ introspection.Component = (*Host)(nil)
