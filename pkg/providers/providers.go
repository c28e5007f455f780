// Package providers holds what the concrete strategies share: their
// dependencies and the field markup for media references.
package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/ankihorse/pkg/core"
	"github.com/aretw0/ankihorse/pkg/media"
)

// ErrNoMediaStore is returned by strategies that download media when no
// store was configured.
var ErrNoMediaStore = errors.New("no media store configured")

// Deps are the collaborators of a provider strategy.
type Deps struct {
	// Store receives downloaded media. Required by strategies that download.
	Store core.MediaStore
	// Stager downloads into temporary directories.
	Stager *media.Stager
	// Client performs API calls that are not downloads.
	Client *http.Client
	Logger *slog.Logger
	// Notify shows a message to the user, such as a quota warning.
	Notify func(msg string)
}

// WithDefaults fills in every nil collaborator except Store.
func (d Deps) WithDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Stager == nil {
		d.Stager = media.NewStager(d.Logger)
	}
	if d.Client == nil {
		d.Client = &http.Client{Timeout: media.DefaultTimeout}
	}
	if d.Notify == nil {
		logger := d.Logger
		d.Notify = func(msg string) { logger.Warn(msg) }
	}
	return d
}

// ImageTag is the field markup for an image in the media store.
func ImageTag(name string) string {
	return fmt.Sprintf(`<img src="%s" />`, name)
}

// SoundTag is the field markup for an audio file in the media store.
func SoundTag(name string) string {
	return fmt.Sprintf("[sound:%s]", name)
}

// StoreInto hands staged to d.Store and writes markup(name) into field.
// A store failure is unexpected and returned as an error.
func (d Deps) StoreInto(ctx context.Context, n core.Note, field string, staged *media.Staged, markup func(string) string) (bool, error) {
	if d.Store == nil {
		_ = staged.Remove()
		return false, ErrNoMediaStore
	}
	name, err := media.Store(ctx, d.Store, staged)
	if err != nil {
		return false, fmt.Errorf("store %s: %w", staged.Name(), err)
	}
	n.Set(field, markup(name))
	return true, nil
}
