package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"
)

// FieldHandler is called by Watch for a field whose content changed outside
// of ankihorse. It is the vault's equivalent of an editor field losing focus.
type FieldHandler func(ctx context.Context, n *Note, fieldIndex int) error

// WatchOption configures Watch.
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce     time.Duration
	saveInterval time.Duration
	ready        func()
}

// WithDebounce sets how long a note must stay quiet before it is diffed.
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) { o.debounce = d }
}

// WithSaveInterval sets how often the field snapshots are flushed to disk
// while watching.
func WithSaveInterval(d time.Duration) WatchOption {
	return func(o *watchOptions) { o.saveInterval = d }
}

// WithReady registers a callback run once the watcher is listening.
func WithReady(fn func()) WatchOption {
	return func(o *watchOptions) { o.ready = fn }
}

// Watch blocks until ctx is done, calling handler for every field that
// changes in a note file, in template order. Writes made through Persist
// (including by the handler) update the snapshot first and are not reported.
func (v *Vault) Watch(ctx context.Context, handler FieldHandler, opts ...WatchOption) error {
	o := watchOptions{debounce: DefaultDebounce, saveInterval: 5 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	if err := v.prime(ctx); err != nil {
		return err
	}

	w := newWatchWorker(v, handler, o.debounce)
	if err := w.Start(ctx); err != nil {
		return err
	}
	v.logger.Info("watching vault", "path", v.Path, "pattern", v.config.Pattern)
	if o.ready != nil {
		o.ready()
	}

	flushCtx, stopFlush := context.WithCancel(ctx)
	defer stopFlush()
	if !v.config.ReadOnly && o.saveInterval > 0 {
		lifecycle.Go(flushCtx, func(ctx context.Context) error {
			ticker := time.NewTicker(o.saveInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := v.cache.Save(); err != nil {
						return err
					}
				}
			}
		}, lifecycle.WithErrorHandler(func(err error) {
			v.reportError(fmt.Errorf("failed to save field snapshots: %w", err))
		}))
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-w.done:
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stopErr := w.Stop(stopCtx)

	if !v.config.ReadOnly {
		if err := v.cache.Save(); err != nil {
			v.logger.Warn("failed to save field snapshots", "error", err)
		}
	}
	return errors.Join(runErr, stopErr)
}

// prime snapshots the notes that have no snapshot yet, so edits to notes
// that existed before the watcher started report only the edited fields.
func (v *Vault) prime(ctx context.Context) error {
	notes, err := v.Notes(ctx)
	if err != nil {
		return err
	}
	for _, n := range notes {
		if s, ok := v.cache.Get(n.id); ok && s.Template == n.template.Name {
			continue
		}
		v.cache.Set(n.id, snapshotOf(n))
	}
	return nil
}

// fieldsChanged diffs a note file against its snapshot and reports every
// changed field to handler.
func (v *Vault) fieldsChanged(ctx context.Context, path string, handler FieldHandler) {
	id, err := v.resolveID(path)
	if err != nil {
		return
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		v.cache.Delete(id)
		return
	}

	lookup, err := v.templateLookup(ctx)
	if err != nil {
		v.reportError(err)
		return
	}
	n, err := v.read(id, path, lookup)
	if err != nil {
		v.logger.Debug("ignoring change", "note", id, "error", err)
		return
	}

	var before map[string]string
	if s, ok := v.cache.Get(id); ok && s.Template == n.template.Name {
		if s.LastModified.Equal(n.modTime) {
			return
		}
		before = s.Fields
	}
	changed := changedFields(n.template, before, n.Fields())
	v.cache.Set(id, snapshotOf(n))

	for _, idx := range changed {
		if ctx.Err() != nil {
			return
		}
		v.logger.Debug("field changed", "note", id, "field", n.template.Fields[idx])
		if err := handler(ctx, n, idx); err != nil {
			v.reportError(fmt.Errorf("note %s: %w", id, err))
		}
	}
}

// recursiveAdd watches root and every directory below it that may hold notes.
func (v *Vault) recursiveAdd(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != v.Path && v.skipDir(path) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func (v *Vault) isWatchableDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir() && !v.skipDir(path)
}

// shouldIgnore filters events on files that are not note candidates.
func (v *Vault) shouldIgnore(path string) bool {
	id, err := v.resolveID(path)
	if err != nil {
		return true
	}
	for dir := filepath.Dir(path); dir != v.Path && dir != "." && dir != string(filepath.Separator); dir = filepath.Dir(dir) {
		if v.skipDir(dir) {
			return true
		}
	}
	return !v.isNoteFile(id)
}

func (v *Vault) reportError(err error) {
	if v.config.ErrorHandler != nil {
		v.config.ErrorHandler(err)
		return
	}
	v.logger.Error("watcher error", "error", err)
}
