package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a note must stay quiet before its changes are
// diffed. Editors usually write a file in several steps.
const DefaultDebounce = 100 * time.Millisecond

type watchWorker struct {
	*worker.BaseWorker
	vault     *Vault
	handler   FieldHandler
	delay     time.Duration
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	ready     chan string
	quit      chan struct{}
	done      chan error
	cancel    context.CancelFunc
}

func newWatchWorker(v *Vault, handler FieldHandler, delay time.Duration) *watchWorker {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("vault-watcher"),
		vault:      v,
		handler:    handler,
		delay:      delay,
		ready:      make(chan string),
		quit:       make(chan struct{}),
		done:       make(chan error, 1),
	}
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.vault.recursiveAdd(watcher, w.vault.Path); err != nil {
		_ = watcher.Close()
		return err
	}

	w.watcher = watcher
	w.debouncer = newDebouncer(w.delay)
	w.vault.setWatcherActive(true)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
		}
	})
}

// run is the main loop of the watcher. Changed paths are debounced per note
// and handled one at a time on this goroutine.
func (w *watchWorker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if w.vault.logger.Enabled(ctx, slog.LevelDebug) {
				w.vault.logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				w.vault.logger.Error("watcher panic", "error", err)
			}
		}
		w.done <- err
	}()
	defer w.vault.setWatcherActive(false)
	defer w.watcher.Close()

	err = w.loop(ctx)

	close(w.quit)
	w.debouncer.stopAndWait(5 * time.Second)
	return err
}

func (w *watchWorker) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case path := <-w.ready:
			w.vault.fieldsChanged(ctx, path, w.handler)

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.processEvent(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.vault.reportError(fmt.Errorf("fsnotify: %w", wErr))
		}
	}
}

func (w *watchWorker) processEvent(ctx context.Context, event fsnotify.Event) {
	w.vault.logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	if event.Has(fsnotify.Create) && w.vault.isWatchableDir(event.Name) {
		if err := w.vault.recursiveAdd(w.watcher, event.Name); err != nil {
			w.vault.reportError(err)
		}
		// Files written before the directory was watched produce no events.
		_ = filepath.WalkDir(event.Name, func(path string, d os.DirEntry, err error) error {
			if err == nil && !d.IsDir() && !w.vault.shouldIgnore(path) {
				w.schedule(ctx, path)
			}
			return nil
		})
		return
	}
	if w.vault.shouldIgnore(event.Name) {
		return
	}
	w.schedule(ctx, event.Name)
}

func (w *watchWorker) schedule(ctx context.Context, path string) {
	w.debouncer.add(path, func() {
		select {
		case w.ready <- path:
		case <-w.quit:
		case <-ctx.Done():
		}
	})
}
