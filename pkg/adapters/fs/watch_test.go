package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/ankihorse/pkg/adapters/fs"
)

type blurEvent struct {
	id    string
	field string
}

type recorder struct {
	mu     sync.Mutex
	events []blurEvent
	fn     func(ctx context.Context, n *fs.Note, idx int) error
}

func (r *recorder) handle(ctx context.Context, n *fs.Note, idx int) error {
	r.mu.Lock()
	r.events = append(r.events, blurEvent{n.ID(), n.Template().Fields[idx]})
	fn := r.fn
	r.mu.Unlock()
	if fn != nil {
		return fn(ctx, n, idx)
	}
	return nil
}

func (r *recorder) snapshot() []blurEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]blurEvent(nil), r.events...)
}

// startWatch runs Watch in the background until the test ends.
func startWatch(t *testing.T, v *fs.Vault, handler fs.FieldHandler) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- v.Watch(ctx, handler, fs.WithDebounce(20*time.Millisecond), fs.WithReady(func() { close(ready) }))
	}()

	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("watch exited early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for watcher")
	}

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watch did not stop")
		}
	})
}

func TestWatchReportsChangedFields(t *testing.T) {
	v, path := setupVault(t)
	note := filepath.Join(path, "neko.md")
	writeFile(t, note, "---\ntemplate: Japanese (recognition)\nfields:\n  Expression: 猫\n  Meaning: cat\n---\n")

	rec := &recorder{}
	startWatch(t, v, rec.handle)

	writeFile(t, note, "---\ntemplate: Japanese (recognition)\nfields:\n  Expression: 犬\n  Meaning: cat\n  Reading: いぬ\n---\n")

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []blurEvent{{"neko.md", "Expression"}, {"neko.md", "Reading"}}, rec.snapshot(),
		"only edited fields, in template order")

	t.Run("New Note Reports Filled Fields", func(t *testing.T) {
		writeFile(t, filepath.Join(path, "deck", "tori.md"),
			"---\ntemplate: Japanese (recognition)\nfields:\n  Expression: 鳥\n---\n")

		require.Eventually(t, func() bool { return len(rec.snapshot()) == 3 }, 2*time.Second, 10*time.Millisecond)
		assert.Equal(t, blurEvent{"deck/tori.md", "Expression"}, rec.snapshot()[2])
	})

	t.Run("Ignores Other Files", func(t *testing.T) {
		writeFile(t, filepath.Join(path, "notes.txt"), "hello")
		writeFile(t, filepath.Join(path, fs.DefaultMediaDir, "x.md"), "---\ntemplate: Basic\nfields:\n  Front: x\n---\n")
		time.Sleep(200 * time.Millisecond)
		assert.Len(t, rec.snapshot(), 3)
	})

	state := v.State().(fs.VaultState)
	assert.True(t, state.WatcherActive)
}

func TestWatchHandlerWritesDoNotLoop(t *testing.T) {
	v, path := setupVault(t)
	note := filepath.Join(path, "neko.md")
	writeFile(t, note, "---\ntemplate: Japanese (recognition)\nfields:\n  Expression: 猫\n---\n")

	rec := &recorder{}
	rec.fn = func(ctx context.Context, n *fs.Note, idx int) error {
		if n.Template().Fields[idx] != "Expression" {
			return nil
		}
		n.Set("Meaning", "meaning of "+n.Get("Expression"))
		return v.Persist(ctx, n)
	}
	startWatch(t, v, rec.handle)

	writeFile(t, note, "---\ntemplate: Japanese (recognition)\nfields:\n  Expression: 犬\n---\n")

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(note)
		return err == nil && strings.Contains(string(data), "meaning of 犬")
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, []blurEvent{{"neko.md", "Expression"}}, rec.snapshot())
}

func TestWatchStopsWithContext(t *testing.T) {
	v, _ := setupVault(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	ready := make(chan struct{})
	go func() {
		done <- v.Watch(ctx, func(context.Context, *fs.Note, int) error { return nil }, fs.WithReady(func() { close(ready) }))
	}()
	<-ready
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.False(t, v.State().(fs.VaultState).WatcherActive)
}
