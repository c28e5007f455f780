package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// IndexFile is the name of the field snapshot file inside the system directory.
const IndexFile = "index.json"

// snapshot is the last known field contents of one note.
type snapshot struct {
	Template     string            `json:"template"`
	Fields       map[string]string `json:"fields"`
	LastModified time.Time         `json:"lastModified"`
}

// index is the persistent snapshot state.
type index struct {
	Version int                  `json:"version"`
	Entries map[string]*snapshot `json:"entries"` // keyed by note ID
	dirty   bool
	mu      sync.RWMutex
}

// cache keeps the field snapshots that the watcher diffs against, so a
// change made by a strategy is not mistaken for a user edit.
type cache struct {
	Path  string
	index *index
}

func newCache(vaultPath, systemDir string) *cache {
	return &cache{
		Path: filepath.Join(vaultPath, systemDir, IndexFile),
		index: &index{
			Version: 1,
			Entries: make(map[string]*snapshot),
		},
	}
}

// Load reads the snapshots from disk. A missing or corrupt file leaves the
// cache empty.
func (c *cache) Load() error {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	data, err := os.ReadFile(c.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshots: %w", err)
	}

	var loaded struct {
		Version int                  `json:"version"`
		Entries map[string]*snapshot `json:"entries"`
	}
	if err := json.Unmarshal(data, &loaded); err != nil || loaded.Entries == nil {
		c.index.Entries = make(map[string]*snapshot)
		return nil
	}
	c.index.Entries = loaded.Entries
	c.index.dirty = false
	return nil
}

// Save writes the snapshots if they changed since the last Load or Save.
func (c *cache) Save() error {
	c.index.mu.RLock()
	if !c.index.dirty {
		c.index.mu.RUnlock()
		return nil
	}
	data, err := json.MarshalIndent(c.index, "", "  ")
	c.index.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.Path), 0755); err != nil {
		return err
	}
	if err := writeFileAtomic(c.Path, data, 0644); err != nil {
		return err
	}

	c.index.mu.Lock()
	c.index.dirty = false
	c.index.mu.Unlock()
	return nil
}

// Get returns a copy of the snapshot of a note.
func (c *cache) Get(id string) (snapshot, bool) {
	c.index.mu.RLock()
	defer c.index.mu.RUnlock()

	s, ok := c.index.Entries[id]
	if !ok {
		return snapshot{}, false
	}
	return s.clone(), true
}

// Set records the current fields of a note and returns the previous snapshot.
func (c *cache) Set(id string, s snapshot) (snapshot, bool) {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	prev, ok := c.index.Entries[id]
	next := s.clone()
	c.index.Entries[id] = &next
	c.index.dirty = true
	if !ok {
		return snapshot{}, false
	}
	return *prev, true
}

// Restore puts back a snapshot returned by Set, or drops the entry.
func (c *cache) Restore(id string, prev snapshot, existed bool) {
	if existed {
		c.Set(id, prev)
		return
	}
	c.Delete(id)
}

// Prune removes entries that are not in keep.
func (c *cache) Prune(keep map[string]bool) {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	for id := range c.index.Entries {
		if !keep[id] {
			delete(c.index.Entries, id)
			c.index.dirty = true
		}
	}
}

func (c *cache) Delete(id string) {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	if _, ok := c.index.Entries[id]; ok {
		delete(c.index.Entries, id)
		c.index.dirty = true
	}
}

func (c *cache) Len() int {
	c.index.mu.RLock()
	defer c.index.mu.RUnlock()
	return len(c.index.Entries)
}

func (s snapshot) clone() snapshot {
	fields := make(map[string]string, len(s.Fields))
	for k, v := range s.Fields {
		fields[k] = v
	}
	s.Fields = fields
	return s
}

func snapshotOf(n *Note) snapshot {
	return snapshot{
		Template:     n.template.Name,
		Fields:       n.Fields(),
		LastModified: n.modTime,
	}
}
