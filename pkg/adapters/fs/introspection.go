package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// VaultState exposes internal state for observability.
type VaultState struct {
	Path          string     `json:"path"`
	SystemDir     string     `json:"system_dir"`
	MediaDir      string     `json:"media_dir"`
	Pattern       string     `json:"pattern"`
	ReadOnly      bool       `json:"read_only"`
	Git           bool       `json:"git"`
	SnapshotSize  int        `json:"snapshot_size"`
	Formats       []string   `json:"formats"`
	WatcherActive bool       `json:"watcher_active"`
	LastRefresh   *time.Time `json:"last_refresh,omitempty"`
}

// State implements introspection.Introspectable.
func (v *Vault) State() any {
	v.mu.RLock()
	defer v.mu.RUnlock()

	formats := make([]string, 0, len(v.serializers))
	for ext := range v.serializers {
		formats = append(formats, ext)
	}

	return VaultState{
		Path:          v.Path,
		SystemDir:     v.config.SystemDir,
		MediaDir:      v.config.MediaDir,
		Pattern:       v.config.Pattern,
		ReadOnly:      v.config.ReadOnly,
		Git:           v.config.Git,
		SnapshotSize:  v.cache.Len(),
		Formats:       formats,
		WatcherActive: v.watcherActive,
		LastRefresh:   v.lastRefresh,
	}
}

// ComponentType implements introspection.Component.
func (v *Vault) ComponentType() string {
	return "vault"
}

var _ introspection.Introspectable = (*Vault)(nil)
var _ introspection.Component = (*Vault)(nil)

func (v *Vault) setWatcherActive(active bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.watcherActive = active
}

func (v *Vault) recordRefresh() {
	v.mu.Lock()
	defer v.mu.Unlock()
	now := time.Now()
	v.lastRefresh = &now
}
