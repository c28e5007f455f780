package ankihorse

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aretw0/ankihorse/internal/platform"
	"github.com/aretw0/ankihorse/pkg/adapters/fs"
	"github.com/aretw0/ankihorse/pkg/config"
)

// Version exposes the version of the library.
// See version.go for the implementation using go:embed.

// --- Types ---

// Host is an opened vault with its addons installed.
type Host = platform.Host

// HostState is the introspection state of a Host.
type HostState = platform.HostState

// --- Configuration ---

// Option defines a functional option for opening a vault.
type Option = platform.Option

// ErrMissingOption marks addons disabled for lack of an API key.
var ErrMissingOption = platform.ErrMissingOption

// WithLogger sets the logger for the host, its vault and every addon.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithConfig uses cfg instead of loading <vault>/ankihorse.yaml.
func WithConfig(cfg *config.Config) Option {
	return platform.WithConfig(cfg)
}

// WithSystemDir allows specifying the hidden directory name (e.g. ".ankihorse").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithAutoInit creates the vault layout if it is missing.
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithMustExist ensures the vault directory must already exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithReadOnly enables read-only mode.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithNotifier sets the function that shows messages to the user.
func WithNotifier(fn func(msg string)) Option {
	return platform.WithNotifier(fn)
}

// WithHTTPClient sets the client used by the providers.
func WithHTTPClient(c *http.Client) Option {
	return platform.WithHTTPClient(c)
}

// WithWatcherErrorHandler registers a callback for errors of the Watch loop.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Factory ---

// Open opens the vault at path and installs the addons of its configuration.
func Open(ctx context.Context, path string, opts ...Option) (*Host, error) {
	return platform.New(ctx, path, opts...)
}

// Init initializes the vault at path without installing addons.
func Init(ctx context.Context, path string, opts ...Option) (*fs.Vault, error) {
	return platform.Init(ctx, path, opts...)
}

// --- Utils ---

// FindVaultRoot recursively looks upwards for a vault root indicator.
func FindVaultRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}
