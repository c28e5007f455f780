package platform

import (
	"log/slog"
	"net/http"

	"github.com/aretw0/ankihorse/pkg/config"
)

// options holds the internal configuration of a Host.
type options struct {
	logger       *slog.Logger
	config       *config.Config
	systemDir    string
	autoInit     bool
	mustExist    bool
	readOnly     bool
	notify       func(string)
	httpClient   *http.Client
	errorHandler func(error)
}

// Option defines a functional option for opening a vault.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{}
}

// WithLogger sets the logger for the host, its vault and every addon.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithConfig uses cfg instead of loading <vault>/ankihorse.yaml.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithSystemDir allows specifying the hidden directory name (e.g. ".ankihorse").
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.systemDir = name
	}
}

// WithAutoInit creates the vault layout (and the git repository when the
// configuration enables git) if it is missing.
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.autoInit = auto
	}
}

// WithMustExist ensures the vault directory must already exist.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithReadOnly enables read-only mode.
// In this mode Persist, AddFile and Commit fail with core.ErrReadOnly and
// snapshots are not written to disk.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.readOnly = enabled
	}
}

// WithNotifier sets the function that shows messages to the user: batch
// summaries and provider warnings such as exhausted quotas.
func WithNotifier(fn func(msg string)) Option {
	return func(o *options) {
		o.notify = fn
	}
}

// WithHTTPClient sets the client used by the providers for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithWatcherErrorHandler registers a callback to handle errors occurring during the Watch loop.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}
