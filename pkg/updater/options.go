package updater

import "log/slog"

// Option configures a Coordinator.
type Option func(*options)

type options struct {
	nameFilter string
	logger     *slog.Logger
	notify     func(string)
	fieldBlur  bool
}

func defaultOptions() options {
	return options{fieldBlur: true}
}

// WithNameFilter restricts the coordinator to templates whose name contains
// substr (case-insensitive). An empty substr matches every template.
func WithNameFilter(substr string) Option {
	return func(o *options) {
		o.nameFilter = substr
	}
}

// WithLogger sets the logger used by the coordinator.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithNotifier sets the function that receives user-facing messages, such as
// the summary at the end of RegenerateAll. Defaults to logging at info level.
func WithNotifier(fn func(msg string)) Option {
	return func(o *options) {
		o.notify = fn
	}
}

// WithFieldBlur controls whether the registry routes field-blur events to the
// coordinator. Disabled coordinators only run through RegenerateAll.
func WithFieldBlur(enabled bool) Option {
	return func(o *options) {
		o.fieldBlur = enabled
	}
}
