package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/ankihorse/pkg/config"
	"github.com/aretw0/ankihorse/pkg/media"
	"github.com/aretw0/ankihorse/pkg/providers"
	"github.com/aretw0/ankihorse/pkg/updater"
)

// New opens the vault at dir and installs the addons of its configuration.
//
//	host, err := ankihorse.Open("./cards", ankihorse.WithLogger(logger))
//
// An addon whose provider lacks an API key is not installed; it is reported
// in Host.Disabled so the user can configure it. Any other addon error fails
// the whole call.
func New(ctx context.Context, dir string, opts ...Option) (*Host, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	cfg, err := o.load(dir)
	if err != nil {
		return nil, err
	}

	vault, err := initVault(ctx, dir, cfg, o)
	if err != nil {
		return nil, err
	}

	stager := media.NewStager(o.logger)
	if o.httpClient != nil {
		stager.Client = o.httpClient
	}
	deps := providers.Deps{
		Store:  vault,
		Stager: stager,
		Client: o.httpClient,
		Logger: o.logger,
		Notify: o.notify,
	}

	registry, disabled, err := buildRegistry(cfg, vault.Path, deps, o)
	if err != nil {
		return nil, err
	}

	return &Host{
		Vault:    vault,
		Config:   cfg,
		Registry: registry,
		Disabled: disabled,
		logger:   o.logger,
	}, nil
}

// buildRegistry creates one coordinator per addon, in declaration order.
func buildRegistry(cfg *config.Config, root string, deps providers.Deps, o *options) (*updater.Registry, map[string]error, error) {
	registry := updater.NewRegistry(o.logger)
	disabled := make(map[string]error)
	builder := newStrategyBuilder(cfg, root, deps)

	var errs []error
	for _, a := range cfg.Addons {
		strategy, err := builder.Build(a)
		if errors.Is(err, ErrMissingOption) {
			o.logger.Warn("addon disabled", "addon", a.Name, "reason", err)
			disabled[a.Name] = err
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("addon %q: %w", a.Name, err))
			continue
		}

		copts := []updater.Option{
			updater.WithNameFilter(a.ModelNameSubstring),
			updater.WithLogger(o.logger.With("addon", a.Name)),
			updater.WithFieldBlur(a.FieldBlur()),
		}
		if o.notify != nil {
			copts = append(copts, updater.WithNotifier(o.notify))
		}
		if err := registry.Register(updater.New(a.Name, strategy, copts...)); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, nil, err
	}
	return registry, disabled, nil
}
