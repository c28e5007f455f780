package platform

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/ankihorse/pkg/adapters/fs"
	"github.com/aretw0/ankihorse/pkg/config"
)

// Init initializes the vault at dir. The layout follows the vault section of
// the configuration, which is loaded from dir unless WithConfig is given.
func Init(ctx context.Context, dir string, opts ...Option) (*fs.Vault, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	cfg, err := o.load(dir)
	if err != nil {
		return nil, err
	}
	return initVault(ctx, dir, cfg, o)
}

func (o *options) load(dir string) (*config.Config, error) {
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.config != nil {
		return o.config, nil
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	o.config = cfg
	return cfg, nil
}

// initVault builds the filesystem vault described by cfg and initializes it.
func initVault(ctx context.Context, dir string, cfg *config.Config, o *options) (*fs.Vault, error) {
	path, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve vault path: %w", err)
	}

	vault := fs.NewVault(fs.Config{
		Path:         path,
		SystemDir:    o.systemDir,
		MediaDir:     cfg.Vault.MediaDir,
		Pattern:      cfg.Vault.Pattern,
		Logger:       o.logger,
		ReadOnly:     o.readOnly,
		MustExist:    o.mustExist || (!o.autoInit && !o.readOnly),
		AutoInit:     o.autoInit && !o.readOnly,
		Git:          cfg.Vault.Git,
		ErrorHandler: o.errorHandler,
	})
	if err := vault.Initialize(ctx); err != nil {
		return nil, err
	}
	return vault, nil
}
