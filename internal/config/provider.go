// SPDX-License-Identifier: MPL-2.0

package config

import "context"

type (
	// LoadOptions selects where configuration is read from.
	LoadOptions struct {
		// ConfigFilePath is read instead of the lookup order when set.
		ConfigFilePath string
		// ConfigDirPath replaces ConfigDir() in the lookup order.
		ConfigDirPath string
	}

	// Provider supplies the configuration for one CLI invocation.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Config, error)
	}

	// ProviderFunc adapts a function to Provider.
	ProviderFunc func(ctx context.Context, opts LoadOptions) (*Config, error)
)

// Load calls f.
func (f ProviderFunc) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	return f(ctx, opts)
}

// NewProvider returns the config.cue backed provider. A missing file yields
// DefaultConfig().
func NewProvider() Provider {
	return ProviderFunc(loadWithOptions)
}

// Static returns a provider that ignores LoadOptions and always yields cfg.
func Static(cfg *Config) Provider {
	return ProviderFunc(func(ctx context.Context, _ LoadOptions) (*Config, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return cfg, nil
	})
}
