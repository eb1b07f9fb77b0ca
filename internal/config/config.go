// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/invowk/palette/internal/issue"
	"github.com/invowk/palette/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "palette"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the palette configuration directory under the platform's user
// configuration directory ($XDG_CONFIG_HOME or ~/.config on Linux).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// ResolvePath returns the config file that Load would read, or "" when none
// exists and defaults apply.
func ResolvePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		var err error
		if cfgDir, err = ConfigDir(); err != nil {
			return "", err
		}
	}

	for _, candidate := range []string{
		filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt),
		ConfigFileName + "." + ConfigFileExt,
	} {
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	path, err := ResolvePath(opts)
	if err != nil {
		return nil, err
	}

	if opts.ConfigFilePath != "" && !fileExists(path) {
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Use 'palette config dump' to print the default configuration").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(fmt.Errorf("config file not found: %s", path)).
			BuildError()
	}

	if path != "" {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.FilePath = path

	if valid, errs := cfg.IsValid(); !valid {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Define every role referenced under identities.<name>.roles").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, defaults *Config) {
	v.SetDefault("search_paths", defaults.SearchPaths)
	v.SetDefault("includes", defaults.Includes)
	v.SetDefault("default_mode", defaults.DefaultMode)
	v.SetDefault("component", defaults.Component)
	v.SetDefault("log_level", string(defaults.LogLevel))
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.host_key_path", defaults.Server.HostKeyPath)
	v.SetDefault("server.metrics_addr", defaults.Server.MetricsAddr)
	v.SetDefault("watch.enabled", defaults.Watch.Enabled)
	v.SetDefault("watch.debounce", defaults.Watch.Debounce.String())
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Config decodes to map[string]any for Viper, so this does not go through
// cueutil.ParseAndDecode.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	unified := schemaValue.LookupPath(cue.ParsePath("#Config")).Unify(userValue)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// GenerateCUE renders cfg as a config.cue document.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// palette configuration\n\n")
	writeList(&sb, "search_paths", cfg.SearchPaths)
	writeList(&sb, "includes", cfg.Includes)
	fmt.Fprintf(&sb, "default_mode: %q\n", cfg.DefaultMode)
	fmt.Fprintf(&sb, "component:    %q\n", cfg.Component)
	fmt.Fprintf(&sb, "log_level:    %q\n", cfg.LogLevel)

	sb.WriteString("\nserver: {\n")
	fmt.Fprintf(&sb, "\thost:          %q\n", cfg.Server.Host)
	fmt.Fprintf(&sb, "\tport:          %d\n", cfg.Server.Port)
	fmt.Fprintf(&sb, "\thost_key_path: %q\n", cfg.Server.HostKeyPath)
	fmt.Fprintf(&sb, "\tmetrics_addr:  %q\n", cfg.Server.MetricsAddr)
	sb.WriteString("}\n")

	sb.WriteString("\nwatch: {\n")
	fmt.Fprintf(&sb, "\tenabled:  %v\n", cfg.Watch.Enabled)
	fmt.Fprintf(&sb, "\tdebounce: %q\n", cfg.Watch.Debounce.String())
	sb.WriteString("}\n")

	if len(cfg.Roles) > 0 {
		sb.WriteString("\nroles: {\n")
		for _, name := range sortedKeys(cfg.Roles) {
			fmt.Fprintf(&sb, "\t%q: [\n", name)
			for _, g := range cfg.Roles[name] {
				fmt.Fprintf(&sb, "\t\t{action: %q, type: %q", g.Action, g.Type)
				if len(g.Modes) > 0 {
					fmt.Fprintf(&sb, ", modes: [%s]", quoteAll(g.Modes))
				}
				sb.WriteString("},\n")
			}
			sb.WriteString("\t]\n")
		}
		sb.WriteString("}\n")
	}

	if len(cfg.Identities) > 0 {
		sb.WriteString("\nidentities: {\n")
		for _, name := range sortedKeys(cfg.Identities) {
			id := cfg.Identities[name]
			fmt.Fprintf(&sb, "\t%q: {\n", name)
			fmt.Fprintf(&sb, "\t\troles: [%s]\n", quoteAll(id.Roles))
			fmt.Fprintf(&sb, "\t\tkeys: [%s]\n", quoteAll(id.Keys))
			sb.WriteString("\t}\n")
		}
		sb.WriteString("}\n")
	}

	return sb.String()
}

func writeList(sb *strings.Builder, key string, values []string) {
	fmt.Fprintf(sb, "%s: [%s]\n", key, quoteAll(values))
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, s := range values {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}
