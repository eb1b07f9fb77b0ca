// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/invowk/palette/internal/config"
)

func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect palette configuration",
		Long: `Inspect palette configuration.

Configuration is read from, in order:
  - the file passed with --config
  - config.cue in the palette configuration directory
  - config.cue in the current directory`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.Config.Load(cmd.Context(), app.loadOptions())
			if err != nil {
				return app.fail(1, err)
			}
			showConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Print the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.Config.Load(cmd.Context(), app.loadOptions())
			if err != nil {
				return app.fail(1, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show where configuration is read from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Config directory: %s\n", dir)
			path, err := config.ResolvePath(app.loadOptions())
			if err != nil {
				return err
			}
			if path == "" {
				path = SubtitleStyle.Render("(none, using defaults)")
			}
			fmt.Fprintf(w, "Config file: %s\n", path)
			return nil
		},
	})

	return cfgCmd
}

func showConfig(w io.Writer, cfg *config.Config) {
	key := CmdStyle.Render
	val := SuccessStyle.Render

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if cfg.FilePath != "" {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), cfg.FilePath)
	} else {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	list := func(name string, values []string) {
		fmt.Fprintf(w, "%s:\n", key(name))
		if len(values) == 0 {
			fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
			return
		}
		for _, v := range values {
			fmt.Fprintf(w, "  - %s\n", val(v))
		}
	}
	list("search_paths", cfg.SearchPaths)
	list("includes", cfg.Includes)

	fmt.Fprintf(w, "%s: %s\n", key("default_mode"), val(cfg.DefaultMode))
	fmt.Fprintf(w, "%s: %s\n", key("component"), val(cfg.Component))
	fmt.Fprintf(w, "%s: %s\n", key("log_level"), val(cfg.LogLevel.String()))

	fmt.Fprintf(w, "%s:\n", key("server"))
	fmt.Fprintf(w, "  address: %s\n", val(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)))
	fmt.Fprintf(w, "  host_key_path: %s\n", val(cfg.Server.HostKeyPath))
	if cfg.Server.MetricsAddr != "" {
		fmt.Fprintf(w, "  metrics_addr: %s\n", val(cfg.Server.MetricsAddr))
	}

	fmt.Fprintf(w, "%s:\n", key("watch"))
	fmt.Fprintf(w, "  enabled: %s\n", val(fmt.Sprintf("%v", cfg.Watch.Enabled)))
	fmt.Fprintf(w, "  debounce: %s\n", val(cfg.Watch.Debounce.String()))

	fmt.Fprintf(w, "%s:\n", key("roles"))
	roles := sortedNames(cfg.Roles)
	if len(roles) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, name := range roles {
		fmt.Fprintf(w, "  %s: %d grant(s)\n", name, len(cfg.Roles[name]))
	}

	fmt.Fprintf(w, "%s:\n", key("identities"))
	ids := sortedNames(cfg.Identities)
	if len(ids) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, name := range ids {
		id := cfg.Identities[name]
		fmt.Fprintf(w, "  %s: roles [%s], %d key(s)\n", name, strings.Join(id.Roles, ", "), len(id.Keys))
	}
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
