// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the palette CLI.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "palette",
		Short: "Compose command palettes from plugin modules",
		Long: TitleStyle.Render("palette") + SubtitleStyle.Render(" - compose command palettes from plugin modules") + `

palette merges the commands, groups and removals declared by *.palettemod
modules into one validated registry, then serves a per-identity view of it.

` + SubtitleStyle.Render("Examples:") + `
  palette compose               Compose and print the registry
  palette list                  List composed commands
  palette resolve --user alice  Show what alice can see
  palette serve                 Serve payloads over SSH`,
		SilenceUsage: true,
	}

	root.SetOut(app.stdout)
	root.SetErr(app.stderr)
	root.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable debug logging and detailed errors")
	root.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/palette/config.cue)")

	root.AddCommand(
		newComposeCommand(app),
		newListCommand(app),
		newResolveCommand(app),
		newModuleCommand(app),
		newServeCommand(app),
		newConfigCommand(app),
	)
	return root
}

func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
