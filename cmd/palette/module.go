// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/invowk/palette/pkg/palettemod"
)

func newModuleCommand(app *App) *cobra.Command {
	moduleCmd := &cobra.Command{
		Use:   "module",
		Short: "Work with palette modules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	moduleCmd.AddCommand(newModuleValidateCommand(app))
	return moduleCmd
}

func newModuleValidateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>...",
		Short: "Validate palette module directories",
		Long: `Validate the structure and declarations of palette modules.

Checks performed:
  - Folder name is <module-id>.palettemod
  - palettemod.cue exists, matches the schema and names the folder's module
  - commands.cue or commands.yaml, when present, matches the fragment schema

Every issue is reported, not only the first.

Examples:
  palette module validate ./modules/com.example.blog.palettemod`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, dir := range args {
				ok, err := printValidation(cmd.OutOrStdout(), dir)
				if err != nil {
					return err
				}
				if !ok {
					failed++
				}
			}
			if failed > 0 {
				return app.fail(1, fmt.Errorf("%d of %d module(s) are invalid", failed, len(args)))
			}
			return nil
		},
	}
}

func printValidation(w io.Writer, dir string) (bool, error) {
	result, err := palettemod.Validate(dir)
	if err != nil {
		return false, err
	}

	fmt.Fprintln(w, TitleStyle.Render("Module Validation"))
	fmt.Fprintf(w, "  Path: %s\n", CmdStyle.Render(result.ModulePath))
	if result.ModuleID != "" {
		fmt.Fprintf(w, "  Module: %s\n", CmdStyle.Render(result.ModuleID.String()))
	}

	if result.Valid {
		fmt.Fprintf(w, "%s module is valid\n\n", SuccessStyle.Render("✓"))
		return true, nil
	}

	fmt.Fprintf(w, "%s %d issue(s):\n", ErrorStyle.Render("✗"), len(result.Issues))
	for _, iss := range result.Issues {
		fmt.Fprintf(w, "  - %s\n", iss.Error())
	}
	fmt.Fprintln(w)
	return false, nil
}
