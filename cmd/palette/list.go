// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/invowk/palette/internal/issue"
	"github.com/invowk/palette/pkg/palette"
)

func newListCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List composed commands and groups",
		Long: `Compose the registry and list every command with its shortcut, modal
and permission. Removed commands stay in the registry and are marked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.fail(1, err)
			}
			reg, err := app.build(cfg, logger, nil).engine.Recompose(cmd.Context())
			if err != nil {
				return app.fail(1, explainComposeError(err))
			}
			app.renderRegistry(cmd.OutOrStdout(), reg)
			return nil
		},
	}
}

func (a *App) renderRegistry(w io.Writer, reg *palette.Registry) {
	if reg.Commands.Len() == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("No commands composed."))
		if a.verbose {
			if rendered, err := issue.Get(issue.NoModulesFoundId).Render("dark"); err == nil {
				fmt.Fprint(w, rendered)
			}
		}
		return
	}

	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("Commands (%d)", reg.Commands.Len())))
	fmt.Fprintln(w, commandTable(reg))

	if reg.Groups.Len() > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("Groups (%d)", reg.Groups.Len())))
		for name, g := range reg.Groups.All() {
			fmt.Fprintf(w, "  %s %s %s\n", CmdStyle.Render(name), SubtitleStyle.Render(g.Label),
				strings.Join(g.Fields, ", "))
		}
	}
}

func commandTable(reg *palette.Registry) string {
	rows := make([][]string, 0, reg.Commands.Len())
	removed := make([]bool, 0, reg.Commands.Len())
	for name, c := range reg.Commands.All() {
		rows = append(rows, []string{name, c.Label, c.Shortcut, c.Modal, permissionString(c.Permission)})
		removed = append(removed, slices.Contains(reg.Removals, name))
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorMuted)).
		Headers("NAME", "LABEL", "SHORTCUT", "MODAL", "PERMISSION").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle
			case row >= 0 && row < len(removed) && removed[row]:
				return tableMutedStyle.Strikethrough(true)
			default:
				return tableCellStyle
			}
		}).
		String()
}

func permissionString(p *palette.Permission) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%s %s (%s)", p.Action, p.Type, p.ModeOr(palette.DefaultPermissionMode))
}
