// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"
)

func newComposeCommand(app *App) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Run one composition cycle and print the registry",
		Long: `Discover modules, merge their fragments along each override chain,
validate the result and print the published registry.

A failed cycle prints the empty registry's cause and exits with status 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			cfg, logger, err := app.loadConfig(cmd.Context())
			if err != nil {
				return app.fail(1, err)
			}
			st := app.build(cfg, logger, nil)
			reg, err := st.engine.Recompose(cmd.Context())
			if err != nil {
				return app.fail(1, explainComposeError(err))
			}
			return writeValue(cmd.OutOrStdout(), format, reg)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "output format (json, yaml)")
	return cmd
}
