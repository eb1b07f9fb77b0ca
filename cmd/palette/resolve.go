// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/invowk/palette/internal/visibility"
)

func newResolveCommand(app *App) *cobra.Command {
	var (
		user   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Print the payload an identity would receive",
		Long: `Compose the registry and print the visibility payload for one configured
identity. Without --user the request is anonymous and the payload is false.

Examples:
  palette resolve --user alice
  palette resolve --user alice --format yaml`,
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

			var id *visibility.Identity
			if user != "" {
				if id, err = st.policy.Identity(user); err != nil {
					return err
				}
			}

			reg, err := st.engine.Recompose(cmd.Context())
			if err != nil {
				// The engine has published the empty registry; resolving it
				// still shows what a client would receive.
				app.renderHints(explainComposeError(err))
				logger.Warn("resolving against the empty registry", "err", err)
				reg = st.engine.Registry()
			}
			return writeValue(cmd.OutOrStdout(), format, st.resolver.Payload(reg, id))
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "configured identity to resolve for (anonymous when empty)")
	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "output format (json, yaml)")
	return cmd
}
