// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/invowk/palette/internal/issue"
	"github.com/invowk/palette/internal/paletteserver"
	"github.com/invowk/palette/internal/watch"
)

const metricsShutdownTimeout = 5 * time.Second

type serveOptions struct {
	host        string
	port        int
	metricsAddr string
	noWatch     bool
}

func newServeCommand(app *App) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve per-identity payloads over SSH",
		Long: `Compose the registry and serve it over SSH. Each session receives the
payload for the identity owning its public key; unknown keys receive false.
Module changes trigger a new composition cycle unless --no-watch is set.

Examples:
  palette serve
  palette serve --port 2222 --metrics-addr :9100
  ssh -p 23234 localhost          # JSON payload
  ssh -p 23234 localhost yaml     # YAML payload`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.serve(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "address to bind (default from config)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "port to listen on (default from config)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "do not recompose when module files change")
	return cmd
}

func (a *App) serve(cmd *cobra.Command, opts serveOptions) error {
	ctx := cmd.Context()
	cfg, logger, err := a.loadConfig(ctx)
	if err != nil {
		return a.fail(1, err)
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = opts.host
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = opts.port
	}
	if opts.metricsAddr != "" {
		cfg.Server.MetricsAddr = opts.metricsAddr
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	st := a.build(cfg, logger, reg)

	// A failed first cycle leaves the empty registry published; the server
	// still starts so a later change can recover.
	if _, err := st.engine.Recompose(ctx); err != nil {
		a.renderHints(explainComposeError(err))
	}

	keyring, err := paletteserver.NewKeyring(cfg.Identities)
	if err != nil {
		return a.fail(1, issue.NewErrorContext().
			WithOperation("load identity keys").
			WithSuggestion("Each entry under identities.<name>.keys must be an authorized_keys line").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError())
	}

	srv := paletteserver.New(paletteserver.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		HostKeyPath: cfg.Server.HostKeyPath,
	}, st.engine, st.resolver, keyring, st.policy,
		paletteserver.WithLogger(logger.WithPrefix("ssh")),
		paletteserver.WithMetrics(paletteserver.NewMetrics(reg)),
	)
	if err := srv.Start(ctx); err != nil {
		return a.fail(1, issue.NewErrorContext().
			WithOperation("start palette server").
			WithResource(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
			WithSuggestion("Pick another port with --port").
			WithIssue(issue.ServerStartFailedId).
			Wrap(err).
			BuildError())
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return srv.Stop()
		case err := <-srv.Err():
			return errors.Join(err, srv.Stop())
		}
	})

	if cfg.Server.MetricsAddr != "" {
		metricsSrv := &http.Server{
			Addr:              cfg.Server.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("serving metrics", "addr", cfg.Server.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			return metricsSrv.Shutdown(shutdownCtx)
		})
	}

	if cfg.Watch.Enabled && !opts.noWatch {
		w, err := watch.New(watch.Config{
			Roots:    st.discovery.Roots(),
			Debounce: cfg.Watch.Debounce,
			Logger:   logger.WithPrefix("watch"),
			OnChange: func(ctx context.Context, _ []string) error {
				_, err := st.engine.Recompose(ctx)
				return err
			},
		})
		switch {
		case errors.Is(err, watch.ErrNoRoots):
			logger.Warn("no module directories to watch; recomposition on change is off")
		case err != nil:
			logger.Warn("file watching disabled", "err", err)
		default:
			g.Go(func() error { return w.Run(gctx) })
		}
	}

	return g.Wait()
}
