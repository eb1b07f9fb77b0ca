// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/invowk/palette/internal/compose"
	"github.com/invowk/palette/internal/config"
	"github.com/invowk/palette/internal/dag"
	"github.com/invowk/palette/internal/discovery"
	"github.com/invowk/palette/internal/issue"
	"github.com/invowk/palette/internal/policy"
	"github.com/invowk/palette/internal/visibility"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives an App and reaches configuration and output through it.
	App struct {
		Config config.Provider
		stdout io.Writer
		stderr io.Writer

		configPath string
		verbose    bool
	}

	// Dependencies are the injection points for NewApp. Nil fields get
	// production defaults.
	Dependencies struct {
		Config config.Provider
		Stdout io.Writer
		Stderr io.Writer
	}

	// stack is the composition engine and its request-time collaborators,
	// built from one configuration.
	stack struct {
		cfg       *config.Config
		discovery *discovery.Discovery
		engine    *compose.Engine
		policy    *policy.Policy
		resolver  *visibility.Resolver
		logger    *log.Logger
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	return &App{Config: deps.Config, stdout: deps.Stdout, stderr: deps.Stderr}
}

func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: a.configPath}
}

// loadConfig loads configuration and installs a logger at its level. The
// logger also becomes the log/slog default.
func (a *App) loadConfig(ctx context.Context) (*config.Config, *log.Logger, error) {
	cfg, err := a.Config.Load(ctx, a.loadOptions())
	if err != nil {
		return nil, nil, err
	}
	logger := a.newLogger(cfg.LogLevel)
	slog.SetDefault(slog.New(logger))
	return cfg, logger, nil
}

func (a *App) newLogger(level config.LogLevel) *log.Logger {
	logger := log.NewWithOptions(a.stderr, log.Options{ReportTimestamp: true})
	if a.verbose {
		logger.SetLevel(log.DebugLevel)
		return logger
	}
	if parsed, err := log.ParseLevel(string(level)); err == nil {
		logger.SetLevel(parsed)
	}
	return logger
}

// build wires discovery, the engine, the policy and the resolver from cfg.
// Engine metrics are registered with reg when it is non-nil.
func (a *App) build(cfg *config.Config, logger *log.Logger, reg prometheus.Registerer) *stack {
	d := discovery.New(cfg)
	opts := []compose.Option{compose.WithLogger(logger.WithPrefix("compose"))}
	if reg != nil {
		opts = append(opts, compose.WithMetrics(compose.NewMetrics(reg)))
	}
	pol := policy.FromConfig(cfg)
	return &stack{
		cfg:       cfg,
		discovery: d,
		engine:    compose.NewEngine(d, opts...),
		policy:    pol,
		resolver: &visibility.Resolver{
			Oracle:      pol,
			DefaultMode: cfg.DefaultMode,
			Component:   cfg.Component,
		},
		logger: logger,
	}
}

// explainComposeError turns a failed composition cycle into an actionable error.
func explainComposeError(err error) error {
	if err == nil {
		return nil
	}
	ec := issue.NewErrorContext().WithOperation("compose registry").Wrap(err)

	var (
		cycle   *dag.CycleError
		contrib *discovery.ContributionError
	)
	switch {
	case errors.As(err, &cycle):
		ec.WithResource(strings.Join(cycle.Nodes, ", ")).
			WithSuggestion("Remove the extends field from one module in the cycle").
			WithIssue(issue.ExtendsCycleId)
	case errors.As(err, &contrib):
		if contrib.Path != "" {
			ec.WithResource(contrib.Path).
				WithSuggestion(fmt.Sprintf("Run 'palette module validate %s'", contrib.Path))
		}
		ec.WithIssue(issue.ModuleLoadFailedId)
	case errors.Is(err, compose.ErrStructural):
		ec.WithSuggestion("Fix the declaration named above; every module is validated together").
			WithIssue(issue.InvalidRegistryId)
	}
	return ec.BuildError()
}

// renderHints prints the suggestions of an actionable error and, when verbose,
// the catalog entry it references.
func (a *App) renderHints(err error) {
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return
	}
	for _, s := range ae.Suggestions {
		fmt.Fprintln(a.stderr, WarningStyle.Render("hint: ")+s)
	}
	if !a.verbose || ae.Issue == 0 {
		return
	}
	if entry := issue.Get(ae.Issue); entry != nil {
		if rendered, renderErr := entry.Render("dark"); renderErr == nil {
			fmt.Fprint(a.stderr, rendered)
		}
	}
}

// fail renders hints for err and wraps it in an ExitError.
func (a *App) fail(code int, err error) error {
	a.renderHints(err)
	return &ExitError{Code: code, Err: err}
}
