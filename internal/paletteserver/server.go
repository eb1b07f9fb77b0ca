// SPDX-License-Identifier: MPL-2.0

package paletteserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	gossh "golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"

	"github.com/invowk/palette/internal/visibility"
	"github.com/invowk/palette/pkg/palette"
)

type (
	// RegistrySource returns the currently published registry.
	RegistrySource interface {
		Registry() *palette.Registry
	}

	// IdentityLookup turns an identity name into an Identity with its roles.
	IdentityLookup interface {
		Identity(name string) (*visibility.Identity, error)
	}

	// Config holds the immutable server settings.
	Config struct {
		Host string
		// Port 0 picks a free port.
		Port int
		// HostKeyPath is created with a fresh ed25519 key when missing.
		HostKeyPath     string
		StartupTimeout  time.Duration
		ShutdownTimeout time.Duration
	}

	// Server is single-use: once stopped or failed, create a new one.
	Server struct {
		cfg        Config
		source     RegistrySource
		resolver   *visibility.Resolver
		keyring    *Keyring
		identities IdentityLookup
		logger     *log.Logger
		metrics    *Metrics

		*lifecycle

		srvMu    sync.Mutex
		srv      *ssh.Server
		listener net.Listener
		addr     string
	}

	// Option configures a Server.
	Option func(*Server)
)

// WithLogger sets the server logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetrics records sessions in m.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// DefaultConfig returns a loopback config on the default port.
func DefaultConfig() Config {
	return Config{
		Host:            "localhost",
		Port:            23234,
		HostKeyPath:     ".palette/ssh_host_ed25519",
		StartupTimeout:  5 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// New creates a server that resolves source through resolver. Keys found in
// keyring are mapped to identities through identities.
func New(cfg Config, source RegistrySource, resolver *visibility.Resolver, keyring *Keyring, identities IdentityLookup, opts ...Option) *Server {
	def := DefaultConfig()
	if cfg.Host == "" {
		cfg.Host = def.Host
	}
	if cfg.HostKeyPath == "" {
		cfg.HostKeyPath = def.HostKeyPath
	}
	if cfg.StartupTimeout <= 0 {
		cfg.StartupTimeout = def.StartupTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	s := &Server{
		cfg:        cfg,
		source:     source,
		resolver:   resolver,
		keyring:    keyring,
		identities: identities,
		logger:     log.Default().WithPrefix("ssh"),
		lifecycle:  newLifecycle(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start listens and returns once the server accepts sessions, fails, or
// ctx is done. Use Err to observe failures after Start returns.
func (s *Server) Start(ctx context.Context) error {
	if err := s.begin(ctx); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, s.cfg.StartupTimeout)
	defer cancel()

	if dir := filepath.Dir(s.cfg.HostKeyPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			s.fail(fmt.Errorf("create host key directory: %w", err))
			return s.lastError()
		}
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	var lc net.ListenConfig
	listener, err := lc.Listen(startCtx, "tcp", addr)
	if err != nil {
		s.fail(fmt.Errorf("listen on %s: %w", addr, err))
		return s.lastError()
	}

	srv, err := wish.NewServer(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(s.cfg.HostKeyPath),
		wish.WithPublicKeyAuth(func(ssh.Context, ssh.PublicKey) bool { return true }),
		wish.WithKeyboardInteractiveAuth(func(ssh.Context, gossh.KeyboardInteractiveChallenge) bool { return true }),
		wish.WithMiddleware(s.payloadMiddleware()),
	)
	if err != nil {
		_ = listener.Close()
		s.fail(fmt.Errorf("create ssh server: %w", err))
		return s.lastError()
	}

	s.srvMu.Lock()
	s.srv = srv
	s.listener = listener
	s.addr = listener.Addr().String()
	s.srvMu.Unlock()

	s.wg.Add(1)
	go s.serve()

	select {
	case <-s.started:
		s.logger.Info("serving palette", "addr", s.addr, "keys", s.keyring.Len())
		return nil
	case err := <-s.errCh:
		_ = listener.Close()
		s.fail(err)
		return err
	case <-startCtx.Done():
		_ = listener.Close()
		s.fail(fmt.Errorf("startup timeout: %w", startCtx.Err()))
		return s.lastError()
	}
}

func (s *Server) serve() {
	defer s.wg.Done()

	s.srvMu.Lock()
	srv, listener := s.srv, s.listener
	s.srvMu.Unlock()

	s.markRunning()
	if err := srv.Serve(listener); err != nil &&
		!errors.Is(err, ssh.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
		s.report(fmt.Errorf("serve: %w", err))
	}
}

// Stop shuts the server down gracefully. Calling it more than once is safe.
func (s *Server) Stop() error {
	if !s.beginStop() {
		s.wg.Wait()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	var err error
	s.srvMu.Lock()
	if s.srv != nil {
		if shutdownErr := s.srv.Shutdown(ctx); shutdownErr != nil && !errors.Is(shutdownErr, ssh.ErrServerClosed) {
			err = fmt.Errorf("shutdown: %w", shutdownErr)
		}
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.srvMu.Unlock()

	s.wg.Wait()
	s.markStopped()
	s.logger.Info("palette server stopped")
	return err
}

// State returns the lifecycle state.
func (s *Server) State() State { return s.current() }

// Err delivers errors raised after Start returned.
func (s *Server) Err() <-chan error { return s.errCh }

// LastError returns the error that failed the server.
func (s *Server) LastError() error { return s.lastError() }

// Addr returns the bound address, or "" before Start succeeds.
func (s *Server) Addr() string {
	s.srvMu.Lock()
	defer s.srvMu.Unlock()
	return s.addr
}

// Wait blocks until the server stops and returns the failure, if any.
func (s *Server) Wait() error {
	if s.ctx != nil {
		<-s.ctx.Done()
	}
	s.wg.Wait()
	if s.State() == StateFailed {
		return s.lastError()
	}
	return nil
}

// identify returns the identity owning key, or nil for anonymous sessions.
func (s *Server) identify(key ssh.PublicKey) *visibility.Identity {
	name, ok := s.keyring.Lookup(key)
	if !ok || s.identities == nil {
		return nil
	}
	id, err := s.identities.Identity(name)
	if err != nil {
		s.logger.Warn("key owner has no identity", "identity", name, "err", err)
		return nil
	}
	return id
}

// payloadMiddleware writes the caller's payload and ends the session. The
// command "yaml" selects YAML output; anything else is JSON.
func (s *Server) payloadMiddleware() wish.Middleware {
	return func(ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			id := s.identify(sess.PublicKey())
			resp := s.resolver.Payload(s.source.Registry(), id)

			out, err := encode(resp, sess.Command())
			if err != nil {
				s.metrics.session(SessionFailed)
				s.logger.Error("encoding payload", "err", err)
				wish.Fatalln(sess, "palette: internal error")
				return
			}

			outcome := SessionAnonymous
			if resp.Visible() {
				outcome = SessionAuthenticated
			}
			s.metrics.session(outcome)
			s.logger.Debug("session", "user", sess.User(), "outcome", outcome, "remote", sess.RemoteAddr())

			if _, err := sess.Write(out); err != nil {
				s.logger.Warn("writing payload", "err", err)
			}
			_ = sess.Exit(0)
		}
	}
}

func encode(resp visibility.Response, command []string) ([]byte, error) {
	if len(command) > 0 && command[0] == "yaml" {
		return yaml.Marshal(resp)
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
