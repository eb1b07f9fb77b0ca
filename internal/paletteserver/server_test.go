// SPDX-License-Identifier: MPL-2.0

package paletteserver

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	gossh "golang.org/x/crypto/ssh"

	"github.com/invowk/palette/internal/config"
	"github.com/invowk/palette/internal/policy"
	"github.com/invowk/palette/internal/testutil"
	"github.com/invowk/palette/internal/visibility"
	"github.com/invowk/palette/pkg/palette"
)

type staticRegistry struct{ reg *palette.Registry }

func (s staticRegistry) Registry() *palette.Registry { return s.reg }

func testRegistry() *palette.Registry {
	reg := palette.EmptyRegistry()
	for _, c := range []palette.Command{
		{Name: "core:help", Type: palette.ItemType, Label: "Help", Shortcut: "?"},
		{
			Name: "page:edit", Type: palette.ItemType, Label: "Edit", Shortcut: "e",
			Permission: &palette.Permission{Action: "edit", Type: "page"},
		},
	} {
		reg.Commands.Set(c.Name, c)
	}
	reg.Groups.Set("main", palette.Group{Name: "main", Label: "Main", Fields: []string{"core:help", "page:edit"}})
	return reg
}

func startServer(t *testing.T, identities map[string]config.IdentityConfig, m *Metrics) *Server {
	t.Helper()

	keyring, err := NewKeyring(identities)
	if err != nil {
		t.Fatalf("NewKeyring() error = %v", err)
	}
	pol := policy.New(map[string][]config.Grant{"editor": {{Action: "edit", Type: "page"}}}, identities)
	srv := New(Config{
		Host:        "127.0.0.1",
		Port:        0,
		HostKeyPath: filepath.Join(t.TempDir(), "keys", "host_ed25519"),
	},
		staticRegistry{testRegistry()},
		&visibility.Resolver{Oracle: pol, Component: "CommandPalette"},
		keyring, pol,
		WithLogger(log.New(io.Discard)),
		WithMetrics(m),
	)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { testutil.MustStop(t, srv) })
	return srv
}

func fetch(t *testing.T, addr string, auth gossh.AuthMethod, command string) string {
	t.Helper()

	client, err := gossh.Dial("tcp", addr, &gossh.ClientConfig{
		User:            "palette",
		Auth:            []gossh.AuthMethod{auth},
		HostKeyCallback: gossh.InsecureIgnoreHostKey(), //nolint:gosec // test server
	})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()

	sess, err := client.NewSession()
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	defer sess.Close()

	out, err := sess.Output(command)
	if err != nil {
		t.Fatalf("Output() error = %v", err)
	}
	return string(out)
}

func TestServer_PayloadPerIdentity(t *testing.T) {
	t.Parallel()

	alice, guest, stranger := newSigner(t), newSigner(t), newSigner(t)
	identities := map[string]config.IdentityConfig{
		"alice": {Roles: []string{"editor"}, Keys: []string{authorizedLine(alice)}},
		"guest": {Keys: []string{authorizedLine(guest)}},
	}
	m := NewMetrics(prometheus.NewRegistry())
	srv := startServer(t, identities, m)

	if srv.State() != StateRunning {
		t.Fatalf("State() = %s, want running", srv.State())
	}

	fieldsOf := func(t *testing.T, raw string) []string {
		t.Helper()
		var payload struct {
			Components map[string]string `json:"components"`
			Groups     map[string]struct {
				Label  string                     `json:"label"`
				Fields map[string]json.RawMessage `json:"fields"`
			} `json:"groups"`
		}
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			t.Fatalf("Unmarshal(%q) error = %v", raw, err)
		}
		if payload.Components["the"] != "CommandPalette" {
			t.Errorf("components.the = %q", payload.Components["the"])
		}
		var names []string
		for name := range payload.Groups["main"].Fields {
			names = append(names, name)
		}
		return names
	}

	got := fieldsOf(t, fetch(t, srv.Addr(), gossh.PublicKeys(alice), ""))
	if len(got) != 2 {
		t.Errorf("alice sees %v, want core:help and page:edit", got)
	}

	got = fieldsOf(t, fetch(t, srv.Addr(), gossh.PublicKeys(guest), ""))
	if len(got) != 1 || got[0] != "core:help" {
		t.Errorf("guest sees %v, want [core:help]", got)
	}

	if out := fetch(t, srv.Addr(), gossh.PublicKeys(stranger), ""); out != "false\n" {
		t.Errorf("unknown key output = %q, want %q", out, "false\n")
	}

	kbi := gossh.KeyboardInteractive(func(string, string, []string, []bool) ([]string, error) {
		return nil, nil
	})
	if out := fetch(t, srv.Addr(), kbi, ""); out != "false\n" {
		t.Errorf("keyboard-interactive output = %q, want %q", out, "false\n")
	}

	if got := promtest.ToFloat64(m.sessions.WithLabelValues(SessionAuthenticated)); got != 2 {
		t.Errorf("authenticated sessions = %v, want 2", got)
	}
	if got := promtest.ToFloat64(m.sessions.WithLabelValues(SessionAnonymous)); got != 2 {
		t.Errorf("anonymous sessions = %v, want 2", got)
	}
}

func TestServer_YAMLCommand(t *testing.T) {
	t.Parallel()

	alice := newSigner(t)
	srv := startServer(t, map[string]config.IdentityConfig{
		"alice": {Roles: []string{"editor"}, Keys: []string{authorizedLine(alice)}},
	}, nil)

	out := fetch(t, srv.Addr(), gossh.PublicKeys(alice), "yaml")
	if !strings.HasPrefix(out, "components:\n    the: CommandPalette\n") {
		t.Errorf("yaml output = %q", out)
	}

	if out := fetch(t, srv.Addr(), gossh.PublicKeys(newSigner(t)), "yaml"); out != "false\n" {
		t.Errorf("anonymous yaml output = %q, want %q", out, "false\n")
	}
}

func TestServer_Lifecycle(t *testing.T) {
	t.Parallel()

	newServer := func() *Server {
		return New(Config{Host: "127.0.0.1", HostKeyPath: filepath.Join(t.TempDir(), "host")},
			staticRegistry{palette.EmptyRegistry()}, &visibility.Resolver{}, nil, nil,
			WithLogger(log.New(io.Discard)))
	}

	t.Run("stop before start", func(t *testing.T) {
		t.Parallel()
		s := newServer()
		if s.State() != StateCreated {
			t.Fatalf("State() = %s, want created", s.State())
		}
		if err := s.Stop(); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
		if s.State() != StateStopped {
			t.Errorf("State() = %s, want stopped", s.State())
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()
		s := newServer()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := s.Start(ctx); err == nil {
			t.Fatal("Start() error = nil, want error")
		}
		if s.State() != StateFailed || s.LastError() == nil {
			t.Errorf("State() = %s, LastError() = %v", s.State(), s.LastError())
		}
		if err := s.Wait(); err == nil {
			t.Error("Wait() error = nil, want failure")
		}
	})

	t.Run("start stop twice", func(t *testing.T) {
		t.Parallel()
		s := newServer()
		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if s.Addr() == "" {
			t.Error("Addr() is empty while running")
		}
		if err := s.Start(context.Background()); err == nil {
			t.Error("second Start() error = nil, want error")
		}
		if err := s.Stop(); err != nil {
			t.Errorf("Stop() error = %v", err)
		}
		if err := s.Stop(); err != nil {
			t.Errorf("second Stop() error = %v", err)
		}
		if s.State() != StateStopped {
			t.Errorf("State() = %s, want stopped", s.State())
		}
		if err := s.Wait(); err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	})
}

func TestState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state    State
		want     string
		terminal bool
	}{
		{StateCreated, "created", false},
		{StateStarting, "starting", false},
		{StateRunning, "running", false},
		{StateStopping, "stopping", false},
		{StateStopped, "stopped", true},
		{StateFailed, "failed", true},
		{State(42), "unknown", false},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
		if got := tt.state.IsTerminal(); got != tt.terminal {
			t.Errorf("State(%d).IsTerminal() = %v, want %v", tt.state, got, tt.terminal)
		}
	}
}
