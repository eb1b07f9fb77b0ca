// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/invowk/palette/internal/issue"
	"github.com/invowk/palette/internal/testutil"
)

func loadFromDir(t *testing.T, content string) (*Config, error) {
	t.Helper()
	dir := t.TempDir()
	if content != "" {
		testutil.MustWriteFile(t, filepath.Join(dir, "config.cue"), content)
	}
	return NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
}

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	t.Parallel()

	cfg, err := loadFromDir(t, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := DefaultConfig()
	if diff := cmp.Diff(want, cfg, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := loadFromDir(t, `
search_paths: ["/srv/palette/modules"]
component: "Palette"
log_level: "debug"
server: port: 2222
watch: debounce: "2s"
roles: editor: [
	{action: "publish", type: "article", modes: ["draft"]},
	{action: "*", type: "page"},
]
identities: alice: {
	roles: ["editor"]
	keys: ["ssh-ed25519 AAAA alice@host"]
}
`)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if diff := cmp.Diff([]string{"/srv/palette/modules"}, cfg.SearchPaths); diff != "" {
		t.Errorf("SearchPaths mismatch (-want +got):\n%s", diff)
	}
	if cfg.Component != "Palette" || cfg.LogLevel != LogLevelDebug {
		t.Errorf("Component, LogLevel = %q, %q", cfg.Component, cfg.LogLevel)
	}
	if cfg.Server.Port != 2222 || cfg.Server.Host != "localhost" {
		t.Errorf("Server = %+v, want port override with default host", cfg.Server)
	}
	if cfg.Watch.Debounce != 2*time.Second || !cfg.Watch.Enabled {
		t.Errorf("Watch = %+v", cfg.Watch)
	}
	if cfg.DefaultMode != "draft" {
		t.Errorf("DefaultMode = %q, want draft", cfg.DefaultMode)
	}

	wantRoles := map[string][]Grant{
		"editor": {
			{Action: "publish", Type: "article", Modes: []string{"draft"}},
			{Action: "*", Type: "page"},
		},
	}
	if diff := cmp.Diff(wantRoles, cfg.Roles); diff != "" {
		t.Errorf("Roles mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.Identities["alice"]; len(got.Keys) != 1 || got.Roles[0] != "editor" {
		t.Errorf("Identities[alice] = %+v", got)
	}
	if !strings.HasSuffix(cfg.FilePath, "config.cue") {
		t.Errorf("FilePath = %q", cfg.FilePath)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", `colour: "red"`},
		{"bad log level", `log_level: "trace"`},
		{"port out of range", `server: port: 70000`},
		{"empty default mode", `default_mode: ""`},
		{"grant without type", `roles: r: [{action: "x"}]`},
		{"syntax error", `search_paths: [`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := loadFromDir(t, tt.content)
			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("Load() error = %v, want ActionableError", err)
			}
			if ae.Issue != issue.ConfigLoadFailedId {
				t.Errorf("Issue = %d, want ConfigLoadFailedId", ae.Issue)
			}
		})
	}
}

func TestLoad_UnknownRole(t *testing.T) {
	t.Parallel()

	_, err := loadFromDir(t, `identities: bob: roles: ["admin"]`)
	if !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("Load() error = %v, want ErrUnknownRole", err)
	}
	var roleErr *UnknownRoleError
	if !errors.As(err, &roleErr) || roleErr.Role != "admin" || roleErr.Identity != "bob" {
		t.Errorf("UnknownRoleError = %+v", roleErr)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom.cue")
	testutil.MustWriteFile(t, path, `component: "Custom"`)

	cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Component != "Custom" || cfg.FilePath != path {
		t.Errorf("cfg = %+v", cfg)
	}

	_, err = NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path + ".missing"})
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || !ae.HasSuggestions() {
		t.Errorf("Load(missing) error = %v, want ActionableError with suggestions", err)
	}
}

func TestLoad_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewProvider().Load(ctx, LoadOptions{ConfigDirPath: t.TempDir()}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load() error = %v, want context.Canceled", err)
	}
}

func TestGenerateCUE_RoundTrip(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Roles = map[string][]Grant{"viewer": {{Action: "view", Type: "*", Modes: []string{"live"}}}}
	cfg.Identities = map[string]IdentityConfig{"carol": {Roles: []string{"viewer"}, Keys: []string{"ssh-ed25519 AAAA"}}}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.cue"), []byte(GenerateCUE(cfg)), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: dir})
	if err != nil {
		t.Fatalf("Load(generated) error = %v", err)
	}
	got.FilePath = ""
	if diff := cmp.Diff(cfg, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigDir(t *testing.T) {
	xdg := t.TempDir()
	t.Cleanup(testutil.MustSetenv(t, "XDG_CONFIG_HOME", xdg))

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() error = %v", err)
	}
	if filepath.Base(dir) != AppName {
		t.Errorf("ConfigDir() = %q, want it to end in %q", dir, AppName)
	}
}

func TestStatic(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Component = "Static"
	p := Static(cfg)

	got, err := p.Load(context.Background(), LoadOptions{ConfigFilePath: "/does/not/exist.cue"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != cfg {
		t.Errorf("Load() = %p, want %p", got, cfg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Load(canceled) error = %v, want context.Canceled", err)
	}
}
