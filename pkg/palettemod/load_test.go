// SPDX-License-Identifier: MPL-2.0

package palettemod

import (
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/invowk/palette/internal/testutil"
	"github.com/invowk/palette/pkg/palette"
)

const blogCUE = `
add: {
	"zeta:new": {
		type:     "item"
		label:    "New"
		action: {type: "navigate", payload: {to: "/new"}}
		shortcut: "ctrl+n"
	}
	"alpha:list": {
		type:     "item"
		label:    "List"
		action: {type: "navigate", payload: {}}
		shortcut: "ctrl+l"
		modal:    "browse"
	}
}
remove: ["legacy:open"]
group: {
	zgroup: {label: "Z", fields: ["zeta:new"]}
	agroup: {label: "A", fields: ["alpha:list"]}
}
`

func TestLoad_CUEFragment(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := testutil.WriteModule(t, root, testutil.ModuleFixture{
		ID:      "com.example.blog",
		Version: "1.2.3",
		CUE:     blogCUE,
	})

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.ID != "com.example.blog" || m.Version != "1.2.3" || m.Path != dir {
		t.Errorf("module = %+v", m)
	}
	if len(m.Chain) != 1 || m.Own.Factory == nil {
		t.Fatalf("want a single lazy chain entry, got %+v", m.Chain)
	}

	frag, err := m.Own.Resolve(m)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got, want := frag.Add.Keys(), []string{"zeta:new", "alpha:list"}; !slices.Equal(got, want) {
		t.Errorf("add keys = %v, want %v", got, want)
	}
	if got, want := frag.Group.Keys(), []string{"zgroup", "agroup"}; !slices.Equal(got, want) {
		t.Errorf("group keys = %v, want %v", got, want)
	}
	if !slices.Equal(frag.Remove, []string{"legacy:open"}) {
		t.Errorf("remove = %v", frag.Remove)
	}
	cmd, _ := frag.Add.Get("alpha:list")
	if cmd["modal"] != "browse" || cmd["label"] != "List" {
		t.Errorf("alpha:list = %v", cmd)
	}
}

func TestLoad_CUEFragmentIsEvaluatedPerOwner(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := testutil.WriteModule(t, root, testutil.ModuleFixture{
		ID: "core",
		CUE: `add: "\(owner.id):open": {
	type: "item"
	label: "Open \(owner.id) v\(owner.version)"
	action: {type: "navigate", payload: {}}
	shortcut: "ctrl+o"
}
`,
	})

	base, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	owner := &Module{ID: "shop", Version: "2.0.0"}
	frag, err := base.Own.Resolve(owner)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	cmd, ok := frag.Add.Get("shop:open")
	if !ok {
		t.Fatalf("add keys = %v, want shop:open", frag.Add.Keys())
	}
	if got, want := cmd["label"], "Open shop v2.0.0"; got != want {
		t.Errorf("label = %v, want %q", got, want)
	}
}

func TestLoad_YAMLFragmentKeepsOrder(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := testutil.WriteModule(t, root, testutil.ModuleFixture{
		ID: "wiki",
		YAML: `add:
  zeta:
    type: item
    label: Zeta
    action: {type: navigate, payload: {}}
    shortcut: z
  alpha:
    type: item
    label: Alpha
    action: {type: navigate, payload: {}}
    shortcut: a
remove: [old]
group:
  pages:
    label: Pages
    fields: [zeta, alpha]
`,
	})

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.Own.Factory != nil || m.Own.Fragment == nil {
		t.Fatal("YAML fragments should be static")
	}
	frag := m.Own.Fragment
	if got, want := frag.Add.Keys(), []string{"zeta", "alpha"}; !slices.Equal(got, want) {
		t.Errorf("add keys = %v, want %v", got, want)
	}
	g, _ := frag.Group.Get("pages")
	if fields, ok := g[palette.FieldsKey].([]any); !ok || len(fields) != 2 {
		t.Errorf("pages fields = %v", g[palette.FieldsKey])
	}
}

func TestLoad_WithoutFragment(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteModule(t, t.TempDir(), testutil.ModuleFixture{ID: "empty", Extends: "core"})
	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.Extends != "core" {
		t.Errorf("Extends = %q, want core", m.Extends)
	}
	if !m.Own.IsEmpty() {
		t.Error("module without a fragment file should have an empty own entry")
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fixture testutil.ModuleFixture
		wantErr error
		substr  string
	}{
		{
			name:    "id mismatch",
			fixture: testutil.ModuleFixture{ID: "blog", Metadata: "module: \"wiki\"\nversion: \"1.0.0\"\n"},
			wantErr: ErrModuleIDMismatch,
		},
		{
			name:    "bad version",
			fixture: testutil.ModuleFixture{ID: "blog", Metadata: "module: \"blog\"\nversion: \"v1\"\n"},
			substr:  "version",
		},
		{
			name:    "unknown metadata field",
			fixture: testutil.ModuleFixture{ID: "blog", Metadata: "module: \"blog\"\nversion: \"1.0.0\"\nauthor: \"x\"\n"},
			substr:  "author",
		},
		{
			name:    "self extends",
			fixture: testutil.ModuleFixture{ID: "blog", Extends: "blog"},
			substr:  "cannot extend itself",
		},
		{
			name:    "envelope violation",
			fixture: testutil.ModuleFixture{ID: "blog", CUE: "remove: \"x\"\n"},
			substr:  "remove",
		},
		{
			name:    "unknown yaml key",
			fixture: testutil.ModuleFixture{ID: "blog", YAML: "extra: {}\n"},
			substr:  "unknown fragment key",
		},
		{
			name:    "yaml command not a mapping",
			fixture: testutil.ModuleFixture{ID: "blog", YAML: "add:\n  x: 3\n"},
			substr:  "must be a mapping",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := testutil.WriteModule(t, t.TempDir(), tt.fixture)
			_, err := Load(dir)
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Load() error = %v, want %v", err, tt.wantErr)
			}
			if tt.substr != "" && !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("Load() error = %q, want it to mention %q", err, tt.substr)
			}
		})
	}
}

func TestLoad_MissingMetadata(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "blog.palettemod")
	testutil.MustMkdirAll(t, dir)

	if _, err := Load(dir); !errors.Is(err, ErrPalettemodNotFound) {
		t.Errorf("Load() error = %v, want ErrPalettemodNotFound", err)
	}

	if _, err := Load(t.TempDir()); !errors.Is(err, ErrNotModuleDir) {
		t.Errorf("Load(plain dir) error = %v, want ErrNotModuleDir", err)
	}
}

func TestValidate_ReportsEveryIssue(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteModule(t, t.TempDir(), testutil.ModuleFixture{
		ID:       "blog",
		Metadata: "module: \"wiki\"\nversion: \"1.0.0\"\n",
		YAML:     "bogus: 1\n",
	})

	result, err := Validate(dir)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if result.Valid {
		t.Fatal("Valid = true, want false")
	}
	var types []IssueType
	for _, issue := range result.Issues {
		types = append(types, issue.Type)
	}
	if want := []IssueType{IssueTypeNaming, IssueTypeFragment}; !slices.Equal(types, want) {
		t.Errorf("issue types = %v, want %v", types, want)
	}
}

func TestValidate_ValidModule(t *testing.T) {
	t.Parallel()

	dir := testutil.WriteModule(t, t.TempDir(), testutil.ModuleFixture{ID: "blog", CUE: blogCUE})
	result, err := Validate(dir)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !result.Valid || result.ModuleID != "blog" {
		t.Errorf("result = %+v", result)
	}
}
