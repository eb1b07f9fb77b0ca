// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/invowk/palette/internal/config"
	"github.com/invowk/palette/pkg/palette"
	"github.com/invowk/palette/pkg/palettemod"
)

type (
	// Discovery finds on-disk palette modules.
	Discovery struct {
		searchPaths []string
		includes    []string
		logger      *slog.Logger
	}

	// Result bundles discovered modules with the non-fatal diagnostics produced
	// while scanning.
	Result struct {
		// Modules are linked: bases come before the modules extending them.
		Modules     []*palettemod.Module
		Diagnostics []Diagnostic
	}
)

// New creates a Discovery over the search paths and includes of cfg.
func New(cfg *config.Config) *Discovery {
	return &Discovery{
		searchPaths: cfg.SearchPaths,
		includes:    cfg.Includes,
		logger:      slog.Default(),
	}
}

// Discover scans search paths (each direct child named *.palettemod is a module)
// followed by explicit includes. Modules that fail to load or link abort discovery
// with a *ContributionError: a broken module never yields a partial palette.
func (d *Discovery) Discover(ctx context.Context) (*Result, error) {
	result := &Result{}
	var dirs []string
	seen := make(map[string]bool)

	for _, sp := range d.searchPaths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, diags := scanSearchPath(sp)
		result.Diagnostics = append(result.Diagnostics, diags...)
		for _, dir := range found {
			if !seen[dir] {
				seen[dir] = true
				dirs = append(dirs, dir)
			}
		}
	}

	for _, inc := range d.includes {
		dir, diag, ok := resolveInclude(inc)
		if !ok {
			result.Diagnostics = append(result.Diagnostics, diag)
			continue
		}
		if seen[dir] {
			result.Diagnostics = append(result.Diagnostics, newDiagnostic(CodeIncludeDuplicate, dir,
				fmt.Sprintf("include %s is already found through a search path", dir), nil))
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}

	modules := make([]*palettemod.Module, 0, len(dirs))
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := palettemod.Load(dir)
		if err != nil {
			id, _ := palettemod.ParseDirName(filepath.Base(dir))
			return nil, &ContributionError{Module: id, Declarer: id, Path: dir, Cause: err}
		}
		modules = append(modules, m)
	}

	linked, err := palettemod.Link(modules)
	if err != nil {
		return nil, &ContributionError{Cause: err}
	}
	result.Modules = linked
	return result, nil
}

// Fragments discovers the modules and collects their fragments. Diagnostics are
// logged as warnings.
func (d *Discovery) Fragments(ctx context.Context) ([]palette.Fragment, error) {
	result, err := d.Discover(ctx)
	if err != nil {
		return nil, err
	}
	for _, diag := range result.Diagnostics {
		d.logger.Warn(diag.Message, "code", diag.Code, "path", diag.Path)
	}
	return Collect(result.Modules)
}

// Roots returns the absolute directories Discovery reads from, for file watching.
func (d *Discovery) Roots() []string {
	var roots []string
	for _, p := range append(append([]string{}, d.searchPaths...), d.includes...) {
		if abs, err := filepath.Abs(p); err == nil {
			roots = append(roots, abs)
		}
	}
	return roots
}

func scanSearchPath(path string) ([]string, []Diagnostic) {
	absDir, err := filepath.Abs(path)
	if err != nil {
		return nil, []Diagnostic{newDiagnostic(CodeSearchPathInvalid, path,
			fmt.Sprintf("failed to resolve search path %q: %v", path, err), err)}
	}

	info, err := os.Stat(absDir)
	switch {
	case os.IsNotExist(err):
		return nil, []Diagnostic{newDiagnostic(CodeSearchPathMissing, absDir,
			fmt.Sprintf("search path %s does not exist", absDir), err)}
	case err != nil:
		return nil, []Diagnostic{newDiagnostic(CodeSearchPathInvalid, absDir,
			fmt.Sprintf("cannot access search path %s: %v", absDir, err), err)}
	case !info.IsDir():
		return nil, []Diagnostic{newDiagnostic(CodeSearchPathInvalid, absDir,
			fmt.Sprintf("search path %s is not a directory", absDir), nil)}
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, []Diagnostic{newDiagnostic(CodeSearchPathScanFailed, absDir,
			fmt.Sprintf("failed to list search path %s: %v", absDir, err), err)}
	}

	// os.ReadDir sorts by name, so discovery order is stable across runs.
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() && palettemod.IsModuleDir(entry.Name()) {
			dirs = append(dirs, filepath.Join(absDir, entry.Name()))
		}
	}
	return dirs, nil
}

func resolveInclude(path string) (string, Diagnostic, bool) {
	absDir, err := filepath.Abs(path)
	if err != nil {
		return "", newDiagnostic(CodeIncludeNotModule, path,
			fmt.Sprintf("failed to resolve include %q: %v", path, err), err), false
	}
	info, err := os.Stat(absDir)
	if err != nil || !info.IsDir() || !palettemod.IsModuleDir(filepath.Base(absDir)) {
		return "", newDiagnostic(CodeIncludeNotModule, absDir,
			fmt.Sprintf("include %s is not a *%s directory", absDir, palettemod.ModuleSuffix), err), false
	}
	return absDir, Diagnostic{}, true
}
