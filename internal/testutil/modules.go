// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

// ModuleFixture describes an on-disk palette module.
type ModuleFixture struct {
	ID      string
	Version string
	Extends string
	// Metadata replaces the generated palettemod.cue content when set.
	Metadata string
	// CUE is written to commands.cue when set.
	CUE string
	// YAML is written to commands.yaml when set.
	YAML string
}

// WriteModule writes m as "<root>/<id>.palettemod" and returns the module directory.
func WriteModule(t testing.TB, root string, m ModuleFixture) string {
	t.Helper()

	dir := filepath.Join(root, m.ID+".palettemod")
	MustMkdirAll(t, dir)

	meta := m.Metadata
	if meta == "" {
		version := m.Version
		if version == "" {
			version = "1.0.0"
		}
		var b strings.Builder
		fmt.Fprintf(&b, "module: %q\nversion: %q\n", m.ID, version)
		if m.Extends != "" {
			fmt.Fprintf(&b, "extends: %q\n", m.Extends)
		}
		meta = b.String()
	}
	MustWriteFile(t, filepath.Join(dir, "palettemod.cue"), meta)

	if m.CUE != "" {
		MustWriteFile(t, filepath.Join(dir, "commands.cue"), m.CUE)
	}
	if m.YAML != "" {
		MustWriteFile(t, filepath.Join(dir, "commands.yaml"), m.YAML)
	}
	return dir
}
