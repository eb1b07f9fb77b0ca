// SPDX-License-Identifier: MPL-2.0

package palettemod

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invowk/palette/pkg/cueutil"
	"github.com/invowk/palette/pkg/palette"
)

const (
	// MetadataFile holds module identity and version.
	MetadataFile = "palettemod.cue"
	// CUEFragmentFile holds a lazy fragment evaluated per owning module.
	CUEFragmentFile = "commands.cue"
	// YAMLFragmentFile holds a static fragment.
	YAMLFragmentFile = "commands.yaml"
	// YMLFragmentFile is the alternate extension of YAMLFragmentFile.
	YMLFragmentFile = "commands.yml"
)

var (
	//go:embed palettemod_schema.cue
	palettemodSchema string

	//go:embed fragment_schema.cue
	fragmentSchema string

	// ErrPalettemodNotFound is returned when a module directory has no palettemod.cue.
	ErrPalettemodNotFound = errors.New("palettemod.cue not found")

	// ErrNotModuleDir is returned when a directory name lacks the .palettemod suffix.
	ErrNotModuleDir = errors.New("not a palette module directory")

	// ErrModuleIDMismatch is returned when the folder prefix and the declared module differ.
	ErrModuleIDMismatch = errors.New("module id does not match directory name")
)

// Palettemod is the decoded content of palettemod.cue.
type Palettemod struct {
	Module      ModuleID `json:"module"`
	Version     string   `json:"version"`
	Description string   `json:"description,omitempty"`
	Extends     ModuleID `json:"extends,omitempty"`

	// FilePath is where the metadata was read from.
	FilePath string `json:"-"`
}

// IsModuleDir reports whether name carries the module directory suffix.
func IsModuleDir(name string) bool {
	return strings.HasSuffix(name, ModuleSuffix) && len(name) > len(ModuleSuffix)
}

// ParseDirName extracts the module id from a "<id>.palettemod" directory name.
func ParseDirName(name string) (ModuleID, error) {
	if !IsModuleDir(name) {
		return "", fmt.Errorf("%w: %q must end with %s", ErrNotModuleDir, name, ModuleSuffix)
	}
	id := ModuleID(strings.TrimSuffix(name, ModuleSuffix))
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

// ParsePalettemod reads and validates palettemod.cue at path.
func ParsePalettemod(path string) (*Palettemod, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read palettemod at %s: %w", path, err)
	}
	return ParsePalettemodBytes(data, path)
}

// ParsePalettemodBytes validates palettemod content against #Palettemod and decodes it.
func ParsePalettemodBytes(data []byte, path string) (*Palettemod, error) {
	result, err := cueutil.ParseAndDecodeString[Palettemod](
		palettemodSchema,
		data,
		"#Palettemod",
		cueutil.WithFilename(path),
	)
	if err != nil {
		return nil, err
	}

	meta := result.Value
	meta.FilePath = path
	if meta.Extends == meta.Module {
		return nil, fmt.Errorf("module %s cannot extend itself (%s)", meta.Module, path)
	}
	return meta, nil
}

// Load reads the module stored in dir. The returned module's chain holds only its
// own declaration; use Link to resolve extends.
func Load(dir string) (*Module, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	dirID, err := ParseDirName(filepath.Base(absDir))
	if err != nil {
		return nil, err
	}

	metaPath := filepath.Join(absDir, MetadataFile)
	if _, statErr := os.Stat(metaPath); statErr != nil {
		if os.IsNotExist(statErr) {
			return nil, fmt.Errorf("%w in %s", ErrPalettemodNotFound, absDir)
		}
		return nil, fmt.Errorf("failed to check palettemod at %s: %w", metaPath, statErr)
	}

	meta, err := ParsePalettemod(metaPath)
	if err != nil {
		return nil, err
	}
	if meta.Module != dirID {
		return nil, fmt.Errorf("%w: directory %s declares module %q", ErrModuleIDMismatch, filepath.Base(absDir), meta.Module)
	}

	m := &Module{
		ID:          meta.Module,
		Version:     meta.Version,
		Description: meta.Description,
		Extends:     meta.Extends,
		Path:        absDir,
	}

	own, err := loadFragmentEntry(m)
	if err != nil {
		return nil, err
	}
	m.Own = own
	m.Chain = []ChainEntry{own}
	return m, nil
}

// FragmentPath returns the fragment file of the module in dir, or "" when there is none.
// commands.cue takes precedence over the YAML variants.
func FragmentPath(dir string) string {
	for _, name := range []string{CUEFragmentFile, YAMLFragmentFile, YMLFragmentFile} {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

func loadFragmentEntry(m *Module) (ChainEntry, error) {
	path := FragmentPath(m.Path)
	if path == "" {
		return ChainEntry{Declarer: m.ID}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ChainEntry{}, fmt.Errorf("failed to read fragment at %s: %w", path, err)
	}

	if filepath.Ext(path) != ".cue" {
		frag, err := ParseYAMLFragment(data, path)
		if err != nil {
			return ChainEntry{}, err
		}
		return Static(m.ID, frag), nil
	}

	// Evaluate once for the declaring module so syntax and envelope errors surface at load time.
	if _, err := ParseCUEFragment(data, path, m); err != nil {
		return ChainEntry{}, err
	}
	return Func(m.ID, func(owner *Module) (*palette.Fragment, error) {
		return ParseCUEFragment(data, path, owner)
	}), nil
}
