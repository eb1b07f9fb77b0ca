// SPDX-License-Identifier: MPL-2.0

package palettemod

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/invowk/palette/pkg/palette"
)

// ModuleSuffix is the directory suffix of an on-disk module.
const ModuleSuffix = ".palettemod"

var (
	// ErrInvalidModuleID is the sentinel wrapped by InvalidModuleIDError.
	ErrInvalidModuleID = errors.New("invalid module id")

	moduleIDPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]*(\.[a-zA-Z][a-zA-Z0-9]*)*$`)
)

type (
	// ModuleID identifies a module, RDNS style (e.g. "com.example.blog").
	ModuleID string

	// InvalidModuleIDError is returned when a ModuleID does not match the required
	// format. It wraps ErrInvalidModuleID for errors.Is() compatibility.
	InvalidModuleIDError struct {
		Value ModuleID
	}

	// FragmentFunc computes a fragment for the module that owns the chain. It lets a
	// base declaration depend on the derived module it ends up in.
	FragmentFunc func(owner *Module) (*palette.Fragment, error)

	// ChainEntry is one declaration in a module's override chain.
	// When both Fragment and Factory are set, Factory wins.
	ChainEntry struct {
		// Declarer is the module that wrote this declaration.
		Declarer ModuleID
		Fragment *palette.Fragment
		Factory  FragmentFunc
	}

	// Module is a palette contributor.
	Module struct {
		ID          ModuleID
		Version     string
		Description string
		// Extends names the base module, if any.
		Extends ModuleID
		// Path is the module directory; empty for modules built in Go.
		Path string
		// Own is the module's own declaration.
		Own ChainEntry
		// Chain lists declarations from the most-base ancestor to this module.
		// Later entries take precedence over earlier ones.
		Chain []ChainEntry
	}
)

// String returns the string representation of the ModuleID.
func (id ModuleID) String() string { return string(id) }

// Validate returns nil if the ModuleID is well formed.
func (id ModuleID) Validate() error {
	if !moduleIDPattern.MatchString(string(id)) {
		return &InvalidModuleIDError{Value: id}
	}
	return nil
}

// Error implements the error interface for InvalidModuleIDError.
func (e *InvalidModuleIDError) Error() string {
	return fmt.Sprintf(
		"invalid module id %q: must start with a letter and contain alphanumeric segments separated by dots",
		string(e.Value),
	)
}

// Unwrap returns ErrInvalidModuleID for errors.Is() compatibility.
func (e *InvalidModuleIDError) Unwrap() error { return ErrInvalidModuleID }

// Static returns a chain entry holding a fixed fragment.
func Static(declarer ModuleID, fragment *palette.Fragment) ChainEntry {
	return ChainEntry{Declarer: declarer, Fragment: fragment}
}

// Func returns a chain entry whose fragment is computed for the owning module.
func Func(declarer ModuleID, fn FragmentFunc) ChainEntry {
	return ChainEntry{Declarer: declarer, Factory: fn}
}

// IsEmpty reports whether the entry declares nothing.
func (e ChainEntry) IsEmpty() bool {
	return e.Fragment == nil && e.Factory == nil
}

// Resolve returns the entry's fragment for owner, invoking the factory if any.
// An empty entry resolves to nil.
func (e ChainEntry) Resolve(owner *Module) (*palette.Fragment, error) {
	if e.Factory != nil {
		return e.Factory(owner)
	}
	return e.Fragment, nil
}

// New creates a module whose chain is exactly entries, in order. The last entry
// is also recorded as the module's own declaration.
func New(id ModuleID, entries ...ChainEntry) *Module {
	m := &Module{ID: id, Chain: entries}
	if len(entries) > 0 {
		m.Own = entries[len(entries)-1]
	}
	return m
}

// scope is the value exposed as "owner" to commands.cue.
func (m *Module) scope() map[string]any {
	return map[string]any{
		"owner": map[string]any{
			"id":      string(m.ID),
			"version": m.Version,
		},
	}
}
