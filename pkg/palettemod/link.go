// SPDX-License-Identifier: MPL-2.0

package palettemod

import (
	"errors"
	"fmt"
	"slices"

	"github.com/invowk/palette/internal/dag"
)

var (
	// ErrUnknownBase is returned when a module extends a module that is not loaded.
	ErrUnknownBase = errors.New("extended module not found")

	// ErrDuplicateModule is returned when two modules share an id.
	ErrDuplicateModule = errors.New("duplicate module id")
)

type (
	// UnknownBaseError reports an extends reference that cannot be resolved.
	UnknownBaseError struct {
		Module ModuleID
		Base   ModuleID
	}

	// DuplicateModuleError reports two modules loaded under the same id.
	DuplicateModuleError struct {
		ID     ModuleID
		First  string
		Second string
	}
)

func (e *UnknownBaseError) Error() string {
	return fmt.Sprintf("module %s extends %s, which was not found", e.Module, e.Base)
}

// Unwrap returns ErrUnknownBase for errors.Is() compatibility.
func (e *UnknownBaseError) Unwrap() error { return ErrUnknownBase }

func (e *DuplicateModuleError) Error() string {
	return fmt.Sprintf("module %s defined twice (%s, %s)", e.ID, e.First, e.Second)
}

// Unwrap returns ErrDuplicateModule for errors.Is() compatibility.
func (e *DuplicateModuleError) Unwrap() error { return ErrDuplicateModule }

// Link resolves extends references and rebuilds each module's chain as its base's
// chain followed by its own declaration. The returned slice orders every base before
// the modules that extend it; unrelated modules keep their input order.
// The modules are updated in place.
func Link(modules []*Module) ([]*Module, error) {
	byID := make(map[ModuleID]*Module, len(modules))
	g := dag.New()

	for _, m := range modules {
		if prev, ok := byID[m.ID]; ok {
			return nil, &DuplicateModuleError{ID: m.ID, First: prev.Path, Second: m.Path}
		}
		byID[m.ID] = m
		g.AddNode(string(m.ID))
	}

	for _, m := range modules {
		if m.Extends == "" {
			continue
		}
		if _, ok := byID[m.Extends]; !ok {
			return nil, &UnknownBaseError{Module: m.ID, Base: m.Extends}
		}
		g.AddEdge(string(m.Extends), string(m.ID))
	}

	order, err := g.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve module extends: %w", err)
	}

	linked := make([]*Module, 0, len(order))
	for _, id := range order {
		m := byID[ModuleID(id)]
		var chain []ChainEntry
		if m.Extends != "" {
			chain = slices.Clone(byID[m.Extends].Chain)
		}
		m.Chain = append(chain, m.Own)
		linked = append(linked, m)
	}
	return linked, nil
}
