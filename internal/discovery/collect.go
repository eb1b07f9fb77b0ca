// SPDX-License-Identifier: MPL-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"

	"github.com/invowk/palette/pkg/palette"
	"github.com/invowk/palette/pkg/palettemod"
)

// ErrContribution is the sentinel wrapped by ContributionError.
var ErrContribution = errors.New("module contribution failed")

type (
	// ContributionError reports a module whose declarations could not be produced:
	// a failing fragment factory, or a module that could not be loaded or linked.
	// It aborts the whole composition cycle.
	ContributionError struct {
		// Module is the module being collected (or loaded).
		Module palettemod.ModuleID
		// Declarer is the module that wrote the failing declaration, if known.
		Declarer palettemod.ModuleID
		// Path is the module directory for on-disk modules.
		Path  string
		Cause error
	}

	// StaticSource serves modules assembled in Go.
	StaticSource []*palettemod.Module
)

func (e *ContributionError) Error() string {
	switch {
	case e.Declarer != "" && e.Declarer != e.Module:
		return fmt.Sprintf("module %s: declaration from %s failed: %v", e.Module, e.Declarer, e.Cause)
	case e.Module != "":
		return fmt.Sprintf("module %s: %v", e.Module, e.Cause)
	case e.Path != "":
		return fmt.Sprintf("module at %s: %v", e.Path, e.Cause)
	default:
		return fmt.Sprintf("module contribution failed: %v", e.Cause)
	}
}

// Unwrap returns both the sentinel and the cause.
func (e *ContributionError) Unwrap() []error { return []error{ErrContribution, e.Cause} }

// Collect produces the fragments of every module, in module order and, within a
// module, in chain order (most-base first). Factories are invoked with the owning
// module. Entries that declare nothing are skipped. The first failing factory
// aborts collection with a *ContributionError.
func Collect(modules []*palettemod.Module) ([]palette.Fragment, error) {
	var fragments []palette.Fragment
	for _, m := range modules {
		if m == nil {
			continue
		}
		for _, entry := range m.Chain {
			if entry.IsEmpty() {
				continue
			}
			frag, err := entry.Resolve(m)
			if err != nil {
				return nil, &ContributionError{Module: m.ID, Declarer: entry.Declarer, Path: m.Path, Cause: err}
			}
			if frag == nil {
				continue
			}
			fragments = append(fragments, *frag)
		}
	}
	return fragments, nil
}

// Fragments collects the static modules.
func (s StaticSource) Fragments(ctx context.Context) ([]palette.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Collect(s)
}
