// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"maps"
	"slices"

	"github.com/invowk/palette/pkg/palette"
)

type (
	// Composition is the merged, not yet validated, content of all fragments.
	Composition struct {
		Add    *palette.Table[palette.RawCommand]
		Remove []string
		Group  *palette.Table[palette.RawGroup]
	}

	// Stage folds every fragment, in order, into the accumulator.
	Stage struct {
		Name  string
		Apply func(acc *Composition, fragments []palette.Fragment)
	}

	// Pipeline is an ordered list of stages applied to one accumulator.
	Pipeline []Stage
)

// DefaultPipeline returns add-merge, remove-collect and group-merge, in that order.
func DefaultPipeline() Pipeline {
	return Pipeline{
		{Name: "add-merge", Apply: mergeAdds},
		{Name: "remove-collect", Apply: collectRemovals},
		{Name: "group-merge", Apply: mergeGroups},
	}
}

// Compose runs the default pipeline.
func Compose(fragments []palette.Fragment) Composition {
	return DefaultPipeline().Compose(fragments)
}

// Compose applies each stage to a fresh accumulator. Fragments are not modified.
func (p Pipeline) Compose(fragments []palette.Fragment) Composition {
	acc := Composition{
		Add:    palette.NewTable[palette.RawCommand](),
		Remove: []string{},
		Group:  palette.NewTable[palette.RawGroup](),
	}
	for _, stage := range p {
		stage.Apply(&acc, fragments)
	}
	return acc
}

// mergeAdds keeps the last declaration of each name. A name keeps the position
// of its first declaration.
func mergeAdds(acc *Composition, fragments []palette.Fragment) {
	for _, f := range fragments {
		for name, raw := range f.Add.All() {
			acc.Add.Set(name, raw)
		}
	}
}

func collectRemovals(acc *Composition, fragments []palette.Fragment) {
	for _, f := range fragments {
		acc.Remove = append(acc.Remove, f.Remove...)
	}
}

// mergeGroups concatenates "fields" lists in fragment order; every other
// attribute of a later declaration overwrites the earlier one.
func mergeGroups(acc *Composition, fragments []palette.Fragment) {
	for _, f := range fragments {
		for name, raw := range f.Group.All() {
			prev, _ := acc.Group.Get(name)
			acc.Group.Set(name, mergeGroup(prev, raw))
		}
	}
}

func mergeGroup(prev, next palette.RawGroup) palette.RawGroup {
	out := make(palette.RawGroup, len(prev)+len(next))
	maps.Copy(out, prev)
	for k, v := range next {
		if k == palette.FieldsKey {
			before, okBefore := asList(out[k])
			after, okAfter := asList(v)
			if okBefore && okAfter {
				out[k] = slices.Concat(before, after)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// asList accepts the list shapes produced by CUE, YAML and Go callers.
func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}
