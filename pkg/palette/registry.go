// SPDX-License-Identifier: MPL-2.0

package palette

import "time"

// Registry is the published, validated result of one composition cycle.
// A Registry is immutable once published; readers may share it freely.
type Registry struct {
	// CycleID identifies the composition cycle that produced the registry.
	// Empty for the reset registry.
	CycleID string `json:"cycle_id,omitempty" yaml:"cycle_id,omitempty"`
	// ComposedAt is when the cycle finished.
	ComposedAt time.Time `json:"composed_at,omitzero" yaml:"composed_at,omitempty"`
	// Removals lists command names hidden from visibility. Names need not exist
	// in Commands.
	Removals []string        `json:"removals" yaml:"removals"`
	Commands *Table[Command] `json:"commands" yaml:"commands"`
	Groups   *Table[Group]   `json:"groups" yaml:"groups"`
}

// EmptyRegistry returns the registry published before the first successful
// cycle and after a failed one.
func EmptyRegistry() *Registry {
	return &Registry{
		Removals: []string{},
		Commands: NewTable[Command](),
		Groups:   NewTable[Group](),
	}
}

// IsEmpty reports whether the registry holds no commands, groups or removals.
func (r *Registry) IsEmpty() bool {
	return r == nil || (r.Commands.Len() == 0 && r.Groups.Len() == 0 && len(r.Removals) == 0)
}
