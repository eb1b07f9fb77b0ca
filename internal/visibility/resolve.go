// SPDX-License-Identifier: MPL-2.0

package visibility

import (
	"github.com/invowk/palette/pkg/palette"
)

type (
	// Resolver computes views of a registry. The zero value denies every command
	// that carries a permission.
	Resolver struct {
		Oracle PermissionOracle
		// DefaultMode is checked for permissions without a mode;
		// palette.DefaultPermissionMode when empty.
		DefaultMode string
		// Component is published as components.the in payloads.
		Component string
	}

	// ViewGroup is a group restricted to the commands visible to one identity.
	ViewGroup struct {
		Name   string                          `json:"-" yaml:"-"`
		Label  string                          `json:"label" yaml:"label"`
		Fields *palette.Table[palette.Command] `json:"fields" yaml:"fields"`
	}

	// View is the part of a registry visible to one identity. Its tables are
	// built per call and never alias the registry's tables.
	View struct {
		// Commands are the visible commands in registry order.
		Commands *palette.Table[palette.Command] `json:"commands" yaml:"commands"`
		// Groups holds the non-empty groups in registry order.
		Groups *palette.Table[ViewGroup] `json:"groups" yaml:"groups"`
		// Modals maps modal name to group name to the group's commands in that modal.
		Modals *palette.Table[*palette.Table[ViewGroup]] `json:"modals" yaml:"modals"`
	}
)

// Resolve returns the view of reg for identity, or nil for an anonymous identity.
// A nil registry resolves like an empty one.
func (r *Resolver) Resolve(reg *palette.Registry, identity *Identity) *View {
	if identity.IsAnonymous() {
		return nil
	}
	if reg == nil {
		reg = palette.EmptyRegistry()
	}

	removed := make(map[string]bool, len(reg.Removals))
	for _, name := range reg.Removals {
		removed[name] = true
	}

	view := &View{
		Commands: palette.NewTable[palette.Command](),
		Groups:   palette.NewTable[ViewGroup](),
		Modals:   palette.NewTable[*palette.Table[ViewGroup]](),
	}

	for name, cmd := range reg.Commands.All() {
		if removed[name] || !r.permitted(identity, cmd) {
			continue
		}
		view.Commands.Set(name, cmd)
	}

	for name, g := range reg.Groups.All() {
		fields := palette.NewTable[palette.Command]()
		for _, field := range g.Fields {
			if fields.Has(field) {
				continue
			}
			if cmd, ok := view.Commands.Get(field); ok {
				fields.Set(field, cmd)
			}
		}
		if fields.Len() == 0 {
			continue
		}
		view.Groups.Set(name, ViewGroup{Name: name, Label: g.Label, Fields: fields})
	}

	for name, g := range view.Groups.All() {
		for cmdName, cmd := range g.Fields.All() {
			if cmd.Modal == "" {
				continue
			}
			groups, ok := view.Modals.Get(cmd.Modal)
			if !ok {
				groups = palette.NewTable[ViewGroup]()
				view.Modals.Set(cmd.Modal, groups)
			}
			mg, ok := groups.Get(name)
			if !ok {
				mg = ViewGroup{Name: name, Label: g.Label, Fields: palette.NewTable[palette.Command]()}
				groups.Set(name, mg)
			}
			mg.Fields.Set(cmdName, cmd)
		}
	}

	return view
}

func (r *Resolver) permitted(identity *Identity, cmd palette.Command) bool {
	if cmd.Permission == nil {
		return true
	}
	if r.Oracle == nil {
		return false
	}
	mode := r.DefaultMode
	if mode == "" {
		mode = palette.DefaultPermissionMode
	}
	p := cmd.Permission
	return r.Oracle.Can(identity, p.Action, p.Type, p.ModeOr(mode))
}
