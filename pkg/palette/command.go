// SPDX-License-Identifier: MPL-2.0

package palette

const (
	// ItemType is the only command type the registry accepts.
	ItemType = "item"

	// DefaultPermissionMode is the mode checked when a permission omits one.
	DefaultPermissionMode = "draft"
)

type (
	// RawCommand is a command declaration as contributed by a module, before validation.
	// Keys mirror the JSON shape of Command ("type", "label", "action", "permission",
	// "modal", "shortcut").
	RawCommand map[string]any

	// Action describes what a front-end does when the command fires.
	// The engine treats it as opaque metadata.
	Action struct {
		Type    string         `json:"type" yaml:"type"`
		Payload map[string]any `json:"payload" yaml:"payload"`
	}

	// Permission gates command visibility. It is only interpreted by the
	// visibility resolver through a permission oracle.
	Permission struct {
		Action string `json:"action" yaml:"action"`
		Type   string `json:"type" yaml:"type"`
		// Mode is optional; DefaultPermissionMode applies when empty.
		Mode string `json:"mode,omitempty" yaml:"mode,omitempty"`
	}

	// Command is a single addressable palette action. Published commands are never
	// mutated; each composition cycle replaces them wholesale.
	Command struct {
		// Name is the registry key, by convention "<namespace>:<slug>".
		Name       string      `json:"name" yaml:"name"`
		Type       string      `json:"type" yaml:"type"`
		Label      string      `json:"label" yaml:"label"`
		Action     Action      `json:"action" yaml:"action"`
		Permission *Permission `json:"permission,omitempty" yaml:"permission,omitempty"`
		// Modal names the UI surface the command is grouped under in the modal view.
		Modal    string `json:"modal,omitempty" yaml:"modal,omitempty"`
		Shortcut string `json:"shortcut" yaml:"shortcut"`
	}
)

// ModeOr returns the permission mode, or fallback when none was declared.
func (p Permission) ModeOr(fallback string) string {
	if p.Mode == "" {
		return fallback
	}
	return p.Mode
}
