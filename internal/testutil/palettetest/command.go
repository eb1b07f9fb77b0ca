// SPDX-License-Identifier: MPL-2.0

package palettetest

import (
	"github.com/invowk/palette/pkg/palette"
)

// CommandOption configures a test command.
type CommandOption func(palette.RawCommand)

// NewCommand returns a structurally valid raw command with the given label:
// type "item", a "navigate" action with an empty payload and shortcut "ctrl+k".
func NewCommand(label string, opts ...CommandOption) palette.RawCommand {
	cmd := palette.RawCommand{
		"type":  palette.ItemType,
		"label": label,
		"action": map[string]any{
			"type":    "navigate",
			"payload": map[string]any{},
		},
		"shortcut": "ctrl+k",
	}
	for _, opt := range opts {
		opt(cmd)
	}
	return cmd
}

// WithShortcut sets the shortcut.
func WithShortcut(s string) CommandOption {
	return func(c palette.RawCommand) { c["shortcut"] = s }
}

// WithModal sets the modal the command appears in.
func WithModal(modal string) CommandOption {
	return func(c palette.RawCommand) { c["modal"] = modal }
}

// WithAction replaces the action.
func WithAction(actionType string, payload map[string]any) CommandOption {
	return func(c palette.RawCommand) {
		c["action"] = map[string]any{"type": actionType, "payload": payload}
	}
}

// WithPermission sets the permission requirement. An empty mode is omitted.
func WithPermission(action, resourceType, mode string) CommandOption {
	return func(c palette.RawCommand) {
		p := map[string]any{"action": action, "type": resourceType}
		if mode != "" {
			p["mode"] = mode
		}
		c["permission"] = p
	}
}

// WithField sets an arbitrary attribute, including malformed values.
func WithField(key string, value any) CommandOption {
	return func(c palette.RawCommand) { c[key] = value }
}

// Without removes an attribute.
func Without(key string) CommandOption {
	return func(c palette.RawCommand) { delete(c, key) }
}

// NewGroup returns a raw group with a label and the given fields.
func NewGroup(label string, fields ...string) palette.RawGroup {
	list := make([]any, len(fields))
	for i, f := range fields {
		list[i] = f
	}
	return palette.RawGroup{"label": label, palette.FieldsKey: list}
}
