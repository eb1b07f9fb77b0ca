// SPDX-License-Identifier: MPL-2.0

package compose

import (
	"errors"
	"fmt"
	"maps"

	"github.com/invowk/palette/pkg/palette"
)

const (
	// KindCommand marks a StructuralError raised by a command.
	KindCommand = "command"
	// KindGroup marks a StructuralError raised by a group.
	KindGroup = "group"
)

// ErrStructural is the sentinel wrapped by StructuralError.
var ErrStructural = errors.New("registry is structurally invalid")

// StructuralError reports the first entry of a composition that breaks a
// structural rule.
type StructuralError struct {
	// Kind is KindCommand or KindGroup.
	Kind string
	Name string
	// Rule is the attribute path that failed, e.g. "action.payload".
	Rule   string
	Detail string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s: %s", e.Kind, e.Name, e.Rule, e.Detail)
}

// Unwrap returns ErrStructural for errors.Is() compatibility.
func (e *StructuralError) Unwrap() error { return ErrStructural }

// Validate checks every command and then every group, in insertion order, and
// stops at the first violation. On success the raw declarations are converted to
// a registry; CycleID and ComposedAt are left for the caller.
func Validate(c Composition) (*palette.Registry, error) {
	reg := palette.EmptyRegistry()

	for name, raw := range c.Add.All() {
		cmd, err := validateCommand(name, raw)
		if err != nil {
			return nil, err
		}
		reg.Commands.Set(name, cmd)
	}

	for name, raw := range c.Group.All() {
		g, err := validateGroup(name, raw)
		if err != nil {
			return nil, err
		}
		reg.Groups.Set(name, g)
	}

	reg.Removals = append(reg.Removals, c.Remove...)
	return reg, nil
}

type checker struct {
	kind string
	name string
}

func (c checker) fail(rule, format string, args ...any) error {
	return &StructuralError{Kind: c.kind, Name: c.name, Rule: rule, Detail: fmt.Sprintf(format, args...)}
}

func (c checker) str(obj map[string]any, key, rule string) (string, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return "", c.fail(rule, "is required")
	}
	s, ok := v.(string)
	if !ok {
		return "", c.fail(rule, "must be a string, got %T", v)
	}
	return s, nil
}

func (c checker) optStr(obj map[string]any, key, rule string) (string, error) {
	if v, ok := obj[key]; !ok || v == nil {
		return "", nil
	}
	return c.str(obj, key, rule)
}

func (c checker) object(v any, rule string) (map[string]any, error) {
	switch obj := v.(type) {
	case map[string]any:
		return obj, nil
	case nil:
		return nil, c.fail(rule, "is required")
	default:
		return nil, c.fail(rule, "must be an object, got %T", v)
	}
}

func validateCommand(name string, raw palette.RawCommand) (palette.Command, error) {
	c := checker{kind: KindCommand, name: name}
	if raw == nil {
		return palette.Command{}, c.fail("command", "must be an object")
	}

	typ, err := c.str(raw, "type", "type")
	if err != nil {
		return palette.Command{}, err
	}
	if typ != palette.ItemType {
		return palette.Command{}, c.fail("type", "must be %q, got %q", palette.ItemType, typ)
	}

	label, err := c.str(raw, "label", "label")
	if err != nil {
		return palette.Command{}, err
	}

	actionObj, err := c.object(raw["action"], "action")
	if err != nil {
		return palette.Command{}, err
	}
	actionType, err := c.str(actionObj, "type", "action.type")
	if err != nil {
		return palette.Command{}, err
	}
	payload, err := c.object(actionObj["payload"], "action.payload")
	if err != nil {
		return palette.Command{}, err
	}

	var perm *palette.Permission
	if v, ok := raw["permission"]; ok && v != nil {
		permObj, err := c.object(v, "permission")
		if err != nil {
			return palette.Command{}, err
		}
		perm = &palette.Permission{}
		if perm.Action, err = c.str(permObj, "action", "permission.action"); err != nil {
			return palette.Command{}, err
		}
		if perm.Type, err = c.str(permObj, "type", "permission.type"); err != nil {
			return palette.Command{}, err
		}
		if perm.Mode, err = c.optStr(permObj, "mode", "permission.mode"); err != nil {
			return palette.Command{}, err
		}
	}

	modal, err := c.optStr(raw, "modal", "modal")
	if err != nil {
		return palette.Command{}, err
	}

	shortcut, err := c.str(raw, "shortcut", "shortcut")
	if err != nil {
		return palette.Command{}, err
	}

	return palette.Command{
		Name:       name,
		Type:       typ,
		Label:      label,
		Action:     palette.Action{Type: actionType, Payload: maps.Clone(payload)},
		Permission: perm,
		Modal:      modal,
		Shortcut:   shortcut,
	}, nil
}

func validateGroup(name string, raw palette.RawGroup) (palette.Group, error) {
	c := checker{kind: KindGroup, name: name}
	if raw == nil {
		return palette.Group{}, c.fail("group", "must be an object")
	}

	label, err := c.str(raw, "label", "label")
	if err != nil {
		return palette.Group{}, err
	}

	v, ok := raw[palette.FieldsKey]
	if !ok || v == nil {
		return palette.Group{}, c.fail(palette.FieldsKey, "is required")
	}
	list, ok := asList(v)
	if !ok {
		return palette.Group{}, c.fail(palette.FieldsKey, "must be a list, got %T", v)
	}
	fields := make([]string, len(list))
	for i, item := range list {
		s, ok := item.(string)
		if !ok {
			return palette.Group{}, c.fail(fmt.Sprintf("%s[%d]", palette.FieldsKey, i), "must be a string, got %T", item)
		}
		fields[i] = s
	}

	return palette.Group{Name: name, Label: label, Fields: fields}, nil
}
