// SPDX-License-Identifier: MPL-2.0

package palettemod

import (
	"fmt"

	"cuelang.org/go/cue"
	"gopkg.in/yaml.v3"

	"github.com/invowk/palette/pkg/cueutil"
	"github.com/invowk/palette/pkg/palette"
)

const (
	addKey    = "add"
	removeKey = "remove"
	groupKey  = "group"
)

// ParseCUEFragment evaluates a commands.cue document for owner and returns the
// resulting fragment. Declaration order of "add" and "group" is preserved.
func ParseCUEFragment(data []byte, path string, owner *Module) (*palette.Fragment, error) {
	v, err := cueutil.Unify(
		[]byte(fragmentSchema),
		data,
		"#Fragment",
		cueutil.WithFilename(path),
		cueutil.WithScope(owner.scope()),
	)
	if err != nil {
		return nil, err
	}

	frag := palette.NewFragment()

	if err := eachCUEField(v, addKey, path, func(name string, body map[string]any) {
		frag.AddCommand(name, body)
	}); err != nil {
		return nil, err
	}

	if rm := v.LookupPath(cue.ParsePath(removeKey)); rm.Exists() {
		var names []string
		if err := rm.Decode(&names); err != nil {
			return nil, cueutil.FormatError(err, path)
		}
		frag.RemoveCommands(names...)
	}

	if err := eachCUEField(v, groupKey, path, func(name string, body map[string]any) {
		frag.AddGroup(name, body)
	}); err != nil {
		return nil, err
	}

	return frag, nil
}

func eachCUEField(v cue.Value, key, path string, fn func(name string, body map[string]any)) error {
	section := v.LookupPath(cue.ParsePath(key))
	if !section.Exists() {
		return nil
	}
	fields, err := section.Fields()
	if err != nil {
		return cueutil.FormatError(err, path)
	}
	for fields.Next() {
		var body map[string]any
		if err := fields.Value().Decode(&body); err != nil {
			return cueutil.FormatError(err, path)
		}
		fn(fields.Selector().Unquoted(), body)
	}
	return nil
}

// ParseYAMLFragment decodes a commands.yaml document. The document is walked as a
// node tree so that key order survives decoding.
func ParseYAMLFragment(data []byte, path string) (*palette.Fragment, error) {
	frag := palette.NewFragment()

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return frag, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s:%d: fragment must be a mapping", path, root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		switch key.Value {
		case addKey:
			if err := eachYAMLField(value, path, func(name string, body map[string]any) {
				frag.AddCommand(name, body)
			}); err != nil {
				return nil, err
			}
		case removeKey:
			var names []string
			if err := value.Decode(&names); err != nil {
				return nil, fmt.Errorf("%s:%d: remove: %w", path, value.Line, err)
			}
			frag.RemoveCommands(names...)
		case groupKey:
			if err := eachYAMLField(value, path, func(name string, body map[string]any) {
				frag.AddGroup(name, body)
			}); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%s:%d: unknown fragment key %q (want add, remove or group)", path, key.Line, key.Value)
		}
	}

	return frag, nil
}

func eachYAMLField(node *yaml.Node, path string, fn func(name string, body map[string]any)) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%s:%d: expected a mapping", path, node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.MappingNode {
			return fmt.Errorf("%s:%d: %q must be a mapping", path, value.Line, key.Value)
		}
		var body map[string]any
		if err := value.Decode(&body); err != nil {
			return fmt.Errorf("%s:%d: %q: %w", path, value.Line, key.Value, err)
		}
		fn(key.Value, body)
	}
	return nil
}
