// SPDX-License-Identifier: MPL-2.0

package palette

type (
	// RawGroup is a group declaration as contributed by a module, before validation.
	// The "fields" entry lists command names; "label" names the group for display.
	RawGroup map[string]any

	// Group is a named, ordered collection of command names used for presentation.
	// Fields may repeat names and may reference commands that do not exist; such
	// references are dropped when visibility is computed.
	Group struct {
		Name   string   `json:"-" yaml:"-"`
		Label  string   `json:"label" yaml:"label"`
		Fields []string `json:"fields" yaml:"fields"`
	}
)

// FieldsKey is the group attribute concatenated across contributions.
const FieldsKey = "fields"
