// SPDX-License-Identifier: MPL-2.0

package visibility

import (
	"encoding/json"

	"github.com/invowk/palette/pkg/palette"
)

type (
	// Components names the front-end component that renders the palette.
	Components struct {
		The string `json:"the" yaml:"the"`
	}

	// Payload is what an authenticated client receives.
	Payload struct {
		Components Components                                `json:"components" yaml:"components"`
		Groups     *palette.Table[ViewGroup]                 `json:"groups" yaml:"groups"`
		Modals     *palette.Table[*palette.Table[ViewGroup]] `json:"modals" yaml:"modals"`
	}

	// Response wraps a payload; a nil Payload encodes as false.
	Response struct {
		Payload *Payload
	}
)

// Payload resolves reg for identity and wraps the result for the client.
func (r *Resolver) Payload(reg *palette.Registry, identity *Identity) Response {
	view := r.Resolve(reg, identity)
	if view == nil {
		return Response{}
	}
	return Response{Payload: &Payload{
		Components: Components{The: r.Component},
		Groups:     view.Groups,
		Modals:     view.Modals,
	}}
}

// Visible reports whether the response carries a payload.
func (r Response) Visible() bool { return r.Payload != nil }

// MarshalJSON encodes the payload, or false when there is none.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.Payload == nil {
		return []byte("false"), nil
	}
	return json.Marshal(r.Payload)
}

// MarshalYAML encodes the payload, or false when there is none.
func (r Response) MarshalYAML() (any, error) {
	if r.Payload == nil {
		return false, nil
	}
	return r.Payload, nil
}
