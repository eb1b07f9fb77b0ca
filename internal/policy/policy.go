// SPDX-License-Identifier: MPL-2.0

package policy

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/invowk/palette/internal/config"
	"github.com/invowk/palette/internal/visibility"
)

// ErrUnknownIdentity is the sentinel error wrapped by UnknownIdentityError.
var ErrUnknownIdentity = errors.New("unknown identity")

type (
	// Policy grants permissions by role. It is immutable after construction and
	// safe for concurrent use.
	Policy struct {
		roles      map[string][]config.Grant
		identities map[string][]string
	}

	// UnknownIdentityError is returned when a name has no configured identity.
	UnknownIdentityError struct {
		Name string
	}
)

// New builds a policy from role grants and the roles held by each identity.
// Role and identity names are matched case-insensitively.
func New(roles map[string][]config.Grant, identities map[string]config.IdentityConfig) *Policy {
	p := &Policy{
		roles:      make(map[string][]config.Grant, len(roles)),
		identities: make(map[string][]string, len(identities)),
	}
	for name, grants := range roles {
		key := strings.ToLower(name)
		p.roles[key] = append(p.roles[key], grants...)
	}
	for name, id := range identities {
		held := make([]string, 0, len(id.Roles))
		for _, r := range id.Roles {
			held = append(held, strings.ToLower(r))
		}
		p.identities[strings.ToLower(name)] = held
	}
	return p
}

// FromConfig builds a policy from cfg.
func FromConfig(cfg *config.Config) *Policy {
	return New(cfg.Roles, cfg.Identities)
}

// Can reports whether any role held by identity grants action on resourceType
// in mode. Anonymous identities are never granted anything.
func (p *Policy) Can(identity *visibility.Identity, action, resourceType, mode string) bool {
	if identity.IsAnonymous() {
		return false
	}
	for _, role := range identity.Roles {
		for _, g := range p.roles[strings.ToLower(role)] {
			if g.Matches(action, resourceType, mode) {
				return true
			}
		}
	}
	return false
}

// Identity returns the configured identity called name with its roles.
func (p *Policy) Identity(name string) (*visibility.Identity, error) {
	key := strings.ToLower(name)
	roles, ok := p.identities[key]
	if !ok {
		return nil, &UnknownIdentityError{Name: name}
	}
	return &visibility.Identity{Subject: key, Roles: slices.Clone(roles)}, nil
}

// Identities returns the configured identity names, sorted.
func (p *Policy) Identities() []string {
	names := make([]string, 0, len(p.identities))
	for name := range p.identities {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (e *UnknownIdentityError) Error() string {
	return fmt.Sprintf("no identity %q is configured", e.Name)
}

// Unwrap returns ErrUnknownIdentity for errors.Is() compatibility.
func (e *UnknownIdentityError) Unwrap() error { return ErrUnknownIdentity }
