// SPDX-License-Identifier: MPL-2.0

package visibility

type (
	// Identity is the authenticated subject of a request. A nil Identity or one
	// without a Subject is anonymous.
	Identity struct {
		Subject string
		Roles   []string
	}

	// PermissionOracle decides whether identity may perform action on resourceType
	// in mode. Implementations must be safe for concurrent use.
	PermissionOracle interface {
		Can(identity *Identity, action, resourceType, mode string) bool
	}

	// OracleFunc adapts a function to PermissionOracle.
	OracleFunc func(identity *Identity, action, resourceType, mode string) bool
)

// IsAnonymous reports whether no subject is authenticated.
func (id *Identity) IsAnonymous() bool {
	return id == nil || id.Subject == ""
}

// Can calls f.
func (f OracleFunc) Can(identity *Identity, action, resourceType, mode string) bool {
	return f(identity, action, resourceType, mode)
}

// AllowAll grants every permission to every authenticated identity.
var AllowAll = OracleFunc(func(*Identity, string, string, string) bool { return true })
