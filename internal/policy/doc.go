// SPDX-License-Identifier: MPL-2.0

// Package policy implements visibility.PermissionOracle from the roles and
// identities declared in the palette configuration.
package policy
