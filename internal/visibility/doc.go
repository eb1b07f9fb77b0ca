// SPDX-License-Identifier: MPL-2.0

// Package visibility computes the request-scoped view of a published registry.
//
// A Resolver hides removed commands and commands the PermissionOracle denies,
// rebuilds every group from the commands that remain, and indexes commands that
// name a modal under modals[modal][group]. Anonymous identities see nothing:
// Resolve returns nil and the payload encodes as false.
package visibility
