// SPDX-License-Identifier: MPL-2.0

// Package palette defines the public data model of the command palette registry.
//
// Modules contribute [Fragment] values holding untrusted [RawCommand] and [RawGroup]
// declarations. The composition engine merges and validates those fragments into a
// [Registry] of typed [Command] and [Group] values, which is then filtered per request.
//
// All keyed collections use [Table], an insertion-ordered mapping, so that the order in
// which modules declare commands and groups is the order in which clients see them.
package palette
