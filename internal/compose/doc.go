// SPDX-License-Identifier: MPL-2.0

// Package compose turns module fragments into the published command registry.
//
// A composition cycle runs three steps:
//
//  1. collect: a Source yields fragments in deterministic order
//  2. compose: a Pipeline of stages folds them into one Composition
//  3. validate: Validate checks every entry and converts it to typed values
//
// The Engine runs cycles one at a time and publishes the result atomically.
// Any failure publishes the empty registry instead of a partial one.
package compose
