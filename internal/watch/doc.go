// SPDX-License-Identifier: MPL-2.0

// Package watch triggers recomposition when module declarations change on disk.
//
// A Watcher registers every directory below its roots with fsnotify, filters
// events through doublestar patterns, and coalesces bursts of events into one
// OnChange call after a quiet period. OnChange never runs concurrently with
// itself, which keeps composition cycles from interleaving.
package watch
