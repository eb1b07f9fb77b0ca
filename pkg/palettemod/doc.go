// SPDX-License-Identifier: MPL-2.0

// Package palettemod models the modules that contribute to the command palette.
//
// Each [Module] carries an override chain: an ordered list of [ChainEntry] values from
// its most-base ancestor down to the module itself. Every entry may hold a static
// [palette.Fragment] or a [FragmentFunc] that computes one for the owning module.
//
// Modules can be built in Go with [New], [Static] and [Func], or loaded from disk:
//
//   - A module is a directory named "<module-id>.palettemod"
//   - It must contain palettemod.cue (identity, version, optional extends)
//   - It may contain one fragment file: commands.cue (preferred), commands.yaml or
//     commands.yml
//
// commands.cue is evaluated once per owning module with the identifier "owner"
// ({id, version}) in scope, so a base module can declare commands such as
// "\(owner.id):open" that every derived module receives under its own namespace.
//
// [Link] resolves extends references across a set of loaded modules and builds
// their chains, ordering bases before the modules that extend them.
package palettemod
