// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE parsing utilities.
//
// Palette module metadata, fragment envelopes and the configuration file all follow
// the same flow:
//
//  1. Compile the embedded schema
//  2. Compile user data (optionally with extra identifiers in scope) and unify
//  3. Validate, then decode to Go values or walk the unified cue.Value
//
// # Usage
//
//	//go:embed palettemod_schema.cue
//	var schemaBytes []byte
//
//	result, err := cueutil.ParseAndDecode[Palettemod](
//	    schemaBytes,
//	    userFileBytes,
//	    "#Palettemod",
//	    cueutil.WithFilename("palettemod.cue"),
//	)
//	if err != nil {
//	    return nil, err  // Error includes CUE path for debugging
//	}
//	return result.Value, nil
package cueutil
