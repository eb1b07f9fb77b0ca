// SPDX-License-Identifier: MPL-2.0

// Package palettetest builds raw command and group declarations for tests.
//
//	cmd := palettetest.NewCommand("Publish",
//	    palettetest.WithShortcut("ctrl+p"),
//	    palettetest.WithPermission("publish", "article", ""),
//	)
package palettetest
