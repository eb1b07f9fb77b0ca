// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Besides the Must* helpers it writes on-disk palette modules (WriteModule) so
// discovery, loading and watch tests share one fixture layout.
package testutil
