// SPDX-License-Identifier: MPL-2.0

// Package discovery finds palette modules and collects their contributions.
//
// [Collect] walks every module's override chain and produces the ordered list of
// fragments the composition pipeline consumes. [Discovery] locates on-disk modules
// under the configured search paths and includes; [StaticSource] serves modules
// assembled in Go. Both satisfy compose.Source.
package discovery
