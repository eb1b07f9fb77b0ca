// SPDX-License-Identifier: MPL-2.0

// Package benchmark holds benchmarks for the composition hot paths:
//   - CUE and YAML fragment parsing
//   - module discovery and extends linking
//   - merging and validating fragments into a registry
//   - resolving per-identity payloads
//
// They double as a PGO workload:
//
//	go test -run '^$' -bench . -cpuprofile default.pgo ./internal/benchmark
package benchmark
