// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation. They
// cover the hot paths of a dependency query:
//   - version and atom parsing
//   - dependency expression parsing and evaluation
//   - metadata cache decoding and build script extraction
//   - repository snapshots and deep resolution
//
// To generate a profile, run:
//
//	go test ./internal/benchmark -bench . -cpuprofile default.pgo
package benchmark
