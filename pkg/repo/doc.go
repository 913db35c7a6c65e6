// SPDX-License-Identifier: MPL-2.0

// Package repo caches package metadata read from a repository location.
//
// A Repository holds one immutable Snapshot per generation. Readers take the
// current snapshot without locking and keep using it for as long as they
// like; Sync builds the next generation and swaps it in atomically. Metadata
// is parsed lazily on first access and memoized once per entry, so concurrent
// first readers of the same package observe a single parse result.
package repo
