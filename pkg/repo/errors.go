// SPDX-License-Identifier: MPL-2.0

package repo

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a package is absent from a snapshot.
	ErrNotFound = errors.New("package not found")

	// ErrSyncFailure is the sentinel error wrapped by SyncError.
	ErrSyncFailure = errors.New("repository sync failed")

	// ErrMismatch is returned, inside a metadata.ParseError, when a package
	// definition names a different package than the one at its location.
	ErrMismatch = errors.New("definition does not match its location")

	// ErrStale is returned when a snapshot reads a package definition that
	// changed on disk after the snapshot was taken. A newer snapshot of the
	// repository sees the current contents.
	ErrStale = errors.New("definition changed since snapshot")
)

type (
	// NotFoundError reports a package missing from a repository.
	NotFoundError struct {
		Repo string
		CPV  string
	}

	// SyncError reports a failure of the location while opening or syncing
	// a repository. The previous snapshot stays current.
	SyncError struct {
		Repo string
		Err  error
	}
)

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s::%s: %v", e.CPV, e.Repo, ErrNotFound)
}

// Unwrap returns ErrNotFound.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Error implements the error interface.
func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Repo, e.Err)
}

// Unwrap exposes ErrSyncFailure and the location's error.
func (e *SyncError) Unwrap() []error {
	return []error{ErrSyncFailure, e.Err}
}
