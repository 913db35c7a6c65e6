// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"pkgkit/internal/config"
	"pkgkit/internal/dag"
	"pkgkit/internal/issue"
	"pkgkit/pkg/atom"
	"pkgkit/pkg/flags"
	"pkgkit/pkg/metadata"
	"pkgkit/pkg/repo"
	"pkgkit/pkg/resolve"
	"pkgkit/pkg/restrict"
	"pkgkit/pkg/version"
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE handlers.
type ExitError struct {
	Code int
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// classifyError maps a failure to the issue catalog entry explaining it, or
// 0 when none applies. An ActionableError that names its issue wins.
func classifyError(err error) issue.Id {
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue != 0 {
		return ae.Issue
	}

	switch {
	case errors.Is(err, dag.ErrCycle):
		return issue.DependencyCycleId
	case errors.Is(err, resolve.ErrUnresolvable):
		return issue.UnresolvableId
	case errors.Is(err, atom.ErrInvalidAtom):
		return issue.InvalidAtomId
	case errors.Is(err, version.ErrInvalidVersion):
		return issue.InvalidVersionId
	case errors.Is(err, flags.ErrInvalidUse):
		return issue.InvalidUseFlagId
	case errors.Is(err, restrict.ErrInvalidQuery):
		return issue.InvalidQueryId
	case errors.Is(err, repo.ErrSyncFailure):
		return issue.RepositorySyncFailedId
	case errors.Is(err, repo.ErrNotFound):
		return issue.PackageNotFoundId
	case errors.Is(err, metadata.ErrParse), errors.Is(err, repo.ErrMismatch):
		return issue.MetadataInvalidId
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.ConfigLoadFailedId
	}
	return 0
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// use their own Format; verbose mode shows the full error chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	msg := err.Error()
	if id := classifyError(err); id != 0 {
		msg += fmt.Sprintf("\n\nRun 'pkgkit issue %s' for details.", issueName(id))
	}
	return msg
}

// renderError writes err to w as a styled message.
func renderError(w io.Writer, err error, verbose bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose))
}

// issueName returns the catalog name of id.
func issueName(id issue.Id) string {
	for _, name := range issue.Names() {
		if it, ok := issue.Lookup(name); ok && it.Id() == id {
			return name
		}
	}
	return fmt.Sprint(int(id))
}

// glamourStyle picks the markdown style for w: "notty" unless w is a
// terminal, else the configured color scheme.
func glamourStyle(w io.Writer, scheme config.ColorScheme) string {
	f, ok := w.(*os.File)
	if !ok {
		return "notty"
	}
	info, err := f.Stat()
	if err != nil || info.Mode()&os.ModeCharDevice == 0 {
		return "notty"
	}
	if scheme == "" {
		return string(config.ColorSchemeAuto)
	}
	return string(scheme)
}
