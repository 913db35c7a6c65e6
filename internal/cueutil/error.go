// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// ErrInvalidDocument is the sentinel wrapped by ValidationError.
var ErrInvalidDocument = errors.New("invalid document")

type (
	// Issue is one problem found in a document.
	Issue struct {
		// Path is the JSON path to the invalid value, e.g. "repos[0].name".
		// It is empty for document-level problems such as syntax errors.
		Path    string
		Message string
	}

	// ValidationError reports every issue CUE found in one document.
	ValidationError struct {
		FilePath string
		Issues   []Issue
	}
)

// Error renders one issue on a single line, several as an indented list.
func (e *ValidationError) Error() string {
	if len(e.Issues) == 1 {
		return fmt.Sprintf("%s: %s", e.FilePath, e.Issues[0])
	}
	lines := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		lines[i] = is.String()
	}
	return fmt.Sprintf("%s: validation failed:\n  %s", e.FilePath, strings.Join(lines, "\n  "))
}

// Unwrap returns ErrInvalidDocument for errors.Is() compatibility.
func (e *ValidationError) Unwrap() error { return ErrInvalidDocument }

// String returns "path: message", or the bare message when there is no path.
func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// FormatError converts a CUE error into a *ValidationError whose issues are
// prefixed with JSON paths. Errors that did not come from CUE are wrapped
// with the file path and returned as they are.
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	cueErrs := cueerrors.Errors(err)
	if len(cueErrs) == 0 {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	verr := &ValidationError{FilePath: filePath}
	for _, e := range cueErrs {
		path := formatPath(e.Path())
		msg := e.Error()
		// CUE sometimes repeats the path at the start of the message.
		if path != "" && strings.HasPrefix(msg, path) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
		}
		verr.Issues = append(verr.Issues, Issue{Path: path, Message: msg})
	}
	return verr
}

// formatPath converts a CUE path such as ["repos", "0", "name"] into
// "repos[0].name".
func formatPath(path []string) string {
	var b strings.Builder
	for i, part := range path {
		switch {
		case i > 0 && isIndex(part):
			b.WriteString("[" + part + "]")
		case i > 0:
			b.WriteString("." + part)
		default:
			b.WriteString(part)
		}
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize returns an error when data is larger than maxSize.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes",
			filename, len(data), maxSize)
	}
	return nil
}
