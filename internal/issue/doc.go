// SPDX-License-Identifier: MPL-2.0

// Package issue holds the user-facing side of errors: a catalog of
// markdown explanations rendered with glamour, and ActionableError, which
// adds an operation, a resource and suggestions to an underlying cause.
package issue
