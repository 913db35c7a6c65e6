// SPDX-License-Identifier: MPL-2.0

package cueutil

// DefaultSizeLimit caps documents decoded without a SizeLimit option.
const DefaultSizeLimit int64 = 5 << 20

type (
	// Option adjusts how one document is validated and decoded.
	Option func(*decodeOptions)

	decodeOptions struct {
		name    string
		limit   int64
		partial bool
	}
)

func newDecodeOptions(opts []Option) decodeOptions {
	o := decodeOptions{name: "<input>", limit: DefaultSizeLimit}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Named sets the document name used in error messages, usually its path.
func Named(name string) Option {
	return func(o *decodeOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// SizeLimit caps the document size in bytes. A limit below one disables the
// check.
func SizeLimit(n int64) Option {
	return func(o *decodeOptions) { o.limit = n }
}

// Partial accepts documents that leave schema fields unset. Configuration
// files use it, since they are layered over defaults and the environment.
func Partial() Option {
	return func(o *decodeOptions) { o.partial = true }
}
