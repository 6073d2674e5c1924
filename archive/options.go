package archive

import (
	"log/slog"

	"golang.org/x/text/encoding"
)

// DefaultMaxEntrySize is the default limit on an entry's uncompressed size (256MB).
const DefaultMaxEntrySize = 256 << 20

// Option configures an Archive.
type Option func(*Archive)

// WithKeys sets the key pair used to decrypt the archive.
func WithKeys(k1, k2 uint32) Option {
	return func(a *Archive) {
		a.keys = Keys{K1: k1, K2: k2}
	}
}

// WithProfile applies a profile's keys and name charset.
// A profile without a charset leaves the current charset unchanged.
func WithProfile(p Profile) Option {
	return func(a *Archive) {
		a.keys = p.Keys
		if p.Charset != nil {
			a.charset = p.Charset
		}
	}
}

// WithCharset sets the encoding used to decode entry names.
// A nil encoding keeps names as raw bytes.
func WithCharset(enc encoding.Encoding) Option {
	return func(a *Archive) {
		a.charset = enc
	}
}

// WithLogger sets the logger for entry-level diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}

// WithMaxEntrySize limits the uncompressed size ExtractFile will allocate.
// Set limit to 0 to disable the limit.
func WithMaxEntrySize(limit uint32) Option {
	return func(a *Archive) {
		a.maxEntrySize = limit
	}
}
