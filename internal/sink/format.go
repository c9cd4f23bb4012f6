package sink

import "io"

// Format defines how records are laid out in an output file. A Format is
// shared by all writers of one write operation and must be stateless; all
// per-file state lives in the Encoder it creates.
type Format interface {
	// MimeType is the advisory content type for created files.
	MimeType() string

	// NewEncoder prepares the write channel and returns the encoder that
	// header, values, and footer go through.
	NewEncoder(w io.Writer) (Encoder, error)
}

// Encoder writes one file's worth of records.
type Encoder interface {
	// WriteHeader writes the optional file header. Called once, first.
	WriteHeader() error

	// WriteValue appends one record's encoding.
	WriteValue(value []byte) error

	// WriteFooter writes the optional file footer. Called once, last.
	WriteFooter() error

	// Close flushes format-level buffers. It does not close the underlying
	// channel.
	Close() error
}
