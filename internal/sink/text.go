package sink

import (
	"io"

	"github.com/kestrelworks/shardsink/internal/fsys"
)

// TextFormat writes newline-delimited records with an optional header and
// footer line.
type TextFormat struct {
	Header string
	Footer string
}

// MimeType returns the text content type.
func (TextFormat) MimeType() string {
	return fsys.MimeText
}

// NewEncoder returns an encoder writing newline-delimited text to w.
func (f TextFormat) NewEncoder(w io.Writer) (Encoder, error) {
	return &textEncoder{w: w, header: f.Header, footer: f.Footer}, nil
}

type textEncoder struct {
	w      io.Writer
	header string
	footer string
}

func (e *textEncoder) WriteHeader() error {
	if e.header == "" {
		return nil
	}
	return e.writeLine([]byte(e.header))
}

func (e *textEncoder) WriteValue(value []byte) error {
	return e.writeLine(value)
}

func (e *textEncoder) WriteFooter() error {
	if e.footer == "" {
		return nil
	}
	return e.writeLine([]byte(e.footer))
}

func (e *textEncoder) Close() error {
	return nil
}

func (e *textEncoder) writeLine(line []byte) error {
	if _, err := e.w.Write(line); err != nil {
		return err
	}
	_, err := e.w.Write([]byte{'\n'})
	return err
}
