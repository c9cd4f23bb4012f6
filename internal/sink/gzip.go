package sink

import (
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/kestrelworks/shardsink/internal/fsys"
)

// Gzip wraps a format so its output is gzip-compressed.
func Gzip(inner Format) Format {
	return gzipFormat{inner: inner}
}

type gzipFormat struct {
	inner Format
}

func (gzipFormat) MimeType() string {
	return fsys.MimeGzip
}

func (f gzipFormat) NewEncoder(w io.Writer) (Encoder, error) {
	zw := gzip.NewWriter(w)
	inner, err := f.inner.NewEncoder(zw)
	if err != nil {
		zw.Close()
		return nil, err
	}
	return &gzipEncoder{inner: inner, zw: zw}, nil
}

type gzipEncoder struct {
	inner Encoder
	zw    *gzip.Writer
}

func (e *gzipEncoder) WriteHeader() error {
	return e.inner.WriteHeader()
}

func (e *gzipEncoder) WriteValue(value []byte) error {
	return e.inner.WriteValue(value)
}

func (e *gzipEncoder) WriteFooter() error {
	return e.inner.WriteFooter()
}

// Close flushes the inner encoder, then the gzip stream. The gzip trailer
// must land before the channel is closed.
func (e *gzipEncoder) Close() error {
	innerErr := e.inner.Close()
	if err := e.zw.Close(); err != nil {
		return err
	}
	return innerErr
}
