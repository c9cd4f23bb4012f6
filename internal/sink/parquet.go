package sink

import (
	"io"

	"github.com/parquet-go/parquet-go"
)

// RawRecord is the single-column row shape written by ParquetFormat: each
// record's opaque encoding lands in one binary cell.
type RawRecord struct {
	Data []byte `parquet:"data"`
}

// ParquetFormat writes each record as one RawRecord row of a parquet file.
// Useful for raw-bytes bronze-style outputs that downstream tables are
// carved out of.
type ParquetFormat struct{}

// MimeType returns the parquet content type.
func (ParquetFormat) MimeType() string {
	return "application/vnd.apache.parquet"
}

// NewEncoder returns an encoder writing parquet to w.
func (ParquetFormat) NewEncoder(w io.Writer) (Encoder, error) {
	return &parquetEncoder{pw: parquet.NewGenericWriter[RawRecord](w)}, nil
}

type parquetEncoder struct {
	pw *parquet.GenericWriter[RawRecord]
}

// WriteHeader is a no-op; the parquet writer emits its own magic bytes.
func (e *parquetEncoder) WriteHeader() error {
	return nil
}

func (e *parquetEncoder) WriteValue(value []byte) error {
	_, err := e.pw.Write([]RawRecord{{Data: value}})
	return err
}

// WriteFooter is a no-op; the parquet footer is written on Close.
func (e *parquetEncoder) WriteFooter() error {
	return nil
}

func (e *parquetEncoder) Close() error {
	return e.pw.Close()
}
