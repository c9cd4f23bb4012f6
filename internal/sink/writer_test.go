package sink

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kestrelworks/shardsink/internal/fsys"
)

// fakeFS records created channels so tests can observe their closed state.
type fakeFS struct {
	files map[string]*fakeFile
}

type fakeFile struct {
	data     []byte
	closed   bool
	closeErr error
}

func newFakeFS() *fakeFS {
	return &fakeFS{files: make(map[string]*fakeFile)}
}

func (f *fakeFS) Create(ctx context.Context, name, mimeType string) (io.WriteCloser, error) {
	file := &fakeFile{}
	f.files[name] = file
	return file, nil
}

func (f *fakeFS) Match(ctx context.Context, pattern string) ([]string, error) {
	var matches []string
	for name := range f.files {
		if ok, _ := path.Match(pattern, name); ok {
			matches = append(matches, name)
		}
	}
	return matches, nil
}

func (f *fakeFile) Write(p []byte) (int, error) {
	f.data = append(f.data, p...)
	return len(p), nil
}

func (f *fakeFile) Close() error {
	f.closed = true
	return f.closeErr
}

// failingFormat fails at a chosen point in the encoder lifecycle.
type failingFormat struct {
	encoderErr error
	headerErr  error
	footerErr  error
}

func (failingFormat) MimeType() string { return fsys.MimeText }

func (f failingFormat) NewEncoder(w io.Writer) (Encoder, error) {
	if f.encoderErr != nil {
		return nil, f.encoderErr
	}
	return &failingEncoder{w: w, headerErr: f.headerErr, footerErr: f.footerErr}, nil
}

type failingEncoder struct {
	w         io.Writer
	headerErr error
	footerErr error
}

func (e *failingEncoder) WriteHeader() error { return e.headerErr }
func (e *failingEncoder) WriteValue(value []byte) error {
	_, err := e.w.Write(value)
	return err
}
func (e *failingEncoder) WriteFooter() error { return e.footerErr }
func (e *failingEncoder) Close() error       { return nil }

func TestWriterLifecycle(t *testing.T) {
	dir := t.TempDir()
	op := NewWriteOperation(Config{BaseOutputFilename: filepath.Join(dir, "out")}, TextFormat{})

	w := op.CreateWriter()
	if err := w.Open(context.Background(), "b1"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	result, err := w.Close()
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	want := filepath.Join(dir, "out-temp-b1")
	if result.Filename != want {
		t.Errorf("result filename = %q, want %q", result.Filename, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read temp file: %v", err)
	}
	if string(data) != "hello\n" {
		t.Errorf("temp file contents = %q", data)
	}
}

func TestWriterHeaderFailureClosesChannel(t *testing.T) {
	fs := newFakeFS()
	headerErr := errors.New("bad header")
	op := NewWriteOperation(Config{BaseOutputFilename: "out"}, failingFormat{headerErr: headerErr},
		WithFileSystem(fs))

	w := op.CreateWriter()
	err := w.Open(context.Background(), "b1")
	if !errors.Is(err, headerErr) {
		t.Fatalf("Open error = %v, want %v", err, headerErr)
	}

	file := fs.files["out-temp-b1"]
	if file == nil {
		t.Fatal("channel was never created")
	}
	if !file.closed {
		t.Error("channel should be closed after header failure")
	}
}

func TestWriterEncoderFailureClosesChannel(t *testing.T) {
	fs := newFakeFS()
	encErr := errors.New("cannot prepare")
	op := NewWriteOperation(Config{BaseOutputFilename: "out"}, failingFormat{encoderErr: encErr},
		WithFileSystem(fs))

	w := op.CreateWriter()
	err := w.Open(context.Background(), "b2")
	if !errors.Is(err, encErr) {
		t.Fatalf("Open error = %v, want %v", err, encErr)
	}
	if !fs.files["out-temp-b2"].closed {
		t.Error("channel should be closed after encoder failure")
	}
}

func TestWriterCloseFailureDoesNotMaskHeaderError(t *testing.T) {
	fs := newFakeFS()
	headerErr := errors.New("bad header")

	// Pre-seed the channel's close error by creating through a wrapper format
	// is not possible; instead make Create hand out a file that fails Close.
	op := NewWriteOperation(Config{BaseOutputFilename: "out"}, failingFormat{headerErr: headerErr},
		WithFileSystem(closeFailFS{fakeFS: fs}))

	w := op.CreateWriter()
	err := w.Open(context.Background(), "b3")
	if !errors.Is(err, headerErr) {
		t.Fatalf("Open error = %v, want original header error %v", err, headerErr)
	}
}

// closeFailFS hands out channels whose Close always fails.
type closeFailFS struct {
	*fakeFS
}

func (f closeFailFS) Create(ctx context.Context, name, mimeType string) (io.WriteCloser, error) {
	file := &fakeFile{closeErr: errors.New("close exploded")}
	f.files[name] = file
	return file, nil
}

func TestWriterFooterFailureReleasesChannel(t *testing.T) {
	fs := newFakeFS()
	footerErr := errors.New("bad footer")
	op := NewWriteOperation(Config{BaseOutputFilename: "out"}, failingFormat{footerErr: footerErr},
		WithFileSystem(fs))

	w := op.CreateWriter()
	if err := w.Open(context.Background(), "b4"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	_, err := w.Close()
	if !errors.Is(err, footerErr) {
		t.Fatalf("Close error = %v, want %v", err, footerErr)
	}
	if !fs.files["out-temp-b4"].closed {
		t.Error("channel should be closed after footer failure")
	}
}

func TestWriterOpenTwice(t *testing.T) {
	dir := t.TempDir()
	op := NewWriteOperation(Config{BaseOutputFilename: filepath.Join(dir, "out")}, TextFormat{})

	w := op.CreateWriter()
	if err := w.Open(context.Background(), "b1"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	err := w.Open(context.Background(), "b2")
	if err == nil {
		t.Fatal("second Open should fail")
	}
	// The error names the attempt that misused the writer.
	if !strings.Contains(err.Error(), "b2") {
		t.Errorf("error %q does not name attempt b2", err)
	}
}

func TestWriterCloseWithoutOpen(t *testing.T) {
	op := NewWriteOperation(Config{BaseOutputFilename: "out"}, TextFormat{})
	w := op.CreateWriter()
	if _, err := w.Close(); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Close error = %v, want ErrNotOpen", err)
	}
}

func TestWriterWriteWithoutOpen(t *testing.T) {
	op := NewWriteOperation(Config{BaseOutputFilename: "out"}, TextFormat{})
	w := op.CreateWriter()
	if err := w.Write([]byte("x")); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Write error = %v, want ErrNotOpen", err)
	}
}

func TestWriterMimeTypeDefaultsToFormat(t *testing.T) {
	op := NewWriteOperation(Config{BaseOutputFilename: "out"}, TextFormat{})
	w := op.CreateWriter()
	if w.MimeType != fsys.MimeText {
		t.Errorf("MimeType = %q, want %q", w.MimeType, fsys.MimeText)
	}
}
