package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/kestrelworks/shardsink/internal/fsys"
)

// ErrNotOpen is returned when Write or Close is called on a writer that was
// never opened, already closed, or failed.
var ErrNotOpen = errors.New("bundle writer is not open")

type writerState int

const (
	stateCreated writerState = iota
	stateOpen
	stateClosed
	stateFailed
)

// Writer writes one bundle attempt to one temporary file. The lifecycle is
// Open, any number of Write calls, Close; any error is fatal to the attempt
// and the engine retries the bundle as a new attempt with a new id.
//
// Many writers run concurrently, including several attempts of the same
// logical bundle; each owns a distinct temporary file and they share no
// mutable state.
type Writer struct {
	op     *WriteOperation
	format Format

	// MimeType is the content-type hint for the temporary file. Defaults to
	// the format's; may be overridden before Open. Advisory for object
	// stores, ignored by local disk.
	MimeType string

	id       string
	filename string
	fs       fsys.FileSystem
	fsCloser io.Closer
	channel  io.WriteCloser
	enc      Encoder
	state    writerState
	log      *slog.Logger
}

// Open creates the attempt's temporary file and writes the format header.
// attemptID must be unique across concurrently-open attempts; the engine
// supplies it.
//
// If preparing the encoder or writing the header fails, the already-created
// channel is closed before the error propagates, and the original error is
// returned even if that cleanup close fails.
func (w *Writer) Open(ctx context.Context, attemptID string) error {
	if w.state != stateCreated {
		return fmt.Errorf("bundle writer for attempt %q opened twice", attemptID)
	}
	w.id = attemptID
	w.filename = TemporaryFilename(w.op.tempBase, attemptID)
	w.log.Debug("opening temporary file", "filename", w.filename)

	fs := w.fs
	if fs == nil {
		var err error
		fs, err = fsys.ForPath(ctx, w.filename)
		if err != nil {
			w.state = stateFailed
			return err
		}
		if c, ok := fs.(io.Closer); ok {
			w.fsCloser = c
		}
		w.fs = fs
	}

	channel, err := fs.Create(ctx, w.filename, w.MimeType)
	if err != nil {
		w.state = stateFailed
		w.releaseFS()
		return fmt.Errorf("create %s: %w", w.filename, err)
	}

	enc, err := w.format.NewEncoder(channel)
	if err == nil {
		w.log.Debug("writing header", "filename", w.filename)
		err = enc.WriteHeader()
	}
	if err != nil {
		// The caller won't Close a writer that failed to open, so release
		// the channel here. A close failure must not hide the real error.
		w.log.Error("writing header failed, closing channel", "filename", w.filename, "error", err)
		if closeErr := channel.Close(); closeErr != nil {
			w.log.Error("closing channel failed", "filename", w.filename, "error", closeErr)
		}
		w.releaseFS()
		w.state = stateFailed
		return err
	}

	w.channel = channel
	w.enc = enc
	w.state = stateOpen
	w.log.Debug("starting bundle write", "attempt_id", attemptID, "filename", w.filename)
	return nil
}

// Write appends one record's encoding to the temporary file. An error fails
// the whole attempt; the writer releases its channel and cannot be reused.
func (w *Writer) Write(value []byte) error {
	if w.state != stateOpen {
		return ErrNotOpen
	}
	if err := w.enc.WriteValue(value); err != nil {
		w.fail()
		return fmt.Errorf("write to %s: %w", w.filename, err)
	}
	return nil
}

// Close writes the footer, releases the channel, and returns the result the
// engine hands to Finalize. The channel is released on the failure path too.
func (w *Writer) Close() (Result, error) {
	if w.state != stateOpen {
		return Result{}, fmt.Errorf("%w: attempt %q", ErrNotOpen, w.id)
	}

	w.log.Debug("writing footer", "filename", w.filename)
	err := w.enc.WriteFooter()
	if err == nil {
		err = w.enc.Close()
	} else {
		// Footer already failed; still flush what the encoder holds.
		if closeErr := w.enc.Close(); closeErr != nil {
			w.log.Error("closing encoder failed", "filename", w.filename, "error", closeErr)
		}
	}

	closeErr := w.channel.Close()
	w.releaseFS()

	if err != nil {
		w.state = stateFailed
		return Result{}, fmt.Errorf("finish %s: %w", w.filename, err)
	}
	if closeErr != nil {
		w.state = stateFailed
		return Result{}, fmt.Errorf("close %s: %w", w.filename, closeErr)
	}

	w.state = stateClosed
	w.log.Debug("bundle complete", "attempt_id", w.id, "filename", w.filename)
	return Result{Filename: w.filename}, nil
}

// fail releases the writer's resources after a write error.
func (w *Writer) fail() {
	if w.channel != nil {
		if err := w.channel.Close(); err != nil {
			w.log.Error("closing channel failed", "filename", w.filename, "error", err)
		}
		w.channel = nil
	}
	w.releaseFS()
	w.state = stateFailed
}

func (w *Writer) releaseFS() {
	if w.fsCloser != nil {
		if err := w.fsCloser.Close(); err != nil {
			w.log.Error("closing filesystem failed", "filename", w.filename, "error", err)
		}
		w.fsCloser = nil
	}
}
