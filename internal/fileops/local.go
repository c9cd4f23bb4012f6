package fileops

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kestrelworks/shardsink/internal/fsys"
)

// Local performs copy and remove against the host filesystem.
type Local struct {
	log *slog.Logger
}

// NewLocal creates a local-disk Operations backend.
func NewLocal() *Local {
	return &Local{log: slog.With("component", "fileops.local")}
}

// Copy copies each source file to its destination, replacing any existing
// destination. A missing source is logged and skipped.
func (l *Local) Copy(ctx context.Context, srcFilenames, dstFilenames []string) error {
	if err := checkCounts(srcFilenames, dstFilenames); err != nil {
		return err
	}
	for i := range srcFilenames {
		if err := l.copyOne(srcFilenames[i], dstFilenames[i]); err != nil {
			return err
		}
	}
	return nil
}

func (l *Local) copyOne(src, dst string) error {
	src = fsys.LocalPath(src)
	dst = fsys.LocalPath(dst)
	l.log.Debug("copying file", "src", src, "dst", dst)

	in, err := os.Open(src)
	if os.IsNotExist(err) {
		// Already consumed by a prior finalize attempt.
		l.log.Debug("source does not exist", "src", src)
		return nil
	}
	if err != nil {
		return fmt.Errorf("open source %s: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create directory for %s: %w", dst, err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create destination %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close destination %s: %w", dst, err)
	}
	return nil
}

// Remove deletes the named files, skipping any that do not exist.
func (l *Local) Remove(ctx context.Context, filenames []string) error {
	for _, name := range filenames {
		path := fsys.LocalPath(name)
		l.log.Debug("removing file", "name", path)
		err := os.Remove(path)
		if os.IsNotExist(err) {
			l.log.Debug("file does not exist", "name", path)
			continue
		}
		if err != nil {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return nil
}

// Verify Local implements Operations.
var _ Operations = (*Local)(nil)
