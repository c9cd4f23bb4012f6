// Package fileops implements the copy and remove primitives used to commit
// temporary bundle files. Both backends share one contract: copy and remove
// are per-item no-ops when the source is already absent, so the whole
// finalize protocol stays safe to re-run after a partial failure.
package fileops

import (
	"context"
	"fmt"

	"github.com/kestrelworks/shardsink/internal/fsys"
)

// Operations copies and removes sets of files.
type Operations interface {
	// Copy copies each source to the destination at the same index. The two
	// slices must be the same length; a mismatch fails before any I/O.
	// A missing source is skipped, not an error.
	Copy(ctx context.Context, srcFilenames, dstFilenames []string) error

	// Remove deletes the named files. Missing files are skipped.
	Remove(ctx context.Context, filenames []string) error
}

// ForPath returns the Operations backend for the filesystem holding spec
// (a filename or glob pattern). maxRequestsPerBatch bounds remote request
// batching; zero selects the default and local disk ignores it. The
// returned value implements io.Closer when it holds a live bucket
// connection.
func ForPath(ctx context.Context, spec string, maxRequestsPerBatch int) (Operations, error) {
	switch fsys.Scheme(spec) {
	case "", "file":
		return NewLocal(), nil
	case "s3", "gs":
		return OpenBlob(ctx, spec, maxRequestsPerBatch)
	default:
		return nil, fmt.Errorf("file operations for %q: %w", spec, fsys.ErrUnsupportedScheme)
	}
}

// checkCounts enforces the equal-length contract shared by both backends.
func checkCounts(srcFilenames, dstFilenames []string) error {
	if len(srcFilenames) != len(dstFilenames) {
		return fmt.Errorf("number of source files %d must equal number of destination files %d",
			len(srcFilenames), len(dstFilenames))
	}
	return nil
}
