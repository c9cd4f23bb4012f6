// Package fsys abstracts the filesystems the sink writes to. A FileSystem
// creates writable channels and expands glob patterns; the concrete
// implementation is selected by the scheme of the path (bare paths and
// file:// map to local disk, object-store URIs map to a blob bucket).
package fsys

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MIME type hints passed to Create. Object stores record them as
// Content-Type metadata; local disk ignores them.
const (
	MimeText   = "text/plain"
	MimeBinary = "application/octet-stream"
	MimeGzip   = "application/gzip"
)

// ErrUnsupportedScheme is returned when a path names a filesystem
// this package does not know how to reach.
var ErrUnsupportedScheme = errors.New("unsupported filesystem scheme")

// FileSystem creates writable channels and matches glob patterns.
type FileSystem interface {
	// Create opens a writable channel at name, truncating any existing file.
	// mimeType is advisory; backends without content-type metadata ignore it.
	Create(ctx context.Context, name, mimeType string) (io.WriteCloser, error)

	// Match returns the full names of all files matching the glob pattern.
	Match(ctx context.Context, pattern string) ([]string, error)
}

// Scheme returns the URI scheme of name, or "" for a plain local path.
func Scheme(name string) string {
	i := strings.Index(name, "://")
	if i < 0 {
		return ""
	}
	return name[:i]
}

// LocalPath strips the file:// prefix, if any, from name.
func LocalPath(name string) string {
	return strings.TrimPrefix(name, "file://")
}

// ForPath returns the FileSystem serving the given path or pattern.
// The returned value implements io.Closer when it holds a live bucket
// connection; callers that own the full lifetime should close it.
func ForPath(ctx context.Context, name string) (FileSystem, error) {
	switch Scheme(name) {
	case "", "file":
		return Local{}, nil
	case "s3", "gs":
		return OpenBlob(ctx, name)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, name)
	}
}
