package fsys

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local serves plain paths and file:// URIs from the host filesystem.
type Local struct{}

// Create opens a writable file at name, creating parent directories as needed.
// The mimeType hint is ignored; local disk has no content-type metadata.
func (Local) Create(ctx context.Context, name, mimeType string) (io.WriteCloser, error) {
	path := LocalPath(name)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file %s: %w", path, err)
	}
	return f, nil
}

// Match expands the glob pattern against the host filesystem.
func (Local) Match(ctx context.Context, pattern string) ([]string, error) {
	matches, err := filepath.Glob(LocalPath(pattern))
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", pattern, err)
	}
	return matches, nil
}
