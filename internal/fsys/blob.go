package fsys

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/gcsblob" // GCS driver
	_ "gocloud.dev/blob/s3blob"  // S3 driver
)

// Blob serves object-store URIs through a gocloud.dev bucket.
type Blob struct {
	bucket *blob.Bucket
	root   string // e.g. "s3://my-bucket/"
}

// OpenBlob opens the bucket containing name. The scheme and host of name
// select the bucket; the rest of the path is ignored.
func OpenBlob(ctx context.Context, name string) (*Blob, error) {
	u, err := url.Parse(name)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("no bucket in %s", name)
	}

	bucketURL := u.Scheme + "://" + u.Host
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}

	return NewBlob(bucket, bucketURL+"/"), nil
}

// NewBlob wraps an already-open bucket. Full names handled by this
// FileSystem are root + key.
func NewBlob(bucket *blob.Bucket, root string) *Blob {
	return &Blob{bucket: bucket, root: root}
}

// Key strips the bucket root from a full name.
func (f *Blob) Key(name string) string {
	return strings.TrimPrefix(name, f.root)
}

// Create opens a writable channel for the object at name. The MIME type
// is recorded as the object's Content-Type.
func (f *Blob) Create(ctx context.Context, name, mimeType string) (io.WriteCloser, error) {
	var opts *blob.WriterOptions
	if mimeType != "" {
		opts = &blob.WriterOptions{ContentType: mimeType}
	}

	w, err := f.bucket.NewWriter(ctx, f.Key(name), opts)
	if err != nil {
		return nil, fmt.Errorf("create writer for %s: %w", name, err)
	}
	return w, nil
}

// Match lists objects whose keys match the glob pattern. Listing is bounded
// by the literal prefix of the pattern so a trailing wildcard does not scan
// the whole bucket.
func (f *Blob) Match(ctx context.Context, pattern string) ([]string, error) {
	key := f.Key(pattern)
	prefix := literalPrefix(key)

	var matches []string
	iter := f.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", pattern, err)
		}
		if obj.IsDir {
			continue
		}
		ok, err := path.Match(key, obj.Key)
		if err != nil {
			return nil, fmt.Errorf("match %s: %w", pattern, err)
		}
		if ok {
			matches = append(matches, f.root+obj.Key)
		}
	}
	return matches, nil
}

// Close releases the bucket connection.
func (f *Blob) Close() error {
	if f.bucket != nil {
		return f.bucket.Close()
	}
	return nil
}

// literalPrefix returns the part of a glob pattern before the first
// metacharacter.
func literalPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, "*?["); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

// Verify Blob implements FileSystem.
var _ FileSystem = (*Blob)(nil)
