package fileops

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/gcsblob" // GCS driver
	_ "gocloud.dev/blob/s3blob"  // S3 driver
	"gocloud.dev/gcerrors"

	"github.com/kestrelworks/shardsink/internal/batch"
)

// Blob performs copy and remove against an object store, routing every
// request through a batch dispatcher so a finalize with many shards costs
// few network round trips.
type Blob struct {
	bucket     *blob.Bucket
	root       string
	dispatcher *batch.Dispatcher
	log        *slog.Logger
}

// OpenBlob opens the bucket containing spec and wires a fresh dispatcher to
// it. One Blob serves exactly one finalize invocation; close it afterwards.
func OpenBlob(ctx context.Context, spec string, maxRequestsPerBatch int) (*Blob, error) {
	u, err := url.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", spec, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("no bucket in %s", spec)
	}

	bucketURL := u.Scheme + "://" + u.Host
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}

	return NewBlob(bucket, bucketURL+"/", batch.NewDispatcher(maxRequestsPerBatch)), nil
}

// NewBlob wraps an already-open bucket. Full names handled by this backend
// are root + key.
func NewBlob(bucket *blob.Bucket, root string, dispatcher *batch.Dispatcher) *Blob {
	return &Blob{
		bucket:     bucket,
		root:       root,
		dispatcher: dispatcher,
		log:        slog.With("component", "fileops.blob"),
	}
}

func (b *Blob) key(name string) string {
	if len(name) >= len(b.root) && name[:len(b.root)] == b.root {
		return name[len(b.root):]
	}
	return name
}

// Copy queues one server-side copy per (source, destination) pair and
// flushes the remainder. A missing source is swallowed; any other error
// aborts the batch.
func (b *Blob) Copy(ctx context.Context, srcFilenames, dstFilenames []string) error {
	if err := checkCounts(srcFilenames, dstFilenames); err != nil {
		return err
	}
	for i := range srcFilenames {
		src, dst := srcFilenames[i], dstFilenames[i]
		srcKey, dstKey := b.key(src), b.key(dst)
		b.log.Debug("queueing copy", "src", src, "dst", dst)
		err := b.dispatcher.Queue(ctx, func(ctx context.Context) error {
			return b.bucket.Copy(ctx, dstKey, srcKey, nil)
		}, b.ignoreNotFound("copy", src))
		if err != nil {
			return err
		}
	}
	return b.dispatcher.Flush(ctx)
}

// Remove queues one delete per name and flushes the remainder. Missing
// objects are swallowed.
func (b *Blob) Remove(ctx context.Context, filenames []string) error {
	for _, name := range filenames {
		key := b.key(name)
		b.log.Debug("queueing remove", "name", name)
		err := b.dispatcher.Queue(ctx, func(ctx context.Context) error {
			return b.bucket.Delete(ctx, key)
		}, b.ignoreNotFound("remove", name))
		if err != nil {
			return err
		}
	}
	return b.dispatcher.Flush(ctx)
}

// ignoreNotFound builds a per-request callback that treats a missing object
// as evidence of a prior finalize having consumed it.
func (b *Blob) ignoreNotFound(op, name string) batch.Callback {
	return func(err error) error {
		if err == nil {
			return nil
		}
		if gcerrors.Code(err) == gcerrors.NotFound {
			b.log.Debug("object does not exist", "op", op, "name", name)
			return nil
		}
		return fmt.Errorf("%s %s: %w", op, name, err)
	}
}

// Close releases the bucket connection.
func (b *Blob) Close() error {
	if b.bucket != nil {
		return b.bucket.Close()
	}
	return nil
}

// Verify Blob implements Operations.
var _ Operations = (*Blob)(nil)
