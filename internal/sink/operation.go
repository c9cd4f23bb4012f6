package sink

import (
	"context"
	"encoding/json"
	"io"
	"slices"

	"log/slog"

	"github.com/kestrelworks/shardsink/internal/fileops"
	"github.com/kestrelworks/shardsink/internal/fsys"
	"github.com/kestrelworks/shardsink/internal/logging"
)

// Retention controls what happens to temporary files after finalize.
type Retention int

const (
	// RetentionRemove deletes every file matching the temporary glob once
	// the copies are done. The default.
	RetentionRemove Retention = iota

	// RetentionKeep leaves temporary files in place.
	RetentionKeep
)

// Result is the only state a bundle writer hands back to the operation: the
// path of its fully-closed temporary file. The execution engine may carry
// results across process boundaries, hence the JSON shape.
type Result struct {
	Filename string `json:"filename"`
}

// ResultCoder encodes Results for transport by the execution engine.
type ResultCoder struct{}

// Encode serializes a Result.
func (ResultCoder) Encode(r Result) ([]byte, error) {
	return json.Marshal(r)
}

// Decode deserializes a Result.
func (ResultCoder) Decode(data []byte) (Result, error) {
	var r Result
	err := json.Unmarshal(data, &r)
	return r, err
}

// Option configures a WriteOperation.
type Option func(*WriteOperation)

// WithTemporaryBase overrides the base name temporary files are derived
// from. Default is the sink's base output filename.
func WithTemporaryBase(base string) Option {
	return func(o *WriteOperation) { o.tempBase = base }
}

// WithRetention sets the temporary-file retention policy.
func WithRetention(r Retention) Option {
	return func(o *WriteOperation) { o.retention = r }
}

// WithFileSystem fixes the filesystem abstraction instead of resolving it
// from path schemes. Used when the execution engine supplies its own.
func WithFileSystem(fs fsys.FileSystem) Option {
	return func(o *WriteOperation) { o.fs = fs }
}

// WithFileOperations fixes the copy/remove backend instead of resolving it
// from the destination scheme at finalize time.
func WithFileOperations(ops fileops.Operations) Option {
	return func(o *WriteOperation) { o.ops = ops }
}

// WithMaxRequestsPerBatch bounds request batching against remote stores
// during finalize. Zero selects the backend default.
func WithMaxRequestsPerBatch(n int) Option {
	return func(o *WriteOperation) { o.batchLimit = n }
}

// WriteOperation coordinates one pipeline run's write to a sink: it creates
// bundle writers on demand and finalizes their committed results into the
// numbered shard files. Immutable after construction, so CreateWriter is
// safe to call from any number of goroutines.
type WriteOperation struct {
	cfg        Config
	format     Format
	tempBase   string
	retention  Retention
	fs         fsys.FileSystem
	ops        fileops.Operations
	batchLimit int
	log        *slog.Logger
}

// NewWriteOperation creates a write operation for the given sink
// configuration and output format.
func NewWriteOperation(cfg Config, format Format, opts ...Option) *WriteOperation {
	op := &WriteOperation{
		cfg:       cfg,
		format:    format,
		tempBase:  cfg.BaseOutputFilename,
		retention: RetentionRemove,
		log:       logging.Component("sink"),
	}
	for _, opt := range opts {
		opt(op)
	}
	return op
}

// Config returns the sink configuration.
func (o *WriteOperation) Config() Config {
	return o.cfg
}

// Initialize prepares the sink before any bundle is written. It is a no-op
// here and must stay idempotent: the engine may call it again on retry.
func (o *WriteOperation) Initialize(ctx context.Context) error {
	return nil
}

// CreateWriter returns a fresh bundle writer bound to this operation. It
// does not mutate the operation.
func (o *WriteOperation) CreateWriter() *Writer {
	return &Writer{
		op:       o,
		format:   o.format,
		MimeType: o.format.MimeType(),
		fs:       o.fs,
		log:      o.log,
	}
}

// ResultCoder identifies how bundle results are serialized for transport.
func (o *WriteOperation) ResultCoder() ResultCoder {
	return ResultCoder{}
}

// Finalize copies the committed temporary files to their final shard names
// and, under RetentionRemove, deletes every temporary the run left behind.
//
// Finalize is idempotent: copy skips sources a prior attempt already
// consumed and remove skips files already gone, so the engine may re-invoke
// it after a partial failure or for redundancy. Concurrent Finalize calls on
// the same operation are the caller's responsibility to avoid.
func (o *WriteOperation) Finalize(ctx context.Context, results []Result) error {
	filenames := make([]string, 0, len(results))
	for _, r := range results {
		o.log.Debug("temporary bundle output file will be copied", "filename", r.Filename)
		filenames = append(filenames, r.Filename)
	}

	if _, err := o.copyToOutputFiles(ctx, filenames); err != nil {
		return err
	}

	if o.retention == RetentionRemove {
		return o.removeTemporaryFiles(ctx)
	}
	return nil
}

// copyToOutputFiles copies temporary files to final shard names. Shard
// index is the source's rank in the ascending sort of all temporary names,
// not arrival order, so the final naming is reproducible regardless of
// execution order and retries. Returns the destination names.
func (o *WriteOperation) copyToOutputFiles(ctx context.Context, filenames []string) ([]string, error) {
	srcFilenames := slices.Clone(filenames)
	slices.Sort(srcFilenames)
	dstFilenames := o.generateDestinationFilenames(len(srcFilenames))

	if len(srcFilenames) == 0 {
		// An empty logical output produces zero files, not an empty file.
		o.log.Info("no output files to write")
		return dstFilenames, nil
	}

	o.log.Debug("copying files", "count", len(srcFilenames))
	ops, release, err := o.operationsFor(ctx, dstFilenames[0])
	if err != nil {
		return nil, err
	}
	defer release()

	if err := ops.Copy(ctx, srcFilenames, dstFilenames); err != nil {
		return nil, err
	}
	return dstFilenames, nil
}

// generateDestinationFilenames renders the final shard name for every index.
func (o *WriteOperation) generateDestinationFilenames(numFiles int) []string {
	dstFilenames := make([]string, 0, numFiles)
	for i := 0; i < numFiles; i++ {
		dstFilenames = append(dstFilenames, o.cfg.ShardName(i, numFiles))
	}
	return dstFilenames
}

// removeTemporaryFiles deletes every file matching the temporary glob, not
// just the committed ones: attempts that lost a retry race leave orphaned
// temporaries behind, and the glob reclaims those too.
func (o *WriteOperation) removeTemporaryFiles(ctx context.Context) error {
	pattern := TemporaryFilename(o.tempBase, "*")
	o.log.Debug("finding temporary bundle output files", "pattern", pattern)

	fs := o.fs
	if fs == nil {
		var err error
		fs, err = fsys.ForPath(ctx, pattern)
		if err != nil {
			return err
		}
		if c, ok := fs.(io.Closer); ok {
			defer c.Close()
		}
	}

	matches, err := fs.Match(ctx, pattern)
	if err != nil {
		return err
	}
	o.log.Debug("removing temporary files", "count", len(matches), "pattern", pattern)
	if len(matches) == 0 {
		return nil
	}

	ops, release, err := o.operationsFor(ctx, pattern)
	if err != nil {
		return err
	}
	defer release()

	return ops.Remove(ctx, matches)
}

// operationsFor resolves the copy/remove backend for a path or pattern and
// returns a release func for any connection it opened.
func (o *WriteOperation) operationsFor(ctx context.Context, spec string) (fileops.Operations, func(), error) {
	if o.ops != nil {
		return o.ops, func() {}, nil
	}
	ops, err := fileops.ForPath(ctx, spec, o.batchLimit)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if c, ok := ops.(io.Closer); ok {
			if err := c.Close(); err != nil {
				o.log.Error("closing file operations failed", "error", err)
			}
		}
	}
	return ops, release, nil
}
