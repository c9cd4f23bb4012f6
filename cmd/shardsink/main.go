// Command shardsink writes a set of records through the file-based sink:
// bundles are written concurrently to temporary files, then finalized into
// numbered shard files. Mostly useful for exercising a sink configuration
// against real storage.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kestrelworks/shardsink/internal/config"
	"github.com/kestrelworks/shardsink/internal/logging"
	"github.com/kestrelworks/shardsink/internal/sink"
)

// Version information (set via ldflags)
var (
	Version = "v0.1.0"
	GitSHA  = "unknown"
)

var (
	flagConfig  string
	flagOutput  string
	flagExt     string
	flagBundles int
	flagRecords int
)

func main() {
	root := &cobra.Command{
		Use:          "shardsink",
		Short:        "write and finalize sharded output files",
		Version:      fmt.Sprintf("%s (%s)", Version, GitSHA),
		SilenceUsage: true,
		RunE:         run,
	}
	root.Flags().StringVarP(&flagConfig, "config", "c", "", "path to YAML config")
	root.Flags().StringVarP(&flagOutput, "output", "o", "", "base output filename (path or object-store URI)")
	root.Flags().StringVar(&flagExt, "extension", "", "output file extension")
	root.Flags().IntVar(&flagBundles, "bundles", 4, "number of parallel bundles")
	root.Flags().IntVar(&flagRecords, "records", 1000, "number of records to write")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagOutput != "" {
		cfg.Sink.BaseOutputFilename = flagOutput
	}
	if flagExt != "" {
		cfg.Sink.Extension = flagExt
	}
	if cfg.Sink.BaseOutputFilename == "" {
		return fmt.Errorf("no base output filename configured")
	}

	logging.Setup(logging.Config(cfg.Logging))

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := logging.GenerateCorrelationID()
	ctx = logging.WithCorrelationID(ctx, runID)
	log := slog.With("component", "main", "correlation_id", runID)
	log.Info("shardsink starting", "version", Version, "output", cfg.Sink.BaseOutputFilename)

	format, err := formatFor(cfg.Format)
	if err != nil {
		return err
	}

	var opts []sink.Option
	if cfg.Sink.TemporaryBase != "" {
		opts = append(opts, sink.WithTemporaryBase(cfg.Sink.TemporaryBase))
	}
	if cfg.Sink.KeepTemporaryFiles {
		opts = append(opts, sink.WithRetention(sink.RetentionKeep))
	}
	if cfg.Batch.MaxRequestsPerBatch > 0 {
		opts = append(opts, sink.WithMaxRequestsPerBatch(cfg.Batch.MaxRequestsPerBatch))
	}

	op := sink.NewWriteOperation(sink.Config{
		BaseOutputFilename: cfg.Sink.BaseOutputFilename,
		Extension:          cfg.Sink.Extension,
		ShardNameTemplate:  cfg.Sink.ShardNameTemplate,
	}, format, opts...)

	if err := op.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize sink: %w", err)
	}

	results, err := writeBundles(ctx, op, flagBundles, flagRecords)
	if err != nil {
		return err
	}

	// Finalize is idempotent, so transient storage errors are safe to retry.
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := op.Finalize(ctx, results); err != nil {
			log.Warn("finalize attempt failed", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("finalize: %w", err)
	}

	log.Info("finalize complete", "shards", len(results))
	return nil
}

// writeBundles runs one writer lifecycle per bundle, splitting the records
// evenly. Bundles are independent, so they run on their own goroutines.
func writeBundles(ctx context.Context, op *sink.WriteOperation, bundles, records int) ([]sink.Result, error) {
	if bundles < 1 {
		bundles = 1
	}
	results := make([]sink.Result, bundles)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < bundles; i++ {
		i := i
		g.Go(func() error {
			attemptID := uuid.NewString()
			log := logging.BundleLogger(logging.CorrelationID(ctx), attemptID)
			w := op.CreateWriter()
			if err := w.Open(ctx, attemptID); err != nil {
				return fmt.Errorf("open bundle %d: %w", i, err)
			}
			for r := i; r < records; r += bundles {
				if err := w.Write(fmt.Appendf(nil, "record-%06d", r)); err != nil {
					return fmt.Errorf("bundle %d: %w", i, err)
				}
			}
			res, err := w.Close()
			if err != nil {
				return fmt.Errorf("close bundle %d: %w", i, err)
			}
			log.Debug("bundle written", "filename", res.Filename)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func formatFor(cfg config.FormatConfig) (sink.Format, error) {
	switch cfg.Type {
	case "", "text":
		return sink.TextFormat{Header: cfg.Header, Footer: cfg.Footer}, nil
	case "gzip":
		return sink.Gzip(sink.TextFormat{Header: cfg.Header, Footer: cfg.Footer}), nil
	case "parquet":
		return sink.ParquetFormat{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q", cfg.Type)
	}
}
