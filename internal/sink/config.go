// Package sink implements the write/finalize protocol of a file-based
// output sink: bundles are written in parallel to temporary files, then a
// single finalize step copies them to deterministically-numbered shard
// files and cleans the temporaries up. Finalize is idempotent, so the
// execution engine driving the sink may retry any bundle attempt and may
// re-run finalize itself after a partial failure.
package sink

import (
	"fmt"
	"strings"
)

// DefaultShardNameTemplate renders shard index and count as
// "-0000-of-0003". Any fmt template taking (index, total) works as long
// as it yields a unique name per index.
const DefaultShardNameTemplate = "-%04d-of-%04d"

// temporaryFilenameSeparator joins the temporary base name and the bundle
// attempt id.
const temporaryFilenameSeparator = "-temp-"

// TemporaryFilename builds the name of the temporary file for one bundle
// attempt: {prefix}-temp-{suffix}.
func TemporaryFilename(prefix, suffix string) string {
	return prefix + temporaryFilenameSeparator + suffix
}

// Config holds the immutable naming parameters of a sink.
type Config struct {
	// BaseOutputFilename is the prefix of every final shard file. It may be
	// a plain path or an object-store URI.
	BaseOutputFilename string

	// Extension is appended to every shard name, with or without a leading
	// dot. Empty means no extension.
	Extension string

	// ShardNameTemplate is a fmt template rendered with (index, total).
	// Empty selects DefaultShardNameTemplate.
	ShardNameTemplate string
}

// FileExtensionSuffix returns the suffix shard names end with: empty when
// no extension is configured, otherwise the extension with exactly one
// leading dot.
func (c Config) FileExtensionSuffix() string {
	if c.Extension == "" {
		return ""
	}
	if strings.HasPrefix(c.Extension, ".") {
		return c.Extension
	}
	return "." + c.Extension
}

// ShardName renders the final filename for the shard at index out of total.
func (c Config) ShardName(index, total int) string {
	template := c.ShardNameTemplate
	if template == "" {
		template = DefaultShardNameTemplate
	}
	return c.BaseOutputFilename + fmt.Sprintf(template, index, total) + c.FileExtensionSuffix()
}
