package findergo

import (
	"github.com/hupe1980/findergo/blobstore"
	"github.com/hupe1980/findergo/codec"
	"github.com/hupe1980/findergo/manifest"
	"github.com/hupe1980/findergo/segment"
	"github.com/hupe1980/findergo/wal"
)

type options struct {
	codec       codec.Codec
	compression segment.Compressor
	logger      *Logger
	blobs       blobstore.BlobStore
	pointer     manifest.Pointer
	walDisabled bool
	walOptions  []func(*wal.Options)
}

// Option configures Open behavior.
type Option func(*options)

// WithCodec configures the codec used for segment, manifest and WAL payloads.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression configures how segment sections are compressed. Segments
// are self-describing, so indexes written with one compressor load fine after
// switching to another.
//
// If nil is passed, segment.Default is used.
func WithCompression(c segment.Compressor) Option {
	return func(o *options) {
		if c == nil {
			c = segment.Default
		}
		o.compression = c
	}
}

// WithLogger configures structured logging. The default logger discards all
// output.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithBlobStore overrides where segments and manifests are stored, e.g. an
// S3 or MinIO store. The default is a local store in the index directory.
//
// Remote stores without atomic single-key writes need WithManifestPointer as
// well; see the s3 subpackage.
func WithBlobStore(blobs blobstore.BlobStore) Option {
	return func(o *options) {
		o.blobs = blobs
	}
}

// WithManifestPointer overrides how the current-manifest pointer is published,
// e.g. a DynamoDB conditional write for S3-backed indexes.
func WithManifestPointer(ptr manifest.Pointer) Option {
	return func(o *options) {
		o.pointer = ptr
	}
}

// WithWAL configures the write-ahead log, e.g. its sync mode.
func WithWAL(optFns ...func(*wal.Options)) Option {
	return func(o *options) {
		o.walOptions = append(o.walOptions, optFns...)
	}
}

// WithoutWAL disables write-ahead logging. Staged upserts then live only in
// memory until the next commit; a crash loses them. Useful for bulk rebuilds
// where the host re-scans anyway.
func WithoutWAL() Option {
	return func(o *options) {
		o.walDisabled = true
	}
}
