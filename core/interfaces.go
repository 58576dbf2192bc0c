package core

import (
	"context"
	"image"
	"io"
)

// Decoder converts raw bytes / a reader into an in-memory ImageData.
// Implementations live in adapters/decoder/ and adapters/vips/.
type Decoder interface {
	// Decode reads from r and returns a decoded ImageData.
	Decode(ctx context.Context, r io.Reader) (*ImageData, error)
	// CanDecode reports whether this decoder handles the given format.
	CanDecode(format Format) bool
}

// Encoder serialises an ImageData to bytes in a target format.
// Implementations live in adapters/encoder/ and adapters/vips/.
// Implementations must be safe for concurrent use; they hold no mutable
// state between calls.
type Encoder interface {
	Encode(ctx context.Context, img *ImageData, opts EncodeOptions) ([]byte, error)
	CanEncode(format Format) bool
}

// EncodeOptions carries format-specific encoding parameters.
type EncodeOptions struct {
	Quality       int  // 1-100; 0 = use encoder default; ignored by lossless encoders
	StripMetadata bool // drop EXIF/ICC on export where the encoder carries any
	// MaxEdge caps the longer output dimension for encoders that scale
	// natively (the vips backend); 0 = no cap. The pure-Go path scales
	// before encoding and leaves this at 0.
	MaxEdge int
}

// Rasterizer is implemented by backend-native decoded representations
// that can convert themselves into a standard image.Image. Encoders that
// only understand standard images use it as a bridge.
type Rasterizer interface {
	Rasterize() (image.Image, error)
}

// ProgressSink observes batch progress. OnOutcome is invoked synchronously
// by whichever worker just finished a task, exactly once per outcome, with
// a consistent statistics snapshot. Calls for distinct completions never
// overlap. Implementations must return promptly and must not call back
// into the running batch; a sink that crosses into a presentation loop
// should enqueue the update and return.
type ProgressSink interface {
	OnOutcome(snap Snapshot, outcome ConversionOutcome)
}

// TaskFunc executes one conversion request and returns its outcome. It
// must never panic and must not write a destination file on failure.
type TaskFunc func(ctx context.Context, req ConversionRequest) ConversionOutcome

// Writer persists encoded output at a destination path. Implementations
// live in adapters/storage/. Put must be atomic: a failed or interrupted
// call leaves no partial file at path. Put does not create parent
// directories; a missing destination directory is an error.
type Writer interface {
	Put(ctx context.Context, path string, r io.Reader) (int64, error)
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Registry maps Format values to Decoder/Encoder implementations.
type Registry interface {
	DecoderFor(format Format) (Decoder, bool)
	EncoderFor(format Format) (Encoder, bool)
	RegisterDecoder(format Format, d Decoder)
	RegisterEncoder(format Format, e Encoder)
}
