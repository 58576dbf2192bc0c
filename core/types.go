package core

import (
	"strings"
	"time"

	apperrors "heiconv/errors"
)

// Format identifies an image codec.
type Format string

const (
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpeg"
	FormatWebP    Format = "webp"
	FormatBMP     Format = "bmp"
	FormatHEIF    Format = "heif" // source-only; there is no HEIF encoder
	FormatUnknown Format = "unknown"
)

// TargetFormats lists the formats a conversion may produce, in the order
// they are presented to users.
var TargetFormats = []Format{FormatPNG, FormatJPEG, FormatWebP, FormatBMP}

// ParseFormat maps user-facing format names (including common aliases such
// as "jpg" and "heic") onto a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	case "bmp":
		return FormatBMP, nil
	case "heif", "heic":
		return FormatHEIF, nil
	default:
		return FormatUnknown, apperrors.ErrUnknownFormat
	}
}

// Ext returns the canonical file extension for the format, dot included.
func (f Format) Ext() string {
	switch f {
	case FormatPNG:
		return ".png"
	case FormatJPEG:
		return ".jpg"
	case FormatWebP:
		return ".webp"
	case FormatBMP:
		return ".bmp"
	case FormatHEIF:
		return ".heic"
	default:
		return ""
	}
}

// Lossy reports whether the format discards information at the configured
// quality. Quality settings are meaningless for lossless formats and are
// ignored by their encoders.
func (f Format) Lossy() bool {
	return f == FormatJPEG || f == FormatWebP
}

// SupportsAlpha reports whether the format can carry an alpha channel.
// Sources with alpha targeted at a format without it are flattened onto an
// opaque background before encoding.
func (f Format) SupportsAlpha() bool {
	return f == FormatPNG || f == FormatWebP || f == FormatHEIF
}

// ColorSpace represents the image colour model.
type ColorSpace string

const (
	ColorSpaceRGB  ColorSpace = "rgb"
	ColorSpaceRGBA ColorSpace = "rgba"
	ColorSpaceCMYK ColorSpace = "cmyk"
	ColorSpaceGray ColorSpace = "gray"
)

// Metadata holds extracted image information.
type Metadata struct {
	Width       int
	Height      int
	Format      Format
	ColorSpace  ColorSpace
	HasAlpha    bool
	SizeBytes   int64
	Orientation int // EXIF orientation tag (1-8); 0 when absent
}

// ImageData is the in-memory representation a decoder hands to the encoder.
type ImageData struct {
	// Decoded pixel buffer. Using image.Image keeps the default adapters
	// CGO-free; the libvips backend stores its own raster handle here and
	// its encoders unwrap it.
	Image interface{} // actual type: image.Image or *vips.Raster depending on backend

	// Metadata extracted during decode.
	Meta Metadata

	// Size of the original raw input.
	OriginalSize int64
}

// OutcomeStatus is the terminal state of one conversion request.
type OutcomeStatus string

const (
	StatusSuccess OutcomeStatus = "success"
	StatusFailure OutcomeStatus = "failure"
)

// ConversionRequest names one file to convert. Built once at batch assembly
// and never mutated.
type ConversionRequest struct {
	Source      string
	Destination string
	Format      Format
	Quality     int // 1-100; meaningful for lossy targets only
}

// ConversionOutcome records the result of one request. Produced exactly once
// per request and never mutated afterward.
type ConversionOutcome struct {
	Request ConversionRequest
	Status  OutcomeStatus
	Elapsed time.Duration

	// Success fields.
	OutputSize int64

	// Failure field. Carries an *apperrors.ConversionError; use
	// apperrors.KindOf to classify.
	Err error

	// Per-stage timings (read, decode, normalize, encode, write) for the
	// stages that ran.
	StageTimings map[string]time.Duration
}

// Succeeded reports whether the outcome is a success.
func (o ConversionOutcome) Succeeded() bool { return o.Status == StatusSuccess }

// FailureDetail is the compact failure record kept in batch statistics.
type FailureDetail struct {
	Source string
	Kind   apperrors.Kind
	Reason string
}

// Snapshot is a read-only view of batch statistics at one completion.
// Completed == Succeeded + Failed after every update; Completed <= Total
// always.
type Snapshot struct {
	Total     int
	Completed int
	Succeeded int
	Failed    int
	// TaskTime is the sum of per-task elapsed durations folded so far. With
	// several workers it exceeds wall-clock time.
	TaskTime time.Duration
}

// BatchResult is the final immutable snapshot of a batch run.
type BatchResult struct {
	BatchID  string
	Snapshot Snapshot
	Failures []FailureDetail
	// Wall is the wall-clock duration of the whole run.
	Wall time.Duration
	// Cancelled is set when the run stopped because the batch context was
	// cancelled. A cancelled batch reports Completed < Total with no error
	// implied by the gap.
	Cancelled bool
}
