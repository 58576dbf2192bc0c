package errors

import (
	"errors"
	"fmt"
)

// Kind classifies per-file conversion failures for reporting and testing.
type Kind string

const (
	KindSourceUnreadable        Kind = "source_unreadable"
	KindDestinationUnwritable   Kind = "destination_unwritable"
	KindDecodeFailed            Kind = "decode_failed"
	KindEncodeFailed            Kind = "encode_failed"
	KindUnsupportedTargetFormat Kind = "unsupported_target_format"
)

// ConversionError is the structured error type attached to failure outcomes.
type ConversionError struct {
	Kind Kind
	Op   string // operation name
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Op, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// New creates a ConversionError of the given kind.
func New(kind Kind, op string, err error) *ConversionError {
	return &ConversionError{Kind: kind, Op: op, Err: err}
}

// Wrap wraps an existing error with context.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(kind, op, err)
}

// KindOf extracts the failure kind from err. The second return is false when
// err carries no ConversionError.
func KindOf(err error) (Kind, bool) {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

// IsKind reports whether err belongs to the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Kind == kind
	}
	return false
}

// Sentinel errors for common failure modes.
var (
	ErrNoDecoder        = errors.New("no decoder registered for format")
	ErrNoEncoder        = errors.New("no encoder registered for format")
	ErrUnknownFormat    = errors.New("unknown image format")
	ErrSourceTooLarge   = errors.New("source exceeds size limit")
	ErrNoRequests       = errors.New("empty request list")
	ErrNilConvert       = errors.New("nil convert function")
	ErrUnsupportedImage = errors.New("unsupported decoded image representation")
)
