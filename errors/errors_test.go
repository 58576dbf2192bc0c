package errors_test

import (
	stderrors "errors"
	"fmt"
	"os"
	"testing"

	apperrors "heiconv/errors"
)

func TestConversionError_Format(t *testing.T) {
	err := apperrors.New(apperrors.KindDecodeFailed, "convert.decode", stderrors.New("bad header"))
	want := "[decode_failed] convert.decode: bad header"
	if err.Error() != want {
		t.Errorf("Error(): got %q, want %q", err.Error(), want)
	}
}

func TestConversionError_Unwrap(t *testing.T) {
	inner := os.ErrNotExist
	err := apperrors.Wrap(apperrors.KindSourceUnreadable, "convert.read.open", fmt.Errorf("open: %w", inner))
	if !stderrors.Is(err, os.ErrNotExist) {
		t.Error("wrapped sentinel not reachable through Unwrap chain")
	}
}

func TestWrap_NilPassthrough(t *testing.T) {
	if err := apperrors.Wrap(apperrors.KindEncodeFailed, "op", nil); err != nil {
		t.Errorf("Wrap(nil): got %v, want nil", err)
	}
}

func TestKindOf(t *testing.T) {
	err := apperrors.Wrap(apperrors.KindDestinationUnwritable, "local.put", stderrors.New("read-only"))
	kind, ok := apperrors.KindOf(err)
	if !ok || kind != apperrors.KindDestinationUnwritable {
		t.Errorf("KindOf: got %s/%v", kind, ok)
	}

	// The kind survives further wrapping.
	outer := fmt.Errorf("task: %w", err)
	kind, ok = apperrors.KindOf(outer)
	if !ok || kind != apperrors.KindDestinationUnwritable {
		t.Errorf("KindOf through wrap: got %s/%v", kind, ok)
	}

	if _, ok := apperrors.KindOf(stderrors.New("plain")); ok {
		t.Error("KindOf reported a kind for a plain error")
	}
	if _, ok := apperrors.KindOf(nil); ok {
		t.Error("KindOf reported a kind for nil")
	}
}

func TestIsKind(t *testing.T) {
	err := apperrors.New(apperrors.KindUnsupportedTargetFormat, "convert.encode", apperrors.ErrNoEncoder)
	if !apperrors.IsKind(err, apperrors.KindUnsupportedTargetFormat) {
		t.Error("IsKind missed the matching kind")
	}
	if apperrors.IsKind(err, apperrors.KindEncodeFailed) {
		t.Error("IsKind matched the wrong kind")
	}
}
