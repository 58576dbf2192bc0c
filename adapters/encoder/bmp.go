package encoder

import (
	"bytes"
	"context"
	"image"

	"golang.org/x/image/bmp"

	"heiconv/core"
	apperrors "heiconv/errors"
)

// BMP encodes images to Windows bitmap format using golang.org/x/image/bmp.
// BMP is lossless and carries no alpha; sources with translucency are
// flattened before they reach this encoder. Quality is a no-op.
type BMP struct{}

func NewBMP() *BMP { return &BMP{} }

func (b *BMP) CanEncode(format core.Format) bool { return format == core.FormatBMP }

func (b *BMP) Encode(ctx context.Context, img *core.ImageData, opts core.EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindEncodeFailed, "bmp.encode", err)
	}

	src, ok := img.Image.(image.Image)
	if !ok || src == nil {
		return nil, apperrors.New(apperrors.KindEncodeFailed, "bmp.encode", apperrors.ErrUnsupportedImage)
	}

	var buf bytes.Buffer
	if err := bmp.Encode(&buf, src); err != nil {
		return nil, apperrors.Wrap(apperrors.KindEncodeFailed, "bmp.encode", err)
	}
	return buf.Bytes(), nil
}
