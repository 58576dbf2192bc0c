package encoder

import (
	"bytes"
	"context"
	"image"
	"image/png"

	"heiconv/core"
	apperrors "heiconv/errors"
)

// PNG encodes images to PNG format. PNG is lossless; the quality setting
// is a no-op here.
type PNG struct{}

func NewPNG() *PNG { return &PNG{} }

func (p *PNG) CanEncode(format core.Format) bool { return format == core.FormatPNG }

func (p *PNG) Encode(ctx context.Context, img *core.ImageData, opts core.EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindEncodeFailed, "png.encode", err)
	}

	src, ok := img.Image.(image.Image)
	if !ok || src == nil {
		return nil, apperrors.New(apperrors.KindEncodeFailed, "png.encode", apperrors.ErrUnsupportedImage)
	}

	enc := &png.Encoder{CompressionLevel: png.DefaultCompression}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, src); err != nil {
		return nil, apperrors.Wrap(apperrors.KindEncodeFailed, "png.encode", err)
	}
	return buf.Bytes(), nil
}
