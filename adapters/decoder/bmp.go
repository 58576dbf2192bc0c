package decoder

import (
	"context"
	"io"

	"golang.org/x/image/bmp"

	"heiconv/core"
	apperrors "heiconv/errors"
)

// BMP decodes Windows bitmap images using golang.org/x/image/bmp.
type BMP struct{}

func NewBMP() *BMP { return &BMP{} }

func (b *BMP) CanDecode(format core.Format) bool {
	return format == core.FormatBMP
}

func (b *BMP) Decode(ctx context.Context, r io.Reader) (*core.ImageData, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindDecodeFailed, "bmp.decode", err)
	}

	img, err := bmp.Decode(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDecodeFailed, "bmp.decode", err)
	}

	bounds := img.Bounds()
	meta := core.Metadata{
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Format:     core.FormatBMP,
		ColorSpace: colorSpace(img),
		HasAlpha:   hasAlpha(img),
	}

	return &core.ImageData{
		Image: img,
		Meta:  meta,
	}, nil
}
