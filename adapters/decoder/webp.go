package decoder

import (
	"context"
	"io"

	"golang.org/x/image/webp"

	"heiconv/core"
	apperrors "heiconv/errors"
)

// WebP decodes WebP images using golang.org/x/image/webp.
// NOTE: golang.org/x/image/webp does not handle animated WebP; the libvips
// backend covers those when enabled.
type WebP struct{}

func NewWebP() *WebP { return &WebP{} }

func (w *WebP) CanDecode(format core.Format) bool {
	return format == core.FormatWebP
}

func (w *WebP) Decode(ctx context.Context, r io.Reader) (*core.ImageData, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindDecodeFailed, "webp.decode", err)
	}

	img, err := webp.Decode(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDecodeFailed, "webp.decode", err)
	}

	bounds := img.Bounds()
	meta := core.Metadata{
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Format:     core.FormatWebP,
		ColorSpace: colorSpace(img),
		HasAlpha:   hasAlpha(img),
	}

	return &core.ImageData{
		Image: img,
		Meta:  meta,
	}, nil
}
