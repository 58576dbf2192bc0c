// Package decoder provides the pure-Go image decoders bound into the
// default registry.
package decoder

import (
	"context"
	"image"
	"image/jpeg"
	"io"

	"heiconv/core"
	apperrors "heiconv/errors"
	"heiconv/utils"
)

// JPEG decodes JPEG images using the standard library. The EXIF orientation
// tag is extracted so normalization can output upright pixels.
type JPEG struct{}

// NewJPEG returns an initialised JPEG decoder.
func NewJPEG() *JPEG { return &JPEG{} }

func (j *JPEG) CanDecode(format core.Format) bool {
	return format == core.FormatJPEG || format == core.FormatUnknown
}

func (j *JPEG) Decode(ctx context.Context, r io.Reader) (*core.ImageData, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindDecodeFailed, "jpeg.decode", err)
	}

	// Buffer the reader; the bytes are walked twice (pixels, then EXIF).
	buf, err := utils.DrainReader(ctx, r, 32*1024)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDecodeFailed, "jpeg.drain", err)
	}
	defer utils.ReleaseBuffer(buf)

	img, err := jpeg.Decode(utils.BytesReader(buf.Bytes()))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDecodeFailed, "jpeg.decode", err)
	}

	bounds := img.Bounds()
	meta := core.Metadata{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Format:      core.FormatJPEG,
		ColorSpace:  colorSpace(img),
		HasAlpha:    hasAlpha(img),
		Orientation: utils.ReadOrientation(buf.Bytes()),
	}

	return &core.ImageData{
		Image: img,
		Meta:  meta,
	}, nil
}

// colorSpace returns the colour space of an image.Image.
func colorSpace(img image.Image) core.ColorSpace {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return core.ColorSpaceGray
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		return core.ColorSpaceRGBA
	case *image.CMYK:
		return core.ColorSpaceCMYK
	}
	return core.ColorSpaceRGB
}

// hasAlpha reports whether the representation carries an alpha channel.
// Whether any pixel is actually translucent is checked at normalization.
func hasAlpha(img image.Image) bool {
	switch img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		return true
	}
	return false
}
