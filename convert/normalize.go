package convert

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"heiconv/core"
	"heiconv/utils"
)

// normalize applies orientation, the MaxEdge downscale, and alpha
// flattening for alpha-less targets to standard images. Backend-native
// rasters do these in-family, so they pass through untouched with MaxEdge
// forwarded in the encode options.
func (r *Runner) normalize(img *core.ImageData, target core.Format) (*core.ImageData, core.EncodeOptions) {
	var opts core.EncodeOptions

	std, ok := img.Image.(image.Image)
	if !ok {
		opts.MaxEdge = r.opts.MaxEdge
		return img, opts
	}

	if img.Meta.Orientation > 1 {
		std = applyOrientation(std, img.Meta.Orientation)
	}
	if r.opts.MaxEdge > 0 {
		std = downscale(std, r.opts.MaxEdge)
	}
	if !target.SupportsAlpha() && !isOpaque(std) {
		std = flattenWhite(std)
	}

	out := *img
	out.Image = std
	out.Meta.Orientation = 0
	b := std.Bounds()
	out.Meta.Width = b.Dx()
	out.Meta.Height = b.Dy()
	return &out, opts
}

// applyOrientation bakes an EXIF orientation (2 through 8) into the pixel
// data so the output displays upright without the tag.
func applyOrientation(src image.Image, orientation int) image.Image {
	if orientation <= 1 || orientation > 8 {
		return src
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	var dst *image.NRGBA
	switch orientation {
	case 2, 3, 4:
		dst = image.NewNRGBA(image.Rect(0, 0, w, h))
	default:
		// 5 through 8 swap the axes.
		dst = image.NewNRGBA(image.Rect(0, 0, h, w))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := src.At(b.Min.X+x, b.Min.Y+y)
			switch orientation {
			case 2: // mirror horizontal
				dst.Set(w-1-x, y, c)
			case 3: // rotate 180
				dst.Set(w-1-x, h-1-y, c)
			case 4: // mirror vertical
				dst.Set(x, h-1-y, c)
			case 5: // transpose
				dst.Set(y, x, c)
			case 6: // rotate 90 CW
				dst.Set(h-1-y, x, c)
			case 7: // transverse
				dst.Set(h-1-y, w-1-x, c)
			case 8: // rotate 270 CW
				dst.Set(y, w-1-x, c)
			}
		}
	}
	return dst
}

// downscale fits the image inside maxEdge on its longer side. It never
// upscales and is a no-op when the image already fits.
func downscale(src image.Image, maxEdge int) image.Image {
	b := src.Bounds()
	w, h := utils.FitWithin(b.Dx(), b.Dy(), maxEdge)
	if w == b.Dx() && h == b.Dy() {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

// flattenWhite composites the image over an opaque white background.
func flattenWhite(src image.Image) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	return dst
}

type opaquer interface{ Opaque() bool }

// isOpaque reports whether every pixel is fully opaque. Unknown image
// implementations count as translucent so they still get flattened.
func isOpaque(img image.Image) bool {
	if o, ok := img.(opaquer); ok {
		return o.Opaque()
	}
	return false
}
