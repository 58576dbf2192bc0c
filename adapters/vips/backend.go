// Package vips provides a libvips-powered codec backend via govips. It is
// the only decoder for HEIF/HEIC sources and the only WEBP encoder; when
// registered it also takes over JPEG and PNG from the pure-Go adapters.
package vips

import (
	"context"
	"image"
	"image/png"
	"io"
	"runtime"

	govips "github.com/davidbyttow/govips/v2/vips"

	"heiconv/core"
	apperrors "heiconv/errors"
	"heiconv/utils"
)

// BackendConfig configures the libvips backend.
type BackendConfig struct {
	DefaultQuality   int
	ConcurrencyLevel int
	MaxCacheMem      int
	ReportLeaks      bool
}

// Backend decodes through libvips. Safe for concurrent use across
// goroutines; libvips manages its own operation cache and threading.
type Backend struct {
	cfg BackendConfig
}

// NewBackend initialises libvips and returns a ready Backend.
// Call Shutdown() when the process exits.
func NewBackend(cfg BackendConfig) *Backend {
	if cfg.DefaultQuality <= 0 {
		cfg.DefaultQuality = 85
	}
	govips.Startup(&govips.Config{
		ConcurrencyLevel: cfg.ConcurrencyLevel,
		MaxCacheMem:      cfg.MaxCacheMem,
		ReportLeaks:      cfg.ReportLeaks,
		CollectStats:     true,
	})
	return &Backend{cfg: cfg}
}

// Shutdown releases all libvips resources. Call once at process exit.
func (b *Backend) Shutdown() {
	govips.Shutdown()
}

// ─── Decoder ──────────────────────────────────────────────────────────────────

func (b *Backend) CanDecode(f core.Format) bool {
	switch f {
	case core.FormatHEIF, core.FormatJPEG, core.FormatPNG, core.FormatWebP, core.FormatUnknown:
		return true
	}
	return false
}

// Decode loads the image through libvips and applies the EXIF orientation
// immediately, so every downstream stage sees upright pixels.
func (b *Backend) Decode(ctx context.Context, r io.Reader) (*core.ImageData, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindDecodeFailed, "vips.decode", err)
	}

	buf, err := utils.DrainReader(ctx, r, 32*1024)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDecodeFailed, "vips.decode.drain", err)
	}
	raw := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)

	ref, err := govips.NewImageFromBuffer(raw)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindDecodeFailed, "vips.decode", err)
	}
	runtime.SetFinalizer(ref, func(r *govips.ImageRef) { r.Close() })

	if ref.Orientation() > 1 {
		if err := ref.AutoRotate(); err != nil {
			return nil, apperrors.Wrap(apperrors.KindDecodeFailed, "vips.decode.autorotate", err)
		}
	}

	meta := core.Metadata{
		Width:      ref.Width(),
		Height:     ref.Height(),
		Format:     vipsFormatToCore(ref.Format()),
		ColorSpace: vipsInterpretationToColorSpace(ref.Interpretation()),
		HasAlpha:   ref.HasAlpha(),
		SizeBytes:  int64(len(raw)),
	}

	return &core.ImageData{
		Image:        &Raster{ref: ref},
		Meta:         meta,
		OriginalSize: int64(len(raw)),
	}, nil
}

// ─── Encoders ─────────────────────────────────────────────────────────────────

// JpegEncoder, PngEncoder, and WebpEncoder export through the shared
// Backend; the registry binds one per target format.
type JpegEncoder struct{ b *Backend }
type PngEncoder struct{ b *Backend }
type WebpEncoder struct{ b *Backend }

func (e *JpegEncoder) CanEncode(f core.Format) bool { return f == core.FormatJPEG }
func (e *PngEncoder) CanEncode(f core.Format) bool  { return f == core.FormatPNG }
func (e *WebpEncoder) CanEncode(f core.Format) bool { return f == core.FormatWebP }

func (e *JpegEncoder) Encode(ctx context.Context, img *core.ImageData, opts core.EncodeOptions) ([]byte, error) {
	ref, err := e.b.prepare(ctx, img, opts, false)
	if err != nil {
		return nil, err
	}
	ep := govips.NewJpegExportParams()
	ep.Quality = e.b.quality(opts)
	ep.StripMetadata = opts.StripMetadata
	buf, _, err := ref.ExportJpeg(ep)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindEncodeFailed, "vips.encode.jpeg", err)
	}
	return buf, nil
}

func (e *PngEncoder) Encode(ctx context.Context, img *core.ImageData, opts core.EncodeOptions) ([]byte, error) {
	ref, err := e.b.prepare(ctx, img, opts, true)
	if err != nil {
		return nil, err
	}
	ep := govips.NewPngExportParams()
	ep.StripMetadata = opts.StripMetadata
	buf, _, err := ref.ExportPng(ep)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindEncodeFailed, "vips.encode.png", err)
	}
	return buf, nil
}

func (e *WebpEncoder) Encode(ctx context.Context, img *core.ImageData, opts core.EncodeOptions) ([]byte, error) {
	ref, err := e.b.prepare(ctx, img, opts, true)
	if err != nil {
		return nil, err
	}
	ep := govips.NewWebpExportParams()
	ep.Quality = e.b.quality(opts)
	ep.StripMetadata = opts.StripMetadata
	buf, _, err := ref.ExportWebp(ep)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindEncodeFailed, "vips.encode.webp", err)
	}
	return buf, nil
}

func (b *Backend) quality(opts core.EncodeOptions) int {
	if opts.Quality > 0 {
		return opts.Quality
	}
	return b.cfg.DefaultQuality
}

// prepare unwraps the raster and performs the in-family normalization the
// export needs: the optional MaxEdge downscale, and flattening onto an
// opaque white background when the target cannot carry alpha.
func (b *Backend) prepare(ctx context.Context, img *core.ImageData, opts core.EncodeOptions, keepAlpha bool) (*govips.ImageRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindEncodeFailed, "vips.encode", err)
	}
	ra, ok := img.Image.(*Raster)
	if !ok || ra == nil {
		return nil, apperrors.New(apperrors.KindEncodeFailed, "vips.encode", apperrors.ErrUnsupportedImage)
	}
	ref := ra.ref

	if opts.MaxEdge > 0 {
		w, h := utils.FitWithin(ref.Width(), ref.Height(), opts.MaxEdge)
		if w != ref.Width() {
			scale := float64(w) / float64(ref.Width())
			if err := ref.Resize(scale, govips.KernelLanczos3); err != nil {
				return nil, apperrors.Wrap(apperrors.KindEncodeFailed, "vips.encode.resize", err)
			}
		} else if h != ref.Height() {
			scale := float64(h) / float64(ref.Height())
			if err := ref.Resize(scale, govips.KernelLanczos3); err != nil {
				return nil, apperrors.Wrap(apperrors.KindEncodeFailed, "vips.encode.resize", err)
			}
		}
	}

	if !keepAlpha && ref.HasAlpha() {
		if err := ref.Flatten(&govips.Color{R: 255, G: 255, B: 255}); err != nil {
			return nil, apperrors.Wrap(apperrors.KindEncodeFailed, "vips.encode.flatten", err)
		}
	}
	return ref, nil
}

// ─── Raster ───────────────────────────────────────────────────────────────────

// Raster wraps a *govips.ImageRef for storage in core.ImageData.Image.
type Raster struct {
	ref *govips.ImageRef
}

func (r *Raster) Width() int            { return r.ref.Width() }
func (r *Raster) Height() int           { return r.ref.Height() }
func (r *Raster) Ref() *govips.ImageRef { return r.ref }
func (r *Raster) Close()                { r.ref.Close() }

// Rasterize bridges to a standard image.Image through a lossless PNG
// round trip, for encoders libvips does not cover (BMP).
func (r *Raster) Rasterize() (image.Image, error) {
	ep := govips.NewPngExportParams()
	ep.Compression = 0
	buf, _, err := r.ref.ExportPng(ep)
	if err != nil {
		return nil, err
	}
	return png.Decode(utils.BytesReader(buf))
}

// ─── registration ─────────────────────────────────────────────────────────────

// Register binds the backend over the pure-Go defaults: HEIF decode plus
// JPEG/PNG/WEBP both ways. BMP stays with the pure-Go adapters; libvips
// has no BMP saver.
func Register(reg core.Registry, b *Backend) {
	for _, f := range []core.Format{core.FormatHEIF, core.FormatJPEG, core.FormatPNG, core.FormatWebP} {
		reg.RegisterDecoder(f, b)
	}
	reg.RegisterEncoder(core.FormatJPEG, &JpegEncoder{b: b})
	reg.RegisterEncoder(core.FormatPNG, &PngEncoder{b: b})
	reg.RegisterEncoder(core.FormatWebP, &WebpEncoder{b: b})
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func vipsFormatToCore(f govips.ImageType) core.Format {
	switch f {
	case govips.ImageTypeJPEG:
		return core.FormatJPEG
	case govips.ImageTypePNG:
		return core.FormatPNG
	case govips.ImageTypeWEBP:
		return core.FormatWebP
	case govips.ImageTypeHEIF:
		return core.FormatHEIF
	case govips.ImageTypeBMP:
		return core.FormatBMP
	default:
		return core.FormatUnknown
	}
}

func vipsInterpretationToColorSpace(i govips.Interpretation) core.ColorSpace {
	switch i {
	case govips.InterpretationSRGB, govips.InterpretationRGB16:
		return core.ColorSpaceRGB
	case govips.InterpretationBW:
		return core.ColorSpaceGray
	case govips.InterpretationCMYK:
		return core.ColorSpaceCMYK
	default:
		return core.ColorSpaceRGB
	}
}

// compile-time interface checks
var _ core.Decoder = (*Backend)(nil)
var _ core.Encoder = (*JpegEncoder)(nil)
var _ core.Encoder = (*PngEncoder)(nil)
var _ core.Encoder = (*WebpEncoder)(nil)
var _ core.Rasterizer = (*Raster)(nil)
