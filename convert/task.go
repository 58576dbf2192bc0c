// Package convert implements the per-file conversion task: read, decode,
// normalize, encode, write, with every failure captured as outcome data.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"heiconv/core"
	apperrors "heiconv/errors"
	"heiconv/utils"
)

// Options tunes the stages shared by every request in a batch.
type Options struct {
	// MaxEdge caps the longer output dimension; 0 keeps dimensions.
	MaxEdge int
	// StripMetadata drops EXIF/ICC on export where the encoder carries any.
	StripMetadata bool
	// MaxSourceBytes rejects larger sources as unreadable; 0 disables.
	MaxSourceBytes int64
	// ChunkSize for the read stage; 0 uses the 32 KiB default.
	ChunkSize int
}

// Runner executes conversion requests against a codec registry and a
// destination writer. Safe for concurrent use across workers.
type Runner struct {
	reg   core.Registry
	store core.Writer
	opts  Options
}

// New returns a Runner over the given registry and writer.
func New(reg core.Registry, store core.Writer, opts Options) *Runner {
	return &Runner{reg: reg, store: store, opts: opts}
}

// Convert runs one request to completion and reports the result as data.
// It never panics or propagates an error: every failure, including a panic
// out of a codec, becomes a Failure outcome with a kind from the fixed
// taxonomy. On success exactly one file exists at the destination; on
// failure none, the staged temp file included.
func (r *Runner) Convert(ctx context.Context, req core.ConversionRequest) (out core.ConversionOutcome) {
	start := time.Now()
	timings := make(map[string]time.Duration, 5)
	out = core.ConversionOutcome{
		Request:      req,
		Status:       core.StatusFailure,
		StageTimings: timings,
	}

	stage := "read"
	defer func() {
		if p := recover(); p != nil {
			out.Status = core.StatusFailure
			out.OutputSize = 0
			out.Err = apperrors.New(stageKind(stage), "convert."+stage, fmt.Errorf("panic: %v", p))
		}
		out.Elapsed = time.Since(start)
	}()

	// read
	t := time.Now()
	raw, err := r.readSource(ctx, req.Source)
	timings[stage] = time.Since(t)
	if err != nil {
		out.Err = err
		return out
	}

	// decode
	stage = "decode"
	t = time.Now()
	img, err := r.decode(ctx, raw)
	timings[stage] = time.Since(t)
	if err != nil {
		out.Err = err
		return out
	}
	if c, ok := img.Image.(interface{ Close() }); ok {
		defer c.Close()
	}

	// normalize
	stage = "normalize"
	t = time.Now()
	img, encOpts := r.normalize(img, req.Format)
	timings[stage] = time.Since(t)

	// encode
	stage = "encode"
	t = time.Now()
	enc, ok := r.reg.EncoderFor(req.Format)
	if !ok {
		timings[stage] = time.Since(t)
		out.Err = apperrors.New(apperrors.KindUnsupportedTargetFormat, "convert.encode",
			fmt.Errorf("%w: %s", apperrors.ErrNoEncoder, req.Format))
		return out
	}
	encOpts.Quality = req.Quality
	encOpts.StripMetadata = r.opts.StripMetadata
	data, err := enc.Encode(ctx, img, encOpts)
	if err != nil && errors.Is(err, apperrors.ErrUnsupportedImage) {
		data, err = r.encodeRasterized(ctx, enc, img, encOpts, req.Format)
	}
	timings[stage] = time.Since(t)
	if err != nil {
		out.Err = ensureKind(err, apperrors.KindEncodeFailed, "convert.encode")
		return out
	}

	// write
	stage = "write"
	t = time.Now()
	n, err := r.store.Put(ctx, req.Destination, utils.BytesReader(data))
	timings[stage] = time.Since(t)
	if err != nil {
		out.Err = ensureKind(err, apperrors.KindDestinationUnwritable, "convert.write")
		return out
	}

	out.Status = core.StatusSuccess
	out.OutputSize = n
	return out
}

// readSource loads the file through a pooled buffer, bounded by the
// configured size guard.
func (r *Runner) readSource(ctx context.Context, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindSourceUnreadable, "convert.read.open", err)
	}
	defer f.Close()

	var src io.Reader = f
	if r.opts.MaxSourceBytes > 0 {
		// Max+1 so a source of exactly the limit still reads; one byte
		// past it trips the guard.
		src = &utils.LimitedReader{R: f, Max: r.opts.MaxSourceBytes + 1}
	}
	buf, err := utils.DrainReader(ctx, src, r.opts.ChunkSize)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = fmt.Errorf("%w (limit %d bytes)", apperrors.ErrSourceTooLarge, r.opts.MaxSourceBytes)
		}
		return nil, apperrors.Wrap(apperrors.KindSourceUnreadable, "convert.read", err)
	}
	raw := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)
	return raw, nil
}

// decode sniffs the real content format and routes to the registered
// decoder. The extension plays no part in decoder selection.
func (r *Runner) decode(ctx context.Context, raw []byte) (*core.ImageData, error) {
	format := core.Format(utils.DetectFormat(raw))
	if format == core.FormatUnknown {
		return nil, apperrors.New(apperrors.KindSourceUnreadable, "convert.decode", apperrors.ErrUnknownFormat)
	}
	dec, ok := r.reg.DecoderFor(format)
	if !ok {
		return nil, apperrors.New(apperrors.KindSourceUnreadable, "convert.decode",
			fmt.Errorf("%w: %s", apperrors.ErrNoDecoder, format))
	}
	img, err := dec.Decode(ctx, utils.BytesReader(raw))
	if err != nil {
		return nil, ensureKind(err, apperrors.KindDecodeFailed, "convert.decode")
	}
	img.OriginalSize = int64(len(raw))
	img.Meta.SizeBytes = int64(len(raw))
	return img, nil
}

// encodeRasterized retries an encode that rejected a backend-native raster
// by bridging it to a standard image first. Normalization that would have
// happened in-family (downscale, flatten) runs on the bridged image.
func (r *Runner) encodeRasterized(ctx context.Context, enc core.Encoder, img *core.ImageData, opts core.EncodeOptions, target core.Format) ([]byte, error) {
	rz, ok := img.Image.(core.Rasterizer)
	if !ok {
		return nil, apperrors.New(apperrors.KindEncodeFailed, "convert.encode", apperrors.ErrUnsupportedImage)
	}
	std, err := rz.Rasterize()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindEncodeFailed, "convert.rasterize", err)
	}
	bridged := *img
	bridged.Image = std
	bridged.Meta.Orientation = 0 // backend-native decode already rotated
	norm, normOpts := r.normalize(&bridged, target)
	normOpts.Quality = opts.Quality
	normOpts.StripMetadata = opts.StripMetadata
	return enc.Encode(ctx, norm, normOpts)
}

// stageKind maps the stage a panic escaped from onto the failure taxonomy.
func stageKind(stage string) apperrors.Kind {
	switch stage {
	case "read":
		return apperrors.KindSourceUnreadable
	case "decode", "normalize":
		return apperrors.KindDecodeFailed
	case "write":
		return apperrors.KindDestinationUnwritable
	default:
		return apperrors.KindEncodeFailed
	}
}

// ensureKind leaves classified errors alone and folds everything else
// under the fallback kind.
func ensureKind(err error, kind apperrors.Kind, op string) error {
	if _, ok := apperrors.KindOf(err); ok {
		return err
	}
	return apperrors.Wrap(kind, op, err)
}
