// Package heiconv converts HEIC/HEIF photo libraries to common raster
// formats with a bounded worker pool and per-file outcome reporting.
package heiconv

import (
	"context"

	"heiconv/adapters/decoder"
	"heiconv/adapters/encoder"
	"heiconv/adapters/storage"
	"heiconv/adapters/vips"
	"heiconv/config"
	"heiconv/convert"
	"heiconv/core"
)

// Re-export Format constants for convenience.
const (
	PNG  = core.FormatPNG
	JPEG = core.FormatJPEG
	WebP = core.FormatWebP
	BMP  = core.FormatBMP
)

// DefaultConfig returns a sensible production configuration.
func DefaultConfig() config.Config { return config.Default() }

// Converter is the primary entry point.
type Converter struct {
	cfg     config.Config
	reg     *core.DefaultRegistry
	runner  *convert.Runner
	backend *vips.Backend
	logger  core.Logger
}

// New creates a fully wired Converter with the pure-Go codecs registered:
// JPEG, PNG, and BMP targets, plus JPEG/PNG/WEBP/BMP sources. HEIC/HEIF
// sources and the WEBP target need the libvips backend; call EnableVips
// to bind it.
func New(cfg config.Config) (*Converter, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	reg := core.NewRegistry()
	reg.RegisterDecoder(core.FormatJPEG, decoder.NewJPEG())
	reg.RegisterDecoder(core.FormatPNG, decoder.NewPNG())
	reg.RegisterDecoder(core.FormatWebP, decoder.NewWebP())
	reg.RegisterDecoder(core.FormatBMP, decoder.NewBMP())
	reg.RegisterEncoder(core.FormatJPEG, encoder.NewJPEG(cfg.Quality))
	reg.RegisterEncoder(core.FormatPNG, encoder.NewPNG())
	reg.RegisterEncoder(core.FormatBMP, encoder.NewBMP())

	c := &Converter{cfg: cfg, reg: reg}
	c.runner = convert.New(reg, storage.NewLocal(0), convert.Options{
		MaxEdge:        cfg.MaxEdge,
		StripMetadata:  cfg.StripMetadata,
		MaxSourceBytes: cfg.MaxSourceBytes,
		ChunkSize:      cfg.ChunkSize,
	})
	return c, nil
}

// EnableVips starts the libvips backend and rebinds HEIF, JPEG, PNG, and
// WEBP to it. Idempotent.
func (c *Converter) EnableVips() {
	if c.backend != nil {
		return
	}
	c.backend = vips.NewBackend(vips.BackendConfig{
		DefaultQuality:   c.cfg.Quality,
		ConcurrencyLevel: c.cfg.Vips.ConcurrencyLevel,
		MaxCacheMem:      c.cfg.Vips.MaxCacheMem,
		ReportLeaks:      c.cfg.Vips.ReportLeaks,
	})
	vips.Register(c.reg, c.backend)
}

// Close shuts down the libvips backend when one was started.
func (c *Converter) Close() {
	if c.backend != nil {
		c.backend.Shutdown()
		c.backend = nil
	}
}

// SetLogger attaches a structured logger for batch lifecycle events.
func (c *Converter) SetLogger(l core.Logger) { c.logger = l }

// RegisterDecoder registers a custom decoder for the given format.
func (c *Converter) RegisterDecoder(f core.Format, d core.Decoder) { c.reg.RegisterDecoder(f, d) }

// RegisterEncoder registers a custom encoder for the given format.
func (c *Converter) RegisterEncoder(f core.Format, e core.Encoder) { c.reg.RegisterEncoder(f, e) }

// Registry exposes the codec registry for advanced wiring.
func (c *Converter) Registry() core.Registry { return c.reg }

// Targets lists the formats the Converter can currently encode to.
func (c *Converter) Targets() []core.Format { return c.reg.EncodableTargets() }

// Convert runs a single conversion synchronously and reports the result
// as data; it never returns an error.
func (c *Converter) Convert(ctx context.Context, req core.ConversionRequest) core.ConversionOutcome {
	return c.runner.Convert(ctx, req)
}

// Run converts every request with a fixed worker pool, reporting each
// completion to sink. Cancelling ctx stops new work; in-flight
// conversions finish and are counted.
func (c *Converter) Run(ctx context.Context, reqs []core.ConversionRequest, sink core.ProgressSink) (*core.BatchResult, error) {
	return core.RunBatch(ctx, reqs, core.BatchOptions{
		WorkerCount: c.cfg.Workers,
		Convert:     c.runner.Convert,
		Sink:        sink,
		Logger:      c.logger,
	})
}
