package config

import (
	"errors"
	"fmt"
	"runtime"
)

// Config is the top-level configuration struct.  All fields have safe
// defaults so callers can start with Default() and override only what they
// need. There is no config-file layer; flags bind straight onto this.
type Config struct {
	// Directory pair the batch is assembled from.
	InputDir  string
	OutputDir string

	// Conversion target.
	Format  string // "png", "jpeg", "webp", "bmp"
	Quality int    // 1-100; used by lossy targets only

	// Worker pool size for the batch. 0 resolves to max(1, NumCPU-1).
	Workers int

	// Normalization.
	MaxEdge       int  // cap on the longer output edge; 0 = keep dimensions
	StripMetadata bool // drop EXIF/ICC on export where the encoder carries any

	// Source guard. 0 = no limit.
	MaxSourceBytes int64

	// Streaming chunk size for the read stage; default 32 KiB.
	ChunkSize int

	// Logging.
	LogLevel string // "debug", "info", "warn", "error"

	// Vips backend tuning.
	Vips VipsConfig
}

// VipsConfig tunes the libvips backend when it is enabled.
type VipsConfig struct {
	// ConcurrencyLevel caps libvips' internal thread pool per operation.
	// 0 keeps the library default.
	ConcurrencyLevel int
	// MaxCacheMem bounds the libvips operation cache, in bytes. 0 keeps
	// the library default.
	MaxCacheMem int
	// ReportLeaks makes libvips print allocation diagnostics at shutdown.
	ReportLeaks bool
}

// DefaultWorkers returns the worker count used when none is configured:
// one core is left free for the caller's own loop, never below one worker.
func DefaultWorkers() int {
	n := runtime.NumCPU() - 1
	if n < 1 {
		n = 1
	}
	return n
}

// Default returns a Config populated with sensible defaults.
func Default() Config {
	return Config{
		InputDir:       "input",
		OutputDir:      "output",
		Format:         "png",
		Quality:        85,
		Workers:        0, // resolved at runtime via DefaultWorkers
		MaxSourceBytes: 512 << 20,
		ChunkSize:      32 * 1024,
		LogLevel:       "info",
	}
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.InputDir == "" {
		return errors.New("config: InputDir must not be empty")
	}
	if c.OutputDir == "" {
		return errors.New("config: OutputDir must not be empty")
	}
	switch c.Format {
	case "png", "jpeg", "jpg", "webp", "bmp":
	default:
		return fmt.Errorf("config: unknown target format %q", c.Format)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return errors.New("config: Quality must be between 1 and 100")
	}
	if c.MaxEdge < 0 {
		return errors.New("config: MaxEdge must not be negative")
	}
	if c.MaxSourceBytes < 0 {
		return errors.New("config: MaxSourceBytes must not be negative")
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: ChunkSize must be positive")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return nil
}
