package config_test

import (
	"testing"

	"heiconv/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()

	if err := config.Validate(cfg); err != nil {
		t.Fatalf("default config does not validate: %v", err)
	}
	if cfg.Format != "png" {
		t.Errorf("Format = %q, want png", cfg.Format)
	}
	if cfg.Quality != 85 {
		t.Errorf("Quality = %d, want 85", cfg.Quality)
	}
	if cfg.Workers != 0 {
		t.Errorf("Workers = %d, want 0 (resolved at runtime)", cfg.Workers)
	}
	if cfg.MaxSourceBytes != 512<<20 {
		t.Errorf("MaxSourceBytes = %d, want 512 MiB", cfg.MaxSourceBytes)
	}
	if cfg.ChunkSize != 32*1024 {
		t.Errorf("ChunkSize = %d, want 32 KiB", cfg.ChunkSize)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"defaults", func(c *config.Config) {}, false},
		{"jpg alias", func(c *config.Config) { c.Format = "jpg" }, false},
		{"webp", func(c *config.Config) { c.Format = "webp" }, false},
		{"bmp", func(c *config.Config) { c.Format = "bmp" }, false},
		{"empty input dir", func(c *config.Config) { c.InputDir = "" }, true},
		{"empty output dir", func(c *config.Config) { c.OutputDir = "" }, true},
		{"unknown format", func(c *config.Config) { c.Format = "tiff" }, true},
		{"quality too low", func(c *config.Config) { c.Quality = 0 }, true},
		{"quality too high", func(c *config.Config) { c.Quality = 101 }, true},
		{"negative max edge", func(c *config.Config) { c.MaxEdge = -1 }, true},
		{"negative source limit", func(c *config.Config) { c.MaxSourceBytes = -1 }, true},
		{"zero chunk size", func(c *config.Config) { c.ChunkSize = 0 }, true},
		{"unknown log level", func(c *config.Config) { c.LogLevel = "trace" }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := config.Validate(cfg)
			if tc.wantErr && err == nil {
				t.Error("expected a validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestDefaultWorkers(t *testing.T) {
	if got := config.DefaultWorkers(); got < 1 {
		t.Errorf("DefaultWorkers = %d, want at least 1", got)
	}
}
