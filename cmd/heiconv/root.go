package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"heiconv"
	"heiconv/config"
	"heiconv/core"
	"heiconv/progress"
	"heiconv/scan"
	"heiconv/tui"
)

var (
	flagInput     string
	flagOutput    string
	flagFormat    string
	flagQuality   int
	flagWorkers   int
	flagMaxEdge   int
	flagStripMeta bool
	flagQuiet     bool
	flagLogLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "heiconv",
	Short: "heiconv 🖼 - convert HEIC/HEIF photos to PNG, JPEG, WEBP, or BMP",
	Long: "heiconv 🖼 converts every HEIC/HEIF photo in a folder with a bounded\n" +
		"worker pool. Already-started conversions finish on ctrl+c; nothing is\n" +
		"left half-written.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Default()
		cfg.InputDir = flagInput
		cfg.OutputDir = flagOutput
		cfg.Format = flagFormat
		cfg.Quality = flagQuality
		cfg.Workers = flagWorkers
		cfg.MaxEdge = flagMaxEdge
		cfg.StripMetadata = flagStripMeta
		cfg.LogLevel = flagLogLevel
		if cfg.Workers <= 0 {
			cfg.Workers = config.DefaultWorkers()
		}

		conv, err := heiconv.New(cfg)
		if err != nil {
			return err
		}
		conv.EnableVips()
		defer conv.Close()

		target, err := core.ParseFormat(cfg.Format)
		if err != nil {
			return err
		}

		sources, err := scan.Sources(cfg.InputDir)
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			fmt.Fprintf(os.Stdout, "No HEIC/HEIF files in %s, nothing to do.\n", cfg.InputDir)
			return nil
		}
		if err := scan.EnsureDir(cfg.OutputDir); err != nil {
			return err
		}
		reqs := scan.BuildRequests(sources, cfg.OutputDir, target, cfg.Quality)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		metrics := progress.NewMetrics()
		msink := progress.NewMetricsSink(metrics)

		var res *core.BatchResult
		if flagQuiet {
			logger := progress.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel(cfg.LogLevel),
			})))
			conv.SetLogger(logger)
			res, err = conv.Run(ctx, reqs, progress.NewMulti(progress.NewLogSink(logger), msink))
		} else {
			csink := progress.NewChannelSink(64)
			model := tui.NewModel(csink.Updates(), cancel)
			program := tea.NewProgram(model)

			uiDone := make(chan struct{})
			go func() {
				_, _ = program.Run()
				close(uiDone)
			}()

			res, err = conv.Run(ctx, reqs, progress.NewMulti(csink, msink))
			csink.Close()
			<-uiDone
		}
		if err != nil {
			return err
		}

		printResult(res, metrics.Snapshot())
		if res.Snapshot.Failed > 0 {
			return fmt.Errorf("%d of %d conversions failed", res.Snapshot.Failed, res.Snapshot.Total)
		}
		return nil
	},
}

func printResult(res *core.BatchResult, m progress.MetricsSnapshot) {
	rows := []tui.SummaryRow{
		{Label: "Converted", Value: fmt.Sprintf("%d/%d", res.Snapshot.Succeeded, res.Snapshot.Total)},
		{Label: "Failed", Value: fmt.Sprintf("%d", res.Snapshot.Failed)},
		{Label: "Output bytes", Value: fmt.Sprintf("%d", m.TotalOutputB)},
		{Label: "Wall time", Value: res.Wall.Round(time.Millisecond).String()},
	}
	fmt.Fprintln(os.Stdout, tui.RenderSummary(rows))

	if res.Cancelled {
		fmt.Fprintf(os.Stdout, "Cancelled: %d of %d files were not attempted.\n",
			res.Snapshot.Total-res.Snapshot.Completed, res.Snapshot.Total)
	}
	for _, f := range res.Failures {
		fmt.Fprintf(os.Stderr, "failed [%s] %s: %s\n", f.Kind, f.Source, f.Reason)
	}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&flagInput, "input", "i", "input", "folder scanned for .heic/.heif files")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "output", "destination folder, created if missing")
	rootCmd.Flags().StringVarP(&flagFormat, "format", "f", "png", "target format: png, jpeg, webp, or bmp")
	rootCmd.Flags().IntVarP(&flagQuality, "quality", "q", 85, "encode quality 1-100 for lossy targets")
	rootCmd.Flags().IntVarP(&flagWorkers, "workers", "w", 0, "worker pool size; 0 = CPU count minus one")
	rootCmd.Flags().IntVar(&flagMaxEdge, "max-edge", 0, "cap the longer output edge in pixels; 0 keeps dimensions")
	rootCmd.Flags().BoolVar(&flagStripMeta, "strip-metadata", false, "drop EXIF/ICC metadata from outputs")
	rootCmd.Flags().BoolVar(&flagQuiet, "quiet", false, "log lines instead of the live view")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level with --quiet: debug, info, warn, error")
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
}
