package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ironsheep/image-normalizer/internal/batch"
	"github.com/ironsheep/image-normalizer/internal/config"
	imgops "github.com/ironsheep/image-normalizer/internal/imaging"
	"github.com/ironsheep/image-normalizer/internal/normalize"
	"github.com/ironsheep/image-normalizer/internal/storage"
	"github.com/ironsheep/image-normalizer/internal/tui"
)

var (
	normOutputDir     string
	normBatchSize     int
	normNoBorders     bool
	normTrimThreshold int
	normFormat        string
	normWidth         int
	normHeight        int
	normBackground    string
	normTransparent   bool
	normMinio         bool
	normQuiet         bool
	normPassThrough   bool
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [flags] <files or dirs...>",
	Short: "Trim borders, flatten and resize images",
	Long: `Normalize every image given on the command line. Directories are
expanded to the PNG, JPEG and GIF files below them.

Results are written as <name>.png to --output, or uploaded to the configured
MinIO bucket with --minio. The command exits non-zero if any image failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := applyNormalizeFlags(cmd, cfg); err != nil {
			return err
		}
		opts, err := cfg.Options()
		if err != nil {
			return err
		}

		paths, err := batch.ExpandPaths(args)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return errors.New("no images found")
		}

		sink, dest, err := openSink(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		results, runErr := runBatch(ctx, stop, cfg, opts, batch.LoadFiles(paths))
		if results == nil {
			return runErr
		}

		storage.WriteResults(context.WithoutCancel(ctx), sink, results)
		summary, err := batch.Summarize(results)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, tui.RenderSummary([]tui.SummaryRow{
			{Label: "Images", Value: fmt.Sprintf("%d", summary.Total)},
			{Label: "Normalized", Value: fmt.Sprintf("%d", summary.Success)},
			{Label: "Failed", Value: fmt.Sprintf("%d", summary.Failures)},
			{Label: "Output", Value: dest},
		}))
		if msg := tui.RenderErrors(summary.Errors); msg != "" {
			fmt.Fprintln(cmd.ErrOrStderr(), msg)
		}

		if runErr != nil {
			return runErr
		}
		if summary.Failures > 0 {
			return fmt.Errorf("%d of %d images failed", summary.Failures, summary.Total)
		}
		return nil
	},
}

// applyNormalizeFlags overrides cfg with every flag set on the command line.
func applyNormalizeFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output.Dir = normOutputDir
	}
	if flags.Changed("batch-size") {
		cfg.Batch.Size = normBatchSize
	}
	if flags.Changed("pass-through") {
		cfg.Batch.PassThroughOnFailure = normPassThrough
	}
	if flags.Changed("no-borders") {
		cfg.Normalize.DetectBorders = !normNoBorders
	}
	if flags.Changed("trim-threshold") {
		cfg.Normalize.TrimThreshold = normTrimThreshold
	}
	if flags.Changed("format") {
		cfg.Normalize.OutputFormat = normFormat
	}
	if flags.Changed("width") {
		cfg.Normalize.Width = normWidth
	}
	if flags.Changed("height") {
		cfg.Normalize.Height = normHeight
	}
	if flags.Changed("background") {
		bg, err := imgops.ParseBackground(normBackground)
		if err != nil {
			return err
		}
		bg.Alpha = cfg.Normalize.Background.Alpha
		cfg.Normalize.Background = bg
	}
	if normTransparent {
		cfg.Normalize.Background.Alpha = 0
	}
	return nil
}

// openSink returns the destination for results and a description of it.
func openSink(cfg *config.Config) (storage.Sink, string, error) {
	if normMinio {
		sink, err := storage.NewMinioSink(cfg.Minio)
		if err != nil {
			return nil, "", err
		}
		return sink, cfg.Minio.Bucket + "/" + sink.ObjectKey(""), nil
	}

	dest := cfg.Output.Dir
	if abs, err := filepath.Abs(dest); err == nil {
		dest = abs
	}
	return storage.NewDirSink(cfg.Output.Dir), dest, nil
}

// runBatch processes tasks with a live progress view unless --quiet is set.
// Quitting the view with ctrl+c cancels ctx via stop.
func runBatch(ctx context.Context, stop context.CancelFunc, cfg *config.Config, opts normalize.Options, tasks []batch.ImageTask) ([]batch.Result, error) {
	n := normalize.New()
	n.Debug = cfg.Debug()

	orch := batch.New(n, cfg.Batch.Size)
	orch.PassThroughOnFailure = cfg.Batch.PassThroughOnFailure
	orch.Debug = cfg.Debug()

	if normQuiet {
		results, _, err := orch.ProcessAll(ctx, tasks, opts)
		return results, err
	}

	size := cfg.Batch.Size
	if size < 1 {
		size = batch.DefaultBatchSize
	}
	// One snapshot per group; the buffer keeps OnProgress from blocking
	// once the view has exited.
	updates := make(chan batch.Progress, len(batch.Partition(len(tasks), size))+1)
	orch.OnProgress = func(p batch.Progress) { updates <- p }

	program := tea.NewProgram(tui.NewModel(updates, len(tasks)), tea.WithOutput(os.Stderr))
	uiDone := make(chan struct{})
	go func() {
		if _, err := program.Run(); err != nil {
			log.Printf("progress view: %v", err)
		}
		stop()
		close(uiDone)
	}()

	results, _, err := orch.ProcessAll(ctx, tasks, opts)
	close(updates)
	<-uiDone
	return results, err
}

func init() {
	f := normalizeCmd.Flags()
	f.StringVarP(&normOutputDir, "output", "o", "", "destination folder for normalized images (default from config: normalized)")
	f.IntVar(&normBatchSize, "batch-size", batch.DefaultBatchSize, "images processed concurrently")
	f.BoolVar(&normNoBorders, "no-borders", false, "skip border detection and transparency flattening")
	f.IntVar(&normTrimThreshold, "trim-threshold", normalize.DefaultTrimThreshold, "light-detection sensitivity (0-255)")
	f.StringVar(&normFormat, "format", "cover", "output geometry: cover, square or original")
	f.IntVar(&normWidth, "width", imgops.CanonicalSize, "target width in pixels")
	f.IntVar(&normHeight, "height", imgops.CanonicalSize, "target height in pixels")
	f.StringVar(&normBackground, "background", "#ffffff", "background colour for flattening and padding")
	f.BoolVar(&normTransparent, "transparent", false, "keep transparency instead of flattening")
	f.BoolVar(&normMinio, "minio", false, "upload results to the configured MinIO bucket")
	f.BoolVarP(&normQuiet, "quiet", "q", false, "disable the progress view")
	f.BoolVar(&normPassThrough, "pass-through", false, "write the original bytes of failed images unchanged")

	rootCmd.AddCommand(normalizeCmd)
}
