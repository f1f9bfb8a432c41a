package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/ironsheep/image-normalizer/internal/config"
)

// resetFlags restores every subcommand flag to its default. Flag values and
// Changed bits otherwise survive between Execute calls.
func resetFlags() {
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
}

// runCLI executes the root command with args and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writePNG(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(stdout, "image-normalizer "+Version) {
		t.Errorf("unexpected output: %q", stdout)
	}
}

func TestNormalizeCommand(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "normalized")
	writePNG(t, filepath.Join(in, "red.png"), 120, 90, color.NRGBA{200, 0, 0, 255})
	writePNG(t, filepath.Join(in, "green.png"), 60, 60, color.NRGBA{0, 180, 0, 255})

	stdout, _, err := runCLI(t, "normalize", "--quiet", "-o", out, "--format", "original", in)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if !strings.Contains(stdout, "Normalized") || !strings.Contains(stdout, "2") {
		t.Errorf("unexpected summary: %q", stdout)
	}

	f, err := os.Open(filepath.Join(out, "red.png"))
	if err != nil {
		t.Fatalf("missing output: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if cfg.Width != 120 || cfg.Height != 90 {
		t.Errorf("size: got %dx%d, want 120x90", cfg.Width, cfg.Height)
	}
}

func TestNormalizeCommand_PartialFailure(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writePNG(t, filepath.Join(in, "good.png"), 40, 40, color.NRGBA{0, 0, 255, 255})
	if err := os.WriteFile(filepath.Join(in, "bad.png"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, stderr, err := runCLI(t, "normalize", "-q", "-o", out, "--batch-size", "1", in)
	if err == nil || !strings.Contains(err.Error(), "1 of 2 images failed") {
		t.Fatalf("expected partial failure, got %v", err)
	}
	if !strings.Contains(stderr, "bad.png: failed to decode image") {
		t.Errorf("stderr should list the failure: %q", stderr)
	}
	if _, err := os.Stat(filepath.Join(out, "good.png")); err != nil {
		t.Errorf("good image not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "bad.png")); err == nil {
		t.Error("failed image should not be written without --pass-through")
	}
}

func TestNormalizeCommand_InvalidFlags(t *testing.T) {
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "a.png"), 10, 10, color.NRGBA{0, 0, 0, 255})

	tests := []struct {
		name string
		args []string
	}{
		{"format", []string{"--format", "stretch"}},
		{"threshold", []string{"--trim-threshold", "999"}},
		{"background", []string{"--background", "#nothex"}},
		{"minio unconfigured", []string{"--minio"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"normalize", "-q", "-o", t.TempDir()}, tt.args...)
			args = append(args, in)
			if _, _, err := runCLI(t, args...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNormalizeCommand_NoImages(t *testing.T) {
	_, _, err := runCLI(t, "normalize", "-q", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "no images found") {
		t.Errorf("expected no images error, got %v", err)
	}
}

func TestApplyNormalizeFlags_Transparent(t *testing.T) {
	cfg, err := config.InitConfig("")
	if err != nil {
		t.Fatal(err)
	}
	resetFlags()
	t.Cleanup(resetFlags)

	if err := normalizeCmd.Flags().Set("background", "#102030"); err != nil {
		t.Fatal(err)
	}
	if err := normalizeCmd.Flags().Set("transparent", "true"); err != nil {
		t.Fatal(err)
	}
	if err := applyNormalizeFlags(normalizeCmd, cfg); err != nil {
		t.Fatalf("applyNormalizeFlags failed: %v", err)
	}
	bg := cfg.Normalize.Background
	if bg.R != 0x10 || bg.G != 0x20 || bg.B != 0x30 || bg.Alpha != 0 {
		t.Errorf("background: got %+v", bg)
	}
}
