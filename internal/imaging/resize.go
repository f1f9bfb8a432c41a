package imaging

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// ResizeMode selects how an image is fitted to the output geometry.
type ResizeMode string

const (
	// ResizeCover fills the target exactly, cropping overflow around the centre.
	ResizeCover ResizeMode = "cover"

	// ResizeSquare fits the whole image inside the target and pads the rest
	// with the background colour.
	ResizeSquare ResizeMode = "square"

	// ResizeOriginal keeps the image geometry unchanged.
	ResizeOriginal ResizeMode = "original"
)

// Canonical output edge length used by DefaultResizePolicy.
const CanonicalSize = 800

// ResizePolicy describes the output geometry of a normalized image.
type ResizePolicy struct {
	Mode   ResizeMode `json:"mode" mapstructure:"mode"`
	Width  int        `json:"width" mapstructure:"width"`
	Height int        `json:"height" mapstructure:"height"`
}

// DefaultResizePolicy returns the fixed 800x800 cover fit.
func DefaultResizePolicy() ResizePolicy {
	return ResizePolicy{Mode: ResizeCover, Width: CanonicalSize, Height: CanonicalSize}
}

// ParseResizeMode maps a caller-facing output format name to a ResizeMode.
// Matching is case-insensitive; the empty string selects ResizeCover.
func ParseResizeMode(s string) (ResizeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cover":
		return ResizeCover, nil
	case "square":
		return ResizeSquare, nil
	case "original":
		return ResizeOriginal, nil
	default:
		return "", fmt.Errorf("unknown output format: %s", s)
	}
}

// Validate checks the policy for a known mode and usable target dimensions.
func (p ResizePolicy) Validate() error {
	switch p.Mode {
	case ResizeOriginal:
		return nil
	case ResizeCover, ResizeSquare:
		if p.Width <= 0 || p.Height <= 0 {
			return fmt.Errorf("invalid %s target %dx%d", p.Mode, p.Width, p.Height)
		}
		return nil
	default:
		return fmt.Errorf("unknown resize mode: %q", p.Mode)
	}
}

// Apply resizes img according to the policy.
//
// Cover never refuses to upscale: a source smaller than the target is
// enlarged to fill it. Square pads onto a canvas of bg; when bg is not
// opaque the canvas is fully transparent.
func (p ResizePolicy) Apply(img image.Image, bg Background) (*image.NRGBA, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	switch p.Mode {
	case ResizeCover:
		return imaging.Fill(img, p.Width, p.Height, imaging.Center, imaging.Lanczos), nil
	case ResizeSquare:
		fitted := imaging.Fit(img, p.Width, p.Height, imaging.Lanczos)
		if b := img.Bounds(); b.Dx() < p.Width && b.Dy() < p.Height {
			// Fit only shrinks; scale small sources up so they touch the target.
			w, h := scaledDims(b.Dx(), b.Dy(), p.Width, p.Height)
			fitted = imaging.Resize(img, w, h, imaging.Lanczos)
		}
		fill := bg.NRGBA()
		if !bg.Opaque() {
			fill.A = 0
		}
		canvas := imaging.New(p.Width, p.Height, fill)
		return imaging.PasteCenter(canvas, fitted), nil
	default:
		return imaging.Clone(img), nil
	}
}

// scaledDims returns resize arguments that scale (w,h) up to fit (tw,th),
// preserving the aspect ratio.
func scaledDims(w, h, tw, th int) (int, int) {
	if w*th >= h*tw {
		return tw, 0
	}
	return 0, th
}

// EncodePNG encodes img as PNG, the lossless output codec of the pipeline.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
