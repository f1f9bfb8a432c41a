package normalize

import (
	"fmt"

	imgops "github.com/ironsheep/image-normalizer/internal/imaging"
)

// DefaultTrimThreshold is the baseline light-detection sensitivity.
const DefaultTrimThreshold = 240

// Options configures the normalization of a single image.
//
// An Options value is read-only once handed to the pipeline and may be shared
// by every task of a batch.
type Options struct {
	// DetectBorders enables border classification and trimming. It also gates
	// transparency flattening.
	DetectBorders bool `json:"detect_borders" mapstructure:"detect_borders"`

	// TrimThreshold (0-255) is the baseline sensitivity from which the
	// uniform-border trim tolerance is derived.
	TrimThreshold int `json:"trim_threshold" mapstructure:"trim_threshold"`

	// Resize selects the output geometry.
	Resize imgops.ResizePolicy `json:"resize" mapstructure:"resize"`

	// Background is the flatten colour for transparent regions. Transparency
	// is only flattened when Background.Alpha is exactly 1.
	Background imgops.Background `json:"background" mapstructure:"background"`
}

// DefaultOptions returns border detection on, threshold 240, an 800x800 cover
// fit and an opaque white background.
func DefaultOptions() Options {
	return Options{
		DetectBorders: true,
		TrimThreshold: DefaultTrimThreshold,
		Resize:        imgops.DefaultResizePolicy(),
		Background:    imgops.White,
	}
}

// Validate reports the first invalid field of o.
func (o Options) Validate() error {
	if o.TrimThreshold < 0 || o.TrimThreshold > 255 {
		return fmt.Errorf("trim threshold %d outside 0-255", o.TrimThreshold)
	}
	if o.Background.Alpha < 0 || o.Background.Alpha > 1 {
		return fmt.Errorf("background alpha %v outside 0-1", o.Background.Alpha)
	}
	if err := o.Resize.Validate(); err != nil {
		return fmt.Errorf("invalid resize policy: %w", err)
	}
	return nil
}

// flattens reports whether transparency is composited onto the background.
func (o Options) flattens() bool {
	return o.DetectBorders && o.Background.Opaque()
}
