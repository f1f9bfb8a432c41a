package normalize

import (
	"log"

	"github.com/ironsheep/image-normalizer/internal/detection"
	imgops "github.com/ironsheep/image-normalizer/internal/imaging"
)

// Output is a normalized image together with a report of what was done to it.
type Output struct {
	// Data is the PNG-encoded result.
	Data []byte `json:"-"`

	// Width and Height are the output dimensions.
	Width  int `json:"width"`
	Height int `json:"height"`

	// Source describes the decoded input.
	Source imgops.ImageInfo `json:"source"`

	// HasAlpha reports whether the output still carries transparency.
	HasAlpha bool `json:"has_alpha"`

	// Flattened reports whether transparency was composited onto the background.
	Flattened bool `json:"flattened"`

	// Border is the classification that decided the trim.
	Border detection.Decision `json:"border"`
}

// Normalizer runs the single-image pipeline: decode, border removal,
// transparency flattening, resize, encode.
//
// A Normalizer holds no per-image state and is safe for concurrent use.
type Normalizer struct {
	// Classifier decides border trimming. Must not be nil.
	Classifier *detection.Classifier

	// Debug enables logging of every border decision.
	Debug bool
}

// New creates a Normalizer using the default classification policy.
func New() *Normalizer {
	return &Normalizer{
		Classifier: detection.NewClassifier(detection.DefaultPolicy()),
	}
}

// Normalize processes one encoded image and returns the PNG output bytes.
//
// Errors are *DecodeError when raw is not a supported image and
// *ProcessingError for any later failure.
func (n *Normalizer) Normalize(raw []byte, filename string, opts Options) ([]byte, error) {
	out, err := n.NormalizeImage(raw, filename, opts)
	if err != nil {
		return nil, err
	}
	return out.Data, nil
}

// NormalizeImage is Normalize with a full report of the steps taken.
//
// # Pipeline
//
//  1. Decode into a private working copy and read metadata.
//  2. If opts.DetectBorders: classify the border and apply the chosen trim.
//  3. If the image has transparency, opts.DetectBorders is set and
//     opts.Background.Alpha == 1: flatten onto the background colour.
//  4. Resize according to opts.Resize.
//  5. Encode as PNG.
func (n *Normalizer) NormalizeImage(raw []byte, filename string, opts Options) (*Output, error) {
	if err := opts.Validate(); err != nil {
		return nil, &ProcessingError{Filename: filename, Stage: "options", Err: err}
	}

	decoded, err := imgops.Decode(raw)
	if err != nil {
		return nil, &DecodeError{Filename: filename, Err: err}
	}

	out := &Output{Source: decoded.Info}
	img := decoded.Image

	if opts.DetectBorders {
		out.Border = n.Classifier.Classify(img, opts.TrimThreshold)
		img = n.Classifier.Apply(img, out.Border)

		if n.Debug {
			log.Printf("%s: border %s (light edges %d/4, threshold %.0f, reduction %.2f%%) %dx%d -> %dx%d",
				filename, out.Border.Method, out.Border.LightEdges, out.Border.Threshold,
				out.Border.Reduction*100, decoded.Info.Width, decoded.Info.Height,
				img.Bounds().Dx(), img.Bounds().Dy())
		}
		if out.Border.Error != "" {
			log.Printf("%s: uniform border trim skipped: %s", filename, out.Border.Error)
		}
	} else {
		out.Border = detection.Decision{Method: detection.MethodDisabled, Bounds: img.Bounds()}
	}

	if opts.flattens() && imgops.HasAlpha(img) {
		img = imgops.Flatten(img, opts.Background)
		out.Flattened = true
	}

	resized, err := opts.Resize.Apply(img, opts.Background)
	if err != nil {
		return nil, &ProcessingError{Filename: filename, Stage: "resize", Err: err}
	}

	data, err := imgops.EncodePNG(resized)
	if err != nil {
		return nil, &ProcessingError{Filename: filename, Stage: "encode", Err: err}
	}

	out.Data = data
	out.Width = resized.Bounds().Dx()
	out.Height = resized.Bounds().Dy()
	out.HasAlpha = !resized.Opaque()
	return out, nil
}
