package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/disintegration/imaging"
)

// ErrEmptyInput is returned by Decode when the input buffer has no bytes.
var ErrEmptyInput = errors.New("empty image buffer")

// ImageInfo contains metadata about a decoded image.
//
// This struct provides essential information about an image without requiring
// the caller to analyze the image data directly.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the codec name reported by the decoder: "png", "jpeg" or "gif".
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the image carries any non-opaque pixel.
	HasAlpha bool `json:"has_alpha"`

	// SizeBytes is the size of the encoded input in bytes.
	SizeBytes int `json:"size_bytes"`
}

// Decoded is a decoded working copy together with its metadata.
//
// Image is always an *image.NRGBA with its origin at (0,0), so callers may
// index Pix directly and mutate it without affecting the caller's buffer.
type Decoded struct {
	Image *image.NRGBA
	Info  ImageInfo
}

// Decode decodes an encoded image buffer into a private working copy.
//
// Parameters:
//   - data: Encoded image bytes. Supported formats are PNG, JPEG, and GIF.
//
// Returns:
//   - *Decoded: The working copy and its metadata.
//   - error: Non-nil if data is empty or is not a supported image.
//
// # Orientation
//
// EXIF orientation tags on JPEG input are applied during decode, so the
// returned pixels are in display orientation.
func Decode(data []byte) (*Decoded, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unrecognized image header: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("corrupt image data: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, fmt.Errorf("image has zero size (%dx%d)", bounds.Dx(), bounds.Dy())
	}

	colorDepth := "8-bit"
	switch img.(type) {
	case *image.RGBA64, *image.NRGBA64, *image.Gray16:
		colorDepth = "16-bit"
	}

	working := imaging.Clone(img)

	return &Decoded{
		Image: working,
		Info: ImageInfo{
			Width:      bounds.Dx(),
			Height:     bounds.Dy(),
			Format:     format,
			ColorDepth: colorDepth,
			HasAlpha:   !working.Opaque(),
			SizeBytes:  len(data),
		},
	}, nil
}

// HasAlpha reports whether img contains at least one pixel that is not fully opaque.
func HasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return !imaging.Clone(img).Opaque()
}
