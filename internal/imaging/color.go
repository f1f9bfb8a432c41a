package imaging

import (
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/blend"
	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Background is the solid colour transparent regions are composited onto.
//
// Alpha is an opacity in [0,1]. Only a fully opaque background (Alpha == 1)
// flattens transparency; any other value asks for transparency to be kept.
type Background struct {
	R     uint8   `json:"r" mapstructure:"r"`         // Red component (0-255)
	G     uint8   `json:"g" mapstructure:"g"`         // Green component (0-255)
	B     uint8   `json:"b" mapstructure:"b"`         // Blue component (0-255)
	Alpha float64 `json:"alpha" mapstructure:"alpha"` // Opacity (0 = transparent, 1 = opaque)
}

// White is the default flatten colour.
var White = Background{R: 255, G: 255, B: 255, Alpha: 1}

// Opaque reports whether the background flattens transparency.
func (b Background) Opaque() bool {
	return b.Alpha == 1
}

// NRGBA returns the background as a straight-alpha colour.
func (b Background) NRGBA() color.NRGBA {
	a := b.Alpha
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	return color.NRGBA{R: b.R, G: b.G, B: b.B, A: uint8(a*255 + 0.5)}
}

// Hex returns the background colour as "#RRGGBB" (alpha excluded).
func (b Background) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", b.R, b.G, b.B)
}

// ParseBackground parses a hex colour ("#RGB" or "#RRGGBB") into an opaque
// Background.
func ParseBackground(hex string) (Background, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return Background{}, fmt.Errorf("invalid background colour %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return Background{R: r, G: g, B: b, Alpha: 1}, nil
}

// Flatten composites img onto a solid canvas of the background colour using
// source-over.
//
// The result has the same size as img and every pixel is fully opaque, so PNG
// encoding drops the alpha channel.
func Flatten(img image.Image, bg Background) *image.NRGBA {
	bounds := img.Bounds()
	fg := imaging.Clone(img)

	solid := bg.NRGBA()
	solid.A = 255
	canvas := imaging.New(bounds.Dx(), bounds.Dy(), solid)

	// blend.Normal composites straight-alpha values but reads them from an
	// *image.RGBA; a converted copy would be premultiplied and weighted by
	// alpha twice. Hand it the NRGBA bytes unconverted.
	out := imaging.Clone(blend.Normal(straightRGBA(canvas), straightRGBA(fg)))

	// Composition math runs in floating point; pin alpha so the result is
	// reported as opaque regardless of rounding.
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 255
	}
	return out
}

// straightRGBA views the pixels of img as an *image.RGBA without converting
// them to premultiplied alpha.
func straightRGBA(img *image.NRGBA) *image.RGBA {
	return &image.RGBA{Pix: img.Pix, Stride: img.Stride, Rect: img.Rect}
}
