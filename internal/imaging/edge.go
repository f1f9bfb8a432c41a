package imaging

import (
	"image"
	"math"
)

// Side identifies one of the four borders of an image.
type Side string

// The four sides, in the order EdgeStrips reports them.
const (
	SideTop    Side = "top"
	SideBottom Side = "bottom"
	SideLeft   Side = "left"
	SideRight  Side = "right"
)

// Sides lists every side in reporting order.
var Sides = []Side{SideTop, SideBottom, SideLeft, SideRight}

// EdgeStats summarizes the colour of a thin strip along one side of an image.
//
// Channel means are computed on straight (non-premultiplied) 8-bit values, so
// a transparent pixel contributes its stored colour, usually black.
type EdgeStats struct {
	// Side is the border this strip was taken from.
	Side Side `json:"side"`

	// MeanR, MeanG and MeanB are the per-channel mean intensities (0-255).
	MeanR float64 `json:"mean_r"`
	MeanG float64 `json:"mean_g"`
	MeanB float64 `json:"mean_b"`

	// Brightness is the average of the three channel means.
	Brightness float64 `json:"brightness"`

	// ColorVariance is the largest deviation of any channel mean from Brightness.
	// Near-grey strips have a small variance; saturated strips a large one.
	ColorVariance float64 `json:"color_variance"`
}

// StripRect returns the rectangle of the strip of the given width along side.
//
// The strip spans the full length of its side. A width larger than the image
// dimension is clamped so the strip never leaves the image.
func StripRect(bounds image.Rectangle, side Side, width int) image.Rectangle {
	w := width
	if w < 1 {
		w = 1
	}
	switch side {
	case SideTop:
		return image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Min.Y+min(w, bounds.Dy()))
	case SideBottom:
		return image.Rect(bounds.Min.X, bounds.Max.Y-min(w, bounds.Dy()), bounds.Max.X, bounds.Max.Y)
	case SideLeft:
		return image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Min.X+min(w, bounds.Dx()), bounds.Max.Y)
	default:
		return image.Rect(bounds.Max.X-min(w, bounds.Dx()), bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
}

// RegionStats computes EdgeStats over an arbitrary rectangle of img.
func RegionStats(img *image.NRGBA, rect image.Rectangle) EdgeStats {
	rect = rect.Intersect(img.Bounds())

	var sumR, sumG, sumB float64
	n := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		off := img.PixOffset(rect.Min.X, y)
		for x := rect.Min.X; x < rect.Max.X; x++ {
			sumR += float64(img.Pix[off])
			sumG += float64(img.Pix[off+1])
			sumB += float64(img.Pix[off+2])
			off += 4
			n++
		}
	}

	if n == 0 {
		return EdgeStats{}
	}

	r := sumR / float64(n)
	g := sumG / float64(n)
	b := sumB / float64(n)
	brightness := (r + g + b) / 3

	return EdgeStats{
		MeanR:         r,
		MeanG:         g,
		MeanB:         b,
		Brightness:    brightness,
		ColorVariance: math.Max(math.Abs(r-brightness), math.Max(math.Abs(g-brightness), math.Abs(b-brightness))),
	}
}

// EdgeStrips samples a strip of the given width along each side of img and
// returns one EdgeStats per side, in the order of Sides.
func EdgeStrips(img *image.NRGBA, width int) []EdgeStats {
	stats := make([]EdgeStats, 0, len(Sides))
	for _, side := range Sides {
		s := RegionStats(img, StripRect(img.Bounds(), side, width))
		s.Side = side
		stats = append(stats, s)
	}
	return stats
}
