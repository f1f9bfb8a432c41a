package imaging

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// ErrNothingToTrim is returned by TrimBounds when every pixel matches the
// reference colour, leaving no content to keep.
var ErrNothingToTrim = errors.New("no content differs from the background")

// TrimBounds finds the bounding box of the content of img.
//
// The background reference is the top-left pixel. A pixel belongs to the
// content when its RGB Euclidean distance to the reference, in 0-255 units,
// exceeds threshold, or when its alpha differs from the reference alpha by
// more than threshold.
//
// Parameters:
//   - img: Source image. Must be non-empty.
//   - threshold: Colour tolerance (0 = exact match only). Larger values trim
//     more aggressively through noise and soft gradients.
//
// Returns:
//   - image.Rectangle: Content bounds in img's coordinate space (Max exclusive).
//   - error: ErrNothingToTrim if no pixel differs from the reference.
func TrimBounds(img *image.NRGBA, threshold float64) (image.Rectangle, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return image.Rectangle{}, fmt.Errorf("cannot trim empty image")
	}
	if threshold < 0 {
		return image.Rectangle{}, fmt.Errorf("invalid trim threshold %.1f", threshold)
	}

	refOff := img.PixOffset(bounds.Min.X, bounds.Min.Y)
	ref := colorful.Color{
		R: float64(img.Pix[refOff]) / 255,
		G: float64(img.Pix[refOff+1]) / 255,
		B: float64(img.Pix[refOff+2]) / 255,
	}
	refA := int(img.Pix[refOff+3])

	minX, minY := bounds.Max.X, bounds.Max.Y
	maxX, maxY := bounds.Min.X-1, bounds.Min.Y-1

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		off := img.PixOffset(bounds.Min.X, y)
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			px := img.Pix[off : off+4 : off+4]
			off += 4

			da := int(px[3]) - refA
			if da < 0 {
				da = -da
			}
			if float64(da) <= threshold {
				c := colorful.Color{R: float64(px[0]) / 255, G: float64(px[1]) / 255, B: float64(px[2]) / 255}
				if c.DistanceRgb(ref)*255 <= threshold {
					continue
				}
			}

			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if maxX < minX || maxY < minY {
		return image.Rectangle{}, ErrNothingToTrim
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), nil
}

// Trim crops img to the bounds found by TrimBounds.
//
// The returned image is a new *image.NRGBA with its origin at (0,0). When the
// content already fills the whole image, a copy of img is returned.
func Trim(img *image.NRGBA, threshold float64) (*image.NRGBA, error) {
	rect, err := TrimBounds(img, threshold)
	if err != nil {
		return nil, err
	}
	return imaging.Crop(img, rect), nil
}
