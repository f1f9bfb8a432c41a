// Package imaging provides the pixel-level operations of the normalization pipeline.
//
// This package implements decoding with metadata extraction, edge strip
// statistics, background trimming, transparency flattening, output geometry
// policies and PNG encoding. Decoded images are handled as *image.NRGBA working
// copies with their origin at (0,0), so every operation may read Pix directly.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, Min is inclusive (top-left) and Max is exclusive (bottom-right)
//
// # Thread Safety
//
// Operations are stateless and may be called concurrently on different images.
// No function retains a reference to its input after returning.
//
// # Colour Representation
//
// Channel values are straight (non-premultiplied) 8-bit components (0-255).
// Background opacity is a float in [0,1]; only 1 is treated as opaque.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Empty, truncated or unsupported image buffers
//   - Trims that would leave no content
//   - Unknown resize modes or non-positive target dimensions
//   - Encoding errors during image output
package imaging
