// Package detection decides whether an image carries a light border and how
// much of it to trim.
//
// # Edge Classification
//
// The four edge strips (StripWidth pixels deep) are summarised by mean colour,
// brightness and colour variance. An edge is light when it is bright enough,
// its channels agree closely and its darkest channel stays above a floor, so
// off-white, cream and light grey margins qualify while pale product colours
// usually do not.
//
// # Decision
//
// When at least MinLightEdges edges are light the border is uniform and a
// single trim runs at a tolerance derived from the caller's trim threshold.
// Otherwise an adaptive search tries increasing tolerances and keeps the one
// that removes the most area, provided the reduction is above MinReduction.
// Candidates that fail are skipped; a search where every candidate fails
// leaves the image untouched.
//
// Reduction is measured on the sum of the dimensions:
//
//	reduction = ((w0 - w) + (h0 - h)) / (w0 + h0)
//
// # Concurrency
//
// A Classifier is immutable after construction and may be shared by any
// number of goroutines.
package detection
