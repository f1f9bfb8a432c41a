package detection

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	imgops "github.com/ironsheep/image-normalizer/internal/imaging"
)

// Policy holds the heuristic parameters of border classification.
//
// The defaults suit product photography against white and cream backdrops.
type Policy struct {
	// StripWidth is the thickness in pixels of each sampled edge strip.
	StripWidth int `json:"strip_width"`

	// MinBrightness is the exclusive lower bound on strip brightness for a light edge.
	MinBrightness float64 `json:"min_brightness"`

	// MaxColorVariance is the exclusive upper bound on strip colour variance.
	MaxColorVariance float64 `json:"max_color_variance"`

	// MinChannel is the exclusive lower bound on every channel mean.
	MinChannel float64 `json:"min_channel"`

	// MinLightEdges is how many of the four edges must be light for the
	// image to have a uniform border.
	MinLightEdges int `json:"min_light_edges"`

	// CandidateThresholds are the trim tolerances tried by the adaptive
	// search, in increasing order.
	CandidateThresholds []float64 `json:"candidate_thresholds"`

	// MinReduction is the relative size reduction an adaptive candidate must
	// exceed to be accepted.
	MinReduction float64 `json:"min_reduction"`

	// UniformTrimOffset is subtracted from the configured trim threshold to
	// obtain the tolerance used on uniform borders.
	UniformTrimOffset int `json:"uniform_trim_offset"`

	// MinUniformTrim is the lowest tolerance used on uniform borders.
	MinUniformTrim int `json:"min_uniform_trim"`
}

// DefaultPolicy returns the tuned classification parameters.
func DefaultPolicy() Policy {
	return Policy{
		StripWidth:          3,
		MinBrightness:       150,
		MaxColorVariance:    30,
		MinChannel:          120,
		MinLightEdges:       3,
		CandidateThresholds: []float64{1, 3, 8, 15, 25},
		MinReduction:        0.02,
		UniformTrimOffset:   200,
		MinUniformTrim:      5,
	}
}

// IsLight reports whether an edge strip looks like a near-white or cream
// backdrop. Bright but saturated strips and dark strips are not light.
func (p Policy) IsLight(s imgops.EdgeStats) bool {
	return s.Brightness > p.MinBrightness &&
		s.ColorVariance < p.MaxColorVariance &&
		s.MeanR > p.MinChannel &&
		s.MeanG > p.MinChannel &&
		s.MeanB > p.MinChannel
}

// UniformTrimThreshold derives the trim tolerance for a uniform border from
// the caller's trim threshold: max(MinUniformTrim, trimThreshold-UniformTrimOffset).
func (p Policy) UniformTrimThreshold(trimThreshold int) float64 {
	return float64(max(p.MinUniformTrim, trimThreshold-p.UniformTrimOffset))
}

// Method names the path that decided how an image was trimmed.
type Method string

const (
	// MethodUniform means at least MinLightEdges edges were light and a single
	// trim at the derived uniform threshold was attempted.
	MethodUniform Method = "uniform"

	// MethodAdaptive means the uniform test failed and the adaptive search
	// accepted a candidate.
	MethodAdaptive Method = "adaptive"

	// MethodNone means the uniform test failed and no adaptive candidate was
	// material enough; the image is left untrimmed.
	MethodNone Method = "none"

	// MethodDisabled means border detection was not requested.
	MethodDisabled Method = "disabled"
)

// EdgeReport is the classification of one edge strip.
type EdgeReport struct {
	imgops.EdgeStats
	Light bool `json:"light"`
}

// Candidate is the outcome of one adaptive trim attempt.
type Candidate struct {
	// Threshold is the trim tolerance tried.
	Threshold float64 `json:"threshold"`

	// Width and Height are the dimensions after trimming (0 on failure).
	Width  int `json:"width"`
	Height int `json:"height"`

	// Reduction is ((dWidth + dHeight) / (origWidth + origHeight)).
	Reduction float64 `json:"reduction"`

	// Error describes why the attempt failed; empty on success.
	Error string `json:"error,omitempty"`

	bounds image.Rectangle
	ratio  float64 // unrounded Reduction
}

// exactReduction is the reduction used for selection. Candidates built by
// hand carry only the reported value.
func (c Candidate) exactReduction() float64 {
	if c.ratio != 0 {
		return c.ratio
	}
	return c.Reduction
}

// OK reports whether the attempt produced a usable trim.
func (c Candidate) OK() bool {
	return c.Error == ""
}

// Decision records how the classifier treated one image.
type Decision struct {
	Method     Method       `json:"method"`
	Edges      []EdgeReport `json:"edges,omitempty"`
	LightEdges int          `json:"light_edges"`
	Uniform    bool         `json:"uniform"`

	// Threshold is the trim tolerance that produced the result (0 if none).
	Threshold float64 `json:"threshold,omitempty"`

	// Candidates lists every adaptive attempt in search order.
	Candidates []Candidate `json:"candidates,omitempty"`

	Trimmed   bool    `json:"trimmed"`
	Reduction float64 `json:"reduction"`

	// Error is set when a uniform-border trim failed and the original
	// geometry was kept.
	Error string `json:"error,omitempty"`

	Bounds image.Rectangle `json:"-"`
}

// Classifier decides whether and how to trim light borders from an image.
//
// A Classifier has no mutable state and is safe for concurrent use.
type Classifier struct {
	policy Policy
}

// NewClassifier creates a classifier using policy.
func NewClassifier(policy Policy) *Classifier {
	return &Classifier{policy: policy}
}

// Policy returns the parameters the classifier was built with.
func (c *Classifier) Policy() Policy {
	return c.policy
}

// AnalyzeEdges samples the four edge strips of img and classifies each one.
func (c *Classifier) AnalyzeEdges(img *image.NRGBA) []EdgeReport {
	stats := imgops.EdgeStrips(img, c.policy.StripWidth)
	reports := make([]EdgeReport, len(stats))
	for i, s := range stats {
		reports[i] = EdgeReport{EdgeStats: s, Light: c.policy.IsLight(s)}
	}
	return reports
}

// HasUniformBorder reports whether at least MinLightEdges of the four edges
// of img are light.
func (c *Classifier) HasUniformBorder(img *image.NRGBA) bool {
	return countLight(c.AnalyzeEdges(img)) >= c.policy.MinLightEdges
}

// SearchAdaptiveTrim tries every candidate threshold and returns the trim with
// the largest reduction above MinReduction.
//
// When no candidate qualifies the original image is returned with didTrim
// false. Failing candidates are skipped.
func (c *Classifier) SearchAdaptiveTrim(img *image.NRGBA) (*image.NRGBA, bool) {
	candidates := c.evaluateCandidates(img)
	best, ok := SelectCandidate(candidates, c.policy.MinReduction)
	if !ok {
		return img, false
	}
	return imaging.Crop(img, candidates[best].bounds), true
}

// Classify runs the full decision for img: the uniform-border test, then
// either a single trim at the derived uniform threshold or the adaptive search.
// The image itself is not modified; use Apply to crop it.
func (c *Classifier) Classify(img *image.NRGBA, trimThreshold int) Decision {
	edges := c.AnalyzeEdges(img)
	light := countLight(edges)

	d := Decision{
		Edges:      edges,
		LightEdges: light,
		Uniform:    light >= c.policy.MinLightEdges,
		Bounds:     img.Bounds(),
	}

	if d.Uniform {
		d.Method = MethodUniform
		d.Threshold = c.policy.UniformTrimThreshold(trimThreshold)

		cand := tryCandidate(img, d.Threshold)
		if !cand.OK() {
			d.Error = cand.Error
			return d
		}
		d.Bounds = cand.bounds
		d.Reduction = cand.Reduction
		d.Trimmed = cand.bounds != img.Bounds()
		return d
	}

	d.Candidates = c.evaluateCandidates(img)
	best, ok := SelectCandidate(d.Candidates, c.policy.MinReduction)
	if !ok {
		d.Method = MethodNone
		d.Threshold = 0
		return d
	}

	d.Method = MethodAdaptive
	d.Threshold = d.Candidates[best].Threshold
	d.Bounds = d.Candidates[best].bounds
	d.Reduction = d.Candidates[best].Reduction
	d.Trimmed = true
	return d
}

// Apply crops img to the bounds chosen by d. Untrimmed decisions return img.
func (c *Classifier) Apply(img *image.NRGBA, d Decision) *image.NRGBA {
	if !d.Trimmed || d.Bounds == img.Bounds() || d.Bounds.Empty() {
		return img
	}
	return imaging.Crop(img, d.Bounds)
}

// SelectCandidate returns the index of the successful candidate with the
// largest reduction strictly greater than minReduction. Ties keep the earlier
// (less aggressive) candidate. ok is false when no candidate qualifies.
func SelectCandidate(candidates []Candidate, minReduction float64) (index int, ok bool) {
	index = -1
	best := minReduction
	for i, cand := range candidates {
		if !cand.OK() {
			continue
		}
		if r := cand.exactReduction(); r > best {
			best = r
			index = i
		}
	}
	return index, index >= 0
}

func (c *Classifier) evaluateCandidates(img *image.NRGBA) []Candidate {
	candidates := make([]Candidate, 0, len(c.policy.CandidateThresholds))
	for _, threshold := range c.policy.CandidateThresholds {
		candidates = append(candidates, tryCandidate(img, threshold))
	}
	return candidates
}

// tryCandidate measures the trim at threshold. Errors and panics are captured
// in the returned Candidate instead of being propagated.
func tryCandidate(img *image.NRGBA, threshold float64) (cand Candidate) {
	cand.Threshold = threshold

	defer func() {
		if r := recover(); r != nil {
			cand = Candidate{Threshold: threshold, Error: fmt.Sprintf("trim panicked: %v", r)}
		}
	}()

	rect, err := imgops.TrimBounds(img, threshold)
	if err != nil {
		cand.Error = err.Error()
		return cand
	}

	orig := img.Bounds()
	cand.Width = rect.Dx()
	cand.Height = rect.Dy()
	cand.ratio = reductionRatio(orig.Dx(), orig.Dy(), cand.Width, cand.Height)
	cand.Reduction = roundReduction(cand.ratio)
	cand.bounds = rect
	return cand
}

// Reduction returns the relative size reduction of trimming an image of
// (origW, origH) down to (w, h), rounded to four decimal places for
// reporting. Acceptance compares the unrounded value.
func Reduction(origW, origH, w, h int) float64 {
	return roundReduction(reductionRatio(origW, origH, w, h))
}

func reductionRatio(origW, origH, w, h int) float64 {
	total := origW + origH
	if total <= 0 {
		return 0
	}
	return float64((origW-w)+(origH-h)) / float64(total)
}

func roundReduction(r float64) float64 {
	return math.Round(r*10000) / 10000
}

func countLight(edges []EdgeReport) int {
	n := 0
	for _, e := range edges {
		if e.Light {
			n++
		}
	}
	return n
}
