package batch

import "github.com/ironsheep/image-normalizer/internal/normalize"

// DefaultBatchSize is the number of images normalized concurrently when the
// caller does not choose a size.
const DefaultBatchSize = 5

// recentErrorLimit bounds Progress.RecentErrors.
const recentErrorLimit = 5

// ImageTask is one input image. The orchestrator never mutates RawBytes.
type ImageTask struct {
	RawBytes []byte
	Filename string

	// LoadErr, if set, fails the task without calling the normalizer.
	LoadErr error
}

// Result is the outcome of one task. Exactly one of Buffer and Error is set.
type Result struct {
	Filename string `json:"filename"`

	// Buffer holds the processed PNG bytes on success.
	Buffer []byte `json:"-"`

	// Error holds the failure message on failure.
	Error string `json:"error,omitempty"`

	// Fallback carries the original input bytes of a failed task when the
	// orchestrator runs with PassThroughOnFailure. It is never set on success.
	Fallback []byte `json:"-"`

	// Err is the underlying error of a failed task, for errors.As inspection.
	Err error `json:"-"`
}

// OK reports whether the task succeeded.
func (r Result) OK() bool {
	return r.Error == ""
}

// Summary aggregates a batch run. Success + Failures == Total.
type Summary struct {
	Total    int      `json:"total"`
	Success  int      `json:"success"`
	Failures int      `json:"failures"`
	Errors   []string `json:"errors"`
}

// Progress is pushed to the progress callback after every group completes.
type Progress struct {
	Processed    int `json:"processed"`
	Successful   int `json:"successful"`
	Failed       int `json:"failed"`
	CurrentBatch int `json:"current_batch"`
	TotalBatches int `json:"total_batches"`

	// RecentErrors holds at most the last five "filename: message" entries.
	RecentErrors []string `json:"recent_errors,omitempty"`
}

// Normalizer is the single-image operation the orchestrator fans out.
// *normalize.Normalizer satisfies it.
type Normalizer interface {
	Normalize(raw []byte, filename string, opts normalize.Options) ([]byte, error)
}
