package batch

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/image-normalizer/internal/normalize"
)

// ErrNoNormalizer is returned when an Orchestrator has no Normalizer.
var ErrNoNormalizer = errors.New("batch: no normalizer configured")

// Orchestrator drives a Normalizer over a list of tasks in consecutive groups
// of at most BatchSize. Tasks within a group run concurrently; groups run one
// after another. A failing task never affects its siblings.
type Orchestrator struct {
	// Normalizer processes each task. Must not be nil.
	Normalizer Normalizer

	// BatchSize caps concurrency. Values below 1 select DefaultBatchSize.
	BatchSize int

	// OnProgress, if set, is called synchronously after each group with
	// cumulative counts. It must return quickly.
	OnProgress func(Progress)

	// PassThroughOnFailure copies a failed task's input into Result.Fallback.
	PassThroughOnFailure bool

	// Debug enables per-group logging.
	Debug bool
}

// New creates an Orchestrator around n with the given batch size.
func New(n Normalizer, batchSize int) *Orchestrator {
	return &Orchestrator{Normalizer: n, BatchSize: batchSize}
}

// ProcessAll normalizes every task and returns one Result per task, in input
// order, together with the aggregate Summary.
//
// Task failures are reported through Result.Error and Summary, never through
// the returned error. The returned error is non-nil only when the run cannot
// start (no normalizer, invalid options) or when ctx is cancelled. On
// cancellation the group in flight completes, later groups are not started,
// and their tasks are reported as failed with the cancellation cause.
func (o *Orchestrator) ProcessAll(ctx context.Context, tasks []ImageTask, opts normalize.Options) ([]Result, Summary, error) {
	if o.Normalizer == nil {
		return nil, Summary{}, ErrNoNormalizer
	}
	if err := opts.Validate(); err != nil {
		return nil, Summary{}, fmt.Errorf("invalid options: %w", err)
	}

	size := o.BatchSize
	if size < 1 {
		size = DefaultBatchSize
	}

	results := make([]Result, len(tasks))
	groups := Partition(len(tasks), size)
	tracker := newTracker(len(groups))

	var runErr error
	for gi, group := range groups {
		if err := ctx.Err(); err != nil {
			runErr = err
			for i := group.Start; i < len(tasks); i++ {
				results[i] = failure(tasks[i], fmt.Errorf("not processed: %w", err), o.PassThroughOnFailure)
			}
			break
		}

		var g errgroup.Group
		for i := group.Start; i < group.End; i++ {
			i := i
			g.Go(func() error {
				results[i] = o.runTask(tasks[i], opts)
				return nil
			})
		}
		_ = g.Wait()

		tracker.record(results[group.Start:group.End])
		if o.Debug {
			log.Printf("batch %d/%d done: %d ok, %d failed so far",
				gi+1, len(groups), tracker.progress.Successful, tracker.progress.Failed)
		}
		if o.OnProgress != nil {
			o.OnProgress(tracker.snapshot(gi + 1))
		}
	}

	summary, err := Summarize(results)
	if err != nil {
		return results, summary, err
	}
	return results, summary, runErr
}

// runTask normalizes one task, converting panics into a ProcessingError.
func (o *Orchestrator) runTask(task ImageTask, opts normalize.Options) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			err := &normalize.ProcessingError{
				Filename: task.Filename,
				Stage:    "normalize",
				Err:      fmt.Errorf("panic: %v", r),
			}
			res = failure(task, err, o.PassThroughOnFailure)
		}
	}()

	if task.LoadErr != nil {
		return failure(task, task.LoadErr, o.PassThroughOnFailure)
	}

	buf, err := o.Normalizer.Normalize(task.RawBytes, task.Filename, opts)
	if err != nil {
		return failure(task, err, o.PassThroughOnFailure)
	}
	if len(buf) == 0 {
		return failure(task, &normalize.ProcessingError{
			Filename: task.Filename,
			Stage:    "encode",
			Err:      errors.New("normalizer returned an empty buffer"),
		}, o.PassThroughOnFailure)
	}
	return Result{Filename: task.Filename, Buffer: buf}
}

func failure(task ImageTask, err error, passThrough bool) Result {
	msg := err.Error()
	if msg == "" {
		msg = "unknown error"
	}
	res := Result{Filename: task.Filename, Error: msg, Err: err}
	if passThrough {
		res.Fallback = task.RawBytes
	}
	return res
}

// Group is a half-open range [Start, End) of task indices.
type Group struct {
	Start int
	End   int
}

// Partition splits n tasks into consecutive groups of at most size.
func Partition(n, size int) []Group {
	if size < 1 {
		size = 1
	}
	groups := make([]Group, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		groups = append(groups, Group{Start: start, End: min(start+size, n)})
	}
	return groups
}

// Summarize aggregates results. It fails if a result does not have exactly
// one of Buffer and Error set.
func Summarize(results []Result) (Summary, error) {
	s := Summary{Total: len(results), Errors: []string{}}
	for i, r := range results {
		hasBuf := len(r.Buffer) > 0
		hasErr := r.Error != ""
		if hasBuf == hasErr {
			return s, fmt.Errorf("result %d (%s): exactly one of buffer and error must be set", i, r.Filename)
		}
		if hasBuf {
			s.Success++
			continue
		}
		s.Failures++
		s.Errors = append(s.Errors, r.Filename+": "+r.Error)
	}
	return s, nil
}

// tracker accumulates cumulative progress across groups.
type tracker struct {
	progress Progress
	recent   []string
}

func newTracker(totalBatches int) *tracker {
	return &tracker{progress: Progress{TotalBatches: totalBatches}}
}

func (t *tracker) record(group []Result) {
	for _, r := range group {
		t.progress.Processed++
		if r.OK() {
			t.progress.Successful++
			continue
		}
		t.progress.Failed++
		t.recent = append(t.recent, r.Filename+": "+r.Error)
		if len(t.recent) > recentErrorLimit {
			t.recent = t.recent[len(t.recent)-recentErrorLimit:]
		}
	}
}

func (t *tracker) snapshot(currentBatch int) Progress {
	p := t.progress
	p.CurrentBatch = currentBatch
	p.RecentErrors = append([]string(nil), t.recent...)
	return p
}
