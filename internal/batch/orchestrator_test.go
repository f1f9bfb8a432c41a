package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ironsheep/image-normalizer/internal/normalize"
)

// fakeNormalizer echoes the filename as output after a per-task delay and
// fails for any filename listed in fail.
type fakeNormalizer struct {
	delay   func(filename string) time.Duration
	fail    map[string]bool
	panics  map[string]bool
	active  atomic.Int32
	peak    atomic.Int32
	calls   atomic.Int32
	onEnter func(filename string)
}

func (f *fakeNormalizer) Normalize(raw []byte, filename string, _ normalize.Options) ([]byte, error) {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if f.onEnter != nil {
		f.onEnter(filename)
	}
	if f.delay != nil {
		time.Sleep(f.delay(filename))
	}
	if f.panics[filename] {
		panic("exploded on " + filename)
	}
	if f.fail[filename] {
		return nil, &normalize.DecodeError{Filename: filename, Err: errors.New("bad bytes")}
	}
	return []byte("out:" + filename), nil
}

func makeTasks(n int) []ImageTask {
	tasks := make([]ImageTask, n)
	for i := range tasks {
		name := fmt.Sprintf("img-%02d.png", i)
		tasks[i] = ImageTask{RawBytes: []byte(name), Filename: name}
	}
	return tasks
}

func TestPartition(t *testing.T) {
	tests := []struct {
		n, size int
		want    []Group
	}{
		{0, 5, []Group{}},
		{3, 5, []Group{{0, 3}}},
		{5, 5, []Group{{0, 5}}},
		{7, 3, []Group{{0, 3}, {3, 6}, {6, 7}}},
		{2, 1, []Group{{0, 1}, {1, 2}}},
		{2, 0, []Group{{0, 1}, {1, 2}}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.n, tt.size), func(t *testing.T) {
			got := Partition(tt.n, tt.size)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("group %d: got %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestProcessAll_Invariants(t *testing.T) {
	tasks := makeTasks(12)
	fail := map[string]bool{"img-02.png": true, "img-07.png": true, "img-11.png": true}

	for _, size := range []int{1, 2, 5, 12, 50} {
		t.Run(fmt.Sprintf("batch size %d", size), func(t *testing.T) {
			o := New(&fakeNormalizer{fail: fail}, size)

			results, summary, err := o.ProcessAll(context.Background(), tasks, normalize.DefaultOptions())
			if err != nil {
				t.Fatalf("ProcessAll failed: %v", err)
			}

			if len(results) != len(tasks) {
				t.Fatalf("results: got %d, want %d", len(results), len(tasks))
			}
			if summary.Total != len(results) || summary.Success+summary.Failures != summary.Total {
				t.Errorf("summary invariant broken: %+v", summary)
			}
			if summary.Success != 9 || summary.Failures != 3 {
				t.Errorf("summary: got %d ok / %d failed, want 9/3", summary.Success, summary.Failures)
			}
			if len(summary.Errors) != 3 {
				t.Errorf("errors: got %d, want 3", len(summary.Errors))
			}

			for i, r := range results {
				if (len(r.Buffer) > 0) == (r.Error != "") {
					t.Errorf("result %d: exactly one of buffer/error must be set: %+v", i, r)
				}
			}
		})
	}
}

func TestProcessAll_PreservesOrder(t *testing.T) {
	tasks := makeTasks(20)
	rng := rand.New(rand.NewSource(42))
	delays := make(map[string]time.Duration, len(tasks))
	for _, task := range tasks {
		delays[task.Filename] = time.Duration(rng.Intn(15)) * time.Millisecond
	}

	var mu sync.Mutex
	var started []string
	f := &fakeNormalizer{
		delay: func(name string) time.Duration { return delays[name] },
		onEnter: func(name string) {
			mu.Lock()
			started = append(started, name)
			mu.Unlock()
		},
	}

	results, _, err := New(f, 4).ProcessAll(context.Background(), tasks, normalize.DefaultOptions())
	if err != nil {
		t.Fatalf("ProcessAll failed: %v", err)
	}

	for i, r := range results {
		if r.Filename != tasks[i].Filename {
			t.Errorf("result %d: got %s, want %s", i, r.Filename, tasks[i].Filename)
		}
		if string(r.Buffer) != "out:"+tasks[i].Filename {
			t.Errorf("result %d: buffer %q does not belong to %s", i, r.Buffer, tasks[i].Filename)
		}
	}

	if len(started) != len(tasks) {
		t.Fatalf("started %d tasks, want %d", len(started), len(tasks))
	}
}

func TestProcessAll_BoundedConcurrency(t *testing.T) {
	f := &fakeNormalizer{delay: func(string) time.Duration { return 5 * time.Millisecond }}

	_, _, err := New(f, 3).ProcessAll(context.Background(), makeTasks(10), normalize.DefaultOptions())
	if err != nil {
		t.Fatalf("ProcessAll failed: %v", err)
	}

	if peak := f.peak.Load(); peak > 3 {
		t.Errorf("peak concurrency: got %d, want <= 3", peak)
	}
	if calls := f.calls.Load(); calls != 10 {
		t.Errorf("calls: got %d, want 10", calls)
	}
}

func TestProcessAll_DefaultBatchSize(t *testing.T) {
	f := &fakeNormalizer{delay: func(string) time.Duration { return 5 * time.Millisecond }}

	var batches []Progress
	o := New(f, 0)
	o.OnProgress = func(p Progress) { batches = append(batches, p) }

	if _, _, err := o.ProcessAll(context.Background(), makeTasks(11), normalize.DefaultOptions()); err != nil {
		t.Fatalf("ProcessAll failed: %v", err)
	}
	if len(batches) != 3 {
		t.Errorf("progress callbacks: got %d, want 3 groups of <= %d", len(batches), DefaultBatchSize)
	}
	if peak := f.peak.Load(); peak > DefaultBatchSize {
		t.Errorf("peak concurrency: got %d, want <= %d", peak, DefaultBatchSize)
	}
}

func TestProcessAll_Progress(t *testing.T) {
	tasks := makeTasks(8)
	fail := map[string]bool{}
	for i := 0; i < 7; i++ {
		fail[tasks[i].Filename] = true
	}

	var reports []Progress
	o := New(&fakeNormalizer{fail: fail}, 3)
	o.OnProgress = func(p Progress) { reports = append(reports, p) }

	if _, _, err := o.ProcessAll(context.Background(), tasks, normalize.DefaultOptions()); err != nil {
		t.Fatalf("ProcessAll failed: %v", err)
	}

	if len(reports) != 3 {
		t.Fatalf("progress reports: got %d, want 3", len(reports))
	}

	wantProcessed := []int{3, 6, 8}
	for i, p := range reports {
		if p.CurrentBatch != i+1 || p.TotalBatches != 3 {
			t.Errorf("report %d: batch %d/%d, want %d/3", i, p.CurrentBatch, p.TotalBatches, i+1)
		}
		if p.Processed != wantProcessed[i] {
			t.Errorf("report %d: processed %d, want %d", i, p.Processed, wantProcessed[i])
		}
		if p.Successful+p.Failed != p.Processed {
			t.Errorf("report %d: %d + %d != %d", i, p.Successful, p.Failed, p.Processed)
		}
		if len(p.RecentErrors) > 5 {
			t.Errorf("report %d: %d recent errors, want at most 5", i, len(p.RecentErrors))
		}
	}

	last := reports[2]
	if last.Failed != 7 || last.Successful != 1 {
		t.Errorf("final counts: got %d ok / %d failed, want 1/7", last.Successful, last.Failed)
	}
	if len(last.RecentErrors) != 5 {
		t.Fatalf("recent errors: got %d, want 5", len(last.RecentErrors))
	}
	if !strings.HasPrefix(last.RecentErrors[4], "img-06.png: ") {
		t.Errorf("most recent error: got %q, want img-06.png entry", last.RecentErrors[4])
	}
	if !strings.HasPrefix(last.RecentErrors[0], "img-02.png: ") {
		t.Errorf("oldest kept error: got %q, want img-02.png entry", last.RecentErrors[0])
	}
}

func TestProcessAll_PanicIsolated(t *testing.T) {
	tasks := makeTasks(4)
	f := &fakeNormalizer{panics: map[string]bool{"img-01.png": true}}

	results, summary, err := New(f, 4).ProcessAll(context.Background(), tasks, normalize.DefaultOptions())
	if err != nil {
		t.Fatalf("ProcessAll failed: %v", err)
	}

	if summary.Success != 3 || summary.Failures != 1 {
		t.Errorf("summary: got %+v, want 3 ok / 1 failed", summary)
	}

	var procErr *normalize.ProcessingError
	if !errors.As(results[1].Err, &procErr) {
		t.Fatalf("panicking task: got %T, want *ProcessingError", results[1].Err)
	}
	if !strings.Contains(results[1].Error, "exploded") {
		t.Errorf("error should carry the panic value: %q", results[1].Error)
	}
}

func TestProcessAll_PassThroughOnFailure(t *testing.T) {
	tasks := makeTasks(2)
	f := &fakeNormalizer{fail: map[string]bool{"img-00.png": true}}

	o := New(f, 2)
	o.PassThroughOnFailure = true

	results, _, err := o.ProcessAll(context.Background(), tasks, normalize.DefaultOptions())
	if err != nil {
		t.Fatalf("ProcessAll failed: %v", err)
	}

	if !bytes.Equal(results[0].Fallback, tasks[0].RawBytes) {
		t.Error("failed result should carry the original bytes")
	}
	if results[0].Buffer != nil {
		t.Error("failed result must not set Buffer")
	}
	if results[1].Fallback != nil {
		t.Error("successful result must not carry a fallback")
	}
}

func TestProcessAll_Cancelled(t *testing.T) {
	tasks := makeTasks(6)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o := New(&fakeNormalizer{}, 2)
	o.OnProgress = func(p Progress) {
		if p.CurrentBatch == 1 {
			cancel()
		}
	}

	results, summary, err := o.ProcessAll(ctx, tasks, normalize.DefaultOptions())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}

	if summary.Total != 6 || summary.Success != 2 || summary.Failures != 4 {
		t.Errorf("summary: got %+v, want 2 ok / 4 not processed", summary)
	}
	for i := 2; i < 6; i++ {
		if !errors.Is(results[i].Err, context.Canceled) {
			t.Errorf("result %d: got %v, want cancellation", i, results[i].Err)
		}
	}
}

func TestProcessAll_SystemicErrors(t *testing.T) {
	if _, _, err := (&Orchestrator{}).ProcessAll(context.Background(), makeTasks(1), normalize.DefaultOptions()); !errors.Is(err, ErrNoNormalizer) {
		t.Errorf("missing normalizer: got %v, want ErrNoNormalizer", err)
	}

	opts := normalize.DefaultOptions()
	opts.TrimThreshold = 999
	f := &fakeNormalizer{}
	if _, _, err := New(f, 2).ProcessAll(context.Background(), makeTasks(3), opts); err == nil {
		t.Error("invalid options should fail the batch")
	}
	if f.calls.Load() != 0 {
		t.Error("no task should run with invalid options")
	}
}

func TestProcessAll_Empty(t *testing.T) {
	results, summary, err := New(&fakeNormalizer{}, 5).ProcessAll(context.Background(), nil, normalize.DefaultOptions())
	if err != nil {
		t.Fatalf("ProcessAll failed: %v", err)
	}
	if len(results) != 0 || summary.Total != 0 || summary.Errors == nil {
		t.Errorf("empty run: got %d results, %+v", len(results), summary)
	}
}

func TestSummarize_InvariantViolation(t *testing.T) {
	_, err := Summarize([]Result{{Filename: "a.png"}})
	if err == nil {
		t.Error("a result with neither buffer nor error should be rejected")
	}

	_, err = Summarize([]Result{{Filename: "a.png", Buffer: []byte{1}, Error: "x"}})
	if err == nil {
		t.Error("a result with both buffer and error should be rejected")
	}
}

// === Pipeline tests with the real normalizer ===

func borderedPNG(t *testing.T, size, border int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if x < border || y < border || x >= size-border || y >= size-border {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.NRGBA{200, 30, 60, 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

func opaqueJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{uint8(x % 256), uint8(y % 256), 120, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode JPEG: %v", err)
	}
	return buf.Bytes()
}

func outputSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestProcessAll_PartialFailureIsolation(t *testing.T) {
	tasks := make([]ImageTask, 5)
	for i := range tasks {
		tasks[i] = ImageTask{RawBytes: borderedPNG(t, 120, 10), Filename: fmt.Sprintf("item-%d.png", i+1)}
	}
	tasks[2].RawBytes = []byte{0x89, 'P', 'N', 'G', 0x00, 0x01}

	results, summary, err := New(normalize.New(), 5).ProcessAll(context.Background(), tasks, normalize.DefaultOptions())
	if err != nil {
		t.Fatalf("ProcessAll failed: %v", err)
	}

	if summary.Success != 4 || summary.Failures != 1 {
		t.Fatalf("summary: got %+v, want 4 ok / 1 failed", summary)
	}
	for i, r := range results {
		if i == 2 {
			var decErr *normalize.DecodeError
			if !errors.As(r.Err, &decErr) {
				t.Errorf("item 3: got %v, want *DecodeError", r.Err)
			}
			continue
		}
		if w, h := outputSize(t, r.Buffer); w != 800 || h != 800 {
			t.Errorf("item %d: got %dx%d, want 800x800", i+1, w, h)
		}
	}
}

func TestProcessAll_EndToEnd(t *testing.T) {
	tasks := []ImageTask{
		{RawBytes: borderedPNG(t, 1200, 50), Filename: "bordered.png"},
		{RawBytes: opaqueJPEG(t, 800, 600), Filename: "photo.jpg"},
		{RawBytes: []byte("corrupted image payload"), Filename: "bad.png"},
	}

	results, summary, err := New(normalize.New(), 2).ProcessAll(context.Background(), tasks, normalize.DefaultOptions())
	if err != nil {
		t.Fatalf("ProcessAll failed: %v", err)
	}

	if summary.Total != 3 || summary.Success != 2 || summary.Failures != 1 {
		t.Fatalf("summary: got %+v, want total=3 success=2 failures=1", summary)
	}
	if len(summary.Errors) != 1 || !strings.HasPrefix(summary.Errors[0], "bad.png: failed to decode image") {
		t.Errorf("errors: got %v, want one bad.png decode entry", summary.Errors)
	}

	for _, r := range results[:2] {
		if w, h := outputSize(t, r.Buffer); w != 800 || h != 800 {
			t.Errorf("%s: got %dx%d, want 800x800", r.Filename, w, h)
		}
	}
}
