package storage

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"

	"github.com/ironsheep/image-normalizer/internal/batch"
)

// Written records where one batch result was stored. Location is empty when
// nothing was written.
type Written struct {
	Location string
	Fallback bool

	// Renamed is set when the natural output name was already taken by an
	// earlier result of the same batch and a numeric suffix was added.
	Renamed bool

	// Err is set when a pass-through fallback could not be written. Failed
	// writes of normalized images are reported through the result instead.
	Err error
}

// WriteResults stores every successful result as OutputName(filename) and
// every pass-through fallback under its original filename. Names are unique
// within one call: a later result whose name is taken gets a "-2", "-3", ...
// suffix. A result whose write fails is turned into a failure in place, so
// results stays valid for batch.Summarize.
func WriteResults(ctx context.Context, sink Sink, results []batch.Result) []Written {
	written := make([]Written, len(results))
	used := make(map[string]bool, len(results))

	for i, r := range results {
		switch {
		case r.OK():
			name, renamed := uniqueName(OutputName(r.Filename), used)
			loc, err := sink.Put(ctx, name, r.Buffer)
			if err != nil {
				err = fmt.Errorf("write failed: %w", err)
				results[i] = batch.Result{Filename: r.Filename, Error: err.Error(), Err: err}
				continue
			}
			written[i] = Written{Location: loc, Renamed: renamed}
		case len(r.Fallback) > 0:
			name, renamed := uniqueName(path.Base(r.Filename), used)
			loc, err := sink.Put(ctx, name, r.Fallback)
			if err != nil {
				log.Printf("%s: pass-through copy not written: %v", r.Filename, err)
				written[i] = Written{Fallback: true, Err: err}
				continue
			}
			written[i] = Written{Location: loc, Fallback: true, Renamed: renamed}
		}
	}
	return written
}

// uniqueName reserves name in used, adding a numeric suffix before the
// extension when it is already taken.
func uniqueName(name string, used map[string]bool) (string, bool) {
	key := strings.ToLower(name)
	if !used[key] {
		used[key] = true
		return name, false
	}

	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d%s", stem, n, ext)
		key = strings.ToLower(candidate)
		if !used[key] {
			used[key] = true
			return candidate, true
		}
	}
}
