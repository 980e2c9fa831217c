// SPDX-License-Identifier: MPL-2.0

package provision

import "github.com/bending/bendboot/pkg/manifest"

type (
	// Outcome is what happened to one entry.
	Outcome struct {
		Entry manifest.Entry
		// Path is the cache path of the attached artifact.
		Path string
		// Source is "cache" for cache hits, otherwise the source that served the bytes.
		Source string
		Cached bool
		Err    error
	}

	// Report summarizes a Provision call. Each slice keeps input order.
	Report struct {
		Attached []Outcome
		// Skipped holds optional entries that could not be provisioned.
		Skipped []Outcome
		// Failed holds required entries that could not be provisioned.
		Failed []Outcome
		// Fetches counts calls made to sources, retries included.
		Fetches int
	}
)

// CacheHits returns how many attached entries came from the cache.
func (r Report) CacheHits() int {
	n := 0
	for _, o := range r.Attached {
		if o.Cached {
			n++
		}
	}
	return n
}

func newReport(outcomes []Outcome, fetches int64) Report {
	r := Report{Fetches: int(fetches)}
	for _, o := range outcomes {
		switch {
		case o.Err == nil && o.Path != "":
			r.Attached = append(r.Attached, o)
		case o.Err == nil:
			// Never started; the call was aborted before this entry ran.
		case o.Entry.Required:
			r.Failed = append(r.Failed, o)
		default:
			r.Skipped = append(r.Skipped, o)
		}
	}
	return r
}
