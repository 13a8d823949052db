package find

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/psfind/pkg/errors"
	"github.com/matzehuels/psfind/pkg/observability"
	"github.com/matzehuels/psfind/pkg/query"
	"github.com/matzehuels/psfind/pkg/resource"
	"github.com/matzehuels/psfind/pkg/version"
)

// Result is the outcome of one batch item.
//
// Exactly one of Descriptors and Err is meaningful: Err is nil on success.
// A successful search may still hold zero descriptors.
type Result struct {
	// BatchID is shared by every result of one Batch call and matches the
	// "batch" key on the finder's log lines.
	BatchID     string
	Index       int
	Request     query.Request
	Descriptors []*resource.Descriptor
	Err         *errors.Record
}

// OK reports whether the item resolved without error.
func (r Result) OK() bool { return r.Err == nil }

// Batch resolves reqs concurrently against repo.
//
// The returned slice has one entry per request, in input order. Item failures
// are recorded in their slot and never affect other items. Once ctx is done,
// items that have not started are marked CANCELLED without a fetch, and
// in-flight fetches abort through the request context.
func (f *Finder) Batch(ctx context.Context, repo query.Repository, reqs []query.Request) []Result {
	results := make([]Result, len(reqs))
	id := uuid.NewString()
	logger := f.logger.With("batch", id, "repository", repo.Name)

	start := time.Now()
	observability.Find().OnBatchStart(ctx, repo.Name, len(reqs))
	logger.Debug("batch start", "items", len(reqs), "workers", f.workers)

	var g errgroup.Group
	g.SetLimit(f.workers)
	for i, req := range reqs {
		results[i] = Result{BatchID: id, Index: i, Request: req}
		g.Go(func() error {
			ds, err := f.Find(ctx, repo, req)
			if err != nil && ctx.Err() != nil && !settled(err) {
				err = errors.Wrap(errors.ErrCodeCancelled, ctx.Err(), "batch cancelled")
			}
			results[i].Descriptors = ds
			results[i].Err = errors.RecordFrom(i, err)
			if err != nil {
				logger.Debug("item failed", "index", i, "request", query.Describe(req), "code", results[i].Err.Code)
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	observability.Find().OnBatchComplete(ctx, repo.Name, len(reqs), failed, time.Since(start))
	logger.Debug("batch done", "items", len(reqs), "failed", failed, "elapsed", time.Since(start))
	return results
}

// settled reports whether err is a verdict on the request itself rather than
// a side effect of cancellation.
func settled(err error) bool {
	switch errors.GetCode(err) {
	case errors.ErrCodeValidation, errors.ErrCodeVersionParse, errors.ErrCodeProtocolUnsupported,
		errors.ErrCodeResourceNotFound, errors.ErrCodeMalformedResponse:
		return true
	}
	return false
}

// BatchNameWildcard resolves several names, each of which may be exact or a
// wildcard pattern.
type BatchNameWildcard struct {
	Names []string
	query.Common
}

// Requests expands b into one request per name. Exact names resolve their
// latest version; patterns list the latest version of every matching id.
func (b BatchNameWildcard) Requests() []query.Request {
	reqs := make([]query.Request, len(b.Names))
	for i, name := range b.Names {
		if query.IsWildcard(name) {
			reqs[i] = query.ByNameWildcard{Common: b.Common, Pattern: name}
		} else {
			reqs[i] = query.ByExactName{Common: b.Common, Name: name}
		}
	}
	return reqs
}

// BatchNameAndVersionSpec resolves several names against one version spec.
//
// Wildcard names cannot be combined with a spec; their slots fail with
// VALIDATION while the remaining names resolve normally. A nil Spec behaves
// like [BatchNameWildcard].
type BatchNameAndVersionSpec struct {
	Names      []string
	Spec       version.Spec
	LatestOnly bool
	query.Common
}

// Requests expands b into one request per name.
func (b BatchNameAndVersionSpec) Requests() []query.Request {
	if b.Spec == nil {
		return BatchNameWildcard{Names: b.Names, Common: b.Common}.Requests()
	}
	reqs := make([]query.Request, len(b.Names))
	for i, name := range b.Names {
		reqs[i] = query.ByExactNameAndVersionSpec{
			Common:     b.Common,
			Name:       name,
			Spec:       b.Spec,
			LatestOnly: b.LatestOnly,
		}
	}
	return reqs
}

// FindNamesGlobbing resolves names, exact or wildcard, as one batch.
func (f *Finder) FindNamesGlobbing(ctx context.Context, repo query.Repository, names []string, includePrerelease bool) []Result {
	b := BatchNameWildcard{Names: names, Common: query.Common{IncludePrerelease: includePrerelease}}
	return f.Batch(ctx, repo, b.Requests())
}

// FindNamesAndVersionGlobbing resolves every version of each name satisfying
// spec as one batch.
func (f *Finder) FindNamesAndVersionGlobbing(ctx context.Context, repo query.Repository, names []string, spec version.Spec, includePrerelease bool) []Result {
	b := BatchNameAndVersionSpec{Names: names, Spec: spec, Common: query.Common{IncludePrerelease: includePrerelease}}
	return f.Batch(ctx, repo, b.Requests())
}

// Descriptors flattens the successful results in index order.
func Descriptors(results []Result) []*resource.Descriptor {
	var out []*resource.Descriptor
	for _, r := range results {
		out = append(out, r.Descriptors...)
	}
	return out
}

// Failures returns the error records of failed results in index order.
func Failures(results []Result) []*errors.Record {
	var out []*errors.Record
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r.Err)
		}
	}
	return out
}
