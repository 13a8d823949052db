// Package find resolves search and version requests against a feed
// repository.
//
// A [Finder] drives one request through the whole pipeline: validation,
// translation to a feed query, a single fetch, feed parsing, descriptor
// conversion and client-side selection. [Finder.Batch] runs many requests
// concurrently and reports one result slot per input, index-aligned.
//
// # Usage
//
//	finder := find.New(gallery.NewClient(30*time.Second))
//	d, err := finder.FindVersion(ctx, repo, "PowerShellGet", "2.2.5")
//	if errors.IsNotFound(err) {
//	    // no such version
//	}
//
// Selection depends on the request shape. Id lookups return every version of
// a package and are narrowed to the latest or to those satisfying a version
// spec. Search queries return one entry per id and may over-match on
// descriptions, so wildcard results are re-matched against the pattern.
package find

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/psfind/pkg/errors"
	"github.com/matzehuels/psfind/pkg/feed"
	"github.com/matzehuels/psfind/pkg/match"
	"github.com/matzehuels/psfind/pkg/observability"
	"github.com/matzehuels/psfind/pkg/query"
	"github.com/matzehuels/psfind/pkg/resource"
	"github.com/matzehuels/psfind/pkg/version"
)

// defaultWorkers bounds the number of batch items resolved at once.
// Each item performs at most one request, so this is also the number of
// concurrent connections a batch opens against a repository.
const defaultWorkers = 8

// Fetcher performs a translated query against a repository.
//
// The gallery client in integrations/gallery is the standard implementation;
// tests substitute stubs that serve canned feed documents.
type Fetcher interface {
	// Fetch issues exactly one request for q and returns the raw body.
	//
	// Returns a TRANSPORT error for network failures and non-2xx responses
	// (with the status code attached), CANCELLED when ctx ends first, and
	// PROTOCOL_UNSUPPORTED for repositories the fetcher cannot speak to.
	//
	// Fetch must be safe for concurrent use by multiple goroutines.
	Fetch(ctx context.Context, repo query.Repository, q query.Query) ([]byte, error)
}

// Finder resolves requests using a [Fetcher].
//
// A Finder holds no per-call state and is safe for concurrent use if the
// underlying Fetcher is. Use [New] to construct instances.
type Finder struct {
	fetcher Fetcher
	logger  *log.Logger
	workers int
}

// Option configures a [Finder].
type Option func(*Finder)

// WithLogger sets the logger for request and batch events.
// A nil logger is ignored.
func WithLogger(l *log.Logger) Option {
	return func(f *Finder) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithWorkers sets the batch concurrency. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(f *Finder) {
		if n > 0 {
			f.workers = n
		}
	}
}

// New creates a Finder that fetches through fetcher.
func New(fetcher Fetcher, opts ...Option) *Finder {
	f := &Finder{
		fetcher: fetcher,
		logger:  log.Default(),
		workers: defaultWorkers,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Find resolves a single request against repo.
//
// Validation happens before anything touches the network: an unsupported
// request shape or a V3 repository fails without a fetch. Search shapes may
// legitimately return an empty slice. Exact lookups that find nothing fail
// with RESOURCE_NOT_FOUND.
func (f *Finder) Find(ctx context.Context, repo query.Repository, req query.Request) ([]*resource.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCancelled, err, "find cancelled")
	}

	desc := query.Describe(req)
	start := time.Now()
	observability.Find().OnFindStart(ctx, repo.Name, desc)

	ds, err := f.find(ctx, repo, req)

	observability.Find().OnFindComplete(ctx, repo.Name, desc, len(ds), time.Since(start), err)
	if err != nil {
		f.logger.Debug("find failed", "repository", repo.Name, "request", desc, "code", errors.GetCode(err), "err", err)
		return nil, err
	}
	f.logger.Debug("find done", "repository", repo.Name, "request", desc, "results", len(ds), "elapsed", time.Since(start))
	return ds, nil
}

func (f *Finder) find(ctx context.Context, repo query.Repository, req query.Request) ([]*resource.Descriptor, error) {
	if err := query.CheckProtocol(repo); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	q, err := query.Translate(req, repo)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("fetch", "repository", repo.Name, "query", q.String())

	body, err := f.fetcher.Fetch(ctx, repo, q)
	if err != nil {
		return nil, notFoundOn404(req, err)
	}

	recs, err := feed.Parse(body)
	if err != nil {
		return nil, err
	}

	opts := req.Options()
	ds, err := resource.FromRecords(recs, repo.Name, opts.IncludePrerelease)
	if err != nil {
		return nil, err
	}
	return selectFor(req, ds)
}

// validate rejects request shapes that must not reach the network.
func validate(req query.Request) error {
	switch r := req.(type) {
	case query.ByExactNameAndVersion:
		v, err := version.Parse(r.Version)
		if err != nil {
			return err
		}
		return match.Validate(r.Name, version.Exact{Version: v})
	case query.ByExactNameAndVersionSpec:
		return match.Validate(r.Name, r.Spec)
	}
	return nil
}

// notFoundOn404 reports a missing exact version as RESOURCE_NOT_FOUND rather
// than a transport failure. The Packages(...) endpoint answers 404 for it.
func notFoundOn404(req query.Request, err error) error {
	r, ok := req.(query.ByExactNameAndVersion)
	if !ok {
		return err
	}
	if errors.Is(err, errors.ErrCodeTransport) && errors.StatusCode(err) == http.StatusNotFound {
		return errors.Wrap(errors.ErrCodeResourceNotFound, err, "package %s version %s not found", r.Name, r.Version)
	}
	return err
}

// selectFor narrows the descriptors returned by the feed to what req asked for.
func selectFor(req query.Request, ds []*resource.Descriptor) ([]*resource.Descriptor, error) {
	opts := req.Options()
	pre := opts.IncludePrerelease

	switch r := req.(type) {
	case query.ByExactName:
		ds = narrow(sameID(ds, r.Name), opts)
		d, err := match.Latest(ds, pre)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeResourceNotFound, err, "package %s not found", r.Name)
		}
		return []*resource.Descriptor{d}, nil

	case query.ByExactNameAndVersion:
		v, err := version.Parse(r.Version)
		if err != nil {
			return nil, err
		}
		d, err := match.Exact(narrow(sameID(ds, r.Name), opts), v)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeResourceNotFound, err, "package %s version %s not found", r.Name, r.Version)
		}
		return []*resource.Descriptor{d}, nil

	case query.ByExactNameAndVersionSpec:
		out := match.Satisfying(narrow(sameID(ds, r.Name), opts), r.Spec, pre)
		if len(out) == 0 {
			return nil, errors.New(errors.ErrCodeResourceNotFound, "package %s has no version satisfying %s", r.Name, r.Spec)
		}
		if r.LatestOnly {
			out = out[:1]
		}
		return out, nil

	case query.ByNameWildcard:
		named, err := match.ByName(ds, r.Pattern)
		if err != nil {
			return nil, err
		}
		return match.LatestPerID(narrow(named, opts), pre), nil

	case query.ByCommandOrDscNames:
		// Type selects the tag prefix here, not the package type.
		opts.Type = ""
		return match.LatestPerID(exporting(narrow(ds, opts), r), pre), nil

	case query.AllPackages, query.ByTags, query.ByResourceType:
		return match.LatestPerID(narrow(ds, opts), pre), nil
	}
	return nil, errors.New(errors.ErrCodeInternal, "unknown request type %T", req)
}

// narrow applies the supplemental type and tag filters.
func narrow(ds []*resource.Descriptor, opts query.Common) []*resource.Descriptor {
	return match.WithTags(match.OfType(ds, opts.Type), opts.Tags)
}

// sameID keeps descriptors whose id equals name, ignoring case. Id lookups
// already filter server-side; feeds have been seen returning neighbours.
func sameID(ds []*resource.Descriptor, name string) []*resource.Descriptor {
	out := []*resource.Descriptor{}
	for _, d := range ds {
		if strings.EqualFold(d.ID, name) {
			out = append(out, d)
		}
	}
	return out
}

// exporting keeps descriptors that advertise at least one of the requested
// command or DSC resource names.
func exporting(ds []*resource.Descriptor, r query.ByCommandOrDscNames) []*resource.Descriptor {
	prefix := resource.Command.IncludePrefix()
	if r.Type == resource.DscResource {
		prefix = resource.DscResource.IncludePrefix()
	}
	out := []*resource.Descriptor{}
	for _, d := range ds {
		for _, name := range r.Names {
			if d.HasTag(prefix + name) {
				out = append(out, d)
				break
			}
		}
	}
	return out
}
