// Package match selects resource descriptors by name pattern and version.
//
// Feed queries are coarse: an id lookup returns every version of a package and
// a search term may match descriptions as well as ids. The functions here
// narrow such result sets down to what a request actually asked for. None of
// them modify their input slices.
package match

import (
	"slices"
	"strings"

	"github.com/gobwas/glob"

	"github.com/matzehuels/psfind/pkg/errors"
	"github.com/matzehuels/psfind/pkg/query"
	"github.com/matzehuels/psfind/pkg/resource"
	"github.com/matzehuels/psfind/pkg/version"
)

// Validate rejects request shapes that are never sent to a feed.
//
// A wildcard name cannot be combined with any version constraint: the feed
// has no endpoint listing every version of every matching id.
func Validate(name string, spec version.Spec) error {
	if spec == nil || !query.IsWildcard(name) {
		return nil
	}
	return errors.New(errors.ErrCodeValidation,
		"unsupported combination: wildcard name %q with version %q", name, spec.String())
}

// Exact returns the descriptor whose version equals v.
// Fails with RESOURCE_NOT_FOUND when there is none.
func Exact(ds []*resource.Descriptor, v *version.Version) (*resource.Descriptor, error) {
	for _, d := range ds {
		if d.Version.Equal(v) {
			return d, nil
		}
	}
	return nil, errors.New(errors.ErrCodeResourceNotFound, "no version %s found", v)
}

// Satisfying returns the descriptors accepted by spec, highest version first.
//
// Unless includePrerelease is set, prerelease versions are dropped before
// matching a range or wildcard. An exact spec names its version explicitly and
// is matched regardless of the flag.
func Satisfying(ds []*resource.Descriptor, spec version.Spec, includePrerelease bool) []*resource.Descriptor {
	_, exact := spec.(version.Exact)
	var out []*resource.Descriptor
	for _, d := range ds {
		if d.IsPrerelease && !includePrerelease && !exact {
			continue
		}
		if spec.Satisfies(d.Version) {
			out = append(out, d)
		}
	}
	SortDescending(out)
	return out
}

// Latest returns the highest version in ds. Prerelease versions are only
// considered when includePrerelease is set. Fails with RESOURCE_NOT_FOUND when
// no candidate remains.
func Latest(ds []*resource.Descriptor, includePrerelease bool) (*resource.Descriptor, error) {
	var best *resource.Descriptor
	for _, d := range ds {
		if d.IsPrerelease && !includePrerelease {
			continue
		}
		if best == nil || d.Version.Compare(best.Version) > 0 {
			best = d
		}
	}
	if best == nil {
		return nil, errors.New(errors.ErrCodeResourceNotFound, "no matching version found")
	}
	return best, nil
}

// LatestPerID reduces ds to the highest eligible version of each id, keeping
// the order in which ids first appear. Ids compare case-insensitively.
func LatestPerID(ds []*resource.Descriptor, includePrerelease bool) []*resource.Descriptor {
	index := make(map[string]int)
	out := []*resource.Descriptor{}
	for _, d := range ds {
		if d.IsPrerelease && !includePrerelease {
			continue
		}
		key := strings.ToLower(d.ID)
		i, seen := index[key]
		switch {
		case !seen:
			index[key] = len(out)
			out = append(out, d)
		case d.Version.Compare(out[i].Version) > 0:
			out[i] = d
		}
	}
	return out
}

// ByName keeps descriptors whose id matches pattern, ignoring case. The
// pattern supports "*" (any run) and "?" (one character); a pattern without
// wildcards must match the whole id.
func ByName(ds []*resource.Descriptor, pattern string) ([]*resource.Descriptor, error) {
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeValidation, err, "invalid name pattern %q", pattern)
	}
	out := []*resource.Descriptor{}
	for _, d := range ds {
		if g.Match(strings.ToLower(d.ID)) {
			out = append(out, d)
		}
	}
	return out, nil
}

// WithTags keeps descriptors carrying every tag, ignoring case.
func WithTags(ds []*resource.Descriptor, tags []string) []*resource.Descriptor {
	if len(tags) == 0 {
		return ds
	}
	out := []*resource.Descriptor{}
	for _, d := range ds {
		if !slices.ContainsFunc(tags, func(t string) bool { return !d.HasTag(t) }) {
			out = append(out, d)
		}
	}
	return out
}

// OfType keeps descriptors of type t. The empty type keeps everything.
func OfType(ds []*resource.Descriptor, t resource.Type) []*resource.Descriptor {
	if t == "" {
		return ds
	}
	out := []*resource.Descriptor{}
	for _, d := range ds {
		if d.IsType(t) {
			out = append(out, d)
		}
	}
	return out
}

// SortDescending orders ds by version, highest first, then by id.
func SortDescending(ds []*resource.Descriptor) {
	slices.SortStableFunc(ds, func(a, b *resource.Descriptor) int {
		if c := b.Version.Compare(a.Version); c != 0 {
			return c
		}
		return strings.Compare(strings.ToLower(a.ID), strings.ToLower(b.ID))
	})
}
