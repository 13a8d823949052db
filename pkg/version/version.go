// Package version parses package versions and version specifications.
//
// Versions follow NuGet semantics as used by PowerShell galleries: two to four
// dot-separated numeric segments, an optional "-prerelease" label and optional
// "+metadata". Ordering is total; a prerelease sorts below the release with the
// same numeric tuple. Comparison is delegated to [semver.NuGet].
//
// A [Spec] is one of three forms:
//
//	Exact     2.2.5
//	Range     [1.0,2.0)  (1.0,]  [2.2.5]
//	Wildcard  3.*  3.1.*  *
//
// [semver.NuGet]: https://pkg.go.dev/deps.dev/util/semver
package version

import (
	"strconv"
	"strings"

	"deps.dev/util/semver"

	"github.com/matzehuels/psfind/pkg/errors"
)

// maxSegments is the number of numeric segments NuGet versions may carry.
const maxSegments = 4

// Version is a parsed package version. The zero value is not valid; use [Parse].
type Version struct {
	raw  string
	sv   *semver.Version
	nums []int
}

// Parse parses s as a NuGet version.
// Fails with VERSION_PARSE when s is empty or not a version.
func Parse(s string) (*Version, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return nil, errors.New(errors.ErrCodeVersionParse, "empty version")
	}
	nums, err := numericSegments(raw)
	if err != nil {
		return nil, err
	}
	sv, perr := semver.NuGet.Parse(raw)
	if perr != nil {
		return nil, errors.Wrap(errors.ErrCodeVersionParse, perr, "invalid version %q", raw)
	}
	return &Version{raw: raw, sv: sv, nums: nums}, nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) *Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// numericSegments extracts the dotted numeric prefix of a version string.
func numericSegments(raw string) ([]int, error) {
	core := raw
	if i := strings.IndexByte(core, '+'); i >= 0 {
		core = core[:i]
	}
	if i := strings.IndexByte(core, '-'); i >= 0 {
		if i == len(core)-1 {
			return nil, errors.New(errors.ErrCodeVersionParse, "invalid version %q: empty prerelease label", raw)
		}
		core = core[:i]
	}
	parts := strings.Split(core, ".")
	if len(parts) > maxSegments {
		return nil, errors.New(errors.ErrCodeVersionParse, "invalid version %q: more than %d segments", raw, maxSegments)
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := parseSegment(p)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeVersionParse, err, "invalid version %q", raw)
		}
		nums[i] = n
	}
	return nums, nil
}

func parseSegment(p string) (int, error) {
	if p == "" {
		return 0, errors.New(errors.ErrCodeVersionParse, "empty segment")
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return 0, errors.New(errors.ErrCodeVersionParse, "non-numeric segment %q", p)
		}
	}
	return strconv.Atoi(p)
}

// String returns the version as it was parsed, trimmed of whitespace.
func (v *Version) String() string { return v.raw }

// Compare returns -1, 0 or 1 as v sorts before, equal to or after o.
func (v *Version) Compare(o *Version) int {
	return v.sv.Compare(o.sv)
}

// Equal reports whether v and o denote the same version.
// Build metadata and trailing zero segments do not affect equality.
func (v *Version) Equal(o *Version) bool {
	if v == nil || o == nil {
		return v == o
	}
	return v.Compare(o) == 0
}

// IsPrerelease reports whether v carries a prerelease label.
func (v *Version) IsPrerelease() bool { return v.sv.IsPrerelease() }

// Segment returns the i-th numeric segment, or 0 when v has fewer segments.
func (v *Version) Segment(i int) int {
	if i < 0 || i >= len(v.nums) {
		return 0
	}
	return v.nums[i]
}

// Major returns the first numeric segment.
func (v *Version) Major() int { return v.Segment(0) }
