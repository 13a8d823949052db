package version

import (
	"strings"

	"github.com/matzehuels/psfind/pkg/errors"
)

// Spec constrains which versions a request accepts.
// Implementations are [Exact], [Range] and [Wildcard].
type Spec interface {
	// Satisfies reports whether v is accepted by the spec.
	Satisfies(v *Version) bool
	String() string
	isSpec()
}

// ParseSpec classifies and parses a version expression.
//
// Input containing "*" is a [Wildcard], input starting with "[" or "(" is a
// [Range] in NuGet interval notation, anything else is an [Exact] version.
func ParseSpec(s string) (Spec, error) {
	raw := strings.TrimSpace(s)
	switch {
	case raw == "":
		return nil, errors.New(errors.ErrCodeVersionParse, "empty version spec")
	case strings.Contains(raw, "*"):
		return ParseWildcard(raw)
	case raw[0] == '[' || raw[0] == '(':
		return ParseRange(raw)
	default:
		v, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		return Exact{Version: v}, nil
	}
}

// Exact accepts a single version.
type Exact struct {
	Version *Version
}

// Equals reports whether v is the exact version.
func (e Exact) Equals(v *Version) bool { return e.Version.Equal(v) }

// Satisfies is Equals.
func (e Exact) Satisfies(v *Version) bool { return e.Equals(v) }

func (e Exact) String() string { return e.Version.String() }

func (Exact) isSpec() {}

// Range accepts versions between two bounds. A nil bound is unbounded.
type Range struct {
	Min          *Version
	Max          *Version
	MinInclusive bool
	MaxInclusive bool
}

// ParseRange parses NuGet interval notation:
//
//	[1.0,2.0]   1.0 <= v <= 2.0
//	(1.0,2.0)   1.0 <  v <  2.0
//	[1.0,)      1.0 <= v
//	(,2.0]      v <= 2.0
//	[1.0]       v == 1.0
func ParseRange(s string) (Range, error) {
	raw := strings.TrimSpace(s)
	if len(raw) < 3 {
		return Range{}, errors.New(errors.ErrCodeVersionParse, "invalid version range %q", raw)
	}
	open, closing := raw[0], raw[len(raw)-1]
	if (open != '[' && open != '(') || (closing != ']' && closing != ')') {
		return Range{}, errors.New(errors.ErrCodeVersionParse, "invalid version range %q: missing brackets", raw)
	}
	body := raw[1 : len(raw)-1]
	r := Range{MinInclusive: open == '[', MaxInclusive: closing == ']'}

	lo, hi, hasComma := strings.Cut(body, ",")
	if !hasComma {
		if !r.MinInclusive || !r.MaxInclusive {
			return Range{}, errors.New(errors.ErrCodeVersionParse, "invalid version range %q: single version must use [v]", raw)
		}
		v, err := Parse(body)
		if err != nil {
			return Range{}, err
		}
		r.Min, r.Max = v, v
		return r, nil
	}
	if strings.Contains(hi, ",") {
		return Range{}, errors.New(errors.ErrCodeVersionParse, "invalid version range %q: too many bounds", raw)
	}

	lo, hi = strings.TrimSpace(lo), strings.TrimSpace(hi)
	if lo == "" && hi == "" {
		return Range{}, errors.New(errors.ErrCodeVersionParse, "invalid version range %q: no bounds", raw)
	}
	if lo != "" {
		v, err := Parse(lo)
		if err != nil {
			return Range{}, err
		}
		r.Min = v
	} else {
		r.MinInclusive = false
	}
	if hi != "" {
		v, err := Parse(hi)
		if err != nil {
			return Range{}, err
		}
		r.Max = v
	} else {
		r.MaxInclusive = false
	}

	if r.Min != nil && r.Max != nil {
		c := r.Min.Compare(r.Max)
		if c > 0 || (c == 0 && !(r.MinInclusive && r.MaxInclusive)) {
			return Range{}, errors.New(errors.ErrCodeVersionParse, "invalid version range %q: empty interval", raw)
		}
	}
	return r, nil
}

// Satisfies reports whether v lies within the range.
func (r Range) Satisfies(v *Version) bool {
	if v == nil {
		return false
	}
	if r.Min != nil {
		c := v.Compare(r.Min)
		if c < 0 || (c == 0 && !r.MinInclusive) {
			return false
		}
	}
	if r.Max != nil {
		c := v.Compare(r.Max)
		if c > 0 || (c == 0 && !r.MaxInclusive) {
			return false
		}
	}
	return true
}

func (r Range) String() string {
	var b strings.Builder
	if r.MinInclusive {
		b.WriteByte('[')
	} else {
		b.WriteByte('(')
	}
	if r.Min != nil && r.Max != nil && r.Min == r.Max {
		b.WriteString(r.Min.String())
		b.WriteByte(']')
		return b.String()
	}
	if r.Min != nil {
		b.WriteString(r.Min.String())
	}
	b.WriteByte(',')
	if r.Max != nil {
		b.WriteString(r.Max.String())
	}
	if r.MaxInclusive {
		b.WriteByte(']')
	} else {
		b.WriteByte(')')
	}
	return b.String()
}

func (Range) isSpec() {}

// Wildcard accepts versions whose leading numeric segments equal the
// pattern's. "3.*" accepts every version with major segment 3, including
// prereleases. "*" accepts everything.
type Wildcard struct {
	Pattern string
	prefix  []int
}

// ParseWildcard parses a pattern of the form "N[.N...].*" or "*".
func ParseWildcard(s string) (Wildcard, error) {
	raw := strings.TrimSpace(s)
	if raw == "*" {
		return Wildcard{Pattern: raw}, nil
	}
	head, ok := strings.CutSuffix(raw, ".*")
	if !ok || strings.Contains(head, "*") {
		return Wildcard{}, errors.New(errors.ErrCodeVersionParse, "invalid version pattern %q: '*' must be the last segment", raw)
	}
	parts := strings.Split(head, ".")
	if len(parts) >= maxSegments {
		return Wildcard{}, errors.New(errors.ErrCodeVersionParse, "invalid version pattern %q: too many segments", raw)
	}
	prefix := make([]int, len(parts))
	for i, p := range parts {
		n, err := parseSegment(p)
		if err != nil {
			return Wildcard{}, errors.Wrap(errors.ErrCodeVersionParse, err, "invalid version pattern %q", raw)
		}
		prefix[i] = n
	}
	return Wildcard{Pattern: raw, prefix: prefix}, nil
}

// Satisfies reports whether v's leading segments match the pattern.
func (w Wildcard) Satisfies(v *Version) bool {
	if v == nil {
		return false
	}
	for i, n := range w.prefix {
		if v.Segment(i) != n {
			return false
		}
	}
	return true
}

func (w Wildcard) String() string { return w.Pattern }

func (Wildcard) isSpec() {}
