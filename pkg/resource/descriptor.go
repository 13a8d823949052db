// Package resource converts raw feed records into resource descriptors.
//
// A [Descriptor] is the canonical, immutable view of one package version in a
// repository. Only the id and version are required; every other field is
// optional and defaults to its zero value when the feed omits it.
package resource

import (
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/psfind/pkg/errors"
	"github.com/matzehuels/psfind/pkg/feed"
	"github.com/matzehuels/psfind/pkg/version"
)

// Descriptor describes one version of a gallery resource.
//
// Descriptors are created by [FromRecord] and never mutated afterwards.
// They are safe for concurrent reads.
type Descriptor struct {
	ID           string           // Package id as published (never empty)
	Version      *version.Version // Parsed version (never nil)
	IsPrerelease bool             // Derived from Version
	Type         Type             // Module unless the feed marks a script
	Tags         []string         // Distinct tags, sorted
	Repository   string           // Name of the repository that returned it

	// IncludePrerelease records the caller's prerelease preference at
	// resolution time. It does not influence parsing.
	IncludePrerelease bool

	Description  string
	Author       string
	CompanyName  string
	ProjectURL   string
	LicenseURL   string
	DownloadURL  string    // Entry content link (package/<id>/<version>)
	Published    time.Time // Zero if absent or unparseable
	Dependencies []Dependency
	Includes     Includes

	Raw feed.Record // Unmodified feed properties
}

// Dependency is one entry of a package's dependency list.
type Dependency struct {
	Name  string
	Range string // Raw NuGet range, empty when unconstrained
}

// Includes lists the items a package exports, as advertised by its tags.
type Includes struct {
	Commands         []string
	DscResources     []string
	Functions        []string
	Cmdlets          []string
	Workflows        []string
	RoleCapabilities []string
}

// Feed property names read by the resolver.
const (
	propID                = "Id"
	propVersion           = "Version"
	propNormalizedVersion = "NormalizedVersion"
	propTags              = "Tags"
	propItemType          = "ItemType"
	propDescription       = "Description"
	propAuthors           = "Authors"
	propCompanyName       = "CompanyName"
	propProjectURL        = "ProjectUrl"
	propLicenseURL        = "LicenseUrl"
	propPublished         = "Published"
	propDependencies      = "Dependencies"
)

// FromRecord converts one raw record into a descriptor.
//
// The record must carry a non-empty Id and a parseable version
// (NormalizedVersion is preferred over Version). Otherwise FromRecord fails
// with MALFORMED_RESPONSE naming the offending field.
func FromRecord(rec feed.Record, repository string, includePrerelease bool) (*Descriptor, error) {
	id := strings.TrimSpace(rec[propID])
	if id == "" {
		return nil, errors.New(errors.ErrCodeMalformedResponse, "missing required field %q", propID)
	}

	field := propNormalizedVersion
	raw := strings.TrimSpace(rec[field])
	if raw == "" {
		field = propVersion
		raw = strings.TrimSpace(rec[field])
	}
	if raw == "" {
		return nil, errors.New(errors.ErrCodeMalformedResponse, "%s: missing required field %q", id, propVersion)
	}
	v, err := version.Parse(raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedResponse, err, "%s: invalid field %q", id, field)
	}

	tags := splitTags(rec[propTags])
	return &Descriptor{
		ID:                id,
		Version:           v,
		IsPrerelease:      v.IsPrerelease(),
		Type:              typeOf(rec[propItemType], tags),
		Tags:              tags,
		Repository:        repository,
		IncludePrerelease: includePrerelease,
		Description:       rec[propDescription],
		Author:            rec[propAuthors],
		CompanyName:       rec[propCompanyName],
		ProjectURL:        rec[propProjectURL],
		LicenseURL:        rec[propLicenseURL],
		DownloadURL:       rec[feed.KeyContentSrc],
		Published:         parseTime(rec[propPublished]),
		Dependencies:      parseDependencies(rec[propDependencies]),
		Includes:          includesOf(tags),
		Raw:               rec,
	}, nil
}

// FromRecords converts records in order, failing on the first malformed one.
func FromRecords(recs []feed.Record, repository string, includePrerelease bool) ([]*Descriptor, error) {
	out := make([]*Descriptor, 0, len(recs))
	for i, rec := range recs {
		d, err := FromRecord(rec, repository, includePrerelease)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMalformedResponse, err, "entry %d", i)
		}
		out = append(out, d)
	}
	return out, nil
}

// String returns "id@version".
func (d *Descriptor) String() string {
	return d.ID + "@" + d.Version.String()
}

// HasTag reports whether the descriptor carries tag, ignoring case.
func (d *Descriptor) HasTag(tag string) bool {
	return slices.ContainsFunc(d.Tags, func(t string) bool { return strings.EqualFold(t, tag) })
}

// IsType reports whether the descriptor is of type t. The empty type matches
// everything; container-item types match packages that include such items.
func (d *Descriptor) IsType(t Type) bool {
	switch t {
	case "":
		return true
	case Module, Script:
		return d.Type == t
	default:
		return d.HasTag(t.Tag()) || len(d.Includes.of(t)) > 0
	}
}

func splitTags(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	slices.Sort(fields)
	return slices.Compact(fields)
}

func typeOf(itemType string, tags []string) Type {
	if t, err := ParseType(itemType); err == nil && (t == Module || t == Script) {
		return t
	}
	for _, tag := range tags {
		if strings.EqualFold(tag, Script.Tag()) {
			return Script
		}
	}
	return Module
}

func includesOf(tags []string) Includes {
	var inc Includes
	for _, tag := range tags {
		for _, t := range Types() {
			prefix := t.IncludePrefix()
			if prefix == "" || len(tag) <= len(prefix) || !strings.EqualFold(tag[:len(prefix)], prefix) {
				continue
			}
			name := tag[len(prefix):]
			switch t {
			case Command:
				inc.Commands = append(inc.Commands, name)
			case DscResource:
				inc.DscResources = append(inc.DscResources, name)
			case Function:
				inc.Functions = append(inc.Functions, name)
			case Cmdlet:
				inc.Cmdlets = append(inc.Cmdlets, name)
			case Workflow:
				inc.Workflows = append(inc.Workflows, name)
			case RoleCapability:
				inc.RoleCapabilities = append(inc.RoleCapabilities, name)
			}
		}
	}
	return inc
}

func (inc Includes) of(t Type) []string {
	switch t {
	case Command:
		return inc.Commands
	case DscResource:
		return inc.DscResources
	case Function:
		return inc.Functions
	case Cmdlet:
		return inc.Cmdlets
	case Workflow:
		return inc.Workflows
	case RoleCapability:
		return inc.RoleCapabilities
	}
	return nil
}

// parseDependencies parses the V2 "id:range:framework|id:range:framework" list.
func parseDependencies(s string) []Dependency {
	var deps []Dependency
	for _, item := range strings.Split(s, "|") {
		name, rest, _ := strings.Cut(strings.TrimSpace(item), ":")
		if name == "" {
			continue
		}
		rng, _, _ := strings.Cut(rest, ":")
		deps = append(deps, Dependency{Name: name, Range: strings.TrimSpace(rng)})
	}
	return deps
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
