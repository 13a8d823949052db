package query

import (
	"strings"

	"github.com/matzehuels/psfind/pkg/resource"
	"github.com/matzehuels/psfind/pkg/version"
)

// Protocol identifies the feed API generation a repository speaks.
type Protocol string

const (
	V2 Protocol = "v2"
	V3 Protocol = "v3"
)

// Repository is a named feed endpoint. It is supplied by the caller and
// treated as read-only.
type Repository struct {
	Name     string
	BaseURL  string // e.g. https://www.powershellgallery.com/api/v2
	Protocol Protocol
}

// Request is a single search request. The concrete variants are
// [AllPackages], [ByTags], [ByResourceType], [ByCommandOrDscNames],
// [ByExactName], [ByNameWildcard], [ByExactNameAndVersion] and
// [ByExactNameAndVersionSpec].
type Request interface {
	Options() Common
	isRequest()
}

// Common holds the flags shared by every request variant.
type Common struct {
	IncludePrerelease bool

	// Type and Tags narrow the result set further. On search queries they are
	// sent to the server as tag terms; on id lookups they are applied
	// client-side.
	Type resource.Type
	Tags []string
}

// Options returns the shared flags.
func (c Common) Options() Common { return c }

// AllPackages lists the latest version of every package.
type AllPackages struct {
	Common
}

// ByTags lists packages carrying every one of Tags.
type ByTags struct {
	Common
}

// ByResourceType lists packages of a type, optionally narrowed by name prefix.
// The type is taken from Common.Type.
type ByResourceType struct {
	Common
	NameFilter string
}

// ByCommandOrDscNames lists packages exporting any of the named commands, or
// DSC resources when Common.Type is [resource.DscResource].
type ByCommandOrDscNames struct {
	Common
	Names []string
}

// ByExactName resolves the latest version of one package id.
type ByExactName struct {
	Common
	Name string
}

// ByNameWildcard lists the latest version of every package whose id matches
// Pattern.
type ByNameWildcard struct {
	Common
	Pattern string
}

// ByExactNameAndVersion resolves one exact package version.
type ByExactNameAndVersion struct {
	Common
	Name    string
	Version string
}

// ByExactNameAndVersionSpec resolves every version of Name satisfying Spec,
// or only the highest one when LatestOnly is set.
type ByExactNameAndVersionSpec struct {
	Common
	Name       string
	Spec       version.Spec
	LatestOnly bool
}

func (AllPackages) isRequest()               {}
func (ByTags) isRequest()                    {}
func (ByResourceType) isRequest()            {}
func (ByCommandOrDscNames) isRequest()       {}
func (ByExactName) isRequest()               {}
func (ByNameWildcard) isRequest()            {}
func (ByExactNameAndVersion) isRequest()     {}
func (ByExactNameAndVersionSpec) isRequest() {}

// Describe returns a short human-readable summary of req for logs.
func Describe(req Request) string {
	switch r := req.(type) {
	case AllPackages:
		return "all"
	case ByTags:
		return "tags " + strings.Join(r.Tags, ",")
	case ByResourceType:
		if r.NameFilter != "" {
			return "type " + string(r.Type) + " name " + r.NameFilter
		}
		return "type " + string(r.Type)
	case ByCommandOrDscNames:
		return "commands " + strings.Join(r.Names, ",")
	case ByExactName:
		return r.Name
	case ByNameWildcard:
		return r.Pattern
	case ByExactNameAndVersion:
		return r.Name + "@" + r.Version
	case ByExactNameAndVersionSpec:
		if r.Spec == nil {
			return r.Name
		}
		return r.Name + "@" + r.Spec.String()
	}
	return "unknown"
}
