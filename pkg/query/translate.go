// Package query translates search requests into V2 feed queries.
//
// Every [Request] variant maps onto one of three V2 endpoints:
//
//	Search()?$filter=IsLatestVersion&searchTerm='...'
//	FindPackagesById()?id='...'
//	Packages(Id='...',Version='...')
//
// Search endpoints take a whitespace-separated search term made of name
// patterns and "tag:" terms. Id lookups return every version of a package and
// leave version selection to the caller. Repositories speaking [V3] have no
// endpoint mapping and always yield PROTOCOL_UNSUPPORTED.
package query

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/matzehuels/psfind/pkg/errors"
	"github.com/matzehuels/psfind/pkg/resource"
)

// V2 endpoint paths, relative to the repository base address.
const (
	PathSearch   = "Search()"
	PathFindByID = "FindPackagesById()"
	PathPackages = "Packages"
	PathContent  = "package"
)

// Query parameter names and filter values.
const (
	ParamFilter            = "$filter"
	ParamSearchTerm        = "searchTerm"
	ParamIncludePrerelease = "includePrerelease"
	ParamID                = "id"

	FilterLatest         = "IsLatestVersion"
	FilterAbsoluteLatest = "IsAbsoluteLatestVersion"
)

// Query is a concrete feed request.
type Query struct {
	Method string
	Path   string
	Params url.Values
}

// URL renders the absolute request URL against a repository base address.
func (q Query) URL(base string) string {
	u := strings.TrimRight(base, "/") + "/" + q.Path
	if len(q.Params) > 0 {
		u += "?" + q.Params.Encode()
	}
	return u
}

// String renders the query relative to the repository, for logs.
func (q Query) String() string {
	if len(q.Params) == 0 {
		return q.Path
	}
	return q.Path + "?" + q.Params.Encode()
}

// Translate maps req onto a query for repo.
//
// It fails with PROTOCOL_UNSUPPORTED for V3 repositories, and with VALIDATION
// when req is missing a required value or carries a wildcard where an exact
// name is expected. No network access happens here.
func Translate(req Request, repo Repository) (Query, error) {
	if err := CheckProtocol(repo); err != nil {
		return Query{}, err
	}
	if err := validateCommon(req.Options()); err != nil {
		return Query{}, err
	}

	switch r := req.(type) {
	case AllPackages:
		return search(r.Common, nil), nil

	case ByTags:
		if len(r.Tags) == 0 {
			return Query{}, errors.New(errors.ErrCodeValidation, "at least one tag is required")
		}
		return search(r.Common, nil), nil

	case ByResourceType:
		if r.Type == "" {
			return Query{}, errors.New(errors.ErrCodeValidation, "resource type is required")
		}
		var terms []string
		if name := strings.TrimSpace(r.NameFilter); name != "" {
			if err := errors.ValidatePackageName(name); err != nil {
				return Query{}, err
			}
			if !strings.HasSuffix(name, "*") {
				name += "*"
			}
			terms = append(terms, name)
		}
		return search(r.Common, terms), nil

	case ByCommandOrDscNames:
		if len(r.Names) == 0 {
			return Query{}, errors.New(errors.ErrCodeValidation, "at least one command or DSC resource name is required")
		}
		prefix := resource.Command.IncludePrefix()
		if r.Type == resource.DscResource {
			prefix = resource.DscResource.IncludePrefix()
		}
		terms := make([]string, 0, len(r.Names))
		for _, name := range r.Names {
			if err := errors.ValidateTag(name); err != nil {
				return Query{}, err
			}
			terms = append(terms, "tag:"+prefix+name)
		}
		// The type selects the tag prefix; it is not an extra filter here.
		c := r.Common
		c.Type = ""
		return search(c, terms), nil

	case ByNameWildcard:
		if err := errors.ValidatePackageName(r.Pattern); err != nil {
			return Query{}, err
		}
		return search(r.Common, []string{r.Pattern}), nil

	case ByExactName:
		if err := validateExactName(r.Name); err != nil {
			return Query{}, err
		}
		return findByID(r.Name), nil

	case ByExactNameAndVersion:
		if err := validateExactName(r.Name); err != nil {
			return Query{}, err
		}
		v := strings.TrimSpace(r.Version)
		if v == "" || strings.ContainsAny(v, "*[]()") {
			return Query{}, errors.New(errors.ErrCodeValidation, "exact version required, got %q", r.Version)
		}
		return Query{
			Method: http.MethodGet,
			Path:   PackagesPath(r.Name, v),
		}, nil

	case ByExactNameAndVersionSpec:
		if err := validateExactName(r.Name); err != nil {
			return Query{}, err
		}
		if r.Spec == nil {
			return Query{}, errors.New(errors.ErrCodeValidation, "version spec is required")
		}
		return findByID(r.Name), nil
	}

	return Query{}, errors.New(errors.ErrCodeValidation, "unsupported request %T", req)
}

// PackagesPath renders the exact id+version lookup path.
func PackagesPath(id, version string) string {
	return PathPackages + "(Id=" + pathLiteral(id) + ",Version=" + pathLiteral(version) + ")"
}

// pathLiteral quotes s as an OData literal inside a path segment. The
// delimiting quotes stay literal; the value itself is escaped.
func pathLiteral(s string) string {
	return "'" + url.PathEscape(strings.ReplaceAll(s, "'", "''")) + "'"
}

// ContentPath renders the package download path for id and version. The
// download itself is not performed by this module.
func ContentPath(id, version string) string {
	return PathContent + "/" + url.PathEscape(id) + "/" + url.PathEscape(version)
}

// CheckProtocol fails with PROTOCOL_UNSUPPORTED unless repo speaks V2.
func CheckProtocol(repo Repository) error {
	switch repo.Protocol {
	case V2:
		return nil
	case V3:
		return errors.New(errors.ErrCodeProtocolUnsupported, "repository %q uses protocol v3, which is not implemented", repo.Name)
	default:
		return errors.New(errors.ErrCodeProtocolUnsupported, "repository %q uses unknown protocol %q", repo.Name, repo.Protocol)
	}
}

func validateCommon(c Common) error {
	for _, tag := range c.Tags {
		if err := errors.ValidateTag(tag); err != nil {
			return err
		}
	}
	return nil
}

func validateExactName(name string) error {
	if err := errors.ValidatePackageName(name); err != nil {
		return err
	}
	if IsWildcard(name) {
		return errors.New(errors.ErrCodeValidation, "name %q must not contain wildcards", name)
	}
	return nil
}

// IsWildcard reports whether name contains glob characters.
func IsWildcard(name string) bool {
	return strings.ContainsAny(name, "*?")
}

// search builds a Search() query. Leading terms come first, followed by the
// type tag and one tag term per common tag.
func search(c Common, terms []string) Query {
	if tag := c.Type.Tag(); tag != "" {
		terms = append(terms, "tag:"+tag)
	}
	for _, t := range c.Tags {
		terms = append(terms, "tag:"+t)
	}

	params := url.Values{}
	if c.IncludePrerelease {
		params.Set(ParamFilter, FilterAbsoluteLatest)
		params.Set(ParamIncludePrerelease, "true")
	} else {
		params.Set(ParamFilter, FilterLatest)
	}
	if len(terms) > 0 {
		params.Set(ParamSearchTerm, literal(strings.Join(terms, " ")))
	}
	return Query{Method: http.MethodGet, Path: PathSearch, Params: params}
}

func findByID(name string) Query {
	return Query{
		Method: http.MethodGet,
		Path:   PathFindByID,
		Params: url.Values{ParamID: {literal(name)}},
	}
}

// literal quotes s as an OData string literal.
func literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
