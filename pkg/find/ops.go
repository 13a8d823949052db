package find

import (
	"context"

	"github.com/matzehuels/psfind/pkg/query"
	"github.com/matzehuels/psfind/pkg/resource"
	"github.com/matzehuels/psfind/pkg/version"
)

// FindAll lists the latest version of every package in repo.
func (f *Finder) FindAll(ctx context.Context, repo query.Repository, includePrerelease bool) ([]*resource.Descriptor, error) {
	return f.Find(ctx, repo, query.AllPackages{Common: query.Common{IncludePrerelease: includePrerelease}})
}

// FindTags lists packages carrying every one of tags.
func (f *Finder) FindTags(ctx context.Context, repo query.Repository, tags []string, includePrerelease bool) ([]*resource.Descriptor, error) {
	return f.Find(ctx, repo, query.ByTags{Common: query.Common{IncludePrerelease: includePrerelease, Tags: tags}})
}

// FindTypes lists packages of type t. A non-empty name narrows the result to
// ids starting with it.
func (f *Finder) FindTypes(ctx context.Context, repo query.Repository, t resource.Type, name string, includePrerelease bool) ([]*resource.Descriptor, error) {
	return f.Find(ctx, repo, query.ByResourceType{
		Common:     query.Common{IncludePrerelease: includePrerelease, Type: t},
		NameFilter: name,
	})
}

// FindCommandName lists packages exporting any of the named commands.
func (f *Finder) FindCommandName(ctx context.Context, repo query.Repository, names []string, includePrerelease bool) ([]*resource.Descriptor, error) {
	return f.Find(ctx, repo, query.ByCommandOrDscNames{
		Common: query.Common{IncludePrerelease: includePrerelease, Type: resource.Command},
		Names:  names,
	})
}

// FindDscResourceName lists packages exporting any of the named DSC resources.
func (f *Finder) FindDscResourceName(ctx context.Context, repo query.Repository, names []string, includePrerelease bool) ([]*resource.Descriptor, error) {
	return f.Find(ctx, repo, query.ByCommandOrDscNames{
		Common: query.Common{IncludePrerelease: includePrerelease, Type: resource.DscResource},
		Names:  names,
	})
}

// FindName resolves the latest version of the package named name.
func (f *Finder) FindName(ctx context.Context, repo query.Repository, name string, includePrerelease bool) (*resource.Descriptor, error) {
	return first(f.Find(ctx, repo, query.ByExactName{
		Common: query.Common{IncludePrerelease: includePrerelease},
		Name:   name,
	}))
}

// FindNameWithTag is FindName restricted to packages carrying every tag.
func (f *Finder) FindNameWithTag(ctx context.Context, repo query.Repository, name string, tags []string, includePrerelease bool) (*resource.Descriptor, error) {
	return first(f.Find(ctx, repo, query.ByExactName{
		Common: query.Common{IncludePrerelease: includePrerelease, Tags: tags},
		Name:   name,
	}))
}

// FindNameGlobbing lists the latest version of every package whose id matches
// pattern.
func (f *Finder) FindNameGlobbing(ctx context.Context, repo query.Repository, pattern string, includePrerelease bool) ([]*resource.Descriptor, error) {
	return f.Find(ctx, repo, query.ByNameWildcard{
		Common:  query.Common{IncludePrerelease: includePrerelease},
		Pattern: pattern,
	})
}

// FindVersion resolves one exact package version. A missing version fails
// with RESOURCE_NOT_FOUND.
func (f *Finder) FindVersion(ctx context.Context, repo query.Repository, name, ver string) (*resource.Descriptor, error) {
	return first(f.Find(ctx, repo, query.ByExactNameAndVersion{Name: name, Version: ver}))
}

// FindVersionWithTag is FindVersion restricted to packages carrying every tag.
func (f *Finder) FindVersionWithTag(ctx context.Context, repo query.Repository, name, ver string, tags []string) (*resource.Descriptor, error) {
	return first(f.Find(ctx, repo, query.ByExactNameAndVersion{
		Common:  query.Common{Tags: tags},
		Name:    name,
		Version: ver,
	}))
}

// FindVersionGlobbing lists the versions of name satisfying spec, highest
// first. With latestOnly set only the highest is returned.
func (f *Finder) FindVersionGlobbing(ctx context.Context, repo query.Repository, name string, spec version.Spec, includePrerelease, latestOnly bool) ([]*resource.Descriptor, error) {
	return f.Find(ctx, repo, query.ByExactNameAndVersionSpec{
		Common:     query.Common{IncludePrerelease: includePrerelease},
		Name:       name,
		Spec:       spec,
		LatestOnly: latestOnly,
	})
}

func first(ds []*resource.Descriptor, err error) (*resource.Descriptor, error) {
	if err != nil {
		return nil, err
	}
	return ds[0], nil
}
