// Package gallery provides an HTTP client for NuGet V2 OData feeds such as the
// PowerShell Gallery.
//
// # Overview
//
// The client knows nothing about request shapes. It receives a [query.Query]
// already translated for a repository, issues exactly one GET against the
// repository's base address and returns the raw Atom body.
//
// # Usage
//
//	repo := query.Repository{
//	    Name:     "PSGallery",
//	    BaseURL:  "https://www.powershellgallery.com/api/v2",
//	    Protocol: query.V2,
//	}
//	q, err := query.Translate(query.ByExactName{Name: "PowerShellGet"}, repo)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client := gallery.NewClient(30 * time.Second)
//	body, err := client.Fetch(ctx, repo, q)
//
// # Errors
//
// Failures are reported as coded errors from the errors package: TRANSPORT
// for network failures and non-2xx responses, CANCELLED when the context ends
// first, PROTOCOL_UNSUPPORTED when handed a non-V2 repository.
//
// [query.Query]: github.com/matzehuels/psfind/pkg/query.Query
package gallery
