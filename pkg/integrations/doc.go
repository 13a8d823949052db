// Package integrations provides HTTP clients for package feed APIs.
//
// # Overview
//
// This package contains the shared HTTP plumbing used by feed clients. Each
// feed protocol has its own subpackage:
//
//   - [gallery]: NuGet V2 / PowerShell Gallery OData feeds
//
// # Client Pattern
//
// Feed clients embed [Client] and expose one fetch method per query:
//
//	client := gallery.NewClient(30 * time.Second)
//	body, err := client.Fetch(ctx, repo, q)
//
// Clients handle:
//   - One HTTP GET per call, with no retry and no caching
//   - Common request headers (Accept, User-Agent)
//   - Classification of failures into TRANSPORT and CANCELLED errors
//
// # Shared Infrastructure
//
// The [Client] type reports every request through [observability.HTTP] so
// callers can attach metrics without wrapping the transport.
//
// [gallery]: github.com/matzehuels/psfind/pkg/integrations/gallery
// [observability.HTTP]: github.com/matzehuels/psfind/pkg/observability.HTTP
package integrations
