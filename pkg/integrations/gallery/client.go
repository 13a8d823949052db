package gallery

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/matzehuels/psfind/pkg/buildinfo"
	"github.com/matzehuels/psfind/pkg/errors"
	"github.com/matzehuels/psfind/pkg/integrations"
	"github.com/matzehuels/psfind/pkg/query"
)

// AcceptAtom is the content type requested from V2 feeds.
const AcceptAtom = "application/atom+xml, application/xml;q=0.9"

// Client fetches V2 feed documents.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
}

// NewClient creates a gallery client whose requests time out after timeout.
// A non-positive timeout selects [integrations.DefaultTimeout].
func NewClient(timeout time.Duration) *Client {
	return &Client{
		Client: integrations.NewClient(timeout, map[string]string{
			"Accept":     AcceptAtom,
			"User-Agent": buildinfo.UserAgent(),
		}),
	}
}

// Fetch performs q against repo and returns the response body.
//
// Exactly one request is made; the body is returned unparsed.
func (c *Client) Fetch(ctx context.Context, repo query.Repository, q query.Query) ([]byte, error) {
	if repo.Protocol != query.V2 {
		return nil, errors.New(errors.ErrCodeProtocolUnsupported, "repository %q: gallery client only speaks v2", repo.Name)
	}
	if q.Method != "" && q.Method != http.MethodGet {
		return nil, errors.New(errors.ErrCodeInternal, "unsupported method %s", q.Method)
	}
	return c.GetBytes(ctx, q.URL(repo.BaseURL))
}

// ContentURL returns the download address of a package version in repo.
// Nothing is downloaded.
func ContentURL(repo query.Repository, id, version string) string {
	return strings.TrimRight(repo.BaseURL, "/") + "/" + query.ContentPath(id, version)
}
