package feedtest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gobwas/glob"

	"github.com/matzehuels/psfind/pkg/query"
	"github.com/matzehuels/psfind/pkg/version"
)

// BasePath is the path prefix under which the feed is served.
const BasePath = "/api/v2"

// Endpoint names accepted by [Server.Fail].
const (
	EndpointSearch   = "Search"
	EndpointFindByID = "FindPackagesById"
	EndpointPackages = "Packages"
)

var packagesLookup = regexp.MustCompile(`^Packages\(Id='(.*)',Version='(.*)'\)$`)

// Server is a fake V2 gallery.
//
// Search emulates the real gallery's habit of matching search terms against
// descriptions as well as ids, so clients must re-filter wildcard results.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	packages []Package
	requests []string
	failures map[string]int
}

// NewServer starts a fake gallery serving pkgs. The server is closed when the
// test ends.
func NewServer(t testing.TB, pkgs ...Package) *Server {
	t.Helper()
	s := &Server{packages: pkgs, failures: make(map[string]int)}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Route(BasePath, func(r chi.Router) {
		r.Get("/Search()", s.search)
		r.Get("/FindPackagesById()", s.findByID)
		r.Get("/{lookup}", s.lookup)
	})

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// Repository returns a V2 repository pointing at the server.
func (s *Server) Repository(name string) query.Repository {
	return query.Repository{Name: name, BaseURL: s.URL + BasePath, Protocol: query.V2}
}

// Add publishes more package versions.
func (s *Server) Add(pkgs ...Package) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packages = append(s.packages, pkgs...)
}

// Fail makes endpoint answer with status until cleared with status 0.
func (s *Server) Fail(endpoint string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, endpoint)
		return
	}
	s.failures[endpoint] = status
}

// Requests returns the request URIs received so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.URL.RequestURI())
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) failed(w http.ResponseWriter, endpoint string) bool {
	s.mu.Lock()
	status, ok := s.failures[endpoint]
	s.mu.Unlock()
	if ok {
		http.Error(w, http.StatusText(status), status)
	}
	return ok
}

func (s *Server) snapshot() []Package {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Package(nil), s.packages...)
}

func (s *Server) base() string { return s.URL + BasePath }

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	if s.failed(w, EndpointSearch) {
		return
	}
	params := r.URL.Query()
	absolute := strings.Contains(params.Get("$filter"), "IsAbsoluteLatestVersion") &&
		params.Get("includePrerelease") == "true"

	names, tags := splitTerms(unquote(params.Get("searchTerm")))
	var hits []Package
	for _, p := range latest(s.snapshot(), absolute) {
		if hasTags(p, tags) && matchesAny(p, names) {
			hits = append(hits, p)
		}
	}
	writeAtom(w, Feed(s.base(), hits...))
}

func (s *Server) findByID(w http.ResponseWriter, r *http.Request) {
	if s.failed(w, EndpointFindByID) {
		return
	}
	id := unquote(r.URL.Query().Get("id"))
	var hits []Package
	for _, p := range s.snapshot() {
		if strings.EqualFold(p.ID, id) {
			hits = append(hits, p)
		}
	}
	writeAtom(w, Feed(s.base(), hits...))
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) {
	raw, err := url.PathUnescape(chi.URLParam(r, "lookup"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	m := packagesLookup.FindStringSubmatch(raw)
	if m == nil {
		http.NotFound(w, r)
		return
	}
	if s.failed(w, EndpointPackages) {
		return
	}
	id := strings.ReplaceAll(m[1], "''", "'")
	ver := strings.ReplaceAll(m[2], "''", "'")
	for _, p := range s.snapshot() {
		if strings.EqualFold(p.ID, id) && strings.EqualFold(p.Version, ver) {
			writeAtom(w, Entry(s.base(), p))
			return
		}
	}
	http.Error(w, "Resource not found.", http.StatusNotFound)
}

func writeAtom(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/atom+xml;type=feed;charset=utf-8")
	_, _ = w.Write(body)
}

// unquote strips OData string delimiters and undoubles embedded quotes.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		s = s[1 : len(s)-1]
	}
	return strings.ReplaceAll(s, "''", "'")
}

func splitTerms(term string) (names, tags []string) {
	for _, f := range strings.Fields(term) {
		if tag, ok := strings.CutPrefix(f, "tag:"); ok {
			tags = append(tags, tag)
		} else {
			names = append(names, f)
		}
	}
	return names, tags
}

// latest keeps the highest version per id. Prerelease versions only count
// when absolute is set. Unparseable versions are skipped.
func latest(pkgs []Package, absolute bool) []Package {
	type best struct {
		pkg Package
		ver *version.Version
	}
	index := make(map[string]int)
	var out []best
	for _, p := range pkgs {
		v, err := version.Parse(p.Version)
		if err != nil || (v.IsPrerelease() && !absolute) {
			continue
		}
		key := strings.ToLower(p.ID)
		i, seen := index[key]
		switch {
		case !seen:
			index[key] = len(out)
			out = append(out, best{p, v})
		case v.Compare(out[i].ver) > 0:
			out[i] = best{p, v}
		}
	}
	res := make([]Package, len(out))
	for i, b := range out {
		res[i] = b.pkg
	}
	return res
}

func hasTags(p Package, tags []string) bool {
	have := strings.Fields(strings.ToLower(p.Tags))
	for _, t := range tags {
		found := false
		for _, h := range have {
			if h == strings.ToLower(t) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// matchesAny reports whether p matches one of the name terms, either by id
// glob or by the term's literal text appearing in the description.
func matchesAny(p Package, names []string) bool {
	if len(names) == 0 {
		return true
	}
	id := strings.ToLower(p.ID)
	desc := strings.ToLower(p.Description)
	for _, n := range names {
		n = strings.ToLower(n)
		if g, err := glob.Compile(n); err == nil && g.Match(id) {
			return true
		}
		if lit := strings.Trim(n, "*?"); lit != "" && strings.Contains(desc, lit) {
			return true
		}
	}
	return false
}
