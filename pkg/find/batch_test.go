package find

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/matzehuels/psfind/internal/feedtest"
	"github.com/matzehuels/psfind/pkg/errors"
	"github.com/matzehuels/psfind/pkg/integrations/gallery"
	"github.com/matzehuels/psfind/pkg/observability"
	"github.com/matzehuels/psfind/pkg/query"
	"github.com/matzehuels/psfind/pkg/version"
)

func TestFindNamesAndVersionGlobbingRejectsWildcardSlot(t *testing.T) {
	srv := feedtest.NewServer(t,
		feedtest.Package{ID: "PowerShellGet", Version: "2.2.5"},
		feedtest.Package{ID: "PowerShellGet", Version: "3.0.0"},
		feedtest.Package{ID: "PSReadLine", Version: "2.1.0"},
		feedtest.Package{ID: "PSReadLine", Version: "2.3.4"},
		feedtest.Package{ID: "PackageManagement", Version: "1.4.8.1"},
	)
	f := New(gallery.NewClient(5*time.Second), WithLogger(quietLogger()))

	spec, err := version.ParseSpec("[2.0,3.0)")
	if err != nil {
		t.Fatal(err)
	}
	names := []string{"PowerShellGet", "Package*", "PSReadLine"}
	results := f.FindNamesAndVersionGlobbing(context.Background(), srv.Repository("fake"), names, spec, false)

	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("results[%d].Index = %d", i, r.Index)
		}
	}

	if !results[0].OK() || !results[2].OK() {
		t.Fatalf("exact slots failed: %v, %v", results[0].Err, results[2].Err)
	}
	if diff := cmp.Diff([]string{"PowerShellGet@2.2.5"}, ids(results[0].Descriptors)); diff != "" {
		t.Errorf("slot 0 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"PSReadLine@2.3.4", "PSReadLine@2.1.0"}, ids(results[2].Descriptors)); diff != "" {
		t.Errorf("slot 2 mismatch (-want +got):\n%s", diff)
	}

	rec := results[1].Err
	if rec == nil || rec.Code != errors.ErrCodeValidation {
		t.Fatalf("slot 1 error = %v, want VALIDATION", rec)
	}
	if rec.Index == nil || *rec.Index != 1 {
		t.Errorf("slot 1 record index = %v, want 1", rec.Index)
	}

	// Only the two exact names reach the feed.
	if n := len(srv.Requests()); n != 2 {
		t.Errorf("server requests = %d (%v), want 2", n, srv.Requests())
	}
}

func TestFindNamesGlobbing(t *testing.T) {
	pkgs := []feedtest.Package{
		{ID: "PackageManagement", Version: "1.4.8.1"},
		{ID: "PSReadLine", Version: "2.3.4", Description: "Package-aware line editing"},
		{ID: "Pester", Version: "5.5.0"},
	}
	srv := feedtest.NewServer(t, pkgs...)
	f := New(gallery.NewClient(5*time.Second), WithLogger(quietLogger()))

	results := f.FindNamesGlobbing(context.Background(), srv.Repository("fake"), []string{"Package*", "Pester", "Missing"}, false)

	if diff := cmp.Diff([]string{"PackageManagement@1.4.8.1"}, ids(results[0].Descriptors)); diff != "" {
		t.Errorf("slot 0 mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Pester@5.5.0"}, ids(results[1].Descriptors)); diff != "" {
		t.Errorf("slot 1 mismatch (-want +got):\n%s", diff)
	}
	if results[2].Err == nil || results[2].Err.Code != errors.ErrCodeResourceNotFound {
		t.Errorf("slot 2 error = %v, want RESOURCE_NOT_FOUND", results[2].Err)
	}

	if diff := cmp.Diff([]string{"PackageManagement@1.4.8.1", "Pester@5.5.0"}, ids(Descriptors(results))); diff != "" {
		t.Errorf("Descriptors() mismatch (-want +got):\n%s", diff)
	}
	if n := len(Failures(results)); n != 1 {
		t.Errorf("len(Failures()) = %d, want 1", n)
	}
}

func TestBatchIndexAlignedUnderReordering(t *testing.T) {
	const n = 24
	fetch := &stubFetcher{fn: func(_ context.Context, q query.Query) ([]byte, error) {
		id := q.Params.Get("id")
		id = id[1 : len(id)-1]
		var i int
		fmt.Sscanf(id, "pkg%d", &i)
		// Later items finish first.
		time.Sleep(time.Duration(n-i) * time.Millisecond)
		return feedtest.Feed(testBase, feedtest.Package{ID: id, Version: "1.0.0"}), nil
	}}
	f := New(fetch, WithLogger(quietLogger()), WithWorkers(n))

	reqs := make([]query.Request, n)
	for i := range reqs {
		reqs[i] = query.ByExactName{Name: fmt.Sprintf("pkg%d", i)}
	}
	results := f.Batch(context.Background(), testRepo, reqs)

	if len(results) != n {
		t.Fatalf("len(results) = %d, want %d", len(results), n)
	}
	for i, r := range results {
		if !r.OK() {
			t.Fatalf("results[%d] failed: %v", i, r.Err)
		}
		if want := fmt.Sprintf("pkg%d@1.0.0", i); r.Descriptors[0].String() != want {
			t.Errorf("results[%d] = %s, want %s", i, r.Descriptors[0], want)
		}
	}
}

func TestBatchIDCorrelatesLogLines(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	f := New(serve(psGetVersions...), WithLogger(logger))
	reqs := []query.Request{
		query.ByExactName{Name: "PowerShellGet"},
		query.ByExactName{Name: ""},
	}

	first := f.Batch(context.Background(), testRepo, reqs)
	second := f.Batch(context.Background(), testRepo, reqs)

	id := first[0].BatchID
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("BatchID %q is not a uuid: %v", id, err)
	}
	if first[1].BatchID != id {
		t.Errorf("slot ids differ: %q, %q", id, first[1].BatchID)
	}
	if second[0].BatchID == id {
		t.Errorf("second batch reused id %q", id)
	}
	if !bytes.Contains(buf.Bytes(), []byte("batch="+id)) {
		t.Errorf("log output has no batch=%s line:\n%s", id, buf.String())
	}
}

func TestBatchRespectsWorkerLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	fetch := &stubFetcher{fn: func(context.Context, query.Query) ([]byte, error) {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return feedtest.Feed(testBase), nil
	}}
	f := New(fetch, WithLogger(quietLogger()), WithWorkers(3))

	reqs := make([]query.Request, 12)
	for i := range reqs {
		reqs[i] = query.AllPackages{}
	}
	f.Batch(context.Background(), testRepo, reqs)

	if p := peak.Load(); p > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", p)
	}
	if c := fetch.calls.Load(); c != 12 {
		t.Errorf("fetch calls = %d, want 12", c)
	}
}

func TestBatchFailureDoesNotCancelSiblings(t *testing.T) {
	fetch := &stubFetcher{fn: func(_ context.Context, q query.Query) ([]byte, error) {
		if q.Params.Get("id") == "'Broken'" {
			return nil, errors.New(errors.ErrCodeTransport, "connection reset")
		}
		time.Sleep(10 * time.Millisecond)
		return feedtest.Feed(testBase, psGetVersions...), nil
	}}
	f := New(fetch, WithLogger(quietLogger()))

	results := f.Batch(context.Background(), testRepo, []query.Request{
		query.ByExactName{Name: "Broken"},
		query.ByExactName{Name: "PowerShellGet"},
	})

	if results[0].Err == nil || results[0].Err.Code != errors.ErrCodeTransport {
		t.Errorf("slot 0 error = %v, want TRANSPORT", results[0].Err)
	}
	if !results[1].OK() {
		t.Errorf("slot 1 error = %v, want success", results[1].Err)
	}
}

func TestBatchCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var once sync.Once

	fetch := &stubFetcher{fn: func(ctx context.Context, _ query.Query) ([]byte, error) {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return nil, errors.Wrap(errors.ErrCodeCancelled, ctx.Err(), "request cancelled")
	}}
	f := New(fetch, WithLogger(quietLogger()), WithWorkers(1))

	reqs := []query.Request{
		query.ByExactName{Name: "A"},
		query.ByExactName{Name: "B"},
		query.ByExactName{Name: "C"},
	}
	go func() {
		<-started
		cancel()
	}()
	results := f.Batch(ctx, testRepo, reqs)

	for i, r := range results {
		if r.Err == nil || r.Err.Code != errors.ErrCodeCancelled {
			t.Errorf("results[%d].Err = %v, want CANCELLED", i, r.Err)
		}
	}
	if c := fetch.calls.Load(); c != 1 {
		t.Errorf("fetch calls = %d, want 1", c)
	}
}

func TestBatchAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetch := serve(psGetVersions...)
	f := New(fetch, WithLogger(quietLogger()))
	results := f.FindNamesGlobbing(ctx, testRepo, []string{"PowerShellGet", "PS*"}, false)

	for i, r := range results {
		if r.Err == nil || r.Err.Code != errors.ErrCodeCancelled {
			t.Errorf("results[%d].Err = %v, want CANCELLED", i, r.Err)
		}
	}
	if c := fetch.calls.Load(); c != 0 {
		t.Errorf("fetch calls = %d, want 0", c)
	}
}

func TestBatchEmpty(t *testing.T) {
	f := New(serve(), WithLogger(quietLogger()))
	if got := f.Batch(context.Background(), testRepo, nil); len(got) != 0 {
		t.Errorf("Batch(nil) = %v, want empty", got)
	}
}

var specByText = cmp.Comparer(func(a, b version.Spec) bool {
	return a.String() == b.String()
})

func TestBatchRequests(t *testing.T) {
	rng, _ := version.ParseSpec("[1.0,2.0)")
	common := query.Common{IncludePrerelease: true}

	tests := []struct {
		name string
		got  []query.Request
		want []query.Request
	}{
		{
			name: "names",
			got:  BatchNameWildcard{Names: []string{"Az", "Az.*"}, Common: common}.Requests(),
			want: []query.Request{
				query.ByExactName{Common: common, Name: "Az"},
				query.ByNameWildcard{Common: common, Pattern: "Az.*"},
			},
		},
		{
			name: "names with spec",
			got:  BatchNameAndVersionSpec{Names: []string{"Az", "Az.*"}, Spec: rng, LatestOnly: true}.Requests(),
			want: []query.Request{
				query.ByExactNameAndVersionSpec{Name: "Az", Spec: rng, LatestOnly: true},
				query.ByExactNameAndVersionSpec{Name: "Az.*", Spec: rng, LatestOnly: true},
			},
		},
		{
			name: "names without spec",
			got:  BatchNameAndVersionSpec{Names: []string{"Az*"}}.Requests(),
			want: []query.Request{query.ByNameWildcard{Pattern: "Az*"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.got, specByText); diff != "" {
				t.Errorf("Requests() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type recordingBatchHooks struct {
	observability.NoopFindHooks
	mu     sync.Mutex
	items  int
	failed int
	done   bool
}

func (h *recordingBatchHooks) OnBatchStart(_ context.Context, _ string, items int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.items = items
}

func (h *recordingBatchHooks) OnBatchComplete(_ context.Context, _ string, _, failed int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failed = failed
	h.done = true
}

func TestBatchFiresHooks(t *testing.T) {
	hooks := &recordingBatchHooks{}
	observability.SetFindHooks(hooks)
	defer observability.Reset()

	f := New(serve(psGetVersions...), WithLogger(quietLogger()))
	f.FindNamesGlobbing(context.Background(), testRepo, []string{"PowerShellGet", "Missing"}, false)

	if !hooks.done || hooks.items != 2 || hooks.failed != 1 {
		t.Errorf("hooks = items %d failed %d done %v, want 2/1/true", hooks.items, hooks.failed, hooks.done)
	}
}
