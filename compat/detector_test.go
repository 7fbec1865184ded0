package compat

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/git-pkgs/pkgbuilder/internal/core"
	"github.com/git-pkgs/pkgbuilder/manifest"
)

// fakeSource serves canned metadata. Names in failures return that error;
// names in gates block until the gate channel is closed.
type fakeSource struct {
	mu       sync.Mutex
	packages map[string]*core.PackageMetadata
	failures map[string]error
	gates    map[string]chan struct{}
	calls    map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		packages: make(map[string]*core.PackageMetadata),
		failures: make(map[string]error),
		gates:    make(map[string]chan struct{}),
		calls:    make(map[string]int),
	}
}

func (f *fakeSource) add(name string, peers ...string) {
	meta := &core.PackageMetadata{Name: name, Version: "1.0.0"}
	for i := 0; i+1 < len(peers); i += 2 {
		meta.PeerDependencies = append(meta.PeerDependencies, core.PeerDependency{Name: peers[i], Range: peers[i+1]})
	}
	f.packages[name] = meta
}

func (f *fakeSource) FetchMetadata(ctx context.Context, name string) (*core.PackageMetadata, error) {
	f.mu.Lock()
	f.calls[name]++
	gate := f.gates[name]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err, ok := f.failures[name]; ok {
		return nil, err
	}
	meta, ok := f.packages[name]
	if !ok {
		return nil, &core.NotFoundError{Ecosystem: "npm", Name: name}
	}
	return meta, nil
}

func (f *fakeSource) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func TestComputeReportsConflict(t *testing.T) {
	src := newFakeSource()
	src.add("X", "react", "^17.0.0")
	src.add("Y", "react", "^18.0.0")

	m := manifest.New()
	m.AddDependency("X", "1.0.0", false)
	m.AddDependency("Y", "1.0.0", false)

	report := NewDetector(src, nil).Compute(context.Background(), m)

	if !report.HasConflicts() {
		t.Fatal("expected a conflict")
	}
	c, ok := report.Conflict("react")
	if !ok {
		t.Fatalf("react not reported; got %v", report.Peers())
	}
	want := []Requirement{
		{Range: "^17.0.0", RequiredBy: "X"},
		{Range: "^18.0.0", RequiredBy: "Y"},
	}
	if !reflect.DeepEqual(c.Requirements, want) {
		t.Errorf("Requirements = %+v, want %+v", c.Requirements, want)
	}
}

func TestComputeIdenticalRangesDoNotConflict(t *testing.T) {
	src := newFakeSource()
	src.add("X", "react", "^17.0.0")
	src.add("Z", "react", "^17.0.0")

	m := manifest.New()
	m.AddDependency("X", "1.0.0", false)
	m.AddDependency("Z", "1.0.0", true)

	report := NewDetector(src, nil).Compute(context.Background(), m)
	if report.HasConflicts() {
		t.Errorf("expected no conflicts, got %v", report.Peers())
	}
}

func TestComputeComparesRangesAsStrings(t *testing.T) {
	src := newFakeSource()
	src.add("A", "react", "^1.0.0")
	src.add("B", "react", ">=1.0.0 <2.0.0")

	report := NewDetector(src, nil).ComputeNames(context.Background(), []string{"A", "B"}, nil)
	if _, ok := report.Conflict("react"); !ok {
		t.Error("textually different ranges should conflict")
	}
}

func TestComputeSinglePackageNeverConflicts(t *testing.T) {
	src := newFakeSource()
	src.add("A", "react", "^17.0.0", "vue", "^3.0.0")

	report := NewDetector(src, nil).ComputeNames(context.Background(), []string{"A"}, nil)
	if report.HasConflicts() {
		t.Errorf("single package reported conflicts: %v", report.Peers())
	}
}

func TestComputeDuplicatePeerKeyDoesNotSelfConflict(t *testing.T) {
	var meta core.PackageMetadata
	doc := `{"name": "solo", "version": "1.0.0", "peerDependencies": {"react": "^17.0.0", "react": "^18.0.0"}}`
	if err := json.Unmarshal([]byte(doc), &meta); err != nil {
		t.Fatal(err)
	}
	src := newFakeSource()
	src.packages["solo"] = &meta

	report := NewDetector(src, nil).ComputeNames(context.Background(), []string{"solo"}, nil)
	if report.HasConflicts() {
		t.Errorf("package conflicts with itself: %+v", report.Conflicts)
	}
	if r, _ := meta.PeerDependencies.Get("react"); r != "^18.0.0" {
		t.Errorf("react range = %q, want the last declaration", r)
	}
}

func TestComputeTolerantOfFetchFailure(t *testing.T) {
	src := newFakeSource()
	src.add("X", "react", "^17.0.0")
	src.add("Y", "react", "^18.0.0")
	src.failures["W"] = errors.New("connection reset")

	report := NewDetector(src, nil).ComputeNames(context.Background(), []string{"X", "W", "Y", "unknown"}, nil)

	if _, ok := report.Conflict("react"); !ok {
		t.Error("react conflict lost because of a failing package")
	}
	want := []string{"W", "unknown"}
	if !reflect.DeepEqual(report.Unavailable, want) {
		t.Errorf("Unavailable = %v, want %v", report.Unavailable, want)
	}
}

func TestComputeDiscoveryOrder(t *testing.T) {
	src := newFakeSource()
	src.add("first", "zeta", "^1.0.0", "alpha", "^1.0.0")
	src.add("second", "alpha", "^2.0.0", "zeta", "^2.0.0", "mid", "^1.0.0")
	src.add("third", "mid", "^2.0.0")

	report := NewDetector(src, nil).ComputeNames(context.Background(), []string{"first", "second", "third"}, nil)

	want := []string{"zeta", "alpha", "mid"}
	if got := report.Peers(); !reflect.DeepEqual(got, want) {
		t.Errorf("Peers() = %v, want %v", got, want)
	}
	if got := report.Checked; !reflect.DeepEqual(got, []string{"first", "second", "third"}) {
		t.Errorf("Checked = %v", got)
	}
}

func TestComputeResultIsOrderIndependent(t *testing.T) {
	src := newFakeSource()
	src.add("a", "react", "^17.0.0", "vue", "^3.0.0")
	src.add("b", "react", "^18.0.0", "vue", "^3.0.0")
	src.add("c", "svelte", "^4.0.0")
	src.add("d", "svelte", "^5.0.0")

	d := NewDetector(src, nil)
	forward := d.ComputeNames(context.Background(), []string{"a", "b", "c", "d"}, nil)
	backward := d.ComputeNames(context.Background(), []string{"d", "c", "b", "a"}, nil)

	set := func(r Report) map[string]int {
		out := make(map[string]int)
		for _, c := range r.Conflicts {
			out[c.Peer] = len(c.Requirements)
		}
		return out
	}
	if !reflect.DeepEqual(set(forward), set(backward)) {
		t.Errorf("conflict sets differ: %v vs %v", set(forward), set(backward))
	}
	if _, ok := forward.Conflict("vue"); ok {
		t.Error("vue has identical ranges and should not conflict")
	}
}

func TestComputeUsesCache(t *testing.T) {
	src := newFakeSource()
	src.add("X", "react", "^17.0.0")
	src.add("Y", "react", "^18.0.0")
	src.failures["W"] = errors.New("boom")

	m := manifest.New()
	m.AddDependency("X", "1.0.0", false)
	m.AddDependency("Y", "1.0.0", false)
	m.AddDependency("W", "1.0.0", true)

	d := NewDetector(src, nil)
	first := d.Compute(context.Background(), m)
	fetches := d.Cache().Fetches()
	second := d.Compute(context.Background(), m)

	if got := d.Cache().Fetches(); got != fetches {
		t.Errorf("second compute made %d extra fetches", got-fetches)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("reports differ between runs:\n%+v\n%+v", first, second)
	}
	for _, name := range []string{"X", "Y", "W"} {
		if n := src.callCount(name); n != 1 {
			t.Errorf("%s fetched %d times, want 1", name, n)
		}
	}
}

func TestComputeSurvivesAbandonedConcurrentCompute(t *testing.T) {
	src := newFakeSource()
	src.add("X", "react", "^17.0.0")
	src.add("Y", "react", "^18.0.0")
	gate := make(chan struct{})
	src.gates["X"] = gate
	d := NewDetector(src, nil)

	stale, cancel := context.WithCancel(context.Background())
	staleDone := make(chan struct{})
	go func() {
		d.ComputeNames(stale, []string{"X", "Y"}, nil)
		close(staleDone)
	}()
	waitForCalls(t, src, "X", 1)

	live := make(chan Report, 1)
	go func() {
		live <- d.ComputeNames(context.Background(), []string{"X", "Y"}, nil)
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	<-staleDone
	close(gate)

	report := <-live
	if len(report.Unavailable) != 0 {
		t.Errorf("Unavailable = %v, want none", report.Unavailable)
	}
	if len(report.Conflicts) != 1 || report.Conflicts[0].Peer != "react" {
		t.Errorf("Conflicts = %+v, want one react conflict", report.Conflicts)
	}
}

func TestComputeMarksSelectedPeer(t *testing.T) {
	src := newFakeSource()
	src.add("react-dom", "react", "^18.3.1")
	src.add("legacy-widget", "react", "^16.8.0")
	src.add("react")

	m := manifest.New()
	m.AddDependency("react", "18.3.1", false)
	m.AddDependency("react-dom", "18.3.1", false)
	m.AddDependency("legacy-widget", "2.0.0", false)

	report := NewDetector(src, nil).Compute(context.Background(), m)
	c, ok := report.Conflict("react")
	if !ok {
		t.Fatal("react should conflict")
	}
	if c.Selected != "^18.3.1" {
		t.Errorf("Selected = %q, want %q", c.Selected, "^18.3.1")
	}
	unsatisfied := c.Unsatisfied()
	if len(unsatisfied) != 1 || unsatisfied[0].RequiredBy != "legacy-widget" {
		t.Errorf("Unsatisfied() = %+v, want legacy-widget only", unsatisfied)
	}
}

func TestComputeEmptyManifest(t *testing.T) {
	report := NewDetector(newFakeSource(), nil).Compute(context.Background(), manifest.New())
	if report.HasConflicts() || len(report.Checked) != 0 {
		t.Errorf("empty manifest produced %+v", report)
	}
}

func TestResolve(t *testing.T) {
	src := newFakeSource()
	src.add("react")
	src.packages["react"].Version = "18.3.1"
	d := NewDetector(src, nil)
	ctx := context.Background()

	tests := []struct {
		ref         string
		wantName    string
		wantVersion string
		wantErr     bool
	}{
		{"react", "react", "18.3.1", false},
		{"react@17.0.2", "react", "17.0.2", false},
		{"@types/react@18.2.0", "@types/react", "18.2.0", false},
		{"missing", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			name, version, err := d.Resolve(ctx, tt.ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve(%q) error = %v, wantErr %v", tt.ref, err, tt.wantErr)
			}
			if name != tt.wantName || version != tt.wantVersion {
				t.Errorf("Resolve(%q) = %q, %q; want %q, %q", tt.ref, name, version, tt.wantName, tt.wantVersion)
			}
		})
	}

	// The latest-version lookup primes the cache for the next computation.
	d.ComputeNames(ctx, []string{"react"}, nil)
	if n := src.callCount("react"); n != 1 {
		t.Errorf("react fetched %d times, want 1", n)
	}
}
