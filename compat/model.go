package compat

import (
	"context"
	"sync"

	"github.com/git-pkgs/pkgbuilder/manifest"
)

// Result is the outcome of one Recompute call.
type Result struct {
	// Seq is the computation's sequence number; later calls get larger numbers.
	Seq    uint64
	Report Report
	// Stale is set when a newer computation was initiated before this one
	// settled. Stale reports are never published.
	Stale bool
}

// Model owns a manifest for the length of a session and keeps its conflict
// report current. Every mutation that changes the dependency set starts a
// recomputation; only the most recently initiated one is ever published.
type Model struct {
	mu        sync.Mutex
	manifest  *manifest.Manifest
	detector  *Detector
	seq       uint64
	published uint64
	report    Report
	settled   chan struct{} // closed when computation seq is published
	listeners []func(Result)

	// deliverMu serializes listener calls so they observe publications in
	// sequence order.
	deliverMu sync.Mutex
}

// NewModel returns a model around m. A nil manifest gets the defaults.
func NewModel(m *manifest.Manifest, d *Detector) *Model {
	if m == nil {
		m = manifest.New()
	}
	return &Model{manifest: m, detector: d}
}

// Detector returns the detector the model computes reports with.
func (m *Model) Detector() *Detector {
	return m.detector
}

// Manifest returns a copy of the current manifest.
func (m *Model) Manifest() *manifest.Manifest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.manifest.Clone()
}

// Render returns the canonical text of the current manifest.
func (m *Model) Render() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return manifest.Render(m.manifest)
}

// Subscribe registers fn to be called with published results, in sequence
// order. A result superseded by a newer publication before its listeners ran
// is skipped. fn runs on the computing goroutine.
func (m *Model) Subscribe(fn func(Result)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// SetProjectDetails overwrites name, version and description. The dependency
// set is unchanged, so no recomputation starts.
func (m *Model) SetProjectDetails(name, version, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifest.SetProjectDetails(name, version, description)
}

// AddDependency selects name at ^version and recomputes the report.
func (m *Model) AddDependency(ctx context.Context, name, version string, dev bool) <-chan Result {
	m.mu.Lock()
	m.manifest.AddDependency(name, version, dev)
	m.mu.Unlock()
	return m.Recompute(ctx)
}

// RemoveDependency deselects name. It recomputes the report only when
// something was removed; otherwise the returned channel is nil.
func (m *Model) RemoveDependency(ctx context.Context, name string) (bool, <-chan Result) {
	m.mu.Lock()
	removed := m.manifest.RemoveDependency(name)
	m.mu.Unlock()
	if !removed {
		return false, nil
	}
	return true, m.Recompute(ctx)
}

// Recompute starts a conflict computation over a snapshot of the current
// dependency set. The returned channel receives exactly one Result.
func (m *Model) Recompute(ctx context.Context) <-chan Result {
	m.mu.Lock()
	m.seq++
	seq := m.seq
	names := m.manifest.Selected()
	ranges := m.manifest.SelectedRanges()
	if m.settled == nil || m.published+1 == seq {
		// The previous computation was published, so its channel is closed.
		m.settled = make(chan struct{})
	}
	m.mu.Unlock()

	out := make(chan Result, 1)
	go func() {
		defer close(out)
		report := m.detector.ComputeNames(ctx, names, ranges)

		m.mu.Lock()
		stale := seq != m.seq
		if !stale {
			m.report = report
			m.published = seq
			close(m.settled)
		}
		m.mu.Unlock()

		res := Result{Seq: seq, Report: report, Stale: stale}
		if !stale {
			m.deliver(res)
		}
		out <- res
	}()
	return out
}

func (m *Model) deliver(res Result) {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	m.mu.Lock()
	current := res.Seq == m.published
	listeners := append(([]func(Result))(nil), m.listeners...)
	m.mu.Unlock()

	if !current {
		return
	}
	for _, fn := range listeners {
		fn(res)
	}
}

// Report returns the most recently published report and its sequence number.
// The sequence number is zero before any computation has been published.
func (m *Model) Report() (Report, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.report, m.published
}

// Wait blocks until the most recently initiated computation is published and
// returns its report.
func (m *Model) Wait(ctx context.Context) (Report, error) {
	for {
		m.mu.Lock()
		if m.published == m.seq {
			report := m.report
			m.mu.Unlock()
			return report, nil
		}
		settled := m.settled
		m.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return Report{}, ctx.Err()
		}
	}
}
