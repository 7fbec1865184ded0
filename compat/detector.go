// Package compat detects peer-dependency conflicts between the packages
// selected in a manifest.
//
// A peer conflicts when two or more selected packages declare it with
// different range strings. Ranges are compared textually: "^1.0.0" and
// ">=1.0.0 <2.0.0" are different requirements even though they overlap.
package compat

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/git-pkgs/pkgbuilder/internal/core"
	"github.com/git-pkgs/pkgbuilder/manifest"
)

const defaultConcurrency = 15

// Detector computes conflict reports against a metadata source through a
// session cache.
type Detector struct {
	source      core.MetadataSource
	cache       *Cache
	concurrency int
	logger      *slog.Logger
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithConcurrency bounds the number of metadata fetches in flight.
func WithConcurrency(n int) DetectorOption {
	return func(d *Detector) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithLogger sets the logger used to report fetch failures.
func WithLogger(l *slog.Logger) DetectorOption {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDetector returns a detector reading from src. A nil cache gets a fresh one.
func NewDetector(src core.MetadataSource, cache *Cache, opts ...DetectorOption) *Detector {
	if cache == nil {
		cache = NewCache()
	}
	d := &Detector{
		source:      src,
		cache:       cache,
		concurrency: defaultConcurrency,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Cache returns the detector's metadata cache.
func (d *Detector) Cache() *Cache {
	return d.cache
}

// Resolve splits a package reference into a name and version. When the
// reference carries no version the latest published one is looked up through
// the cache, so a later Compute reuses the fetch.
func (d *Detector) Resolve(ctx context.Context, ref string) (name, version string, err error) {
	name, version, err = core.ParsePackageRef(ref)
	if err != nil || version != "" {
		return name, version, err
	}

	meta, err := d.cache.Lookup(ctx, d.source, name)
	if err != nil {
		return "", "", fmt.Errorf("resolving latest version of %s: %w", name, err)
	}
	if meta == nil || meta.Version == "" {
		return "", "", fmt.Errorf("resolving latest version of %s: metadata unavailable", name)
	}
	return name, meta.Version, nil
}

// Compute builds the conflict report for the packages selected in m.
func (d *Detector) Compute(ctx context.Context, m *manifest.Manifest) Report {
	return d.ComputeNames(ctx, m.Selected(), m.SelectedRanges())
}

// ComputeNames builds the conflict report for names, processed in the given
// order. selected maps names to the ranges the manifest declares and is used
// to annotate conflicts on peers that are themselves selected; it may be nil.
//
// All metadata lookups settle before aggregation starts. A failed lookup
// only removes that package's peers from the report.
func (d *Detector) ComputeNames(ctx context.Context, names []string, selected map[string]string) Report {
	names = dedupe(names)
	metas := d.fetchAll(ctx, names)

	type peerEntry struct {
		name string
		reqs []Requirement
	}
	var peers []*peerEntry
	index := make(map[string]*peerEntry)

	report := Report{Checked: names}
	for i, name := range names {
		meta := metas[i]
		if meta == nil {
			report.Unavailable = append(report.Unavailable, name)
			continue
		}
		for _, peer := range meta.PeerDependencies {
			entry, ok := index[peer.Name]
			if !ok {
				entry = &peerEntry{name: peer.Name}
				index[peer.Name] = entry
				peers = append(peers, entry)
			}
			entry.reqs = append(entry.reqs, Requirement{
				Range:      peer.Range,
				RequiredBy: name,
				Optional:   peer.Optional,
			})
		}
	}

	for _, entry := range peers {
		if !conflicting(entry.reqs) {
			continue
		}
		report.Conflicts = append(report.Conflicts, Conflict{
			Peer:         entry.name,
			Requirements: entry.reqs,
			Selected:     selected[entry.name],
		})
	}
	return report
}

// fetchAll looks up every name concurrently and returns the results by index.
func (d *Detector) fetchAll(ctx context.Context, names []string) []*core.PackageMetadata {
	metas := make([]*core.PackageMetadata, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, name := range names {
		g.Go(func() error {
			_, cached := d.cache.Get(name)
			meta, err := d.cache.Lookup(gctx, d.source, name)
			switch {
			case err != nil:
				d.logger.Warn("metadata fetch failed", "package", name, "error", err)
			case meta == nil:
				d.logger.Debug("metadata unavailable (cached)", "package", name)
			case cached:
				d.logger.Debug("metadata cache hit", "package", name)
			default:
				d.logger.Debug("metadata fetched", "package", name, "version", meta.Version, "peers", len(meta.PeerDependencies))
			}
			metas[i] = meta
			// Failures are per package; never cancel the siblings.
			return nil
		})
	}
	_ = g.Wait()
	return metas
}

// conflicting reports whether reqs holds at least two distinct range strings.
func conflicting(reqs []Requirement) bool {
	for _, req := range reqs[1:] {
		if req.Range != reqs[0].Range {
			return true
		}
	}
	return false
}

func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
