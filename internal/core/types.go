// Package core provides shared types and the registry system.
package core

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// PackageMetadata is the registry document for one published version of a
// package, reduced to what the manifest builder needs.
type PackageMetadata struct {
	Name             string
	Version          string
	Description      string
	License          string
	PeerDependencies PeerDependencies
	Metadata         map[string]any // registry-specific data
}

// PeerDependency is a single peer requirement declared by a package.
type PeerDependency struct {
	Name     string
	Range    string
	Optional bool
}

// PeerDependencies keeps peer requirements in the order the package declares them.
type PeerDependencies []PeerDependency

// UnmarshalJSON decodes a JSON object of name to range, preserving key order.
// A name declared twice keeps its first position and its last range.
func (p *PeerDependencies) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = nil
		return nil
	}

	raw := orderedmap.New[string, json.RawMessage]()
	if err := raw.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("peerDependencies: %w", err)
	}

	deps := make(PeerDependencies, 0, raw.Len())
	for pair := raw.Oldest(); pair != nil; pair = pair.Next() {
		// Registries occasionally publish non-string ranges; keep the raw text.
		var rng string
		if err := json.Unmarshal(pair.Value, &rng); err != nil {
			rng = string(pair.Value)
		}
		deps = append(deps, PeerDependency{Name: pair.Key, Range: rng})
	}

	*p = deps
	return nil
}

// MarkOptional flags the named peers as optional.
func (p PeerDependencies) MarkOptional(optional map[string]bool) {
	for i := range p {
		if optional[p[i].Name] {
			p[i].Optional = true
		}
	}
}

// Get returns the range declared for name.
func (p PeerDependencies) Get(name string) (string, bool) {
	for _, d := range p {
		if d.Name == name {
			return d.Range, true
		}
	}
	return "", false
}

// SearchResult is a package returned by a registry search.
type SearchResult struct {
	Name        string
	Version     string
	Description string
	Keywords    []string
	Publisher   string
}
