package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MetadataSource returns the metadata of the latest published version of a package.
// Unknown packages are reported with an error wrapping ErrNotFound.
type MetadataSource interface {
	FetchMetadata(ctx context.Context, name string) (*PackageMetadata, error)
}

// Registry is the interface implemented by all registry clients.
type Registry interface {
	MetadataSource

	// Ecosystem returns the PURL type for this registry (e.g., "npm").
	Ecosystem() string

	// Search returns up to size packages matching query.
	Search(ctx context.Context, query string, size int) ([]SearchResult, error)

	// URLs returns the URL builder for this registry.
	URLs() URLBuilder
}

// MaintainerSearcher is implemented by registries that can list the packages
// published by a user.
type MaintainerSearcher interface {
	SearchMaintainer(ctx context.Context, user string) ([]SearchResult, error)
}

// Factory creates a registry instance for a given base URL.
type Factory func(baseURL string, client *Client) Registry

var (
	factories = make(map[string]Factory)
	defaults  = make(map[string]string)
	mu        sync.RWMutex
)

// Register adds a registry factory.
// ecosystem is the PURL type (e.g., "npm"); defaultURL is used when New is
// called without a base URL.
func Register(ecosystem string, defaultURL string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[ecosystem] = factory
	defaults[ecosystem] = defaultURL
}

// New creates a new registry for the given ecosystem.
// If baseURL is empty, the default registry URL is used.
func New(ecosystem string, baseURL string, client *Client) (Registry, error) {
	mu.RLock()
	factory, ok := factories[ecosystem]
	defaultURL := defaults[ecosystem]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown ecosystem: %s", ecosystem)
	}

	if baseURL == "" {
		baseURL = defaultURL
	}

	if client == nil {
		client = DefaultClient()
	}

	return factory(baseURL, client), nil
}

// SupportedEcosystems returns all registered ecosystem types, sorted.
func SupportedEcosystems() []string {
	mu.RLock()
	defer mu.RUnlock()

	ecosystems := make([]string, 0, len(factories))
	for eco := range factories {
		ecosystems = append(ecosystems, eco)
	}
	sort.Strings(ecosystems)
	return ecosystems
}

// DefaultURL returns the default registry URL for an ecosystem.
func DefaultURL(ecosystem string) string {
	mu.RLock()
	defer mu.RUnlock()
	return defaults[ecosystem]
}
