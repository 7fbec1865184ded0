// Package pkgbuilder assembles npm package manifests and checks the selected
// dependencies for conflicting peer-dependency requirements.
//
// Basic usage:
//
//	import (
//		"context"
//		"github.com/git-pkgs/pkgbuilder"
//		_ "github.com/git-pkgs/pkgbuilder/all"
//	)
//
//	reg, err := pkgbuilder.New("npm", "", pkgbuilder.DefaultClient())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	m := pkgbuilder.NewManifest()
//	m.AddDependency("react-dom", "18.3.1", false)
//	m.AddDependency("react-redux", "9.1.2", false)
//
//	report := pkgbuilder.Check(context.Background(), reg, m)
//	for _, c := range report.Conflicts {
//		fmt.Println(c.Peer, c.Ranges())
//	}
//	fmt.Println(m)
//
// For an interactive editor that keeps its report current as dependencies
// change, use NewModel.
package pkgbuilder

import (
	"context"

	"github.com/git-pkgs/purl"

	"github.com/git-pkgs/pkgbuilder/client"
	"github.com/git-pkgs/pkgbuilder/compat"
	"github.com/git-pkgs/pkgbuilder/internal/core"
	"github.com/git-pkgs/pkgbuilder/manifest"
)

// Re-export types from internal/core
type (
	// Registry is the interface implemented by all registry clients.
	Registry = core.Registry

	// MetadataSource fetches the latest metadata of a package.
	MetadataSource = core.MetadataSource

	// MaintainerSearcher is implemented by registries that can list a
	// maintainer's packages.
	MaintainerSearcher = core.MaintainerSearcher

	// PackageMetadata is the latest published metadata of a package.
	PackageMetadata = core.PackageMetadata

	// PeerDependency is one declared peer requirement.
	PeerDependency = core.PeerDependency

	// SearchResult is a package returned by a registry search.
	SearchResult = core.SearchResult
)

// Re-export types from client
type (
	// Client is an HTTP client with retry logic for registry APIs.
	Client = client.Client

	// URLBuilder constructs URLs for a registry.
	URLBuilder = client.URLBuilder

	// HostState pairs a registry host with its circuit breaker state.
	HostState = client.HostState
)

// Manifest and report types
type (
	Manifest    = manifest.Manifest
	Report      = compat.Report
	Conflict    = compat.Conflict
	Requirement = compat.Requirement
	Model       = compat.Model
)

// Breaker states reported by Client.BreakerStates.
const (
	BreakerClosed = client.BreakerClosed
	BreakerOpen   = client.BreakerOpen
)

// Re-export errors
var (
	ErrNotFound    = client.ErrNotFound
	ErrCircuitOpen = client.ErrCircuitOpen
)

// Error types
type (
	HTTPError      = client.HTTPError
	NotFoundError  = client.NotFoundError
	RateLimitError = client.RateLimitError
)

// New creates a new registry for the given ecosystem.
// If baseURL is empty, the default registry URL is used.
// If client is nil, DefaultClient() is used.
//
// Supported ecosystems: "npm", "local"
func New(ecosystem string, baseURL string, c *Client) (Registry, error) {
	return core.New(ecosystem, baseURL, c)
}

// DefaultClient returns a client with sensible defaults:
// - 30s timeout
// - 5 retries with exponential backoff
// - Retry on 429 and 5xx responses
func DefaultClient() *Client {
	return client.DefaultClient()
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	return client.NewClient(opts...)
}

// Option configures a Client.
type Option = client.Option

// WithTimeout sets the HTTP client timeout.
var WithTimeout = client.WithTimeout

// WithMaxRetries sets the maximum number of retries.
var WithMaxRetries = client.WithMaxRetries

// WithLogger sets the logger the client reports retries to.
var WithLogger = client.WithLogger

// SupportedEcosystems returns all registered ecosystem types.
// Note: ecosystems must be imported to be registered.
func SupportedEcosystems() []string {
	return core.SupportedEcosystems()
}

// BuildURLs returns a map of all non-empty URLs for a package.
// Keys are "registry", "download", "docs", and "purl".
func BuildURLs(urls URLBuilder, name, version string) map[string]string {
	return client.BuildURLs(urls, name, version)
}

// DefaultURL returns the default registry URL for an ecosystem.
func DefaultURL(ecosystem string) string {
	return core.DefaultURL(ecosystem)
}

// PURL represents a parsed Package URL.
type PURL = purl.PURL

// ParsePURL parses a Package URL string into its components.
func ParsePURL(purlStr string) (*PURL, error) {
	return purl.Parse(purlStr)
}

// ParsePackageRef splits "name", "name@version", "@scope/name@version" or an
// npm PURL into a package name and version.
func ParsePackageRef(ref string) (name, version string, err error) {
	return core.ParsePackageRef(ref)
}

// NewManifest returns a manifest with default project details.
func NewManifest(opts ...manifest.Option) *Manifest {
	return manifest.New(opts...)
}

// Render returns the canonical package.json text of m.
func Render(m *Manifest) ([]byte, error) {
	return manifest.Render(m)
}

// Check computes the peer-dependency conflict report for the packages
// selected in m, fetching metadata from src.
func Check(ctx context.Context, src MetadataSource, m *Manifest) Report {
	return compat.NewDetector(src, nil).Compute(ctx, m)
}

// NewModel returns a model that owns m and recomputes its conflict report
// against src after every dependency change. A nil m gets the defaults.
func NewModel(src MetadataSource, m *Manifest) *Model {
	return compat.NewModel(m, compat.NewDetector(src, nil))
}
