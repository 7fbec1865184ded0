// Package npm provides a registry client for npmjs.com.
package npm

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/git-pkgs/pkgbuilder/internal/core"
)

const (
	DefaultURL = "https://registry.npmjs.org"
	ecosystem  = "npm"

	// maintainerSearchSize is how many packages a maintainer listing returns.
	maintainerSearchSize = 100
	// maxSearchSize is the registry's upper bound for the size parameter.
	maxSearchSize = 250
)

func init() {
	core.Register(ecosystem, DefaultURL, func(baseURL string, client *core.Client) core.Registry {
		return New(baseURL, client)
	})
}

type Registry struct {
	baseURL string
	client  *core.Client
	urls    *URLs
}

func New(baseURL string, client *core.Client) *Registry {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if client == nil {
		client = core.DefaultClient()
	}
	r := &Registry{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
	r.urls = &URLs{baseURL: r.baseURL}
	return r
}

func (r *Registry) Ecosystem() string {
	return ecosystem
}

func (r *Registry) URLs() core.URLBuilder {
	return r.urls
}

// versionDocument is the body of GET /<name>/latest.
type versionDocument struct {
	Name                 string                `json:"name"`
	Version              string                `json:"version"`
	Description          string                `json:"description"`
	License              interface{}           `json:"license"`
	PeerDependencies     core.PeerDependencies `json:"peerDependencies"`
	PeerDependenciesMeta map[string]peerMeta   `json:"peerDependenciesMeta"`
	Deprecated           string                `json:"deprecated"`
	Engines              map[string]string     `json:"engines"`
	Dist                 distInfo              `json:"dist"`
}

type peerMeta struct {
	Optional bool `json:"optional"`
}

type distInfo struct {
	Shasum    string `json:"shasum"`
	Tarball   string `json:"tarball"`
	Integrity string `json:"integrity"`
}

// FetchMetadata returns the document of the version tagged latest.
func (r *Registry) FetchMetadata(ctx context.Context, name string) (*core.PackageMetadata, error) {
	if name == "" {
		return nil, &core.NotFoundError{Ecosystem: ecosystem, Name: name}
	}
	u := fmt.Sprintf("%s/%s/latest", r.baseURL, url.PathEscape(name))

	var doc versionDocument
	if err := r.client.GetJSON(ctx, u, &doc); err != nil {
		var httpErr *core.HTTPError
		if errors.As(err, &httpErr) && httpErr.IsNotFound() {
			return nil, &core.NotFoundError{Ecosystem: ecosystem, Name: name}
		}
		return nil, err
	}

	optional := make(map[string]bool, len(doc.PeerDependenciesMeta))
	for peer, meta := range doc.PeerDependenciesMeta {
		if meta.Optional {
			optional[peer] = true
		}
	}
	doc.PeerDependencies.MarkOptional(optional)

	return &core.PackageMetadata{
		Name:             coalesceString(doc.Name, name),
		Version:          doc.Version,
		Description:      doc.Description,
		License:          extractLicense(doc.License),
		PeerDependencies: doc.PeerDependencies,
		Metadata: map[string]any{
			"deprecated": doc.Deprecated,
			"engines":    doc.Engines,
			"tarball":    doc.Dist.Tarball,
			"integrity":  doc.Dist.Integrity,
		},
	}, nil
}

type searchResponse struct {
	Objects []struct {
		Package searchPackage `json:"package"`
	} `json:"objects"`
	Total int `json:"total"`
}

type searchPackage struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Publisher   struct {
		Username string `json:"username"`
	} `json:"publisher"`
}

// Search queries the registry's full-text search endpoint.
func (r *Registry) Search(ctx context.Context, query string, size int) ([]core.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if size <= 0 {
		size = 20
	}
	size = min(size, maxSearchSize)

	params := url.Values{}
	params.Set("text", query)
	params.Set("size", fmt.Sprint(size))
	u := fmt.Sprintf("%s/-/v1/search?%s", r.baseURL, params.Encode())

	var resp searchResponse
	if err := r.client.GetJSON(ctx, u, &resp); err != nil {
		return nil, err
	}

	results := make([]core.SearchResult, 0, len(resp.Objects))
	for _, obj := range resp.Objects {
		results = append(results, core.SearchResult{
			Name:        obj.Package.Name,
			Version:     obj.Package.Version,
			Description: obj.Package.Description,
			Keywords:    obj.Package.Keywords,
			Publisher:   obj.Package.Publisher.Username,
		})
	}
	return results, nil
}

// SearchMaintainer lists packages maintained by user.
func (r *Registry) SearchMaintainer(ctx context.Context, user string) ([]core.SearchResult, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, nil
	}
	return r.Search(ctx, "maintainer:"+user, maintainerSearchSize)
}

func extractLicense(v interface{}) string {
	switch l := v.(type) {
	case string:
		return l
	case map[string]interface{}:
		if t, ok := l["type"].(string); ok {
			return t
		}
	case []interface{}:
		var licenses []string
		for _, item := range l {
			switch li := item.(type) {
			case string:
				licenses = append(licenses, li)
			case map[string]interface{}:
				if t, ok := li["type"].(string); ok {
					licenses = append(licenses, t)
				}
			}
		}
		return strings.Join(licenses, " OR ")
	}
	return ""
}

func coalesceString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type URLs struct {
	baseURL string
}

func (u *URLs) Registry(name, version string) string {
	if version != "" {
		return fmt.Sprintf("https://www.npmjs.com/package/%s/v/%s", name, version)
	}
	return fmt.Sprintf("https://www.npmjs.com/package/%s", name)
}

func (u *URLs) Download(name, version string) string {
	if version == "" {
		return ""
	}
	shortName := name
	if strings.Contains(name, "/") {
		parts := strings.SplitN(name, "/", 2)
		shortName = parts[1]
	}
	return fmt.Sprintf("%s/%s/-/%s-%s.tgz", u.baseURL, name, shortName, version)
}

func (u *URLs) Documentation(name, version string) string {
	return u.Registry(name, version)
}

func (u *URLs) PURL(name, version string) string {
	return core.PackageURL(name, version)
}
