// Package local provides an offline registry backed by a directory of
// package documents, one <name>.json file per package.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/git-pkgs/pkgbuilder/internal/core"
)

const ecosystem = "local"

func init() {
	core.Register(ecosystem, ".", func(baseURL string, client *core.Client) core.Registry {
		return New(baseURL)
	})
}

type Registry struct {
	dir  string
	urls *core.BaseURLs
}

// New returns a registry reading from dir. A file:// prefix is accepted.
func New(dir string) *Registry {
	dir = strings.TrimPrefix(dir, "file://")
	if dir == "" {
		dir = "."
	}
	r := &Registry{dir: filepath.Clean(dir)}
	r.urls = &core.BaseURLs{
		RegistryFn: func(name, version string) string {
			return "file://" + r.path(name)
		},
		PURLFn: core.PackageURL,
	}
	return r
}

func (r *Registry) Ecosystem() string {
	return ecosystem
}

func (r *Registry) URLs() core.URLBuilder {
	return r.urls
}

type document struct {
	Name                 string                `json:"name"`
	Version              string                `json:"version"`
	Description          string                `json:"description"`
	License              string                `json:"license"`
	Keywords             []string              `json:"keywords"`
	PeerDependencies     core.PeerDependencies `json:"peerDependencies"`
	PeerDependenciesMeta map[string]struct {
		Optional bool `json:"optional"`
	} `json:"peerDependenciesMeta"`
}

func (r *Registry) path(name string) string {
	return filepath.Join(r.dir, filepath.FromSlash(name)+".json")
}

func (r *Registry) read(name string) (*document, error) {
	if name == "" || strings.Contains(name, "..") {
		return nil, &core.NotFoundError{Ecosystem: ecosystem, Name: name}
	}
	data, err := os.ReadFile(r.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &core.NotFoundError{Ecosystem: ecosystem, Name: name}
		}
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", r.path(name), err)
	}
	if doc.Name == "" {
		doc.Name = name
	}
	return &doc, nil
}

func (r *Registry) FetchMetadata(ctx context.Context, name string) (*core.PackageMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := r.read(name)
	if err != nil {
		return nil, err
	}

	optional := make(map[string]bool)
	for peer, meta := range doc.PeerDependenciesMeta {
		optional[peer] = meta.Optional
	}
	doc.PeerDependencies.MarkOptional(optional)

	return &core.PackageMetadata{
		Name:             doc.Name,
		Version:          doc.Version,
		Description:      doc.Description,
		License:          doc.License,
		PeerDependencies: doc.PeerDependencies,
	}, nil
}

// Search returns packages whose name contains query, case-insensitively,
// sorted by name.
func (r *Registry) Search(ctx context.Context, query string, size int) ([]core.SearchResult, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	var names []string
	err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		rel, err := filepath.Rel(r.dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(strings.TrimSuffix(rel, ".json"))
		if strings.Contains(strings.ToLower(name), query) {
			names = append(names, name)
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	var results []core.SearchResult
	for _, name := range names {
		if size > 0 && len(results) >= size {
			break
		}
		doc, err := r.read(name)
		if err != nil {
			continue
		}
		results = append(results, core.SearchResult{
			Name:        doc.Name,
			Version:     doc.Version,
			Description: doc.Description,
			Keywords:    doc.Keywords,
		})
	}
	return results, nil
}
