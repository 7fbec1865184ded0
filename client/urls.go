package client

import "fmt"

// URLBuilder constructs URLs for a registry.
type URLBuilder interface {
	Registry(name, version string) string
	Download(name, version string) string
	Documentation(name, version string) string
	PURL(name, version string) string
}

// BaseURLs is a URLBuilder assembled from optional functions. Missing
// functions produce empty URLs, except PURL which falls back to a generic PURL.
type BaseURLs struct {
	RegistryFn      func(name, version string) string
	DownloadFn      func(name, version string) string
	DocumentationFn func(name, version string) string
	PURLFn          func(name, version string) string
}

func call(fn func(name, version string) string, name, version string) string {
	if fn == nil {
		return ""
	}
	return fn(name, version)
}

func (b *BaseURLs) Registry(name, version string) string {
	return call(b.RegistryFn, name, version)
}

func (b *BaseURLs) Download(name, version string) string {
	return call(b.DownloadFn, name, version)
}

func (b *BaseURLs) Documentation(name, version string) string {
	return call(b.DocumentationFn, name, version)
}

func (b *BaseURLs) PURL(name, version string) string {
	if b.PURLFn != nil {
		return b.PURLFn(name, version)
	}
	if version != "" {
		return fmt.Sprintf("pkg:generic/%s@%s", name, version)
	}
	return fmt.Sprintf("pkg:generic/%s", name)
}

// BuildURLs returns a map of all non-empty URLs for a package.
// Keys are "registry", "download", "docs", and "purl".
func BuildURLs(urls URLBuilder, name, version string) map[string]string {
	result := make(map[string]string, 4)
	for key, v := range map[string]string{
		"registry": urls.Registry(name, version),
		"download": urls.Download(name, version),
		"docs":     urls.Documentation(name, version),
		"purl":     urls.PURL(name, version),
	} {
		if v != "" {
			result[key] = v
		}
	}
	return result
}
