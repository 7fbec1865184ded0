package core

import (
	"fmt"
	"strings"

	packageurl "github.com/package-url/packageurl-go"
)

// PURL wraps packageurl.PackageURL with registry-specific helpers.
type PURL struct {
	packageurl.PackageURL
}

// FullName returns the package name in the format expected by the registry.
// For npm: "@babel/core".
func (p PURL) FullName() string {
	if p.Namespace == "" {
		return p.Name
	}
	// packageurl-go keeps @ in the npm namespace, so "@babel" + "/" + "core".
	return p.Namespace + "/" + p.Name
}

// ParsePURL parses a Package URL string into its components.
// Supports both package PURLs (pkg:npm/react) and version PURLs (pkg:npm/react@18.3.1).
func ParsePURL(purl string) (*PURL, error) {
	p, err := packageurl.FromString(purl)
	if err != nil {
		return nil, err
	}
	return &PURL{p}, nil
}

// PackageURL returns the npm PURL for name at version, e.g.
// "pkg:npm/%40babel/core@7.24.0". An empty version is omitted.
func PackageURL(name, version string) string {
	namespace := ""
	if strings.HasPrefix(name, "@") {
		if i := strings.Index(name, "/"); i > 0 {
			namespace, name = name[:i], name[i+1:]
		}
	}
	return packageurl.NewPackageURL(packageurl.TypeNPM, namespace, name, version, nil, "").ToString()
}

// ParsePackageRef splits a package reference into name and version.
// Accepted forms are "name", "name@version", "@scope/name@version" and PURLs
// such as "pkg:npm/%40scope/name@version". Version is empty when absent.
func ParsePackageRef(ref string) (name, version string, err error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", fmt.Errorf("empty package reference")
	}

	if strings.HasPrefix(ref, "pkg:") {
		p, err := ParsePURL(ref)
		if err != nil {
			return "", "", fmt.Errorf("parsing %q: %w", ref, err)
		}
		return p.FullName(), p.Version, nil
	}

	// A leading @ belongs to the scope, not the version separator.
	idx := strings.LastIndex(ref, "@")
	if idx <= 0 {
		return ref, "", nil
	}
	name, version = ref[:idx], ref[idx+1:]
	if name == "" || strings.HasSuffix(name, "/") {
		return "", "", fmt.Errorf("invalid package reference %q", ref)
	}
	return name, version, nil
}
