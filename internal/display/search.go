package display

import (
	"fmt"
	"strings"

	"github.com/git-pkgs/pkgbuilder/internal/core"
)

// Search renders search results. When urls is non-nil each result also shows
// its registry URL.
func Search(results []core.SearchResult, urls core.URLBuilder) string {
	if len(results) == 0 {
		return MutedStyle.Render("No packages found.") + "\n"
	}

	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%s %s", PackageStyle.Render(r.Name), RangeStyle.Render(r.Version))
		if r.Publisher != "" {
			b.WriteString(MutedStyle.Render(" by " + r.Publisher))
		}
		b.WriteString("\n")
		if r.Description != "" {
			fmt.Fprintf(&b, "  %s\n", r.Description)
		}
		if urls != nil {
			if u := urls.Registry(r.Name, r.Version); u != "" {
				fmt.Fprintf(&b, "  %s\n", MutedStyle.Render(u))
			}
		}
	}
	return b.String()
}

// URLs renders every known URL for a package in a stable order.
func URLs(urls core.URLBuilder, name, version string) string {
	all := core.BuildURLs(urls, name, version)
	var b strings.Builder
	for _, key := range []string{"registry", "download", "docs", "purl"} {
		if u, ok := all[key]; ok {
			fmt.Fprintf(&b, "  %-8s %s\n", key, u)
		}
	}
	return b.String()
}
