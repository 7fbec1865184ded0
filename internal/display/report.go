package display

import (
	"fmt"
	"strings"

	"github.com/git-pkgs/pkgbuilder/compat"
	"github.com/git-pkgs/pkgbuilder/manifest"
)

// Report renders a conflict report. Each conflicting peer gets one line
// listing every requirement with the package that declares it; requirements
// the selected version of the peer does not satisfy are marked.
func Report(r compat.Report) string {
	var b strings.Builder

	if !r.HasConflicts() {
		fmt.Fprintf(&b, "%s No peer dependency conflicts (%d packages checked)\n", IconOK, len(r.Checked))
	} else {
		b.WriteString(WarningStyle.Render("Potential peer dependency conflicts"))
		b.WriteString("\n")
		for _, c := range r.Conflicts {
			b.WriteString(conflictLine(c))
			b.WriteString("\n")
		}
	}

	if len(r.Unavailable) > 0 {
		b.WriteString(MutedStyle.Render("Metadata unavailable for: " + strings.Join(r.Unavailable, ", ")))
		b.WriteString("\n")
	}
	return b.String()
}

func conflictLine(c compat.Conflict) string {
	unsatisfied := make(map[string]bool)
	for _, req := range c.Unsatisfied() {
		unsatisfied[req.RequiredBy] = true
	}

	parts := make([]string, len(c.Requirements))
	for i, req := range c.Requirements {
		part := fmt.Sprintf("%s (from %s)", RangeStyle.Render(req.Range), req.RequiredBy)
		if req.Optional {
			part += MutedStyle.Render(" optional")
		}
		if unsatisfied[req.RequiredBy] {
			part += " " + IconError
		}
		parts[i] = part
	}

	line := fmt.Sprintf("%s %s has conflicting requirements: %s",
		IconConflict, PackageStyle.Render(c.Peer), strings.Join(parts, ", "))
	if c.Selected != "" {
		line += MutedStyle.Render(fmt.Sprintf(" [selected %s]", c.Selected))
	}
	return line
}

// Lint renders manifest lint issues under a heading.
func Lint(issues []manifest.Issue) string {
	if len(issues) == 0 {
		return fmt.Sprintf("%s Manifest looks valid\n", IconOK)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", TitleStyle.Render(fmt.Sprintf("Manifest issues (%d)", len(issues))))
	for _, issue := range issues {
		fmt.Fprintf(&b, "%s %s: %s\n", IconError, PackageStyle.Render(issue.Field), issue.Message)
	}
	return b.String()
}
