package manifest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/git-pkgs/spdx"
)

// Issue is a problem a strict package.json consumer would reject.
type Issue struct {
	Field   string
	Message string
}

func (i Issue) String() string {
	return i.Field + ": " + i.Message
}

// Package names are lowercase, URL-safe and optionally scoped.
var namePattern = regexp.MustCompile(`^(@[a-z0-9-~][a-z0-9-._~]*/)?[a-z0-9-~][a-z0-9-._~]*$`)

const maxNameLength = 214

// Lint reports fields that would make the rendered manifest invalid for
// publishing. It never modifies m.
func Lint(m *Manifest) []Issue {
	var issues []Issue

	switch {
	case m.Name == "":
		issues = append(issues, Issue{"name", "must not be empty"})
	case len(m.Name) > maxNameLength:
		issues = append(issues, Issue{"name", fmt.Sprintf("must be at most %d characters", maxNameLength)})
	case !namePattern.MatchString(m.Name):
		issues = append(issues, Issue{"name", fmt.Sprintf("%q is not a valid package name", m.Name)})
	}

	if _, err := semver.StrictNewVersion(m.Version); err != nil {
		issues = append(issues, Issue{"version", fmt.Sprintf("%q is not a valid semantic version", m.Version)})
	}

	if m.License != "" && !strings.EqualFold(m.License, "UNLICENSED") && !spdx.Valid(m.License) {
		msg := fmt.Sprintf("%q is not a valid SPDX expression", m.License)
		if fixed, err := spdx.NormalizeExpressionLax(m.License); err == nil && fixed != m.License {
			msg += fmt.Sprintf(" (did you mean %q?)", fixed)
		}
		issues = append(issues, Issue{"license", msg})
	}

	for _, deps := range []struct {
		field string
		deps  *Dependencies
	}{
		{"dependencies", &m.Dependencies},
		{"devDependencies", &m.DevDependencies},
	} {
		for _, name := range deps.deps.Names() {
			rng, _ := deps.deps.Get(name)
			if _, err := semver.NewConstraint(rng); err != nil {
				issues = append(issues, Issue{deps.field, fmt.Sprintf("%s: %q is not a valid range", name, rng)})
			}
		}
	}

	return issues
}
