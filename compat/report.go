package compat

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Requirement is one selected package's demand on a peer.
type Requirement struct {
	Range      string
	RequiredBy string
	Optional   bool
}

// Conflict lists every requirement on a peer whose ranges disagree.
type Conflict struct {
	Peer         string
	Requirements []Requirement
	// Selected is the range the manifest itself declares for Peer, if any.
	Selected string
}

// Ranges returns the distinct ranges in order of first appearance.
func (c Conflict) Ranges() []string {
	var ranges []string
	seen := make(map[string]bool, len(c.Requirements))
	for _, req := range c.Requirements {
		if !seen[req.Range] {
			seen[req.Range] = true
			ranges = append(ranges, req.Range)
		}
	}
	return ranges
}

// Unsatisfied returns the requirements the selected version of the peer does
// not satisfy. It returns nil when the peer is not selected or when the
// selected range has no parseable base version. Requirements whose range
// cannot be parsed are skipped.
func (c Conflict) Unsatisfied() []Requirement {
	if c.Selected == "" {
		return nil
	}
	v, err := semver.NewVersion(strings.TrimLeft(c.Selected, "^~=v "))
	if err != nil {
		return nil
	}

	var out []Requirement
	for _, req := range c.Requirements {
		constraint, err := semver.NewConstraint(req.Range)
		if err != nil {
			continue
		}
		if !constraint.Check(v) {
			out = append(out, req)
		}
	}
	return out
}

// Report is the result of one conflict computation.
type Report struct {
	// Conflicts in the order their peers were first discovered.
	Conflicts []Conflict
	// Checked lists the selected packages in processing order.
	Checked []string
	// Unavailable lists selected packages whose metadata could not be fetched.
	Unavailable []string
}

// HasConflicts reports whether any peer has conflicting requirements.
func (r Report) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// Conflict returns the conflict recorded for peer.
func (r Report) Conflict(peer string) (Conflict, bool) {
	for _, c := range r.Conflicts {
		if c.Peer == peer {
			return c, true
		}
	}
	return Conflict{}, false
}

// Peers returns the conflicting peer names in discovery order.
func (r Report) Peers() []string {
	peers := make([]string, len(r.Conflicts))
	for i, c := range r.Conflicts {
		peers[i] = c.Peer
	}
	return peers
}
