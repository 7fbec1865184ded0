package client

import (
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/cenk/backoff"
	"github.com/facebookgo/clock"
	circuit "github.com/rubyist/circuitbreaker"
)

// tripThreshold is the number of failures within the breaker window that
// opens a host's breaker.
const tripThreshold = 5

// BreakerState is the health of one registry host as seen by the client.
type BreakerState string

const (
	BreakerClosed BreakerState = "closed"
	BreakerOpen   BreakerState = "open"
)

// HostState pairs a registry host with its breaker state.
type HostState struct {
	Host  string
	State BreakerState
}

// breakerSet lazily creates one breaker per registry host. Once open, a
// breaker lets a single trial request through after a backoff that starts at
// 30s and doubles up to 5m; a successful trial closes it again.
type breakerSet struct {
	clock clock.Clock

	mu    sync.Mutex
	hosts map[string]*circuit.Breaker
}

func newBreakerSet(clk clock.Clock) *breakerSet {
	if clk == nil {
		clk = clock.New()
	}
	return &breakerSet{clock: clk, hosts: make(map[string]*circuit.Breaker)}
}

func (s *breakerSet) forURL(rawURL string) *circuit.Breaker {
	host := breakerKey(rawURL)

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.hosts[host]; ok {
		return b
	}

	reopen := backoff.NewExponentialBackOff()
	reopen.InitialInterval = 30 * time.Second
	reopen.MaxInterval = 5 * time.Minute
	reopen.Multiplier = 2
	// A registry that stays down keeps being probed at MaxInterval.
	reopen.MaxElapsedTime = 0
	reopen.Clock = s.clock
	reopen.Reset()

	b := circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    reopen,
		Clock:      s.clock,
		ShouldTrip: circuit.ThresholdTripFunc(tripThreshold),
	})
	s.hosts[host] = b
	return b
}

func (s *breakerSet) snapshot() []HostState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]HostState, 0, len(s.hosts))
	for host, b := range s.hosts {
		st := BreakerClosed
		if b.Tripped() {
			st = BreakerOpen
		}
		out = append(out, HostState{Host: host, State: st})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out
}

// BreakerStates lists every registry host the client has contacted, sorted by
// host. A tripped breaker waiting for its trial request reports BreakerOpen.
func (c *Client) BreakerStates() []HostState {
	return c.breakers.snapshot()
}

// breakerKey groups requests by host. A URL without a host gets a breaker of
// its own.
func breakerKey(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	return rawURL
}
