package compat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/git-pkgs/pkgbuilder/internal/core"
)

func TestCacheLookupOnce(t *testing.T) {
	src := newFakeSource()
	src.add("react")
	c := NewCache()

	for i := 0; i < 3; i++ {
		meta, err := c.Lookup(context.Background(), src, "react")
		if err != nil || meta == nil {
			t.Fatalf("Lookup = %v, %v", meta, err)
		}
	}
	if n := src.callCount("react"); n != 1 {
		t.Errorf("fetched %d times, want 1", n)
	}
	if c.Fetches() != 1 {
		t.Errorf("Fetches() = %d, want 1", c.Fetches())
	}
}

func TestCacheRemembersAbsence(t *testing.T) {
	src := newFakeSource()
	src.failures["broken"] = errors.New("HTTP 500")
	c := NewCache()

	meta, err := c.Lookup(context.Background(), src, "broken")
	if err == nil || meta != nil {
		t.Fatalf("first Lookup = %v, %v; want nil, error", meta, err)
	}

	meta, err = c.Lookup(context.Background(), src, "broken")
	if err != nil || meta != nil {
		t.Errorf("second Lookup = %v, %v; want nil, nil", meta, err)
	}
	if n := src.callCount("broken"); n != 1 {
		t.Errorf("fetched %d times, want 1", n)
	}
	if _, ok := c.Get("broken"); !ok {
		t.Error("absent entry not cached")
	}
}

func TestCacheDeduplicatesInFlight(t *testing.T) {
	src := newFakeSource()
	src.add("slow")
	gate := make(chan struct{})
	src.gates["slow"] = gate
	c := NewCache()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if meta, err := c.Lookup(context.Background(), src, "slow"); err != nil || meta == nil {
				t.Errorf("Lookup = %v, %v", meta, err)
			}
		}()
	}

	// Give the goroutines time to pile up on the in-flight fetch.
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	if n := src.callCount("slow"); n != 1 {
		t.Errorf("fetched %d times, want 1", n)
	}
}

func TestCacheDoesNotRememberCancellation(t *testing.T) {
	src := newFakeSource()
	src.add("slow")
	gate := make(chan struct{})
	src.gates["slow"] = gate
	c := NewCache()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Lookup(ctx, src, "slow"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Lookup error = %v, want context.Canceled", err)
	}
	if _, ok := c.Get("slow"); ok {
		t.Error("cancelled lookup was cached")
	}

	close(gate)
	meta, err := c.Lookup(context.Background(), src, "slow")
	if err != nil || meta == nil {
		t.Errorf("Lookup after cancellation = %v, %v", meta, err)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

// waitForCalls blocks until src has started n fetches of name.
func waitForCalls(t *testing.T, src *fakeSource, name string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for src.callCount(name) < n {
		if time.Now().After(deadline) {
			t.Fatalf("%s: %d fetches started, want %d", name, src.callCount(name), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCacheFetchOutlivesCancelledCaller(t *testing.T) {
	src := newFakeSource()
	src.add("slow")
	gate := make(chan struct{})
	src.gates["slow"] = gate
	c := NewCache()

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Lookup(first, src, "slow")
		firstErr <- err
	}()
	waitForCalls(t, src, "slow", 1)

	second := make(chan *core.PackageMetadata, 1)
	go func() {
		meta, err := c.Lookup(context.Background(), src, "slow")
		if err != nil {
			t.Errorf("second Lookup error = %v", err)
		}
		second <- meta
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("first Lookup error = %v, want context.Canceled", err)
	}

	close(gate)
	if meta := <-second; meta == nil {
		t.Fatal("second Lookup lost the shared fetch to the first caller's cancellation")
	}
	if n := src.callCount("slow"); n != 1 {
		t.Errorf("fetched %d times, want 1", n)
	}
	if meta, ok := c.Get("slow"); !ok || meta == nil {
		t.Errorf("Get = %v, %v; want cached metadata", meta, ok)
	}
}
