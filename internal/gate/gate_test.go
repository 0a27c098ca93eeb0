package gate

import (
	"context"
	"testing"
	"time"
)

func TestAcquireWithinLimit(t *testing.T) {
	g := New(2, "")
	ctx := context.Background()

	if err := g.Acquire(ctx, "a"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := g.Acquire(ctx, "b"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	stats := g.Stats()
	if stats.Active != 2 || stats.Queued != 0 {
		t.Errorf("Expected 2 active / 0 queued, got %d/%d", stats.Active, stats.Queued)
	}
}

func TestExcessRequestsQueueFIFO(t *testing.T) {
	g := New(1, "")
	ctx := context.Background()

	if err := g.Acquire(ctx, "a"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	order := make(chan string, 2)
	started := make(chan struct{}, 2)
	go func() {
		started <- struct{}{}
		g.Acquire(ctx, "b")
		order <- "b"
	}()
	<-started
	waitForQueued(t, g, 1)
	go func() {
		started <- struct{}{}
		g.Acquire(ctx, "c")
		order <- "c"
	}()
	<-started
	waitForQueued(t, g, 2)

	g.Release("a")
	if got := <-order; got != "b" {
		t.Errorf("Expected b to run first, got %s", got)
	}
	g.Release("b")
	if got := <-order; got != "c" {
		t.Errorf("Expected c to run second, got %s", got)
	}
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	g := New(1, "")
	if err := g.Acquire(context.Background(), "a"); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- g.Acquire(ctx, "b")
	}()
	waitForQueued(t, g, 1)
	cancel()

	if err := <-errCh; err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	// The abandoned waiter must not occupy the queue.
	if stats := g.Stats(); stats.Queued != 0 {
		t.Errorf("Expected empty queue after cancel, got %d", stats.Queued)
	}

	// And the slot still promotes correctly afterwards.
	g.Release("a")
	if err := g.Acquire(context.Background(), "c"); err != nil {
		t.Fatalf("Acquire after cancel failed: %v", err)
	}
}

func TestStatsReportsActiveJobIDs(t *testing.T) {
	g := New(2, "500K")
	g.Acquire(context.Background(), "a")

	stats := g.Stats()
	if len(stats.ActiveJobs) != 1 || stats.ActiveJobs[0] != "a" {
		t.Errorf("Expected active job ids [a], got %v", stats.ActiveJobs)
	}
	if g.Bandwidth() != "500K" {
		t.Errorf("Expected bandwidth 500K, got %s", g.Bandwidth())
	}
}

func waitForQueued(t *testing.T, g *Gate, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if g.Stats().Queued >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %d queued waiters", n)
}

func TestPerSlotRate(t *testing.T) {
	cases := []struct {
		bandwidth string
		max       int
		want      string
	}{
		{"", 2, ""},
		{"4M", 2, "2M"},
		{"500K", 2, "250K"},
		{"1G", 4, "0.25G"},
		{"3M", 2, "1.50M"},
		{"1000000", 2, "500000"},
		{"garbage", 2, ""},
	}

	for _, c := range cases {
		g := New(c.max, c.bandwidth)
		if got := g.PerSlotRate(); got != c.want {
			t.Errorf("PerSlotRate(%q, max=%d) = %q, want %q", c.bandwidth, c.max, got, c.want)
		}
	}
}
