// Package gate bounds the number of concurrently running external
// invocations. Excess requests wait in FIFO order until a slot frees.
package gate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

type waiter struct {
	jobID   string
	ready   chan struct{}
	granted bool
}

// Gate is a counting slot pool with an ordered wait queue. An optional
// aggregate bandwidth cap is carried here and forwarded to the external
// tool as a rate-limit argument.
type Gate struct {
	mu        sync.Mutex
	max       int
	bandwidth string
	active    map[string]struct{}
	queue     []*waiter
}

func New(maxConcurrent int, bandwidth string) *Gate {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Gate{
		max:       maxConcurrent,
		bandwidth: bandwidth,
		active:    make(map[string]struct{}),
	}
}

// Acquire claims a slot for the job, blocking in queue order until one is
// free or the context is done. On success the caller must Release.
func (g *Gate) Acquire(ctx context.Context, jobID string) error {
	g.mu.Lock()
	if len(g.active) < g.max && len(g.queue) == 0 {
		g.active[jobID] = struct{}{}
		g.mu.Unlock()
		return nil
	}

	w := &waiter{jobID: jobID, ready: make(chan struct{})}
	g.queue = append(g.queue, w)
	g.mu.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		g.mu.Lock()
		if w.granted {
			// Slot was granted while we were giving up; hand it back.
			g.releaseLocked(jobID)
			g.mu.Unlock()
			return ctx.Err()
		}
		for i, queued := range g.queue {
			if queued == w {
				g.queue = append(g.queue[:i], g.queue[i+1:]...)
				break
			}
		}
		g.mu.Unlock()
		return ctx.Err()
	}
}

// Release frees the job's slot and promotes the next queued waiter.
func (g *Gate) Release(jobID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releaseLocked(jobID)
}

func (g *Gate) releaseLocked(jobID string) {
	delete(g.active, jobID)

	if len(g.queue) == 0 || len(g.active) >= g.max {
		return
	}
	next := g.queue[0]
	g.queue = g.queue[1:]
	next.granted = true
	g.active[next.jobID] = struct{}{}
	close(next.ready)
}

// Bandwidth returns the configured aggregate rate cap, empty for unlimited.
func (g *Gate) Bandwidth() string {
	return g.bandwidth
}

// PerSlotRate divides the aggregate bandwidth cap evenly across slots and
// returns it in the tool's rate syntax (e.g. "2M" with two slots from "4M").
// Empty when no cap is configured or the cap cannot be parsed.
func (g *Gate) PerSlotRate() string {
	if g.bandwidth == "" {
		return ""
	}

	s := strings.ToUpper(g.bandwidth)
	suffix := ""
	if strings.HasSuffix(s, "K") || strings.HasSuffix(s, "M") || strings.HasSuffix(s, "G") {
		suffix = s[len(s)-1:]
		s = s[:len(s)-1]
	}
	total, err := strconv.ParseFloat(s, 64)
	if err != nil || total <= 0 {
		return ""
	}

	per := total / float64(g.max)
	if per == float64(int64(per)) {
		return fmt.Sprintf("%d%s", int64(per), suffix)
	}
	return fmt.Sprintf("%.2f%s", per, suffix)
}

// Stats describes the gate's current occupancy.
type Stats struct {
	Active     int      `json:"active"`
	Queued     int      `json:"queued"`
	ActiveJobs []string `json:"active_jobs"`
}

func (g *Gate) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids := make([]string, 0, len(g.active))
	for id := range g.active {
		ids = append(ids, id)
	}
	return Stats{
		Active:     len(g.active),
		Queued:     len(g.queue),
		ActiveJobs: ids,
	}
}
