// Package broadcast fans job snapshots out to subscribers keyed by job id.
// Delivery is best-effort: a subscriber that cannot keep up loses events
// rather than blocking the publisher, and events published before a
// subscription are never replayed.
package broadcast

import (
	"sync"

	"github.com/dmarceau/streamgate/internal/domain"
)

// Hub is a topic-keyed broadcast channel, decoupled from any transport.
type Hub struct {
	mu     sync.Mutex
	topics map[string]map[*Subscriber]struct{}
}

// Subscriber receives snapshots for one job id on C until Close is called
// or the topic is closed.
type Subscriber struct {
	C      chan domain.Job
	hub    *Hub
	jobID  string
	closed bool
}

func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[*Subscriber]struct{}),
	}
}

// Subscribe registers interest in a job id. The buffer bounds how far a slow
// consumer may lag before events are dropped for it.
func (h *Hub) Subscribe(jobID string, buffer int) *Subscriber {
	sub := &Subscriber{
		C:     make(chan domain.Job, buffer),
		hub:   h,
		jobID: jobID,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.topics[jobID]
	if !ok {
		subs = make(map[*Subscriber]struct{})
		h.topics[jobID] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

// Close removes the subscriber. Idempotent; does not affect the job or
// other subscribers.
func (s *Subscriber) Close() {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	s.hub.removeLocked(s)
}

func (h *Hub) removeLocked(s *Subscriber) {
	if s.closed {
		return
	}
	s.closed = true
	close(s.C)

	if subs, ok := h.topics[s.jobID]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(h.topics, s.jobID)
		}
	}
}

// Publish delivers a snapshot to every current subscriber of the job id.
// Sends are performed under the hub lock in publish order, so each
// subscriber observes updates for a given job in the order they were
// produced.
func (h *Hub) Publish(job domain.Job) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.topics[job.ID] {
		select {
		case sub.C <- job:
		default:
			// Subscriber buffer full; drop rather than block the job.
		}
	}
}

// CloseTopic closes every subscription for a job id. Called after the
// terminal event so late subscribers see an immediately-closed channel
// instead of silence.
func (h *Hub) CloseTopic(jobID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.topics[jobID] {
		h.removeLocked(sub)
	}
}

// Subscribers returns the current subscriber count for a job id.
func (h *Hub) Subscribers(jobID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[jobID])
}
