// Package registry holds the in-memory job table. State is non-durable by
// design: jobs live from creation until a scheduled eviction after their
// terminal transition.
package registry

import (
	"errors"
	"sync"
	"time"

	"github.com/dmarceau/streamgate/internal/domain"
)

var ErrNotFound = errors.New("job not found")

// Registry is a thread-safe job-id to job-state mapping. The clock and the
// eviction scheduler are injectable so tests can control time.
type Registry struct {
	mu        sync.Mutex
	jobs      map[string]*domain.Job
	retention time.Duration
	clock     func() time.Time
	schedule  func(d time.Duration, fn func())
}

func New(retention time.Duration) *Registry {
	return &Registry{
		jobs:      make(map[string]*domain.Job),
		retention: retention,
		clock:     time.Now,
		schedule: func(d time.Duration, fn func()) {
			time.AfterFunc(d, fn)
		},
	}
}

// NewWithClock is New with a test-controlled clock and scheduler.
func NewWithClock(retention time.Duration, clock func() time.Time, schedule func(time.Duration, func())) *Registry {
	r := New(retention)
	if clock != nil {
		r.clock = clock
	}
	if schedule != nil {
		r.schedule = schedule
	}
	return r
}

// Create registers a new job snapshot and returns its id.
func (r *Registry) Create(job domain.Job) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	job.CreatedAt = now
	job.UpdatedAt = now

	stored := job
	r.jobs[job.ID] = &stored
	return job.ID
}

// Get returns the current snapshot for a job id, or ErrNotFound for ids
// never created or already evicted.
func (r *Registry) Get(id string) (domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, ErrNotFound
	}
	return *job, nil
}

// Update applies a partial update and returns the resulting snapshot. It is
// a no-op on unknown ids (the job may already be evicted) and on jobs that
// reached a terminal state. Progress never regresses.
//
// A terminal update schedules eviction after the retention window.
func (r *Registry) Update(id string, upd domain.Update) (domain.Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.Status.Terminal() {
		return domain.Job{}, false
	}

	if upd.Status != nil {
		job.Status = *upd.Status
	}
	if upd.Progress != nil && *upd.Progress > job.Progress {
		job.Progress = *upd.Progress
	}
	if upd.Stage != nil {
		job.Stage = *upd.Stage
	}
	if upd.Title != nil {
		job.Title = *upd.Title
	}
	if upd.TotalSize != nil {
		job.TotalSize = *upd.TotalSize
	}
	if upd.ETA != nil {
		job.ETA = *upd.ETA
	}
	if upd.OutputPath != nil {
		job.OutputPath = *upd.OutputPath
	}
	if upd.Error != nil {
		job.Error = upd.Error
	}
	job.UpdatedAt = r.clock()

	if job.Status.Terminal() {
		jobID := id
		r.schedule(r.retention, func() {
			r.Evict(jobID)
		})
	}

	return *job, true
}

// Evict removes a job immediately. Safe to call for unknown ids.
func (r *Registry) Evict(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
}

// Len returns the number of tracked jobs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}
