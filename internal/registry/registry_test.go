package registry

import (
	"testing"
	"time"

	"github.com/dmarceau/streamgate/internal/domain"
)

// manualScheduler collects scheduled evictions so tests can fire them
// without waiting real minutes.
type manualScheduler struct {
	delays []time.Duration
	fns    []func()
}

func (m *manualScheduler) schedule(d time.Duration, fn func()) {
	m.delays = append(m.delays, d)
	m.fns = append(m.fns, fn)
}

func (m *manualScheduler) fireAll() {
	for _, fn := range m.fns {
		fn()
	}
	m.fns = nil
}

func newTestRegistry(t *testing.T) (*Registry, *manualScheduler) {
	t.Helper()
	sched := &manualScheduler{}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := NewWithClock(5*time.Minute, func() time.Time { return now }, sched.schedule)
	return r, sched
}

func TestCreateAndGet(t *testing.T) {
	r, _ := newTestRegistry(t)

	id := r.Create(domain.Job{ID: "job1", Status: domain.JobStatusInitializing, SourceURL: "https://example.com/v"})
	if id != "job1" {
		t.Errorf("Expected id job1, got %s", id)
	}

	job, err := r.Get("job1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if job.Status != domain.JobStatusInitializing {
		t.Errorf("Expected initializing, got %s", job.Status)
	}
	if job.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
}

func TestGetUnknownID(t *testing.T) {
	r, _ := newTestRegistry(t)
	if _, err := r.Get("missing"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUnknownIDIsNoop(t *testing.T) {
	r, _ := newTestRegistry(t)
	if _, ok := r.Update("missing", domain.Update{Progress: domain.Float64Ptr(50)}); ok {
		t.Error("Expected update on unknown id to be a no-op")
	}
}

func TestProgressNeverRegresses(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Create(domain.Job{ID: "job1", Status: domain.JobStatusDownloading})

	r.Update("job1", domain.Update{Progress: domain.Float64Ptr(40)})
	job, ok := r.Update("job1", domain.Update{Progress: domain.Float64Ptr(25)})
	if !ok {
		t.Fatal("Expected update to apply")
	}
	if job.Progress != 40 {
		t.Errorf("Expected progress to stay at 40, got %f", job.Progress)
	}
}

func TestPartialUpdateTouchesOnlyItsFields(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Create(domain.Job{ID: "job1", Status: domain.JobStatusDownloading, Stage: "downloading"})

	r.Update("job1", domain.Update{TotalSize: domain.StringPtr("50.00MiB")})
	job, _ := r.Get("job1")
	if job.TotalSize != "50.00MiB" {
		t.Errorf("Expected total size set, got %q", job.TotalSize)
	}
	if job.Stage != "downloading" {
		t.Errorf("Expected stage untouched, got %q", job.Stage)
	}
	if job.ETA != "" {
		t.Errorf("Expected ETA untouched, got %q", job.ETA)
	}
}

func TestTerminalStateFreezesJob(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Create(domain.Job{ID: "job1", Status: domain.JobStatusDownloading})

	r.Update("job1", domain.Update{Status: domain.StatusPtr(domain.JobStatusFailed), Error: domain.StringPtr("exit status 1")})

	if _, ok := r.Update("job1", domain.Update{Progress: domain.Float64Ptr(80)}); ok {
		t.Error("Expected update after terminal state to be dropped")
	}

	job, _ := r.Get("job1")
	if job.Progress != 0 {
		t.Errorf("Expected progress unchanged after terminal, got %f", job.Progress)
	}
	if job.Error == nil || *job.Error != "exit status 1" {
		t.Errorf("Expected error description, got %v", job.Error)
	}
}

func TestTerminalSchedulesEviction(t *testing.T) {
	r, sched := newTestRegistry(t)
	r.Create(domain.Job{ID: "job1", Status: domain.JobStatusStreaming})

	r.Update("job1", domain.Update{Status: domain.StatusPtr(domain.JobStatusCompleted), Progress: domain.Float64Ptr(100)})

	if len(sched.delays) != 1 || sched.delays[0] != 5*time.Minute {
		t.Fatalf("Expected one eviction scheduled at 5m, got %v", sched.delays)
	}

	// Grace window: still visible until the timer fires.
	if _, err := r.Get("job1"); err != nil {
		t.Errorf("Expected job visible before eviction, got %v", err)
	}

	sched.fireAll()

	if _, err := r.Get("job1"); err != ErrNotFound {
		t.Errorf("Expected ErrNotFound after eviction, got %v", err)
	}
}

func TestEvictUnknownIDIsSafe(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Evict("missing")
	r.Evict("missing")
}
