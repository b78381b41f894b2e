package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileRef points at one uploaded file awaiting processing.
type FileRef struct {
	OriginalName string
	Path         string
}

// Job tracks one upload batch. Total is fixed at creation; Completed
// only moves forward. The queue and the processing flag belong to the
// drain loop and are only touched through the Store's lock.
type Job struct {
	ID        string
	Total     int
	Completed int

	queue      []FileRef
	processing bool
	doneAt     time.Time
}

// Store owns every live batch job for the server's uptime. It is a
// plain service object, constructed once and injected into both the
// upload handler and the webhook handler.
type Store struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	logger *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		jobs:   make(map[string]*Job),
		logger: logger,
	}
}

// Create registers a new batch with a fresh identifier. The file list
// is snapshotted; nothing can be added to a job after submission.
func (s *Store) Create(files []FileRef) string {
	j := &Job{
		ID:    uuid.NewString(),
		Total: len(files),
		queue: append([]FileRef(nil), files...),
	}

	s.mu.Lock()
	s.jobs[j.ID] = j
	s.mu.Unlock()

	s.logger.Info("job created", "job_id", j.ID, "total", j.Total)
	return j.ID
}

// Status returns the polling view of a job.
func (s *Store) Status(id string) (total, completed int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return 0, 0, false
	}
	return j.Total, j.Completed, true
}

// Advance bumps a job's completed counter. Both the drain loop and the
// inbound completion webhook funnel through here (one lock, one
// increment routine), so the two producers can never interleave a lost
// update. If both report the same logical file the counter still moves
// twice; the clamp at Total keeps the invariant intact.
func (s *Store) Advance(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return false
	}
	s.advanceLocked(j)
	return true
}

func (s *Store) advanceLocked(j *Job) {
	if j.Completed < j.Total {
		j.Completed++
	}
	if len(j.queue) == 0 && j.doneAt.IsZero() {
		j.doneAt = time.Now()
	}
}

// beginProcessing flips the processing flag. A false return means a
// drain loop is already running (or the job is unknown) and the caller
// must not start another one.
func (s *Store) beginProcessing(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.processing {
		return false
	}
	j.processing = true
	return true
}

func (s *Store) endProcessing(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return
	}
	j.processing = false
	if len(j.queue) == 0 && j.doneAt.IsZero() {
		j.doneAt = time.Now()
	}
}

// front peeks at the next pending file without removing it.
func (s *Store) front(id string) (FileRef, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok || len(j.queue) == 0 {
		return FileRef{}, false
	}
	return j.queue[0], true
}

// completeFront removes the front file and advances the counter in one
// step, so queue length plus completed never overshoots total.
func (s *Store) completeFront(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || len(j.queue) == 0 {
		return
	}
	j.queue = j.queue[1:]
	s.advanceLocked(j)
}

// skipFront drops the front file without advancing the counter. The
// file is permanently skipped; the client sees a count that stalls
// below total.
func (s *Store) skipFront(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || len(j.queue) == 0 {
		return
	}
	j.queue = j.queue[1:]
	if len(j.queue) == 0 && j.doneAt.IsZero() {
		j.doneAt = time.Now()
	}
}

// Sweep evicts jobs that finished draining more than ttl ago and
// returns how many were removed.
func (s *Store) Sweep(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, j := range s.jobs {
		if !j.processing && len(j.queue) == 0 && !j.doneAt.IsZero() && j.doneAt.Before(cutoff) {
			delete(s.jobs, id)
			n++
		}
	}
	return n
}

// StartJanitor sweeps finished jobs on an interval until ctx is done.
// A ttl of zero disables eviction entirely.
func (s *Store) StartJanitor(ctx context.Context, ttl, every time.Duration) {
	if ttl <= 0 {
		return
	}
	if every <= 0 {
		every = 5 * time.Minute
	}
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := s.Sweep(ttl); n > 0 {
					s.logger.Info("evicted finished jobs", "count", n)
				}
			}
		}
	}()
}

// Len reports how many jobs are currently retained.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
