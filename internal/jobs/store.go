package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MimeLyc/contextual-comic-translator/pkg/log"
)

// Persister persists job records for restart recovery.
type Persister interface {
	LoadJobs(ctx context.Context) ([]*Job, error)
	UpsertJob(ctx context.Context, job *Job) error
	DeleteJob(ctx context.Context, jobID string) error
}

const defaultMaxJobs = 1000

// Store is the in-memory registry of jobs. All reads return snapshots, so
// callers never observe a record mid-update; writes replace the stored
// record atomically and are mirrored to the persister outside the lock.
type Store struct {
	persister Persister
	maxJobs   int

	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewStore creates a store hydrated from the persister. Jobs that were
// still queued or processing when the previous process stopped are marked
// failed: their goroutines are gone and work is never resumed.
func NewStore(persister Persister) *Store {
	s := &Store{
		persister: persister,
		maxJobs:   defaultMaxJobs,
		jobs:      make(map[string]*Job),
	}
	s.hydrateFromPersister(context.Background())
	return s
}

// Create registers a new job and persists it. Returns a snapshot.
func (s *Store) Create(job *Job) *Job {
	s.mu.Lock()
	s.jobs[job.ID] = cloneJob(job)
	snapshot := cloneJob(job)
	s.mu.Unlock()

	s.persistJob(snapshot)
	return snapshot
}

// Get returns a snapshot of the job, if known.
func (s *Store) Get(id string) (*Job, bool) {
	s.mu.RLock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.RUnlock()
		return nil, false
	}
	snapshot := cloneJob(job)
	s.mu.RUnlock()
	return snapshot, true
}

// List returns snapshots of all jobs, newest first.
func (s *Store) List() []*Job {
	s.mu.RLock()
	ret := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		ret = append(ret, cloneJob(job))
	}
	s.mu.RUnlock()

	sort.Slice(ret, func(i, j int) bool {
		if ret[i].CreatedAt.Equal(ret[j].CreatedAt) {
			return ret[i].ID < ret[j].ID
		}
		return ret[i].CreatedAt.After(ret[j].CreatedAt)
	})
	return ret
}

// Update applies mutate to the job under the store lock and persists the
// result. The mutation must only assign fields; it runs while the lock is
// held. Updates to jobs already in a terminal state are ignored. Returns
// a snapshot of the record after the call.
func (s *Store) Update(id string, mutate func(*Job)) (*Job, bool) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}
	if job.Status.Terminal() {
		snapshot := cloneJob(job)
		s.mu.Unlock()
		log.Warn("Ignoring update to terminal job %s", id)
		return snapshot, true
	}

	mutate(job)
	job.UpdatedAt = time.Now()
	pruned := s.pruneTerminalJobsLocked()
	snapshot := cloneJob(job)
	s.mu.Unlock()

	s.persistJob(snapshot)
	s.deleteJobsFromPersister(pruned)
	return snapshot, true
}

// PruneOlderThan removes terminal jobs not updated since the cutoff and
// returns their snapshots so the caller can clean up artifacts.
func (s *Store) PruneOlderThan(maxAge time.Duration) []*Job {
	cutoff := time.Now().Add(-maxAge)

	s.mu.Lock()
	removed := make([]*Job, 0)
	ids := make([]string, 0)
	for id, job := range s.jobs {
		if !job.Status.Terminal() || !job.UpdatedAt.Before(cutoff) {
			continue
		}
		removed = append(removed, cloneJob(job))
		ids = append(ids, id)
		delete(s.jobs, id)
	}
	s.mu.Unlock()

	s.deleteJobsFromPersister(ids)

	sort.Slice(removed, func(i, j int) bool {
		return removed[i].UpdatedAt.Before(removed[j].UpdatedAt)
	})
	return removed
}

// pruneTerminalJobsLocked evicts the oldest terminal jobs once the store
// grows past maxJobs. Queued and processing jobs are never evicted.
func (s *Store) pruneTerminalJobsLocked() []string {
	if s.maxJobs <= 0 || len(s.jobs) <= s.maxJobs {
		return nil
	}

	type candidate struct {
		id        string
		updatedAt time.Time
	}
	terminal := make([]candidate, 0, len(s.jobs))
	for id, job := range s.jobs {
		if !job.Status.Terminal() {
			continue
		}
		terminal = append(terminal, candidate{id: id, updatedAt: job.UpdatedAt})
	}
	if len(terminal) == 0 {
		return nil
	}

	sort.Slice(terminal, func(i, j int) bool {
		return terminal[i].updatedAt.Before(terminal[j].updatedAt)
	})

	toRemove := len(s.jobs) - s.maxJobs
	if toRemove > len(terminal) {
		toRemove = len(terminal)
	}

	pruned := make([]string, 0, toRemove)
	for i := 0; i < toRemove; i++ {
		delete(s.jobs, terminal[i].id)
		pruned = append(pruned, terminal[i].id)
	}
	return pruned
}

func (s *Store) deleteJobsFromPersister(ids []string) {
	if s.persister == nil || len(ids) == 0 {
		return
	}
	for _, id := range ids {
		if err := s.persister.DeleteJob(context.Background(), id); err != nil {
			log.Error("Failed to delete pruned job %s from persister: %v", id, err)
		}
	}
}

func (s *Store) hydrateFromPersister(ctx context.Context) {
	if s.persister == nil {
		return
	}
	loaded, err := s.persister.LoadJobs(ctx)
	if err != nil {
		log.Error("Failed to load jobs from persister: %v", err)
		return
	}

	now := time.Now()
	toPersist := make([]*Job, 0)

	s.mu.Lock()
	for _, raw := range loaded {
		if raw == nil || raw.ID == "" {
			continue
		}
		job := cloneJob(raw)
		if !job.Status.Terminal() {
			job.Status = StatusFailed
			job.Error = "interrupted by service restart"
			job.FinishedAt = now
			job.UpdatedAt = now
			toPersist = append(toPersist, cloneJob(job))
		}
		s.jobs[job.ID] = job
	}
	s.mu.Unlock()

	for _, job := range toPersist {
		log.Warn("Job %s was interrupted by restart, marked failed", job.ID)
		s.persistJob(job)
	}
}

func (s *Store) persistJob(job *Job) {
	if s.persister == nil || job == nil {
		return
	}
	if err := s.persister.UpsertJob(context.Background(), job); err != nil {
		log.Error("Failed to persist job %s: %v", job.ID, err)
	}
}

func cloneJob(job *Job) *Job {
	if job == nil {
		return nil
	}
	tmp := *job
	return &tmp
}
