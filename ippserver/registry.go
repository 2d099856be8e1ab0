package ippserver

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultRetention is how long a job is kept in the Registry after
// reaching a terminal state.
const DefaultRetention = 5 * time.Minute

// Registry is an in-memory, concurrency-safe map from job id to *Job,
// with monotonically increasing id assignment and time-based eviction of
// terminal jobs. There is no third-party TTL cache in the dependency
// graph this package draws from, so eviction is a small mutex-guarded map
// plus a ticking sweeper, the same shape used for short-lived server-side
// state (nonce caches, session tables) elsewhere in that graph.
type Registry struct {
	retention time.Duration

	mu       sync.Mutex
	nextID   int32
	jobs     map[int32]*Job
	retired  map[int32]time.Time

	stop chan struct{}
	once sync.Once
}

// NewRegistry creates a Registry with the given retention period for
// terminal jobs, and starts its background sweeper. Call Close to stop
// the sweeper.
func NewRegistry(retention time.Duration) *Registry {
	if retention <= 0 {
		retention = DefaultRetention
	}

	r := &Registry{
		retention: retention,
		jobs:      make(map[int32]*Job),
		retired:   make(map[int32]time.Time),
		stop:      make(chan struct{}),
	}

	go r.sweep()
	return r
}

// Create allocates a fresh job id and inserts a new pending Job.
// Id assignment and insertion happen under the same lock, so ids issued
// by one Registry form a strictly increasing sequence with no gaps
// visible to callers.
func (r *Registry) Create(printerURI, name, user, format string) *Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	job := newJob(r.nextID, printerURI, name, user, format)
	r.jobs[job.ID] = job
	return job
}

// Get returns the job with the given id, or ErrJobNotFound if it was
// never issued or has since been evicted.
func (r *Registry) Get(id int32) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job, nil
}

// All returns a snapshot of every job currently retained, in ascending
// id order.
func (r *Registry) All() []*Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	jobs := make([]*Job, 0, len(r.jobs))
	for id := int32(1); id <= r.nextID; id++ {
		if job, ok := r.jobs[id]; ok {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

// MarkTerminal records that job has just entered a terminal state, and
// schedules it for eviction after the Registry's retention period. Call
// this right after a state transition that reaches completed, canceled
// or aborted.
func (r *Registry) MarkTerminal(id int32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[id]; ok {
		r.retired[id] = time.Now().Add(r.retention)
	}
}

func (r *Registry) sweep() {
	ticker := time.NewTicker(r.retention / 4)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			r.evictBefore(now)
		}
	}
}

func (r *Registry) evictBefore(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, deadline := range r.retired {
		if now.After(deadline) {
			delete(r.jobs, id)
			delete(r.retired, id)
			log.Debug().Int32("job-id", id).Msg("evicted terminal job")
		}
	}
}

// Close stops the background sweeper. Safe to call more than once.
func (r *Registry) Close() {
	r.once.Do(func() { close(r.stop) })
}

// CancelAllActive transitions every non-terminal job to aborted — used
// when the server shuts down (§5's "jobs in non-terminal state at
// cancellation transition to aborted").
func (r *Registry) CancelAllActive(ctx context.Context) {
	r.mu.Lock()
	jobs := make([]*Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		if !job.Terminal() {
			jobs = append(jobs, job)
		}
	}
	r.mu.Unlock()

	for _, job := range jobs {
		_ = job.Fail(ctx)
		r.MarkTerminal(job.ID)
	}
}
