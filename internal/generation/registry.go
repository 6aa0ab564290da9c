package generation

import (
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"photo-studio-backend/internal/events"
	"photo-studio-backend/internal/models"
)

// Registry holds in-flight jobs in a bounded LRU. Jobs are transient: the
// least recently touched job is evicted once the registry is full, and
// nothing survives a restart.
type Registry struct {
	mu        sync.Mutex
	jobs      *lru.Cache[string, *Job]
	publisher events.Publisher
}

func NewRegistry(size int, publisher events.Publisher) (*Registry, error) {
	jobs, err := lru.NewWithEvict[string, *Job](size, func(id string, job *Job) {
		if !job.Status.Terminal() {
			log.WithFields(log.Fields{"job_id": id, "status": job.Status}).Warn("evicted unfinished generation job")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create job registry: %w", err)
	}
	return &Registry{jobs: jobs, publisher: publisher}, nil
}

// Add stores a freshly submitted job and announces it.
func (r *Registry) Add(job *Job) {
	r.mu.Lock()
	r.jobs.Add(job.ID, job)
	ev := job.event(job.CreatedAt)
	r.mu.Unlock()

	if r.publisher != nil {
		r.publisher.PublishGeneration(ev)
	}
}

// Get returns a copy of the job.
func (r *Registry) Get(id string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs.Get(id)
	if !ok {
		return Job{}, false
	}
	return job.clone(), true
}

// Observe folds a provider observation into the job and publishes one event
// per recorded transition. It returns the updated copy and whether anything
// changed state.
func (r *Registry) Observe(id string, obs observation, pricing models.Pricing, at time.Time) (Job, bool, bool) {
	r.mu.Lock()
	job, ok := r.jobs.Get(id)
	if !ok {
		r.mu.Unlock()
		return Job{}, false, false
	}
	transitions := job.apply(obs, pricing, at)
	snapshot := job.clone()
	r.mu.Unlock()

	if r.publisher != nil {
		for _, t := range transitions {
			ev := snapshot.event(t.At)
			if t.To != snapshot.Status {
				ev.Status = t.To
				ev.Images = nil
				ev.Error = nil
			}
			r.publisher.PublishGeneration(ev)
		}
	}
	return snapshot, true, len(transitions) > 0
}

// Update runs fn on the stored job under the registry lock.
func (r *Registry) Update(id string, fn func(j *Job)) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs.Get(id)
	if !ok {
		return Job{}, false
	}
	fn(job)
	return job.clone(), true
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs.Remove(id)
}
