package repository

import (
	"context"
	"log"
	"sync"
	"time"
)

// JobStore keeps one record per remote job id. Get returns a snapshot copy;
// implementations must support concurrent Create/Get/Update on different
// keys without blocking readers for more than a brief critical section.
type JobStore interface {
	Create(job Job) error
	Get(id string) (Job, bool, error)
	Update(job Job) error
	Delete(id string) error
}

// MemoryStore is the default JobStore: a mutex-guarded map living for the
// life of the process. Terminal records are evicted after a TTL by the
// janitor so long-running processes do not accumulate completed jobs
// forever.
type MemoryStore struct {
	mu      sync.RWMutex
	jobs    map[string]Job
	ttl     time.Duration
	nowFunc func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		jobs:    make(map[string]Job),
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

func (m *MemoryStore) Create(job Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *MemoryStore) Get(id string) (Job, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	return job, ok, nil
}

func (m *MemoryStore) Update(job Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	return nil
}

// StartJanitor sweeps expired terminal records every interval until ctx is
// canceled. A TTL of zero disables eviction.
func (m *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.evictExpired(m.nowFunc()); n > 0 {
				log.Printf("[Janitor] Evicted %d expired job records", n)
			}
		}
	}
}

func (m *MemoryStore) evictExpired(now time.Time) int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, job := range m.jobs {
		if !job.Terminal() {
			continue
		}
		// CompletedAt is set on every terminal transition; CreatedAt is
		// the fallback for records that predate that behavior.
		ref := job.CreatedAt
		if job.CompletedAt != nil {
			ref = *job.CompletedAt
		}
		if now.Sub(ref) > m.ttl {
			delete(m.jobs, id)
			evicted++
		}
	}
	return evicted
}
