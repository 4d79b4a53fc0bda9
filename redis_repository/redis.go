package redis_repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"meshforge.dev/server/repository"
)

// RedisStore is a JobStore backed by a shared Redis instance, for
// deployments where another process (or a restarted one) needs to read job
// snapshots. Best effort: records are plain JSON values and no durability
// beyond Redis's own is claimed.
type RedisStore struct {
	client *redis.Client
	prefix string
	// ttl bounds how long a terminal record stays readable. Zero keeps
	// records until Redis evicts them.
	ttl time.Duration
}

func NewStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + "ai3d:job:" + id
}

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (s *RedisStore) Create(job repository.Job) error {
	return s.write(job)
}

func (s *RedisStore) Update(job repository.Job) error {
	return s.write(job)
}

func (s *RedisStore) write(job repository.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("redis store: encode job %s: %w", job.ID, err)
	}

	ctx, cancel := withTimeout()
	defer cancel()

	if err := s.client.Set(ctx, s.key(job.ID), data, s.expireFor(job)).Err(); err != nil {
		return fmt.Errorf("redis store: write job %s: %w", job.ID, err)
	}
	return nil
}

// expireFor returns the TTL to apply when writing job. Active jobs never
// expire; the tracker keeps rewriting them until a terminal transition.
func (s *RedisStore) expireFor(job repository.Job) time.Duration {
	if job.Terminal() && s.ttl > 0 {
		return s.ttl
	}
	return 0
}

func (s *RedisStore) Get(id string) (repository.Job, bool, error) {
	ctx, cancel := withTimeout()
	defer cancel()

	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err == redis.Nil {
		return repository.Job{}, false, nil
	}
	if err != nil {
		return repository.Job{}, false, fmt.Errorf("redis store: read job %s: %w", id, err)
	}

	var job repository.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return repository.Job{}, false, fmt.Errorf("redis store: decode job %s: %w", id, err)
	}
	return job, true, nil
}

func (s *RedisStore) Delete(id string) error {
	ctx, cancel := withTimeout()
	defer cancel()
	return s.client.Del(ctx, s.key(id)).Err()
}
