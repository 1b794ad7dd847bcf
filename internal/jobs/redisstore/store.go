// Package redisstore keeps analysis job state in Redis so every API and
// worker replica sees the same job history.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rutwin/cashflow/internal/jobs"
)

const defaultPrefix = "cashflow:jobs"

// Config describes the Redis connection.
type Config struct {
	Address  string
	Password string
	DB       int
	// Prefix namespaces every key. Defaults to "cashflow:jobs".
	Prefix string
	// TTL expires finished job records. Zero keeps them forever.
	TTL time.Duration
}

// Store implements jobs.JobStore on Redis strings plus a sorted-set index
// scored by creation time.
type Store struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Address == "" {
		return nil, errors.New("redisstore.New: address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisstore.New: ping: %w", err)
	}
	return NewWithClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client redis.UniversalClient, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) jobKey(id string) string { return s.prefix + ":" + id }

func (s *Store) indexKey() string { return s.prefix + ":index" }

// SaveJob implements jobs.JobStore.
func (s *Store) SaveJob(ctx context.Context, job *jobs.AnalysisJob) error {
	if job.JobID == "" {
		return fmt.Errorf("job ID is required")
	}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("SaveJob: encoding: %w", err)
	}

	ttl := time.Duration(0)
	if job.Status == jobs.JobStatusCompleted || job.Status == jobs.JobStatusFailed {
		ttl = s.ttl
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.jobKey(job.JobID), body, ttl)
		p.ZAdd(ctx, s.indexKey(), redis.Z{
			Score:  float64(job.CreatedAt.UnixNano()),
			Member: job.JobID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("SaveJob: %w", err)
	}
	return nil
}

// GetJob implements jobs.JobStore.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.AnalysisJob, error) {
	body, err := s.client.Get(ctx, s.jobKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("GetJob: %w", err)
	}

	var job jobs.AnalysisJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("GetJob: decoding %s: %w", jobID, err)
	}
	return &job, nil
}

// ListJobs implements jobs.JobStore. Index entries whose record has expired
// are pruned as they are found.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.AnalysisJob, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("ListJobs: reading index: %w", err)
	}
	if len(ids) == 0 {
		return []*jobs.AnalysisJob{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.jobKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("ListJobs: loading jobs: %w", err)
	}

	all, stale := decodeJobs(ids, values)
	if len(stale) > 0 {
		members := make([]any, len(stale))
		for i, id := range stale {
			members[i] = id
		}
		_ = s.client.ZRem(ctx, s.indexKey(), members...).Err()
	}
	return filter.Apply(all), nil
}

// decodeJobs pairs MGET values with their IDs. Missing or corrupt records are
// returned as stale.
func decodeJobs(ids []string, values []any) ([]*jobs.AnalysisJob, []string) {
	all := make([]*jobs.AnalysisJob, 0, len(values))
	var stale []string
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var job jobs.AnalysisJob
		if err := json.Unmarshal([]byte(str), &job); err != nil {
			stale = append(stale, ids[i])
			continue
		}
		all = append(all, &job)
	}
	return all, stale
}

// UpdateJobStatus implements jobs.JobStore using optimistic locking on the
// job key.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	key := s.jobKey(jobID)
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		body, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", jobs.ErrJobNotFound, jobID)
		}
		if err != nil {
			return fmt.Errorf("UpdateJobStatus: %w", err)
		}

		var job jobs.AnalysisJob
		if err := json.Unmarshal(body, &job); err != nil {
			return fmt.Errorf("UpdateJobStatus: decoding: %w", err)
		}
		job.Status = status
		if errorMsg != "" {
			job.Error = errorMsg
		}
		updated, err := json.Marshal(&job)
		if err != nil {
			return fmt.Errorf("UpdateJobStatus: encoding: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, updated, redis.KeepTTL)
			return nil
		})
		return err
	}, key)
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

var _ jobs.JobStore = (*Store)(nil)
