package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"transporter-onboarding/internal/models"

	"github.com/redis/go-redis/v9"
)

var ErrJobNotFound = errors.New("import job not found")

// JobStore records the progress of queued imports.
type JobStore interface {
	Save(ctx context.Context, job *models.ImportJob) error
	Get(ctx context.Context, batchCode string) (*models.ImportJob, error)
}

// JobRepository keeps async import jobs in Redis for a limited time.
type JobRepository struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewJobRepository(client *redis.Client, ttl time.Duration) *JobRepository {
	return &JobRepository{redis: client, ttl: ttl}
}

func jobKey(batchCode string) string {
	return fmt.Sprintf("transporter:import:%s", batchCode)
}

func (r *JobRepository) Save(ctx context.Context, job *models.ImportJob) error {
	job.UpdatedAt = time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = job.UpdatedAt
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return r.redis.Set(ctx, jobKey(job.BatchCode), payload, r.ttl).Err()
}

func (r *JobRepository) Get(ctx context.Context, batchCode string) (*models.ImportJob, error) {
	payload, err := r.redis.Get(ctx, jobKey(batchCode)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}

	var job models.ImportJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, fmt.Errorf("decoding import job %s: %w", batchCode, err)
	}
	return &job, nil
}
