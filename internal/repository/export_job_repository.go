package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/course-ledger-api/internal/models"
)

const exportJobKeyPrefix = "course-ledger:exports:job:"

// ErrExportJobNotFound is returned when the registry holds no entry for an ID.
var ErrExportJobNotFound = errors.New("export job not found")

// ExportJobRepository keeps export job state in Redis so any API instance can report on it.
type ExportJobRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewExportJobRepository constructs the registry. Entries expire after ttl.
func NewExportJobRepository(client *redis.Client, ttl time.Duration) *ExportJobRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ExportJobRepository{client: client, ttl: ttl}
}

// Save writes the job, refreshing its expiry.
func (r *ExportJobRepository) Save(ctx context.Context, job *models.ExportJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal export job %s: %w", job.ID, err)
	}
	if err := r.client.Set(ctx, exportJobKey(job.ID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("save export job %s: %w", job.ID, err)
	}
	return nil
}

// Get loads a job by ID.
func (r *ExportJobRepository) Get(ctx context.Context, id string) (*models.ExportJob, error) {
	raw, err := r.client.Get(ctx, exportJobKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrExportJobNotFound
		}
		return nil, fmt.Errorf("load export job %s: %w", id, err)
	}
	var job models.ExportJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("decode export job %s: %w", id, err)
	}
	return &job, nil
}

func exportJobKey(id string) string {
	return exportJobKeyPrefix + id
}
