package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/imagescraper-service/internal/entity"
	"github.com/user/imagescraper-service/internal/repository"
)

const taskKeyPrefix = "scrape:task:"

// TaskRepoImpl keeps scrape tasks in Redis, each under its own expiring key.
type TaskRepoImpl struct {
	client *redis.Client
	ttl    time.Duration
}

func NewTaskRepo(client *redis.Client, ttl time.Duration) *TaskRepoImpl {
	return &TaskRepoImpl{client: client, ttl: ttl}
}

func (r *TaskRepoImpl) generateKey(id string) string {
	return fmt.Sprintf("%s%s", taskKeyPrefix, id)
}

// Save writes the task and restarts its expiry.
func (r *TaskRepoImpl) Save(ctx context.Context, task *entity.ScrapeTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task %s: %w", task.ID, err)
	}
	return r.client.Set(ctx, r.generateKey(task.ID), payload, r.ttl).Err()
}

func (r *TaskRepoImpl) Get(ctx context.Context, id string) (*entity.ScrapeTask, error) {
	payload, err := r.client.Get(ctx, r.generateKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var task entity.ScrapeTask
	if err := json.Unmarshal(payload, &task); err != nil {
		return nil, fmt.Errorf("failed to decode task %s: %w", id, err)
	}
	return &task, nil
}

func (r *TaskRepoImpl) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
