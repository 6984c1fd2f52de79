package repository

import (
	"context"

	"github.com/user/imagescraper-service/internal/entity"
)

// TaskRepository keeps scrape task state for a limited time.
type TaskRepository interface {
	// Save creates or replaces the task and resets its expiry.
	Save(ctx context.Context, task *entity.ScrapeTask) error
	// Get returns the task, or ErrNotFound when it never existed or has expired.
	Get(ctx context.Context, id string) (*entity.ScrapeTask, error)
	// Ping checks the backing store.
	Ping(ctx context.Context) error
}
