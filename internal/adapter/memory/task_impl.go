package memory

import (
	"context"
	"sync"
	"time"

	"github.com/user/imagescraper-service/internal/entity"
	"github.com/user/imagescraper-service/internal/repository"
)

type taskEntry struct {
	task      entity.ScrapeTask
	expiresAt time.Time
}

// TaskRepoImpl is an in-process task store whose entries expire after ttl.
// Expired entries are dropped lazily on access and by Sweep.
type TaskRepoImpl struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.RWMutex
	tasks map[string]taskEntry
}

func NewTaskRepo(ttl time.Duration) *TaskRepoImpl {
	return &TaskRepoImpl{
		ttl:   ttl,
		now:   time.Now,
		tasks: make(map[string]taskEntry),
	}
}

func (r *TaskRepoImpl) Save(_ context.Context, task *entity.ScrapeTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = taskEntry{task: *task, expiresAt: r.now().Add(r.ttl)}
	return nil
}

func (r *TaskRepoImpl) Get(_ context.Context, id string) (*entity.ScrapeTask, error) {
	r.mu.RLock()
	entry, ok := r.tasks[id]
	r.mu.RUnlock()

	if !ok {
		return nil, repository.ErrNotFound
	}
	now := r.now()
	if !now.Before(entry.expiresAt) {
		// A Save may have refreshed the entry since the read lock was released.
		r.mu.Lock()
		entry, ok = r.tasks[id]
		if ok && !now.Before(entry.expiresAt) {
			delete(r.tasks, id)
			ok = false
		}
		r.mu.Unlock()
		if !ok {
			return nil, repository.ErrNotFound
		}
	}
	task := entry.task
	return &task, nil
}

func (r *TaskRepoImpl) Ping(context.Context) error { return nil }

// Sweep removes every expired entry and returns how many were removed.
func (r *TaskRepoImpl) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	removed := 0
	for id, entry := range r.tasks {
		if !now.Before(entry.expiresAt) {
			delete(r.tasks, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *TaskRepoImpl) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
