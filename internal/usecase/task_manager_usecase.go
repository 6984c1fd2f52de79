package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/user/imagescraper-service/internal/entity"
	"github.com/user/imagescraper-service/internal/repository"
	"github.com/user/imagescraper-service/internal/scraper"
	"github.com/user/imagescraper-service/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrInvalidCategory = errors.New("category must not be empty")
)

const finalizeTimeout = 5 * time.Second

// Runner executes one scrape run.
type Runner interface {
	Run(ctx context.Context, category string, maxImages int) (*scraper.RunResult, error)
}

// TaskManager starts scrape runs in the background and tracks their status.
type TaskManager interface {
	Start(ctx context.Context, category string, maxImages int) (*entity.ScrapeTask, error)
	Status(ctx context.Context, id string) (*entity.ScrapeTask, error)
	Cancel(ctx context.Context, id string) (*entity.ScrapeTask, error)
	// Shutdown cancels every run and waits for them to record their final status.
	Shutdown(ctx context.Context) error
}

type TaskManagerConfig struct {
	DefaultMaxImages   int
	MaxImagesPerScrape int
	MaxConcurrentRuns  int
}

type taskManagerUseCase struct {
	runner Runner
	tasks  repository.TaskRepository
	cfg    TaskManagerConfig
	logger *zap.Logger

	slots   *semaphore.Weighted
	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	// mu guards cancels and closed; wg.Add happens under it so Shutdown's Wait
	// never races a late Start.
	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	closed  bool

	now   func() time.Time
	newID func() string
}

func NewTaskManager(runner Runner, tasks repository.TaskRepository, cfg TaskManagerConfig, logger *zap.Logger) TaskManager {
	if cfg.MaxConcurrentRuns <= 0 {
		cfg.MaxConcurrentRuns = 1
	}
	baseCtx, stop := context.WithCancel(context.Background())
	return &taskManagerUseCase{
		runner:  runner,
		tasks:   tasks,
		cfg:     cfg,
		logger:  logger,
		slots:   semaphore.NewWeighted(int64(cfg.MaxConcurrentRuns)),
		baseCtx: baseCtx,
		stop:    stop,
		cancels: make(map[string]context.CancelFunc),
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Start records a running task and launches its run. It returns as soon as the
// task is stored; the run outlives ctx.
func (uc *taskManagerUseCase) Start(ctx context.Context, category string, maxImages int) (*entity.ScrapeTask, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, ErrInvalidCategory
	}

	now := uc.now().UTC()
	task := &entity.ScrapeTask{
		ID:        uc.newID(),
		Category:  category,
		MaxImages: uc.clampMax(maxImages),
		Status:    entity.TaskStatusRunning,
		Message:   fmt.Sprintf("Download started for category '%s'", category),
		CreatedAt: now,
		UpdatedAt: now,
	}

	runCtx, cancel := context.WithCancel(uc.baseCtx)
	uc.mu.Lock()
	if uc.closed {
		uc.mu.Unlock()
		cancel()
		return nil, fmt.Errorf("task manager is shutting down: %w", context.Canceled)
	}
	uc.cancels[task.ID] = cancel
	uc.wg.Add(1)
	uc.mu.Unlock()

	if err := uc.tasks.Save(ctx, task); err != nil {
		uc.release(task.ID)
		uc.wg.Done()
		return nil, fmt.Errorf("failed to save task: %w", err)
	}

	go uc.execute(runCtx, *task)

	uc.logger.Info("scrape task started",
		zap.String("task_id", task.ID), zap.String("category", category), zap.Int("max_images", task.MaxImages))
	return task, nil
}

func (uc *taskManagerUseCase) clampMax(maxImages int) int {
	if maxImages <= 0 {
		maxImages = uc.cfg.DefaultMaxImages
	}
	if uc.cfg.MaxImagesPerScrape > 0 && maxImages > uc.cfg.MaxImagesPerScrape {
		maxImages = uc.cfg.MaxImagesPerScrape
	}
	return maxImages
}

func (uc *taskManagerUseCase) execute(ctx context.Context, task entity.ScrapeTask) {
	defer uc.wg.Done()
	defer uc.release(task.ID)

	logger := uc.logger.With(zap.String("task_id", task.ID), zap.String("category", task.Category))

	var (
		result *scraper.RunResult
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("scrape run panicked", zap.Any("panic", r))
				err = fmt.Errorf("internal error: %v", r)
			}
		}()

		if err = uc.slots.Acquire(ctx, 1); err != nil {
			return
		}
		defer uc.slots.Release(1)

		metrics.ActiveRuns.Inc()
		defer metrics.ActiveRuns.Dec()

		start := uc.now()
		result, err = uc.runner.Run(ctx, task.Category, task.MaxImages)
		metrics.ScrapeRunDuration.Observe(uc.now().Sub(start).Seconds())
	}()

	saved := 0
	if result != nil {
		saved = len(result.Images)
	}
	task.SavedImages = saved
	task.Status, task.Message = outcome(task.Category, saved, err)
	task.UpdatedAt = uc.now().UTC()
	metrics.ScrapeRunsTotal.WithLabelValues(task.Status).Inc()

	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if serr := uc.tasks.Save(saveCtx, &task); serr != nil {
		logger.Error("failed to save final task status", zap.String("status", task.Status), zap.Error(serr))
	}

	if err != nil {
		logger.Warn("scrape task finished", zap.String("status", task.Status), zap.Int("saved", saved), zap.Error(err))
		return
	}
	logger.Info("scrape task finished", zap.String("status", task.Status), zap.Int("saved", saved))
}

// outcome maps a finished run to its task status and message. A cancelled run
// is cancelled whatever it saved; otherwise any saved image means completed.
func outcome(category string, saved int, err error) (status, message string) {
	switch {
	case errors.Is(err, context.Canceled):
		return entity.TaskStatusCancelled, fmt.Sprintf("Cancelled after downloading %d images for category '%s'", saved, category)
	case saved > 0:
		return entity.TaskStatusCompleted, fmt.Sprintf("Successfully downloaded %d images for category '%s'", saved, category)
	case err != nil:
		return entity.TaskStatusFailed, fmt.Sprintf("Error: %v", err)
	default:
		return entity.TaskStatusFailed, fmt.Sprintf("No images found for category '%s'", category)
	}
}

func (uc *taskManagerUseCase) release(id string) {
	uc.mu.Lock()
	cancel, ok := uc.cancels[id]
	delete(uc.cancels, id)
	uc.mu.Unlock()
	if ok {
		cancel()
	}
}

func (uc *taskManagerUseCase) Status(ctx context.Context, id string) (*entity.ScrapeTask, error) {
	task, err := uc.tasks.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task %s: %w", id, err)
	}
	return task, nil
}

// Cancel asks a running task to stop. The run records the cancelled status
// itself once it has released the browser. Finished tasks are returned as is.
func (uc *taskManagerUseCase) Cancel(ctx context.Context, id string) (*entity.ScrapeTask, error) {
	task, err := uc.Status(ctx, id)
	if err != nil {
		return nil, err
	}

	uc.mu.Lock()
	cancel, ok := uc.cancels[id]
	uc.mu.Unlock()
	if ok {
		cancel()
		uc.logger.Info("scrape task cancellation requested", zap.String("task_id", id))
	}
	return task, nil
}

func (uc *taskManagerUseCase) Shutdown(ctx context.Context) error {
	uc.mu.Lock()
	uc.closed = true
	uc.mu.Unlock()
	uc.stop()

	done := make(chan struct{})
	go func() {
		uc.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scrape runs still finishing: %w", ctx.Err())
	}
}
