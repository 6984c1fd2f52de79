package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/imagescraper-service/internal/adapter/memory"
	"github.com/user/imagescraper-service/internal/entity"
	"github.com/user/imagescraper-service/internal/scraper"
	"go.uber.org/zap"
)

// fakeRunner returns a fixed result, or blocks until cancelled when block is set.
type fakeRunner struct {
	images int
	err    error
	block  bool

	mu        sync.Mutex
	calls     []int
	active    atomic.Int32
	maxActive atomic.Int32
}

func (r *fakeRunner) Run(ctx context.Context, category string, maxImages int) (*scraper.RunResult, error) {
	r.mu.Lock()
	r.calls = append(r.calls, maxImages)
	r.mu.Unlock()

	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		m := r.maxActive.Load()
		if n <= m || r.maxActive.CompareAndSwap(m, n) {
			break
		}
	}

	result := &scraper.RunResult{}
	for i := 0; i < r.images; i++ {
		result.Images = append(result.Images, &entity.StoredImage{ID: "img", Category: category})
	}
	if r.block {
		<-ctx.Done()
		return result, ctx.Err()
	}
	return result, r.err
}

func (r *fakeRunner) maxRequested() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.calls...)
}

func newTestManager(runner Runner, cfg TaskManagerConfig) (TaskManager, *memory.TaskRepoImpl) {
	tasks := memory.NewTaskRepo(time.Hour)
	return NewTaskManager(runner, tasks, cfg, zap.NewNop()), tasks
}

func waitForStatus(t *testing.T, m TaskManager, id string, status string) *entity.ScrapeTask {
	t.Helper()
	var task *entity.ScrapeTask
	require.Eventually(t, func() bool {
		var err error
		task, err = m.Status(context.Background(), id)
		return err == nil && task.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return task
}

func TestStartRejectsEmptyCategory(t *testing.T) {
	m, _ := newTestManager(&fakeRunner{}, TaskManagerConfig{})

	_, err := m.Start(context.Background(), "  ", 10)
	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestTaskOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		runner  *fakeRunner
		status  string
		message string
		saved   int
	}{
		{"images saved", &fakeRunner{images: 2}, entity.TaskStatusCompleted, "Successfully downloaded 2 images for category 'nature'", 2},
		{"nothing found", &fakeRunner{}, entity.TaskStatusFailed, "No images found for category 'nature'", 0},
		{"run error", &fakeRunner{err: errors.New("browser driver failed to initialize")}, entity.TaskStatusFailed, "Error: browser driver failed to initialize", 0},
		{"cancelled during browser start", &fakeRunner{err: fmt.Errorf("%w: %w", errors.New("browser driver failed to initialize"), context.Canceled)}, entity.TaskStatusCancelled, "Cancelled after downloading 0 images for category 'nature'", 0},
		{"partial before error", &fakeRunner{images: 3, err: errors.New("browser driver unavailable")}, entity.TaskStatusCompleted, "Successfully downloaded 3 images for category 'nature'", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(tt.runner, TaskManagerConfig{DefaultMaxImages: 10})
			task, err := m.Start(context.Background(), "nature", 10)
			require.NoError(t, err)
			assert.Equal(t, entity.TaskStatusRunning, task.Status)
			assert.Equal(t, "Download started for category 'nature'", task.Message)
			assert.NotEmpty(t, task.ID)

			done := waitForStatus(t, m, task.ID, tt.status)
			assert.Equal(t, tt.message, done.Message)
			assert.Equal(t, tt.saved, done.SavedImages)
			assert.False(t, done.UpdatedAt.Before(done.CreatedAt))
		})
	}
}

func TestStartClampsMaxImages(t *testing.T) {
	runner := &fakeRunner{}
	m, _ := newTestManager(runner, TaskManagerConfig{DefaultMaxImages: 100, MaxImagesPerScrape: 500, MaxConcurrentRuns: 2})

	a, err := m.Start(context.Background(), "nature", 0)
	require.NoError(t, err)
	b, err := m.Start(context.Background(), "nature", 5000)
	require.NoError(t, err)

	assert.Equal(t, 100, a.MaxImages)
	assert.Equal(t, 500, b.MaxImages)

	waitForStatus(t, m, a.ID, entity.TaskStatusFailed)
	waitForStatus(t, m, b.ID, entity.TaskStatusFailed)
	assert.ElementsMatch(t, []int{100, 500}, runner.maxRequested())
}

func TestCancelRunningTask(t *testing.T) {
	m, _ := newTestManager(&fakeRunner{images: 1, block: true}, TaskManagerConfig{DefaultMaxImages: 10})

	task, err := m.Start(context.Background(), "nature", 10)
	require.NoError(t, err)

	got, err := m.Cancel(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	done := waitForStatus(t, m, task.ID, entity.TaskStatusCancelled)
	assert.Equal(t, 1, done.SavedImages)
	assert.Equal(t, "Cancelled after downloading 1 images for category 'nature'", done.Message)

	// Cancelling a finished task is a no-op.
	again, err := m.Cancel(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.TaskStatusCancelled, again.Status)
}

func TestUnknownTask(t *testing.T) {
	m, _ := newTestManager(&fakeRunner{}, TaskManagerConfig{})

	_, err := m.Status(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	_, err = m.Cancel(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestRunsRespectConcurrencyLimit(t *testing.T) {
	runner := &fakeRunner{block: true}
	m, _ := newTestManager(runner, TaskManagerConfig{DefaultMaxImages: 10, MaxConcurrentRuns: 1})

	var ids []string
	for i := 0; i < 3; i++ {
		task, err := m.Start(context.Background(), "nature", 10)
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}

	require.Eventually(t, func() bool { return runner.active.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), runner.maxActive.Load())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	for _, id := range ids {
		task, err := m.Status(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, entity.TaskStatusCancelled, task.Status)
	}
	assert.Equal(t, int32(1), runner.maxActive.Load())
}

func TestStartAfterShutdown(t *testing.T) {
	m, _ := newTestManager(&fakeRunner{}, TaskManagerConfig{})
	require.NoError(t, m.Shutdown(context.Background()))

	_, err := m.Start(context.Background(), "nature", 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStartConcurrentWithShutdown(t *testing.T) {
	m, tasks := newTestManager(&fakeRunner{block: true}, TaskManagerConfig{MaxConcurrentRuns: 4})

	const starters = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted []string
	)
	for i := 0; i < starters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task, err := m.Start(context.Background(), "nature", 5)
			if err != nil {
				assert.ErrorIs(t, err, context.Canceled)
				return
			}
			mu.Lock()
			accepted = append(accepted, task.ID)
			mu.Unlock()
		}()
	}

	require.NoError(t, m.Shutdown(context.Background()))
	wg.Wait()

	// Every run accepted before shutdown was waited for and recorded its final status.
	mu.Lock()
	defer mu.Unlock()
	for _, id := range accepted {
		task, err := tasks.Get(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, task.Terminal(), "task %s still %s", id, task.Status)
	}

	_, err := m.Start(context.Background(), "nature", 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStartSurvivesRequestContext(t *testing.T) {
	m, _ := newTestManager(&fakeRunner{images: 1}, TaskManagerConfig{})

	reqCtx, cancel := context.WithCancel(context.Background())
	task, err := m.Start(reqCtx, "nature", 1)
	require.NoError(t, err)
	cancel()

	waitForStatus(t, m, task.ID, entity.TaskStatusCompleted)
}

func TestOutcome(t *testing.T) {
	status, msg := outcome("cats", 0, context.Canceled)
	assert.Equal(t, entity.TaskStatusCancelled, status)
	assert.Equal(t, "Cancelled after downloading 0 images for category 'cats'", msg)

	status, _ = outcome("cats", 4, nil)
	assert.Equal(t, entity.TaskStatusCompleted, status)
}
