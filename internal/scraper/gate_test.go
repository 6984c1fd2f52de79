package scraper

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/imagescraper-service/internal/entity"
	"github.com/user/imagescraper-service/pkg/utils"
	"go.uber.org/zap"
)

func candidate(url string) *entity.ImageCandidate {
	return &entity.ImageCandidate{ID: utils.HashURL(url), SourceImageURL: url, Category: "nature"}
}

func TestGateAdmit(t *testing.T) {
	ctx := context.Background()
	images := newMemImages()
	_, err := images.Create(ctx, &entity.StoredImage{ImageURL: "https://cdn.test/old.jpg", SourceURL: "https://src.test/old.jpg"})
	require.NoError(t, err)

	gate := NewGate(images, zap.NewNop())

	assert.Equal(t, Accept, gate.Admit(ctx, candidate("https://src.test/new.jpg")))
	assert.Equal(t, RejectDuplicateInRun, gate.Admit(ctx, candidate("https://src.test/new.jpg")))
	assert.Equal(t, RejectAlreadyStored, gate.Admit(ctx, candidate("https://src.test/old.jpg")))
	assert.Equal(t, RejectDuplicateInRun, gate.Admit(ctx, candidate("https://src.test/old.jpg")))
	assert.Equal(t, 2, gate.Seen())
}

func TestGateAdmitsWhenLookupFails(t *testing.T) {
	images := newMemImages()
	images.lookupErr = errors.New("connection refused")
	gate := NewGate(images, zap.NewNop())

	assert.Equal(t, Accept, gate.Admit(context.Background(), candidate("https://src.test/a.jpg")))
	assert.Equal(t, RejectDuplicateInRun, gate.Admit(context.Background(), candidate("https://src.test/a.jpg")))
}

func TestGateAcceptsIdentityOnceUnderConcurrency(t *testing.T) {
	gate := NewGate(newMemImages(), zap.NewNop())

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if gate.Admit(context.Background(), candidate("https://src.test/same.jpg")) == Accept {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
	assert.Equal(t, 1, gate.Seen())
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "accept", Accept.String())
	assert.Equal(t, "duplicate_in_run", RejectDuplicateInRun.String())
	assert.Equal(t, "already_stored", RejectAlreadyStored.String())
	assert.Equal(t, "unknown", Decision(42).String())
}
