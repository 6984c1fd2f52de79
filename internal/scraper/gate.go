package scraper

import (
	"context"
	"errors"
	"sync"

	"github.com/user/imagescraper-service/internal/entity"
	"github.com/user/imagescraper-service/internal/repository"
	"go.uber.org/zap"
)

// Decision is the outcome of admitting a candidate through the Gate.
type Decision int

const (
	Accept Decision = iota
	RejectDuplicateInRun
	RejectAlreadyStored
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case RejectDuplicateInRun:
		return "duplicate_in_run"
	case RejectAlreadyStored:
		return "already_stored"
	default:
		return "unknown"
	}
}

// Gate rejects candidates already seen in this run or already in the store.
// A Gate belongs to a single run; its seen set is discarded with it.
type Gate struct {
	images repository.ImageRepository
	logger *zap.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewGate(images repository.ImageRepository, logger *zap.Logger) *Gate {
	return &Gate{
		images: images,
		logger: logger,
		seen:   make(map[string]struct{}),
	}
}

// Admit decides whether c should be downloaded. The identity hash is recorded
// before the store is consulted, so concurrent admits of one identity accept at most once.
func (g *Gate) Admit(ctx context.Context, c *entity.ImageCandidate) Decision {
	g.mu.Lock()
	if _, ok := g.seen[c.ID]; ok {
		g.mu.Unlock()
		return RejectDuplicateInRun
	}
	g.seen[c.ID] = struct{}{}
	g.mu.Unlock()

	_, err := g.images.FindByURL(ctx, c.SourceImageURL)
	switch {
	case err == nil:
		return RejectAlreadyStored
	case errors.Is(err, repository.ErrNotFound):
		return Accept
	default:
		// The store's create-if-absent still guards against duplicates.
		g.logger.Warn("store lookup failed, admitting candidate",
			zap.String("image_url", c.SourceImageURL), zap.Error(err))
		return Accept
	}
}

// Seen returns the number of identities recorded in this run.
func (g *Gate) Seen() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
