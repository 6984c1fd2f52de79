package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/user/imagescraper-service/internal/entity"
	"github.com/user/imagescraper-service/internal/repository"
	"github.com/user/imagescraper-service/internal/scraper"
	"go.uber.org/zap"
)

var ErrImageNotFound = errors.New("image not found")

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 1000
)

// ImageQuery carries the raw query parameters of an image listing.
type ImageQuery struct {
	Search    string
	Source    string
	DateFrom  string
	DateTo    string
	Category  string
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

type ImagePage struct {
	Images []*entity.StoredImage
	Page   int
	Limit  int
}

// ImageQuerier is the read path over stored images.
type ImageQuerier interface {
	List(ctx context.Context, q ImageQuery) (*ImagePage, error)
	Get(ctx context.Context, id string) (*entity.StoredImage, error)
	Stats(ctx context.Context) (*entity.ImageStats, error)
}

type imageQueryUseCase struct {
	images repository.ImageRepository
	logger *zap.Logger
}

func NewImageQuerier(images repository.ImageRepository, logger *zap.Logger) ImageQuerier {
	return &imageQueryUseCase{images: images, logger: logger}
}

// List returns one page of images. An empty page past the first falls back to
// the first page.
func (uc *imageQueryUseCase) List(ctx context.Context, q ImageQuery) (*ImagePage, error) {
	filter, page := uc.buildFilter(q)

	images, err := uc.images.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	if len(images) == 0 && page > 1 {
		filter.Offset = 0
		page = 1
		if images, err = uc.images.List(ctx, filter); err != nil {
			return nil, fmt.Errorf("failed to list images: %w", err)
		}
	}
	return &ImagePage{Images: images, Page: page, Limit: filter.Limit}, nil
}

func (uc *imageQueryUseCase) buildFilter(q ImageQuery) (entity.ImageFilter, int) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	switch {
	case limit <= 0:
		limit = DefaultPageLimit
	case limit > MaxPageLimit:
		limit = MaxPageLimit
	}

	sortBy, ascending := sortOptions(q.SortBy, q.SortOrder)
	filter := entity.ImageFilter{
		Search:    strings.TrimSpace(q.Search),
		Source:    strings.TrimSpace(q.Source),
		DateFrom:  uc.parseDate("date_from", q.DateFrom),
		DateTo:    uc.parseDate("date_to", q.DateTo),
		SortBy:    sortBy,
		Ascending: ascending,
		Offset:    (page - 1) * limit,
		Limit:     limit,
	}

	category := strings.ToLower(strings.TrimSpace(q.Category))
	switch {
	case category == "" || category == "all":
	case scraper.KnownCategory(category):
		filter.Categories = scraper.FilterCategories(category)
	default:
		uc.logger.Warn("ignoring unknown category filter", zap.String("category", q.Category))
	}
	return filter, page
}

// sortOptions maps the public sort names onto a column and direction.
// "oldest" sorts ascending unless an explicit order says otherwise.
func sortOptions(sortBy, sortOrder string) (column string, ascending bool) {
	column = entity.SortByScrapedAt
	switch strings.ToLower(sortBy) {
	case "a-z", "title":
		column = entity.SortByTitle
		ascending = true
	case "oldest":
		ascending = true
	}

	switch strings.ToLower(strings.TrimSpace(sortOrder)) {
	case "asc", "1":
		ascending = true
	case "desc", "-1":
		ascending = false
	}
	return column, ascending
}

// parseDate accepts RFC 3339 timestamps and plain dates. Anything else is
// ignored with a warning.
func (uc *imageQueryUseCase) parseDate(name, raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	uc.logger.Warn("ignoring invalid date filter", zap.String("param", name), zap.String("value", raw))
	return nil
}

func (uc *imageQueryUseCase) Get(ctx context.Context, id string) (*entity.StoredImage, error) {
	img, err := uc.images.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrImageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", id, err)
	}
	return img, nil
}

func (uc *imageQueryUseCase) Stats(ctx context.Context) (*entity.ImageStats, error) {
	stats, err := uc.images.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return stats, nil
}
