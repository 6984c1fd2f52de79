package repository

import (
	"context"

	"github.com/user/imagescraper-service/internal/entity"
)

// ImageRepository defines the interface for persisting and querying stored images.
type ImageRepository interface {
	// Create inserts img unless a record with the same ImageURL exists, in which case
	// the existing record is returned.
	Create(ctx context.Context, img *entity.StoredImage) (*entity.StoredImage, error)
	// FindByURL returns the image whose blob URL or source URL equals url, or ErrNotFound.
	FindByURL(ctx context.Context, url string) (*entity.StoredImage, error)
	// FindByID returns a single image, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*entity.StoredImage, error)
	// List returns one page of images matching filter.
	List(ctx context.Context, filter entity.ImageFilter) ([]*entity.StoredImage, error)
	// Stats aggregates counts over all stored images.
	Stats(ctx context.Context) (*entity.ImageStats, error)
}
