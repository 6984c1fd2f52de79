package entity

import "time"

// MinImageDimension is the smallest width/height, in pixels, of an image worth keeping.
// Anything smaller is treated as an icon or UI chrome.
const MinImageDimension = 100

// ImageCandidate is an image discovered on a search page that has not been persisted yet.
type ImageCandidate struct {
	ID             string // identity hash of SourceImageURL
	SourceImageURL string
	SourcePageURL  string
	Title          string
	WidthPx        int
	HeightPx       int
	Tags           []string // category first
	Category       string
	DiscoveredAt   time.Time
}

// StoredImage mirrors the `images` PostgreSQL table schema.
// ImageURL (the blob URL) is unique across all records.
type StoredImage struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ImageURL  string    `json:"image_url"`
	SourceURL string    `json:"source_url"`
	Tags      []string  `json:"tags"`
	Category  string    `json:"category"`
	ScrapedAt time.Time `json:"scraped_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
