package entity

import "time"

// Sort fields accepted by ImageFilter.
const (
	SortByScrapedAt = "scraped_at"
	SortByTitle     = "title"
)

// ImageFilter selects a page of stored images.
type ImageFilter struct {
	Search     string
	Source     string
	DateFrom   *time.Time
	DateTo     *time.Time
	Categories []string // category plus its subcategories; empty means any
	SortBy     string
	Ascending  bool
	Offset     int
	Limit      int
}

// CountEntry is one bucket of an aggregation.
type CountEntry struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// ImageStats summarises the stored images.
type ImageStats struct {
	TotalImages       int64        `json:"total_images"`
	TopTags           []CountEntry `json:"top_tags"`
	SourceBreakdown   []CountEntry `json:"source_breakdown"`
	CategoryBreakdown []CountEntry `json:"category_breakdown"`
	LastScraped       *time.Time   `json:"last_scraped,omitempty"`
}
