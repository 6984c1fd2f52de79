package response

import (
	"github.com/user/imagescraper-service/internal/entity"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// ScrapeTaskResponse reports the state of a scrape task.
type ScrapeTaskResponse struct {
	TaskID      string `json:"task_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	Category    string `json:"category"`
	MaxImages   int    `json:"max_images"`
	SavedImages int    `json:"saved_images"`
}

func NewScrapeTaskResponse(t *entity.ScrapeTask) ScrapeTaskResponse {
	return ScrapeTaskResponse{
		TaskID:      t.ID,
		Status:      t.Status,
		Message:     t.Message,
		Category:    t.Category,
		MaxImages:   t.MaxImages,
		SavedImages: t.SavedImages,
	}
}

type ImageListResponse struct {
	Images []*entity.StoredImage `json:"images"`
	Page   int                   `json:"page"`
	Limit  int                   `json:"limit"`
	Count  int                   `json:"count"`
}

type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}
