package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/user/imagescraper-service/internal/delivery/http/request"
	"github.com/user/imagescraper-service/internal/delivery/http/response"
	"github.com/user/imagescraper-service/internal/usecase"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// Pinger is a dependency checked by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	tasks  usecase.TaskManager
	images usecase.ImageQuerier
	checks map[string]Pinger
	logger *zap.Logger
}

// NewHandler builds the API handler. checks maps a component name to its health probe.
func NewHandler(tasks usecase.TaskManager, images usecase.ImageQuerier, checks map[string]Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		tasks:  tasks,
		images: images,
		checks: checks,
		logger: logger,
	}
}

func (h *Handler) HandleStartScrape(w http.ResponseWriter, r *http.Request) {
	var req request.ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		h.writeJSONError(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	task, err := h.tasks.Start(r.Context(), req.Category, req.MaxImages)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCategory) {
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to start scrape task", zap.String("category", req.Category), zap.Error(err))
		h.writeJSONError(w, "Failed to start scrape task", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, response.NewScrapeTaskResponse(task))
}

func (h *Handler) HandleGetScrapeStatus(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Status(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		h.writeTaskError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.NewScrapeTaskResponse(task))
}

func (h *Handler) HandleCancelScrape(w http.ResponseWriter, r *http.Request) {
	task, err := h.tasks.Cancel(r.Context(), chi.URLParam(r, "taskID"))
	if err != nil {
		h.writeTaskError(w, err)
		return
	}
	status := http.StatusOK
	if !task.Terminal() {
		status = http.StatusAccepted
	}
	h.writeJSON(w, status, response.NewScrapeTaskResponse(task))
}

func (h *Handler) writeTaskError(w http.ResponseWriter, err error) {
	if errors.Is(err, usecase.ErrTaskNotFound) {
		h.writeJSONError(w, "Task not found", http.StatusNotFound)
		return
	}
	h.logger.Error("failed to load scrape task", zap.Error(err))
	h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
}

func (h *Handler) HandleListImages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.images.List(r.Context(), usecase.ImageQuery{
		Search:    q.Get("search"),
		Source:    q.Get("source"),
		DateFrom:  q.Get("date_from"),
		DateTo:    q.Get("date_to"),
		Category:  q.Get("category"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
		Page:      queryInt(q.Get("page")),
		Limit:     queryInt(q.Get("limit")),
	})
	if err != nil {
		h.logger.Error("failed to list images", zap.Error(err))
		h.writeJSONError(w, "Failed to fetch images", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, response.ImageListResponse{
		Images: page.Images,
		Page:   page.Page,
		Limit:  page.Limit,
		Count:  len(page.Images),
	})
}

func (h *Handler) HandleGetImage(w http.ResponseWriter, r *http.Request) {
	img, err := h.images.Get(r.Context(), chi.URLParam(r, "imageID"))
	if err != nil {
		if errors.Is(err, usecase.ErrImageNotFound) {
			h.writeJSONError(w, "Image not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to fetch image", zap.Error(err))
		h.writeJSONError(w, "Failed to fetch image", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, img)
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.images.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to compute stats", zap.Error(err))
		h.writeJSONError(w, "Failed to fetch stats", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := response.HealthResponse{Status: "ok", Components: make(map[string]string, len(h.checks))}
	status := http.StatusOK
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			h.logger.Error("health check failed", zap.String("component", name), zap.Error(err))
			resp.Components[name] = "unhealthy"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Components[name] = "healthy"
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, "invalid "+fe.Field()+": failed '"+fe.Tag()+"'")
	}
	return strings.Join(msgs, "; ")
}

// queryInt reads a non-negative integer query value; absent or malformed values read as 0.
func queryInt(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
