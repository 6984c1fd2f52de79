package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/imagescraper-service/internal/delivery/http/handler"
	"github.com/user/imagescraper-service/internal/delivery/http/middleware"
	"go.uber.org/zap"
)

const requestTimeout = 60 * time.Second

func New(h *handler.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(requestTimeout))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/health", h.HandleHealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/scrape", h.HandleStartScrape)
		r.Get("/scrape/{taskID}", h.HandleGetScrapeStatus)
		r.Delete("/scrape/{taskID}", h.HandleCancelScrape)

		r.Get("/images", h.HandleListImages)
		r.Get("/images/{imageID}", h.HandleGetImage)
		r.Get("/stats", h.HandleStats)
	})

	return r
}
