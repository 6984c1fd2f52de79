package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/user/imagescraper-service/internal/entity"
	"github.com/user/imagescraper-service/internal/repository"
	"github.com/user/imagescraper-service/pkg/metrics"
	"github.com/user/imagescraper-service/pkg/proxy"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	objectExtension   = ".jpg"
	objectContentType = "image/jpeg"
	maxTitleInName    = 50
)

// PipelineConfig tunes image downloads.
type PipelineConfig struct {
	DownloadTimeout time.Duration
	MaxImageBytes   int64
	// RequestsPerSecond limits downloads across the process. Zero disables the limit.
	RequestsPerSecond float64
	UserAgent         string
	// Identities rotates proxies and user agents per download. Nil goes direct.
	Identities *proxy.Manager
}

// Pipeline downloads admitted candidates, re-uploads them to blob storage and
// persists their metadata.
type Pipeline struct {
	client  *http.Client
	limiter *rate.Limiter
	blobs   repository.BlobRepository
	images  repository.ImageRepository
	cfg     PipelineConfig
	logger  *zap.Logger
	now     func() time.Time
	newName func(title string) string
}

func NewPipeline(cfg PipelineConfig, blobs repository.BlobRepository, images repository.ImageRepository, logger *zap.Logger) *Pipeline {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Identities != nil {
		transport.Proxy = cfg.Identities.ProxyFunc()
	}
	return &Pipeline{
		client:  &http.Client{Timeout: cfg.DownloadTimeout, Transport: transport},
		limiter: limiter,
		blobs:   blobs,
		images:  images,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		newName: ObjectName,
	}
}

// FetchAndStore downloads c, uploads it and persists the resulting record.
// Every error is a soft failure for the run: the candidate is skipped.
func (p *Pipeline) FetchAndStore(ctx context.Context, c *entity.ImageCandidate) (*entity.StoredImage, error) {
	data, err := p.download(ctx, c.SourceImageURL)
	if err != nil {
		return nil, err
	}

	objectName := p.newName(c.Title)
	blobURL, err := p.blobs.PutBytes(ctx, data, objectName, objectContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", repository.ErrUploadFailed, objectName, err)
	}

	record := &entity.StoredImage{
		Title:     c.Title,
		ImageURL:  blobURL,
		SourceURL: c.SourceImageURL,
		Tags:      append([]string(nil), c.Tags...),
		Category:  c.Category,
		ScrapedAt: c.DiscoveredAt,
	}
	if record.ScrapedAt.IsZero() {
		record.ScrapedAt = p.now().UTC()
	}

	saved, err := p.images.Create(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("failed to persist image %s: %w", blobURL, err)
	}
	return saved, nil
}

func (p *Pipeline) download(ctx context.Context, imageURL string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrDownloadFailed, err)
	}
	if ua := p.cfg.Identities.UserAgent(p.cfg.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("transport_error").Inc()
		return nil, fmt.Errorf("%w: %v", repository.ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.DownloadsTotal.WithLabelValues("http_error").Inc()
		return nil, fmt.Errorf("%w: received status code %d", repository.ErrDownloadFailed, resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if p.cfg.MaxImageBytes > 0 {
		body = io.LimitReader(resp.Body, p.cfg.MaxImageBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("transport_error").Inc()
		return nil, fmt.Errorf("%w: %v", repository.ErrDownloadFailed, err)
	}
	if p.cfg.MaxImageBytes > 0 && int64(len(data)) > p.cfg.MaxImageBytes {
		metrics.DownloadsTotal.WithLabelValues("too_large").Inc()
		return nil, fmt.Errorf("%w: image exceeds %d bytes", repository.ErrDownloadFailed, p.cfg.MaxImageBytes)
	}

	metrics.DownloadsTotal.WithLabelValues("success").Inc()
	return data, nil
}

// ObjectName returns a globally unique blob name: random token, sanitized
// and truncated title, fixed extension.
func ObjectName(title string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return token + "_" + sanitizeTitle(title) + objectExtension
}

func sanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ReplaceAll(strings.TrimSpace(title), " ", "_") {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
		if b.Len() >= maxTitleInName {
			break
		}
	}
	return b.String()
}
