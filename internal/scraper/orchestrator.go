package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/imagescraper-service/internal/entity"
	"github.com/user/imagescraper-service/internal/repository"
	"github.com/user/imagescraper-service/pkg/metrics"
	"github.com/user/imagescraper-service/pkg/retry"
	"go.uber.org/zap"
)

var (
	errPageNotReady = errors.New("image elements did not appear")
	errNoElements   = errors.New("no image elements found")
)

// ImageFetcher downloads, uploads and persists an admitted candidate.
type ImageFetcher interface {
	FetchAndStore(ctx context.Context, c *entity.ImageCandidate) (*entity.StoredImage, error)
}

// Config controls how search pages are loaded.
type Config struct {
	Sites              []entity.SiteProfile
	ScrollTimes        int
	ElementWaitTimeout time.Duration
	PageLoadAttempts   int
	RetryDelay         time.Duration
}

// RunResult is what a finished run collected.
type RunResult struct {
	Images      []*entity.StoredImage
	Seen        int // distinct candidate identities seen during the run
	PagesLoaded int
	PagesFailed int
}

// Orchestrator drives one browser session across search terms and sites until
// enough images are saved or every (term, site) pair has been tried.
type Orchestrator struct {
	cfg        Config
	newSession repository.BrowserFactory
	images     repository.ImageRepository
	extractor  *Extractor
	fetcher    ImageFetcher
	logger     *zap.Logger
}

func NewOrchestrator(cfg Config, newSession repository.BrowserFactory, images repository.ImageRepository, fetcher ImageFetcher, logger *zap.Logger) *Orchestrator {
	if len(cfg.Sites) == 0 {
		cfg.Sites = DefaultSites()
	}
	if cfg.PageLoadAttempts <= 0 {
		cfg.PageLoadAttempts = 3
	}
	return &Orchestrator{
		cfg:        cfg,
		newSession: newSession,
		images:     images,
		extractor:  NewExtractor(),
		fetcher:    fetcher,
		logger:     logger,
	}
}

// Run scrapes up to maxImages images for category. It owns a fresh browser
// session for its whole lifetime and always releases it.
//
// Failures of a single (term, site) pair are logged and skipped. The returned
// result holds whatever was collected even when err is non-nil: err reports a
// browser that could not be started or restarted, or a cancelled ctx.
func (o *Orchestrator) Run(ctx context.Context, category string, maxImages int) (*RunResult, error) {
	result := &RunResult{Images: make([]*entity.StoredImage, 0, max(maxImages, 0))}
	if maxImages <= 0 {
		return result, nil
	}

	session := o.newSession()
	defer func() {
		if err := session.Close(); err != nil {
			o.logger.Warn("failed to close browser session", zap.Error(err))
		}
	}()

	if err := session.Start(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		return result, err
	}

	gate := NewGate(o.images, o.logger)
	defer func() { result.Seen = gate.Seen() }()

	for _, term := range ExpandTerms(category) {
		if len(result.Images) >= maxImages {
			break
		}
		for _, site := range o.cfg.Sites {
			if len(result.Images) >= maxImages {
				break
			}
			if err := ctx.Err(); err != nil {
				return result, err
			}

			err := o.scrapePage(ctx, session, gate, site, term, category, maxImages, result)
			if err == nil {
				continue
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}

			o.logger.Warn("skipping search page",
				zap.String("site", site.Name), zap.String("term", term), zap.Error(err))

			if errors.Is(err, repository.ErrDriverUnavailable) {
				if rerr := o.restart(ctx, session); rerr != nil {
					if ctxErr := ctx.Err(); ctxErr != nil {
						return result, ctxErr
					}
					o.logger.Error("browser could not be restarted, ending run early",
						zap.String("category", category), zap.Int("saved", len(result.Images)), zap.Error(rerr))
					return result, rerr
				}
			}
		}
	}

	o.logger.Info("scrape run finished",
		zap.String("category", category),
		zap.Int("saved", len(result.Images)),
		zap.Int("pages_loaded", result.PagesLoaded),
		zap.Int("pages_failed", result.PagesFailed))
	return result, nil
}

func (o *Orchestrator) restart(ctx context.Context, session repository.BrowserSession) error {
	if err := session.Close(); err != nil {
		o.logger.Warn("failed to close browser before restart", zap.Error(err))
	}
	return session.Start(ctx)
}

// scrapePage processes one (term, site) pair. A panic while handling the page is
// turned into an error so the run can move on to the next pair.
func (o *Orchestrator) scrapePage(ctx context.Context, session repository.BrowserSession, gate *Gate, site entity.SiteProfile, term, category string, maxImages int, result *RunResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while scraping %s: %v", site.Name, r)
		}
	}()

	pageURL := site.SearchURL(term)
	o.logger.Info("scraping search page", zap.String("url", pageURL), zap.String("term", term))

	elements, err := o.loadElements(ctx, session, site, pageURL)
	if err != nil {
		result.PagesFailed++
		metrics.PageLoadsTotal.WithLabelValues(site.Name, "failed").Inc()
		return err
	}
	result.PagesLoaded++
	metrics.PageLoadsTotal.WithLabelValues(site.Name, "ready").Inc()
	o.logger.Info("found image elements", zap.String("url", pageURL), zap.Int("count", len(elements)))

	for _, el := range elements {
		if len(result.Images) >= maxImages {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		candidate := o.extractor.Extract(el, site, category, pageURL)
		if candidate == nil {
			metrics.CandidatesTotal.WithLabelValues("discarded").Inc()
			continue
		}

		decision := gate.Admit(ctx, candidate)
		metrics.CandidatesTotal.WithLabelValues(decision.String()).Inc()
		if decision != Accept {
			o.logger.Debug("candidate rejected",
				zap.String("image_url", candidate.SourceImageURL), zap.Stringer("decision", decision))
			continue
		}

		stored, err := o.fetcher.FetchAndStore(ctx, candidate)
		if err != nil {
			o.logger.Warn("failed to store image",
				zap.String("image_url", candidate.SourceImageURL), zap.Error(err))
			continue
		}
		result.Images = append(result.Images, stored)
		metrics.ImagesSavedTotal.Inc()
		o.logger.Info("saved image", zap.String("id", stored.ID), zap.String("title", stored.Title))
	}
	return nil
}

// loadElements loads pageURL and returns its image elements, retrying the
// whole connect/navigate/wait chain. A lost browser is not retried here.
func (o *Orchestrator) loadElements(ctx context.Context, session repository.BrowserSession, site entity.SiteProfile, pageURL string) ([]*goquery.Selection, error) {
	policy := retry.Fixed(o.cfg.PageLoadAttempts, o.cfg.RetryDelay)
	policy.RetryIf = func(err error) bool {
		return !errors.Is(err, repository.ErrDriverUnavailable) &&
			!errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	policy.OnRetry = func(attempt int, err error, _ time.Duration) {
		o.logger.Warn("retrying search page", zap.String("url", pageURL), zap.Int("attempt", attempt), zap.Error(err))
	}

	var elements []*goquery.Selection
	err := retry.Do(ctx, policy, func(int) error {
		if err := session.EnsureConnected(ctx); err != nil {
			return err
		}
		if err := session.Navigate(ctx, pageURL); err != nil {
			return err
		}
		if !session.WaitForSelector(ctx, site.ImageSelector, o.cfg.ElementWaitTimeout) {
			return errPageNotReady
		}
		if err := session.ScrollToBottom(ctx, o.cfg.ScrollTimes); err != nil {
			return err
		}
		found, err := session.FindAll(ctx, site.ImageSelector)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return errNoElements
		}
		elements = found
		return nil
	})
	return elements, err
}
