package chromedp_browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/user/imagescraper-service/internal/repository"
	"github.com/user/imagescraper-service/pkg/proxy"
	"github.com/user/imagescraper-service/pkg/retry"
	"go.uber.org/zap"
)

const (
	launchAttempts    = 3
	reconnectAttempts = 3
	probeTimeout      = 5 * time.Second
	readyPollInterval = 200 * time.Millisecond
)

// stealthScript hides the automation marker from page scripts.
const stealthScript = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`

// renderedSizeScript copies every image's rendered size into its width/height
// attributes so the HTML snapshot carries what the page actually displays.
const renderedSizeScript = `(() => {
	let n = 0;
	document.querySelectorAll('img').forEach((img) => {
		if (img.width > 0) { img.setAttribute('width', String(img.width)); n++; }
		if (img.height > 0) { img.setAttribute('height', String(img.height)); }
	});
	return n;
})()`

const scrollScript = `window.scrollTo(0, document.body.scrollHeight);`

type Config struct {
	Headless  bool
	UserAgent string
	// ProxyServer is passed to --proxy-server, e.g. "http://proxy1:8000".
	ProxyServer     string
	PageLoadTimeout time.Duration
	SettleDelay     time.Duration
	RetryDelay      time.Duration
}

// Session is a chromedp-driven browser owned by a single scrape run.
type Session struct {
	cfg    Config
	logger *zap.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewSession creates a session. The browser is launched by Start.
func NewSession(cfg Config, logger *zap.Logger) *Session {
	return &Session{cfg: cfg, logger: logger}
}

// NewFactory returns a factory handing every run its own session. When
// identities is set each session gets the next proxy and a random user agent.
func NewFactory(cfg Config, identities *proxy.Manager, logger *zap.Logger) repository.BrowserFactory {
	return func() repository.BrowserSession {
		sessionCfg := cfg
		sessionCfg.UserAgent = identities.UserAgent(cfg.UserAgent)
		if p := identities.NextProxy(); p != nil {
			// Chrome ignores credentials in --proxy-server.
			sessionCfg.ProxyServer = p.Scheme + "://" + p.Host
		}
		return NewSession(sessionCfg, logger)
	}
}

func (s *Session) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.WindowSize(1920, 1080),
	)
	if s.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(s.cfg.UserAgent))
	}
	if s.cfg.ProxyServer != "" {
		opts = append(opts, chromedp.ProxyServer(s.cfg.ProxyServer))
	}
	return opts
}

// Start launches the browser, retrying with a growing delay.
func (s *Session) Start(ctx context.Context) error {
	s.teardown()

	policy := retry.Policy{
		MaxAttempts: launchAttempts,
		Delay:       s.cfg.RetryDelay,
		Multiplier:  2,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			s.logger.Warn("browser launch failed, retrying",
				zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))
		},
	}
	if err := retry.Do(ctx, policy, func(int) error { return s.launch() }); err != nil {
		return fmt.Errorf("%w: %w", repository.ErrDriverInit, err)
	}

	s.logger.Info("browser started",
		zap.Bool("headless", s.cfg.Headless), zap.String("proxy", s.cfg.ProxyServer))
	return nil
}

func (s *Session) launch() error {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), s.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(s.logger.Sugar().Debugf))

	// The first Run allocates the browser and binds its lifetime to browserCtx,
	// so it must not carry a deadline of its own.
	err := chromedp.Run(browserCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript).Do(ctx)
			return err
		}),
		chromedp.Navigate("about:blank"),
	)
	if err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("browser failed startup check: %w", err)
	}

	s.allocCancel = allocCancel
	s.browserCtx = browserCtx
	s.browserCancel = browserCancel
	return nil
}

// EnsureConnected probes the browser and relaunches it if the probe fails.
func (s *Session) EnsureConnected(ctx context.Context) error {
	if s.browserCtx != nil && s.probe(ctx) == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.logger.Warn("browser connection lost, relaunching")
	s.teardown()

	policy := retry.Fixed(reconnectAttempts, s.cfg.RetryDelay)
	if err := retry.Do(ctx, policy, func(int) error { return s.launch() }); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", repository.ErrDriverUnavailable, err)
	}
	s.logger.Info("browser relaunched")
	return nil
}

func (s *Session) probe(ctx context.Context) error {
	probeCtx, cancel := s.opContext(ctx, probeTimeout)
	defer cancel()

	var location string
	return chromedp.Run(probeCtx, chromedp.Location(&location))
}

// Navigate loads url. A page that does not finish loading within the page load
// timeout fails with ErrNavigationTimeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.browserCtx == nil {
		return repository.ErrDriverUnavailable
	}
	navCtx, cancel := s.opContext(ctx, s.cfg.PageLoadTimeout)
	defer cancel()

	err := chromedp.Run(navCtx, chromedp.Navigate(url))
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %s after %s", repository.ErrNavigationTimeout, url, s.cfg.PageLoadTimeout)
	default:
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
}

func (s *Session) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) bool {
	if s.browserCtx == nil {
		return false
	}
	waitCtx, cancel := s.opContext(ctx, timeout)
	defer cancel()

	if err := s.waitDocumentComplete(waitCtx); err != nil {
		s.logger.Debug("document did not become ready", zap.Error(err))
		return false
	}
	if err := chromedp.Run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		s.logger.Debug("selector did not appear", zap.String("selector", selector), zap.Error(err))
		return false
	}
	return retry.Wait(ctx, s.cfg.SettleDelay) == nil
}

func (s *Session) waitDocumentComplete(ctx context.Context) error {
	for {
		var state string
		if err := chromedp.Run(ctx, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
			return err
		}
		if state == "complete" {
			return nil
		}
		if err := retry.Wait(ctx, readyPollInterval); err != nil {
			return err
		}
	}
}

func (s *Session) ScrollToBottom(ctx context.Context, times int) error {
	if s.browserCtx == nil {
		return repository.ErrDriverUnavailable
	}
	for i := 0; i < times; i++ {
		scrollCtx, cancel := s.opContext(ctx, s.cfg.PageLoadTimeout)
		err := chromedp.Run(scrollCtx, chromedp.Evaluate(scrollScript, nil))
		cancel()
		if err != nil {
			return fmt.Errorf("failed to scroll page: %w", err)
		}
		if err := retry.Wait(ctx, s.cfg.SettleDelay); err != nil {
			return err
		}
	}
	return nil
}

// FindAll snapshots the rendered page and selects from the snapshot.
func (s *Session) FindAll(ctx context.Context, selector string) ([]*goquery.Selection, error) {
	if s.browserCtx == nil {
		return nil, repository.ErrDriverUnavailable
	}
	snapCtx, cancel := s.opContext(ctx, s.cfg.PageLoadTimeout)
	defer cancel()

	var (
		sized int
		html  string
	)
	err := chromedp.Run(snapCtx,
		chromedp.Evaluate(renderedSizeScript, &sized),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page snapshot: %w", err)
	}
	return selectAll(doc, selector), nil
}

func selectAll(doc *goquery.Document, selector string) []*goquery.Selection {
	found := doc.Find(selector)
	out := make([]*goquery.Selection, 0, found.Length())
	found.Each(func(_ int, el *goquery.Selection) {
		out = append(out, el)
	})
	return out
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	if s.browserCtx != nil {
		s.logger.Debug("closing browser")
	}
	s.teardown()
	return nil
}

func (s *Session) teardown() {
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	s.browserCtx, s.browserCancel, s.allocCancel = nil, nil, nil
}

// opContext derives a context for one browser operation. It is bounded by
// timeout (when positive) and cancelled together with parent.
func (s *Session) opContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(s.browserCtx, timeout)
	} else {
		ctx, cancel = context.WithCancel(s.browserCtx)
	}
	stop := context.AfterFunc(parent, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
