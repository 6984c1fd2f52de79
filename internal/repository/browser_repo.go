package repository

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// BrowserSession is a single automated browser owned by one scrape run.
// It holds one page at a time and is not safe for concurrent use.
type BrowserSession interface {
	// Start launches the browser. It fails with ErrDriverInit when no launch attempt succeeds.
	Start(ctx context.Context) error
	// EnsureConnected probes the browser and relaunches it when the probe fails.
	// It fails with ErrDriverUnavailable when the connection cannot be restored.
	EnsureConnected(ctx context.Context) error
	// Navigate loads url under the page load timeout without retrying.
	Navigate(ctx context.Context, url string) error
	// WaitForSelector waits for document readiness, then for selector, then a settle delay.
	// It reports whether the selector was found.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) bool
	// ScrollToBottom scrolls to the bottom of the page times times, pausing after each scroll.
	ScrollToBottom(ctx context.Context, times int) error
	// FindAll returns the elements matching selector in a snapshot of the current page.
	FindAll(ctx context.Context, selector string) ([]*goquery.Selection, error)
	// Close releases the browser. It is safe to call on a session that never started.
	Close() error
}

// BrowserFactory creates a new, not yet started, session for a run.
type BrowserFactory func() BrowserSession
