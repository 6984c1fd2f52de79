package scraper

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/user/imagescraper-service/internal/entity"
	"github.com/user/imagescraper-service/internal/repository"
)

// memImages is an in-memory ImageRepository keyed by blob URL.
type memImages struct {
	mu        sync.Mutex
	byURL     map[string]*entity.StoredImage
	creates   int
	lookupErr error
}

func newMemImages() *memImages {
	return &memImages{byURL: make(map[string]*entity.StoredImage)}
}

func (m *memImages) Create(_ context.Context, img *entity.StoredImage) (*entity.StoredImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if existing, ok := m.byURL[img.ImageURL]; ok {
		return existing, nil
	}
	cp := *img
	cp.ID = uuid.NewString()
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	m.byURL[cp.ImageURL] = &cp
	return &cp, nil
}

func (m *memImages) FindByURL(_ context.Context, url string) (*entity.StoredImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	for _, img := range m.byURL {
		if img.ImageURL == url || img.SourceURL == url {
			return img, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memImages) FindByID(_ context.Context, id string) (*entity.StoredImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, img := range m.byURL {
		if img.ID == id {
			return img, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memImages) List(context.Context, entity.ImageFilter) ([]*entity.StoredImage, error) {
	return nil, errors.New("not implemented")
}

func (m *memImages) Stats(context.Context) (*entity.ImageStats, error) {
	return nil, errors.New("not implemented")
}

func (m *memImages) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byURL)
}

type putCall struct {
	objectName  string
	contentType string
	size        int
}

// memBlobs records uploads and returns a URL under a fake public host.
type memBlobs struct {
	mu   sync.Mutex
	puts []putCall
	err  error
}

func (b *memBlobs) PutBytes(_ context.Context, data []byte, objectName, contentType string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return "", b.err
	}
	b.puts = append(b.puts, putCall{objectName: objectName, contentType: contentType, size: len(data)})
	return "https://cdn.test/" + objectName, nil
}

func (b *memBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.puts)
}

// fakeBrowser serves HTML fixtures by URL. Unknown URLs time out.
type fakeBrowser struct {
	mu sync.Mutex

	pages    map[string]string
	startErr error
	// unavailable makes EnsureConnected fail with ErrDriverUnavailable.
	unavailable bool

	starts    int
	closes    int
	navigated []string
	current   string
}

func newFakeBrowser(pages map[string]string) *fakeBrowser {
	return &fakeBrowser{pages: pages}
}

func (f *fakeBrowser) factory() repository.BrowserFactory {
	return func() repository.BrowserSession { return f }
}

func (f *fakeBrowser) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	return nil
}

func (f *fakeBrowser) EnsureConnected(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return repository.ErrDriverUnavailable
	}
	return nil
}

func (f *fakeBrowser) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigated = append(f.navigated, url)
	if _, ok := f.pages[url]; !ok {
		f.current = ""
		return repository.ErrNavigationTimeout
	}
	f.current = url
	return ctx.Err()
}

func (f *fakeBrowser) WaitForSelector(_ context.Context, selector string, _ time.Duration) bool {
	doc, err := f.document()
	if err != nil {
		return false
	}
	return doc.Find(selector).Length() > 0
}

func (f *fakeBrowser) ScrollToBottom(context.Context, int) error { return nil }

func (f *fakeBrowser) FindAll(_ context.Context, selector string) ([]*goquery.Selection, error) {
	doc, err := f.document()
	if err != nil {
		return nil, err
	}
	var out []*goquery.Selection
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, s)
	})
	return out, nil
}

func (f *fakeBrowser) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeBrowser) document() (*goquery.Document, error) {
	f.mu.Lock()
	html, ok := f.pages[f.current]
	f.mu.Unlock()
	if !ok {
		return nil, errors.New("no page loaded")
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// mustSelection parses html and returns the first element matching selector.
func mustSelection(html, selector string) *goquery.Selection {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		panic(err)
	}
	return doc.Find(selector).First()
}
