package scraper

import (
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/imagescraper-service/internal/entity"
	"github.com/user/imagescraper-service/pkg/utils"
)

const (
	untitled = "Untitled"

	// ancestorTagSelector matches containers whose class names suggest a label.
	ancestorTagSelector = "[class*='tag'], [class*='category'], [class*='label']"
	// tagContainerSelector bounds the search for site tag links around an image.
	tagContainerSelector = "figure, article, li"
	maxSiteTags          = 5
)

// Extractor turns image elements of a page snapshot into candidates.
// It has no side effects.
type Extractor struct {
	now func() time.Time
}

func NewExtractor() *Extractor {
	return &Extractor{now: time.Now}
}

// Extract builds a candidate from el, or returns nil when el is not a usable image:
// no src/data-src, an unresolvable URL, or a dimension below entity.MinImageDimension.
func (e *Extractor) Extract(el *goquery.Selection, site entity.SiteProfile, category, pageURL string) *entity.ImageCandidate {
	src := firstAttr(el, "src", "data-src")
	if src == "" {
		return nil
	}

	imageURL, err := utils.ResolveURL(pageURL, src)
	if err != nil {
		return nil
	}

	width := parseDimension(el.AttrOr("width", ""))
	height := parseDimension(el.AttrOr("height", ""))
	if width < entity.MinImageDimension || height < entity.MinImageDimension {
		return nil
	}

	return &entity.ImageCandidate{
		ID:             utils.HashURL(imageURL),
		SourceImageURL: imageURL,
		SourcePageURL:  pageURL,
		Title:          resolveTitle(titleElement(el, site.TitleSelector), category),
		WidthPx:        width,
		HeightPx:       height,
		Tags:           buildTags(el, site.TagSelector, category),
		Category:       category,
		DiscoveredAt:   e.now().UTC(),
	}
}

func firstAttr(el *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(el.AttrOr(name, "")); v != "" {
			return v
		}
	}
	return ""
}

// titleElement returns the element that carries the image's alt/title text.
// For most sites this is the image itself.
func titleElement(el *goquery.Selection, selector string) *goquery.Selection {
	if selector == "" || el.Is(selector) {
		return el
	}
	if found := el.Closest(tagContainerSelector).Find(selector).First(); found.Length() > 0 {
		return found
	}
	return el
}

func resolveTitle(el *goquery.Selection, category string) string {
	title := firstAttr(el, "alt", "title")
	if title == "" {
		title = untitled
	}
	if !strings.Contains(strings.ToLower(title), strings.ToLower(category)) {
		title = category + " - " + title
	}
	return title
}

// parseDimension reads a width/height attribute such as "640" or "640px".
// Anything unparsable counts as 0.
func parseDimension(raw string) int {
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "px"))
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func buildTags(el *goquery.Selection, tagSelector, category string) []string {
	tags := []string{category}

	if tag, ok := ancestorTag(el); ok {
		tags = appendTag(tags, tag)
	}
	for _, tag := range siteTags(el, tagSelector) {
		tags = appendTag(tags, tag)
	}
	return tags
}

// ancestorTag returns the text of the closest ancestor whose class suggests a
// tag, category or label. ok is false when there is none or its text is empty.
func ancestorTag(el *goquery.Selection) (tag string, ok bool) {
	defer func() {
		if recover() != nil {
			tag, ok = "", false
		}
	}()

	parent := el.ParentsFiltered(ancestorTagSelector).First()
	if parent.Length() == 0 {
		return "", false
	}
	tag = strings.TrimSpace(parent.Text())
	return tag, tag != ""
}

// siteTags collects the text of tag links that sit next to the image inside its container.
func siteTags(el *goquery.Selection, selector string) (tags []string) {
	if selector == "" {
		return nil
	}
	defer func() {
		if recover() != nil {
			tags = nil
		}
	}()

	container := el.Closest(tagContainerSelector)
	if container.Length() == 0 {
		return nil
	}
	container.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := strings.TrimSpace(s.Text()); text != "" {
			tags = append(tags, text)
		}
		return len(tags) < maxSiteTags
	})
	return tags
}

func appendTag(tags []string, tag string) []string {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return tags
		}
	}
	return append(tags, tag)
}
