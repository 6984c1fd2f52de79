package entity

import (
	"net/url"
	"strings"
)

// CategoryPlaceholder is replaced by the search term in SiteProfile.URLTemplate.
const CategoryPlaceholder = "{category}"

// SiteProfile describes how to search one image site and find its image elements.
type SiteProfile struct {
	Name          string
	URLTemplate   string
	ImageSelector string
	TitleSelector string
	TagSelector   string
}

// SearchURL renders the site's search page for term. Spaces become dashes,
// which every supported site accepts. The term is escaped for the part of the
// URL the placeholder sits in: query escaping after '?', path escaping before.
func (p SiteProfile) SearchURL(term string) string {
	term = strings.ReplaceAll(term, " ", "-")

	pos := strings.Index(p.URLTemplate, CategoryPlaceholder)
	if pos < 0 {
		return p.URLTemplate
	}
	escaped := url.PathEscape(term)
	if q := strings.Index(p.URLTemplate, "?"); q >= 0 && q < pos {
		escaped = url.QueryEscape(term)
	}
	return strings.ReplaceAll(p.URLTemplate, CategoryPlaceholder, escaped)
}
