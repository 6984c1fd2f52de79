package scraper

import "github.com/user/imagescraper-service/internal/entity"

// DefaultSites are the image search sites tried for every search term, in order.
func DefaultSites() []entity.SiteProfile {
	return []entity.SiteProfile{
		{
			Name:          "unsplash",
			URLTemplate:   "https://unsplash.com/s/photos/{category}",
			ImageSelector: "img[src*='images.unsplash.com'], img[src*='photo']",
			TitleSelector: "img[src*='images.unsplash.com'], img[src*='photo']",
			TagSelector:   "a[href*='/s/photos/'], a[href*='/tags/']",
		},
		{
			Name:          "pexels",
			URLTemplate:   "https://www.pexels.com/search/{category}/",
			ImageSelector: "img[src*='pexels.com'], img[src*='photo']",
			TitleSelector: "img[src*='pexels.com'], img[src*='photo']",
			TagSelector:   "a[href*='/search/'], a[href*='/tag/']",
		},
		{
			Name:          "pixabay",
			URLTemplate:   "https://pixabay.com/images/search/{category}/",
			ImageSelector: "img[src*='pixabay.com'], img[src*='photo']",
			TitleSelector: "img[src*='pixabay.com'], img[src*='photo']",
			TagSelector:   "a[href*='/images/search/'], a[href*='/tags/']",
		},
		{
			Name:          "freepik",
			URLTemplate:   "https://www.freepik.com/search?format=search&query={category}",
			ImageSelector: "img[src*='freepik.com'], img[src*='image']",
			TitleSelector: "img[src*='freepik.com'], img[src*='image']",
			TagSelector:   "a[href*='/search/'], a[href*='/tag/']",
		},
		{
			Name:          "rawpixel",
			URLTemplate:   "https://www.rawpixel.com/search/{category}",
			ImageSelector: "img[src*='rawpixel.com'], img[src*='image']",
			TitleSelector: "img[src*='rawpixel.com'], img[src*='image']",
			TagSelector:   "a[href*='/search/'], a[href*='/tag/']",
		},
	}
}
