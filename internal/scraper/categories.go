package scraper

import "strings"

// CategoryTerms lists the search terms that belong to a top-level category.
type CategoryTerms struct {
	Subcategories []string
	Related       []string
}

// categoryTable is the single source of category synonyms. It feeds both search
// term expansion and the category filter of the image query API.
var categoryTable = map[string]CategoryTerms{
	"sports": {
		Subcategories: []string{
			"football", "soccer", "basketball", "tennis", "golf", "baseball",
			"cricket", "rugby", "hockey", "volleyball", "swimming", "athletics",
			"boxing", "martial arts", "wrestling", "gymnastics", "cycling",
			"racing", "surfing", "skiing", "snowboarding", "skateboarding",
		},
		Related: []string{"fitness", "exercise", "athletic", "game", "competition", "sport"},
	},
	"nature": {
		Subcategories: []string{
			"landscape", "mountains", "forest", "ocean", "beach", "sunset",
			"wildlife", "flowers", "garden", "plants", "trees", "waterfall",
		},
		Related: []string{"outdoors", "environment", "natural", "scenic"},
	},
	"technology": {
		Subcategories: []string{
			"computer", "smartphone", "robot", "ai", "gadget", "electronics",
			"software", "hardware", "internet", "data", "cybersecurity",
		},
		Related: []string{"digital", "innovation", "tech", "modern"},
	},
	"business": {
		Subcategories: []string{
			"office", "meeting", "presentation", "startup", "entrepreneur",
			"corporate", "finance", "marketing", "team", "workplace",
		},
		Related: []string{"professional", "work", "career", "industry"},
	},
	"art": {
		Subcategories: []string{
			"painting", "sculpture", "drawing", "illustration", "digital art",
			"gallery", "museum", "exhibition", "artist", "creative",
		},
		Related: []string{"creative", "design", "artistic", "visual"},
	},
	"fashion": {
		Subcategories: []string{
			"clothing", "accessories", "runway", "model", "style", "designer",
			"fashion show", "outfit", "trend", "luxury",
		},
		Related: []string{"style", "apparel", "wear", "trendy"},
	},
	"music": {
		Subcategories: []string{
			"concert", "band", "musician", "instrument", "performance",
			"studio", "recording", "sound", "dj", "festival",
		},
		Related: []string{"audio", "melody", "rhythm", "song"},
	},
	"education": {
		Subcategories: []string{
			"school", "university", "classroom", "student", "teacher",
			"learning", "study", "campus", "library", "research",
		},
		Related: []string{"academic", "teaching", "knowledge", "training"},
	},
	"health": {
		Subcategories: []string{
			"fitness", "wellness", "medical", "doctor", "hospital",
			"healthcare", "exercise", "yoga", "meditation", "nutrition",
		},
		Related: []string{"medical", "wellness", "fitness", "healthcare"},
	},
	"automotive": {
		Subcategories: []string{
			"car", "vehicle", "automobile", "transportation", "driving",
			"road", "highway", "racing", "motorcycle", "luxury car",
		},
		Related: []string{"transport", "vehicle", "automobile", "driving"},
	},
	"abstract": {
		Subcategories: []string{
			"pattern", "texture", "background", "minimal", "geometric",
			"shape", "form", "color", "design", "artistic",
		},
		Related: []string{"artistic", "design", "pattern", "texture"},
	},
	"editorial": {
		Subcategories: []string{
			"magazine", "cover", "story", "feature", "journalism",
			"press", "media", "publication", "article", "news",
		},
		Related: []string{"media", "press", "publication", "story"},
	},
	"film": {
		Subcategories: []string{
			"movie", "cinema", "theater", "actor", "actress", "director",
			"scene", "set", "production", "hollywood",
		},
		Related: []string{"cinema", "movie", "theater", "production"},
	},
	"3d": {
		Subcategories: []string{
			"3d-rendering", "3d-model", "3d-art", "digital-art", "animation",
			"cg", "computer-graphics", "virtual", "simulation", "3d-design",
		},
		Related: []string{"digital", "virtual", "computer", "simulation"},
	},
	"architecture": {
		Subcategories: []string{
			"building", "city", "urban", "interior", "design", "modern",
			"house", "apartment", "structure", "construction",
		},
		Related: []string{"building", "design", "structure", "construction"},
	},
	"people": {
		Subcategories: []string{
			"portrait", "person", "human", "face", "lifestyle", "fashion",
			"beauty", "model", "family", "friends",
		},
		Related: []string{"human", "person", "portrait", "people"},
	},
	"animals": {
		Subcategories: []string{
			"pet", "dog", "cat", "wildlife", "bird", "mammal", "reptile",
			"fish", "insect", "zoo",
		},
		Related: []string{"wildlife", "pet", "animal", "creature"},
	},
	"food": {
		Subcategories: []string{
			"meal", "restaurant", "cooking", "recipe", "cuisine", "dessert",
			"breakfast", "lunch", "dinner", "snack",
		},
		Related: []string{"cuisine", "meal", "cooking", "dining"},
	},
	"travel": {
		Subcategories: []string{
			"vacation", "tourism", "destination", "journey", "adventure",
			"explore", "trip", "holiday", "backpacking", "roadtrip",
		},
		Related: []string{"tourism", "journey", "adventure", "exploration"},
	},
}

// LookupCategory returns the terms of category. Unknown categories map to
// themselves with no related terms; found reports whether the table had an entry.
func LookupCategory(category string) (terms CategoryTerms, found bool) {
	key := strings.ToLower(strings.TrimSpace(category))
	terms, found = categoryTable[key]
	if !found {
		return CategoryTerms{Subcategories: []string{key}}, false
	}
	return terms, true
}

// KnownCategory reports whether term is a category, subcategory or related term
// anywhere in the table.
func KnownCategory(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if _, ok := categoryTable[term]; ok {
		return true
	}
	for _, ct := range categoryTable {
		for _, t := range ct.Subcategories {
			if t == term {
				return true
			}
		}
		for _, t := range ct.Related {
			if t == term {
				return true
			}
		}
	}
	return false
}

// FilterCategories returns the category values an image query for category
// should match: the category itself plus its subcategories.
func FilterCategories(category string) []string {
	key := strings.ToLower(strings.TrimSpace(category))
	terms, found := LookupCategory(key)
	if !found {
		return []string{key}
	}
	return dedupeLower(append([]string{key}, terms.Subcategories...))
}

// ExpandTerms returns the de-duplicated, lowercased union of the category, its
// subcategories and its related terms. The category itself is always a member.
// Callers must treat the result as a set; only the first element is fixed.
func ExpandTerms(category string) []string {
	key := strings.ToLower(strings.TrimSpace(category))
	terms, _ := LookupCategory(key)

	all := make([]string, 0, 1+len(terms.Subcategories)+len(terms.Related))
	all = append(all, key)
	all = append(all, terms.Subcategories...)
	all = append(all, terms.Related...)
	return dedupeLower(all)
}

func dedupeLower(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
