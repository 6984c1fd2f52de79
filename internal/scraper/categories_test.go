package scraper

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandTermsKnownCategory(t *testing.T) {
	terms := ExpandTerms("Nature")
	require.NotEmpty(t, terms)

	assert.Equal(t, "nature", terms[0])
	assert.Contains(t, terms, "landscape")
	assert.Contains(t, terms, "waterfall")
	assert.Contains(t, terms, "scenic")

	seen := make(map[string]bool)
	for _, term := range terms {
		assert.Equal(t, strings.ToLower(term), term)
		assert.False(t, seen[term], "duplicate term %q", term)
		seen[term] = true
	}
}

func TestExpandTermsUnknownCategory(t *testing.T) {
	assert.Equal(t, []string{"dragons"}, ExpandTerms("  Dragons "))
}

func TestExpandTermsAlwaysContainsCategory(t *testing.T) {
	for category := range categoryTable {
		assert.Contains(t, ExpandTerms(category), category)
	}
}

func TestLookupCategory(t *testing.T) {
	terms, found := LookupCategory("SPORTS")
	assert.True(t, found)
	assert.Contains(t, terms.Subcategories, "football")

	terms, found = LookupCategory("dragons")
	assert.False(t, found)
	assert.Equal(t, []string{"dragons"}, terms.Subcategories)
	assert.Empty(t, terms.Related)
}

func TestFilterCategories(t *testing.T) {
	got := FilterCategories("nature")
	assert.Equal(t, "nature", got[0])
	assert.Contains(t, got, "mountains")
	assert.NotContains(t, got, "scenic", "related terms are not category values")

	assert.Equal(t, []string{"dragons"}, FilterCategories("Dragons"))
}

func TestKnownCategory(t *testing.T) {
	assert.True(t, KnownCategory("nature"))
	assert.True(t, KnownCategory("Beach"))
	assert.True(t, KnownCategory("scenic"))
	assert.False(t, KnownCategory("dragons"))
}
