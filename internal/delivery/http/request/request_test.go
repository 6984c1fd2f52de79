package request

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrapeRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     ScrapeRequest
		wantErr string
	}{
		{"valid", ScrapeRequest{Category: " nature ", MaxImages: 10}, ""},
		{"default max", ScrapeRequest{Category: "nature"}, ""},
		{"blank category", ScrapeRequest{Category: "   ", MaxImages: 10}, "category"},
		{"negative max", ScrapeRequest{Category: "nature", MaxImages: -1}, "max_images"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "nature", tt.req.Category)
				return
			}
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.wantErr, verrs[0].Field())
		})
	}
}
