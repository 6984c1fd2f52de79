package request

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type ScrapeRequest struct {
	Category string `json:"category" validate:"required,max=100"`
	// MaxImages of 0 selects the server default. The upper bound is enforced by the task manager.
	MaxImages int `json:"max_images" validate:"gte=0"`
}

// Validate trims the category and checks the request.
func (r *ScrapeRequest) Validate() error {
	r.Category = strings.TrimSpace(r.Category)
	return validate.Struct(r)
}
