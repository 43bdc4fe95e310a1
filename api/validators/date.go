package validators

import (
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const DateLayout = "2006-01-02"

// ParseOptionalDate parses a YYYY-MM-DD value; empty input yields nil.
func ParseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(*value))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date must be formatted YYYY-MM-DD").
			WithDetails(map[string]any{"field": field})
	}
	return &parsed, nil
}
