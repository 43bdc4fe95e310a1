package validators

import (
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// BoundedString trims input and rejects values longer than maxLen instead of
// truncating them, so a shortened value can never match a different record.
func BoundedString(field, input string, maxLen int) (string, error) {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "value too long").
			WithDetails(map[string]any{"field": field, "max": maxLen})
	}
	return trimmed, nil
}
