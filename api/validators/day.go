package validators

import (
	"strings"
	"time"

	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
	pkgerrors "github.com/qualitysquare/fieldops-backend/pkg/errors"
)

// ParseDay reads a yyyy-MM-dd calendar day in loc. Full RFC3339 timestamps
// are accepted too and kept in their own offset.
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	value = strings.TrimSpace(value)
	if day, err := time.ParseInLocation(docstore.DateLayout, value, loc); err == nil {
		return day, nil
	}
	return time.Parse(time.RFC3339, value)
}

// ParseOptionalDay is ParseDay for optional body fields. Nil or blank input
// yields nil.
func ParseOptionalDay(raw *string, field string, loc *time.Location) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	day, err := ParseDay(*raw, loc)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "date must be formatted as yyyy-mm-dd").
			WithDetails(map[string]any{"field": field})
	}
	return &day, nil
}
