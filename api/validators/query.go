package validators

import (
	"net/http"
	"strings"
	"time"

	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
	pkgerrors "github.com/qualitysquare/fieldops-backend/pkg/errors"
)

// ParseQueryDay reads ?key=yyyy-MM-dd in loc. A missing value means today.
func ParseQueryDay(r *http.Request, key string, loc *time.Location, now func() time.Time) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return now().In(loc), nil
	}
	day, err := time.ParseInLocation(docstore.DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "date must be formatted as yyyy-mm-dd").
			WithDetails(map[string]any{"field": key})
	}
	return day, nil
}

// ParseQueryList splits a comma separated parameter, dropping blanks and
// repeats.
func ParseQueryList(r *http.Request, key string) []string {
	var out []string
	seen := map[string]bool{}
	for _, item := range strings.Split(r.URL.Query().Get(key), ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
