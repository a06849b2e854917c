package docstore

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used by string dates in job records.
const DateLayout = "2006-01-02"

// Document is a loosely typed record. Values are plain Go types after decoding:
// string, bool, numbers, time.Time, []any, map[string]any or nil.
type Document map[string]any

// ID returns the document identifier as a string.
func (d Document) ID() string {
	if d == nil {
		return ""
	}
	switch v := d[IDField].(type) {
	case string:
		return v
	case nil:
		return ""
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Lookup resolves a dotted path through nested maps.
func (d Document) Lookup(path string) (any, bool) {
	if d == nil {
		return nil, false
	}
	var current any = map[string]any(d)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Has reports whether the path exists, even when its value is null.
func (d Document) Has(path string) bool {
	_, ok := d.Lookup(path)
	return ok
}

// String returns the trimmed string at path. Missing, non-string and
// whitespace-only values all yield "".
func (d Document) String(path string) string {
	v, _ := d.Lookup(path)
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// FirstString returns the first non-empty trimmed string among paths.
func (d Document) FirstString(paths ...string) string {
	for _, path := range paths {
		if s := d.String(path); s != "" {
			return s
		}
	}
	return ""
}

// Bool returns the boolean at path, nil when absent or not a bool.
func (d Document) Bool(path string) *bool {
	v, _ := d.Lookup(path)
	b, ok := v.(bool)
	if !ok {
		return nil
	}
	return &b
}

// Float returns a numeric value at path, nil when absent or non-numeric.
func (d Document) Float(path string) *float64 {
	v, _ := d.Lookup(path)
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return nil
	}
	return &f
}

// Time returns the timestamp at path. Native times are returned as-is; strings
// are parsed as yyyy-MM-dd in loc, falling back to RFC 3339.
func (d Document) Time(path string, loc *time.Location) *time.Time {
	v, _ := d.Lookup(path)
	return CoerceTime(v, loc)
}

// FirstTime returns the first resolvable timestamp among paths.
func (d Document) FirstTime(loc *time.Location, paths ...string) *time.Time {
	for _, path := range paths {
		if t := d.Time(path, loc); t != nil {
			return t
		}
	}
	return nil
}

// Strings returns the string elements of a list at path; non-string elements
// are skipped. A missing or non-list value yields nil.
func (d Document) Strings(path string) []string {
	v, _ := d.Lookup(path)
	return CoerceStrings(v)
}

// Map returns the nested document at path.
func (d Document) Map(path string) Document {
	v, _ := d.Lookup(path)
	m, ok := asMap(v)
	if !ok {
		return nil
	}
	return Document(m)
}

// Maps returns the nested documents of a list at path; non-map elements are skipped.
func (d Document) Maps(path string) []Document {
	v, _ := d.Lookup(path)
	var out []Document
	switch list := v.(type) {
	case []any:
		for _, item := range list {
			if m, ok := asMap(item); ok {
				out = append(out, Document(m))
			}
		}
	case []map[string]any:
		for _, item := range list {
			out = append(out, Document(item))
		}
	case []Document:
		out = append(out, list...)
	}
	return out
}

// Snapshot captures the current values at paths as a precondition. Missing
// paths are captured as nil so the write also requires them to stay unset.
func (d Document) Snapshot(paths ...string) Filter {
	f := make(Filter, len(paths))
	for _, path := range paths {
		v, _ := d.Lookup(path)
		f[path] = v
	}
	return f
}

// CoerceTime converts a stored date value into a time.
func CoerceTime(v any, loc *time.Location) *time.Time {
	if loc == nil {
		loc = time.UTC
	}
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return nil
		}
		return &t
	case *time.Time:
		if t == nil || t.IsZero() {
			return nil
		}
		out := *t
		return &out
	case string:
		trimmed := strings.TrimSpace(t)
		if trimmed == "" {
			return nil
		}
		if parsed, err := time.ParseInLocation(DateLayout, trimmed, loc); err == nil {
			return &parsed
		}
		if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
			return &parsed
		}
	}
	return nil
}

// CoerceStrings converts a stored list into its string elements.
func CoerceStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		out := make([]string, 0, len(list))
		out = append(out, list...)
		return out
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Document:
		return map[string]any(m), true
	}
	return nil, false
}
