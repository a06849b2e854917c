package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// OutboxTables must be created by some migration in the production dir.
var OutboxTables = []string{"outbox_events", "outbox_dlq"}

var (
	sqlFileRe     = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	createTableRe = regexp.MustCompile(`(?i)CREATE TABLE (?:IF NOT EXISTS )?([a-z0-9_]+)`)
	dropTableRe   = regexp.MustCompile(`(?i)DROP TABLE (?:IF EXISTS )?([a-z0-9_]+)`)
)

// ValidateDir checks migration names, goose annotations and that every table
// in requiredTables is created by an Up section and dropped by a Down section.
func ValidateDir(dir string, requiredTables ...string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[string]string{}
	created := map[string]bool{}
	dropped := map[string]bool{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		name := e.Name()

		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := seen[m[1]]; ok {
			return fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
		}
		seen[m[1]] = name

		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read file %q: %w", name, err)
		}
		up, down, err := splitSections(string(b))
		if err != nil {
			return fmt.Errorf("migration %q: %w", name, err)
		}
		for _, match := range createTableRe.FindAllStringSubmatch(up, -1) {
			created[strings.ToLower(match[1])] = true
		}
		for _, match := range dropTableRe.FindAllStringSubmatch(down, -1) {
			dropped[strings.ToLower(match[1])] = true
		}
	}

	for _, table := range requiredTables {
		if !created[table] {
			return fmt.Errorf("no migration creates table %s", table)
		}
		if !dropped[table] {
			return fmt.Errorf("no migration drops table %s on rollback", table)
		}
	}
	return nil
}

// splitSections returns the Up and Down bodies of a goose file and checks that
// statement blocks are balanced in each.
func splitSections(txt string) (string, string, error) {
	upAt := strings.Index(txt, "-- +goose Up")
	downAt := strings.Index(txt, "-- +goose Down")
	switch {
	case upAt < 0:
		return "", "", fmt.Errorf("missing \"-- +goose Up\"")
	case downAt < 0:
		return "", "", fmt.Errorf("missing \"-- +goose Down\"")
	case downAt < upAt:
		return "", "", fmt.Errorf("\"-- +goose Down\" comes before \"-- +goose Up\"")
	}
	up, down := txt[upAt:downAt], txt[downAt:]
	for label, section := range map[string]string{"up": up, "down": down} {
		begins := strings.Count(section, "-- +goose StatementBegin")
		ends := strings.Count(section, "-- +goose StatementEnd")
		if begins != ends {
			return "", "", fmt.Errorf("%s section has %d StatementBegin and %d StatementEnd", label, begins, ends)
		}
	}
	return up, down, nil
}
