package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// Commands accepted by Run.
const (
	CommandUp     = "up"
	CommandDown   = "down"
	CommandStatus = "status"
)

// The goose files target Postgres; sqlite databases use AutoMigrateOutbox.
func newProvider(db *sql.DB, dir string) (*goose.Provider, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("open migrations in %q: %w", dir, err)
	}
	return provider, nil
}

// Run applies command and returns one line per migration it applied, rolled
// back or listed.
func Run(ctx context.Context, db *sql.DB, dir string, command string) ([]string, error) {
	provider, err := newProvider(db, dir)
	if err != nil {
		return nil, err
	}
	defer provider.Close()

	switch command {
	case CommandUp:
		results, err := provider.Up(ctx)
		if err != nil {
			return nil, fmt.Errorf("goose up: %w", err)
		}
		return resultLines(results), nil
	case CommandDown:
		result, err := provider.Down(ctx)
		if err != nil {
			return nil, fmt.Errorf("goose down: %w", err)
		}
		return resultLines([]*goose.MigrationResult{result}), nil
	case CommandStatus:
		statuses, err := provider.Status(ctx)
		if err != nil {
			return nil, fmt.Errorf("goose status: %w", err)
		}
		lines := make([]string, 0, len(statuses))
		for _, status := range statuses {
			line := fmt.Sprintf("%-8s %s", status.State, filepath.Base(status.Source.Path))
			if !status.AppliedAt.IsZero() {
				line += " " + status.AppliedAt.UTC().Format("2006-01-02 15:04:05")
			}
			lines = append(lines, line)
		}
		return lines, nil
	}
	return nil, fmt.Errorf("unknown migrate command %q", command)
}

// MigrateToVersion moves the schema up or down to targetVersion.
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, targetVersion string) ([]string, error) {
	if targetVersion == "" {
		return nil, fmt.Errorf("targetVersion is required")
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	provider, err := newProvider(db, dir)
	if err != nil {
		return nil, err
	}
	defer provider.Close()

	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}

	var results []*goose.MigrationResult
	switch {
	case current == target:
		return nil, nil
	case current < target:
		results, err = provider.UpTo(ctx, target)
	default:
		results, err = provider.DownTo(ctx, target)
	}
	if err != nil {
		return nil, fmt.Errorf("goose to %d: %w", target, err)
	}
	return resultLines(results), nil
}

// HasPending reports whether any migration in dir is not yet applied.
func HasPending(ctx context.Context, db *sql.DB, dir string) (bool, error) {
	provider, err := newProvider(db, dir)
	if err != nil {
		return false, err
	}
	defer provider.Close()
	return provider.HasPending(ctx)
}

func resultLines(results []*goose.MigrationResult) []string {
	lines := make([]string, 0, len(results))
	for _, result := range results {
		if result == nil || result.Source == nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("%-4s %s (%s)", result.Direction, filepath.Base(result.Source.Path), result.Duration.Round(time.Millisecond)))
	}
	return lines
}
