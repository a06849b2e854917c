package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/qualitysquare/fieldops-backend/pkg/migrate"
)

func TestOutboxMigrationsContainConstraints(t *testing.T) {
	cases := map[string][]string{
		"*_create_outbox_events.sql": {
			"CREATE TABLE IF NOT EXISTS outbox_events",
			"aggregate_id text NOT NULL",
			"WHERE published_at IS NULL",
			"DROP TABLE IF EXISTS outbox_events",
		},
		"*_create_outbox_dlq.sql": {
			"CREATE TABLE IF NOT EXISTS outbox_dlq",
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_outbox_dlq_event_id",
			"CHECK (error_reason IN ('max_attempts', 'non_retryable'))",
			"DROP TABLE IF EXISTS outbox_dlq",
		},
	}

	for pattern, checks := range cases {
		matches, err := filepath.Glob(filepath.Join("migrations", pattern))
		if err != nil {
			t.Fatalf("glob migrations: %v", err)
		}
		if len(matches) == 0 {
			t.Fatalf("no migration file found for %s", pattern)
		}
		data, err := os.ReadFile(matches[0])
		if err != nil {
			t.Fatalf("read migration file: %v", err)
		}
		content := string(data)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s missing expected statement %q", matches[0], sub)
			}
		}
	}
}

func TestValidateDirAcceptsMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations", migrate.OutboxTables...); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Time Entries!", time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20250602080000_add_time_entries.sql" {
		t.Fatalf("unexpected path %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}

func TestCreateSQLMigrationSkipsTakenVersions(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	first, err := migrate.CreateSQLMigration(dir, "add plates", now)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := migrate.CreateSQLMigration(dir, "add plate index", now)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if filepath.Base(first) != "20250602080000_add_plates.sql" || filepath.Base(second) != "20250602080001_add_plate_index.sql" {
		t.Fatalf("unexpected files %s %s", first, second)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migrations should validate: %v", err)
	}
}

func TestValidateDirRequiresOutboxTables(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Up\n-- +goose StatementBegin\nCREATE TABLE IF NOT EXISTS outbox_events (id uuid);\n-- +goose StatementEnd\n\n" +
		"-- +goose Down\n-- +goose StatementBegin\nDROP TABLE IF EXISTS outbox_events;\n-- +goose StatementEnd\n"
	if err := os.WriteFile(filepath.Join(dir, "20250601090000_create_outbox_events.sql"), []byte(body), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := migrate.ValidateDir(dir, "outbox_events"); err != nil {
		t.Fatalf("events table alone should validate: %v", err)
	}
	err := migrate.ValidateDir(dir, migrate.OutboxTables...)
	if err == nil || !strings.Contains(err.Error(), "outbox_dlq") {
		t.Fatalf("expected missing dlq table error, got %v", err)
	}
}

func TestValidateDirRequiresRollbackDrop(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Up\nCREATE TABLE outbox_dlq (id uuid);\n-- +goose Down\nSELECT 1;\n"
	if err := os.WriteFile(filepath.Join(dir, "20250601090100_create_outbox_dlq.sql"), []byte(body), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	err := migrate.ValidateDir(dir, "outbox_dlq")
	if err == nil || !strings.Contains(err.Error(), "rollback") {
		t.Fatalf("expected rollback error, got %v", err)
	}
}

func TestValidateDirRejectsUnbalancedStatements(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n\n-- +goose Down\nSELECT 1;\n"
	if err := os.WriteFile(filepath.Join(dir, "20250601090100_broken.sql"), []byte(body), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	err := migrate.ValidateDir(dir)
	if err == nil || !strings.Contains(err.Error(), "StatementBegin") {
		t.Fatalf("expected unbalanced statement error, got %v", err)
	}
}
