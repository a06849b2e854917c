package migrate

import (
	"context"
	"fmt"

	"github.com/qualitysquare/fieldops-backend/pkg/config"
	"github.com/qualitysquare/fieldops-backend/pkg/db"
	"github.com/qualitysquare/fieldops-backend/pkg/db/models"
	"github.com/qualitysquare/fieldops-backend/pkg/logger"
)

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled. SQLite databases get a GORM auto-migrate since
// the goose files are written for Postgres.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	if cfg.FeatureFlags.UseSQLite || cfg.DB.Driver == db.DriverSQLite {
		logg.Info(ctx, "auto-migrating outbox tables on sqlite")
		return AutoMigrateOutbox(client)
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": DefaultDir})
	pending, err := HasPending(ctx, sqlDB, DefaultDir)
	if err != nil {
		return fmt.Errorf("checking pending migrations: %w", err)
	}
	if !pending {
		logg.Info(ctx, "migrations up to date")
		return nil
	}

	applied, err := Run(ctx, sqlDB, DefaultDir, CommandUp)
	if err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(logg.WithField(ctx, "applied", applied), "migrations applied")
	return nil
}

// AutoMigrateOutbox creates the outbox tables from the GORM models.
func AutoMigrateOutbox(client *db.Client) error {
	if err := client.DB().AutoMigrate(&models.OutboxEvent{}, &models.OutboxDLQ{}); err != nil {
		return fmt.Errorf("auto-migrating outbox tables: %w", err)
	}
	return nil
}
