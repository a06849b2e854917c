package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/qualitysquare/fieldops-backend/internal/cron"
	"github.com/qualitysquare/fieldops-backend/internal/employees"
	"github.com/qualitysquare/fieldops-backend/internal/teams"
	"github.com/qualitysquare/fieldops-backend/internal/timeclock"
	"github.com/qualitysquare/fieldops-backend/internal/vehicles"
	"github.com/qualitysquare/fieldops-backend/pkg/config"
	"github.com/qualitysquare/fieldops-backend/pkg/db"
	"github.com/qualitysquare/fieldops-backend/pkg/docstore"
	"github.com/qualitysquare/fieldops-backend/pkg/logger"
	"github.com/qualitysquare/fieldops-backend/pkg/metrics"
	"github.com/qualitysquare/fieldops-backend/pkg/migrate"
	"github.com/qualitysquare/fieldops-backend/pkg/outbox"
	"github.com/qualitysquare/fieldops-backend/pkg/redis"
)

const lockKeyFormat = "fo:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = db.DriverSQLite
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	store, err := docstore.NewMongo(context.Background(), cfg.Store, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap document store", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logg.Error(context.Background(), "error closing document store", err)
		}
	}()

	clock, err := buildTimeClock(cfg, logg, store, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build time clock", err)
		os.Exit(1)
	}

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:         logg,
		DB:             dbClient,
		Events:         outbox.NewRepository(dbClient.DB()),
		DeadLetters:    outbox.NewDLQRepository(dbClient.DB()),
		Metrics:        cronMetrics,
		EventRetention: days(cfg.Outbox.RetentionDays),
		DLQRetention:   days(cfg.Outbox.DLQRetentionDays),
		GiveUpAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}
	staleJob, err := cron.NewStaleClockJob(cron.StaleClockJobParams{
		Logger:     logg,
		Entries:    clock,
		Metrics:    cronMetrics,
		StaleAfter: cfg.Cron.StaleClockAfter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stale clock job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.Interval)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Jobs:     []cron.Job{retentionJob, staleJob},
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// buildTimeClock wires a read-only time clock; the sweep never clocks anyone
// in or out, so plates and events only satisfy the constructor.
func buildTimeClock(cfg *config.Config, logg *logger.Logger, store docstore.Store, dbClient *db.Client) (timeclock.Service, error) {
	loc, err := cfg.App.Location()
	if err != nil {
		return nil, err
	}
	events := outbox.NewService(dbClient, outbox.NewRepository(dbClient.DB()), logg)
	teamSvc, err := teams.NewService(teams.NewRepository(store), nil, 0, logg)
	if err != nil {
		return nil, err
	}
	employeeSvc, err := employees.NewService(employees.NewRepository(store))
	if err != nil {
		return nil, err
	}
	plateSvc, err := vehicles.NewService(vehicles.ServiceParams{
		Repo:   vehicles.NewRepository(store),
		Teams:  teamSvc,
		Events: events,
		Logger: logg,
	})
	if err != nil {
		return nil, err
	}
	return timeclock.NewService(timeclock.ServiceParams{
		Repo:      timeclock.NewRepository(store),
		Teams:     teamSvc,
		Plates:    plateSvc,
		Employees: employeeSvc,
		Events:    events,
		Logger:    logg,
		Location:  loc,
	})
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
