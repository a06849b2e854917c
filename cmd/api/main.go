package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/qualitysquare/fieldops-backend/api/controllers"
	"github.com/qualitysquare/fieldops-backend/api/routes"
	"github.com/qualitysquare/fieldops-backend/internal/calendar"
	"github.com/qualitysquare/fieldops-backend/internal/dashboard"
	"github.com/qualitysquare/fieldops-backend/internal/employees"
	"github.com/qualitysquare/fieldops-backend/internal/jobs"
	"github.com/qualitysquare/fieldops-backend/internal/realtime"
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

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.App.Location()
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = multierr.Append(err, store.Close(closeCtx))
	}()

	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = db.DriverSQLite
	}
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	workflowMetrics := metrics.NewWorkflowMetrics(registry)

	events := outbox.NewService(dbClient, outbox.NewRepository(dbClient.DB()), logg)
	var hub *realtime.Hub
	if cfg.FeatureFlags.Realtime {
		hub = realtime.NewHub(realtime.Options{
			WriteTimeout: cfg.Realtime.WriteTimeout,
			PingInterval: cfg.Realtime.PingInterval,
			SendBuffer:   cfg.Realtime.SendBuffer,
		}, logg)
	}

	services, err := buildServices(cfg, logg, loc, store, redisClient, events, hub, workflowMetrics)
	if err != nil {
		return err
	}

	readiness := map[string]controllers.Pinger{
		"docstore": store,
		"postgres": dbClient,
		"redis":    redisClient,
	}
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	addr := ":" + port(cfg)
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, loc, readiness, metricsHandler, redisClient, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instanceID(),
	})
	logg.Info(logCtx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openStore connects to Mongo. Outside production an unset URI falls back to
// the in-memory store.
func openStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (docstore.Store, error) {
	if cfg.FeatureFlags.UseMemoryStore || (cfg.Store.MongoURI == "" && !cfg.App.IsProd()) {
		logg.Warn(ctx, "FIELDOPS_MONGO_URI not set, using in-memory document store")
		return docstore.NewMemory(), nil
	}
	mongoStore, err := docstore.NewMongo(ctx, cfg.Store, logg)
	if err != nil {
		return nil, err
	}
	return mongoStore, nil
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	loc *time.Location,
	store docstore.Store,
	redisClient *redis.Client,
	events outbox.Recorder,
	hub *realtime.Hub,
	workflowMetrics *metrics.WorkflowMetrics,
) (routes.Services, error) {
	// a nil *Hub must not reach the services as a non-nil notifier
	var notifier interface{ Notify(topic string, payload any) }
	if hub != nil {
		notifier = hub
	}

	teamSvc, err := teams.NewService(teams.NewRepository(store), redisClient, cfg.Redis.TeamCacheTTL, logg)
	if err != nil {
		return routes.Services{}, err
	}
	employeeSvc, err := employees.NewService(employees.NewRepository(store))
	if err != nil {
		return routes.Services{}, err
	}
	jobSvc, err := jobs.NewService(jobs.ServiceParams{
		Repo:         jobs.NewRepository(store),
		Teams:        teamSvc,
		Resolver:     jobs.NewResolver(loc),
		Events:       events,
		Notifier:     notifier,
		Metrics:      workflowMetrics,
		Logger:       logg,
		ScanLimit:    cfg.Store.JobScanLimit,
		HistoryLimit: cfg.Store.HistoryScanLimit,
	})
	if err != nil {
		return routes.Services{}, err
	}
	plateSvc, err := vehicles.NewService(vehicles.ServiceParams{
		Repo:     vehicles.NewRepository(store),
		Teams:    teamSvc,
		Events:   events,
		Notifier: notifier,
		Metrics:  workflowMetrics,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}
	clockSvc, err := timeclock.NewService(timeclock.ServiceParams{
		Repo:      timeclock.NewRepository(store),
		Teams:     teamSvc,
		Plates:    plateSvc,
		Employees: employeeSvc,
		Events:    events,
		Notifier:  notifier,
		Metrics:   workflowMetrics,
		Logger:    logg,
		Location:  loc,
	})
	if err != nil {
		return routes.Services{}, err
	}
	dashboardSvc, err := dashboard.NewService(dashboard.ServiceParams{
		Jobs:      jobSvc,
		Employees: employeeSvc,
		Entries:   clockSvc,
		Logger:    logg,
		Location:  loc,
	})
	if err != nil {
		return routes.Services{}, err
	}
	calendarSvc, err := calendar.NewService(jobSvc, loc, nil)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Jobs:      jobSvc,
		Teams:     teamSvc,
		Employees: employeeSvc,
		Vehicles:  plateSvc,
		Clock:     clockSvc,
		Dashboard: dashboardSvc,
		Calendar:  calendarSvc,
		Hub:       hub,
	}, nil
}

func port(cfg *config.Config) string {
	if p := os.Getenv("PORT"); p != "" {
		return p
	}
	return cfg.App.Port
}

func instanceID() string {
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	return "local"
}
