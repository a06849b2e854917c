package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/qualitysquare/fieldops-backend/api/controllers"
	"github.com/qualitysquare/fieldops-backend/api/middleware"
	"github.com/qualitysquare/fieldops-backend/internal/calendar"
	"github.com/qualitysquare/fieldops-backend/internal/dashboard"
	"github.com/qualitysquare/fieldops-backend/internal/employees"
	"github.com/qualitysquare/fieldops-backend/internal/jobs"
	"github.com/qualitysquare/fieldops-backend/internal/realtime"
	"github.com/qualitysquare/fieldops-backend/internal/teams"
	"github.com/qualitysquare/fieldops-backend/internal/timeclock"
	"github.com/qualitysquare/fieldops-backend/internal/vehicles"
	"github.com/qualitysquare/fieldops-backend/pkg/config"
	"github.com/qualitysquare/fieldops-backend/pkg/enums"
	"github.com/qualitysquare/fieldops-backend/pkg/logger"
	"github.com/qualitysquare/fieldops-backend/pkg/redis"
)

// Services carries the domain services mounted on the API.
type Services struct {
	Jobs      jobs.Service
	Teams     teams.Service
	Employees employees.Service
	Vehicles  vehicles.Service
	Clock     timeclock.Service
	Dashboard dashboard.Service
	Calendar  calendar.Service
	Hub       *realtime.Hub
}

// NewRouter mounts health, metrics and the versioned API. redisClient may be
// nil, which disables idempotent replay and rate limiting.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	loc *time.Location,
	readiness map[string]controllers.Pinger,
	metricsHandler http.Handler,
	redisClient *redis.Client,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	writePolicy := middleware.RateLimitPolicy{
		Name:   "writes",
		Window: cfg.RateLimit.Window,
		Limit:  cfg.RateLimit.Limit,
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, cfg.Redis.IdempotencyTTL, logg))
			r.Use(middleware.RateLimit(writePolicy, redisClient, logg))
		}

		r.Route("/me", func(r chi.Router) {
			r.Get("/jobs", controllers.MyJobs(svc.Jobs, loc, logg))
			r.Get("/jobs/history", controllers.MyJobHistory(svc.Jobs, logg))
			r.Get("/jobs/{jobID}", controllers.MyJob(svc.Jobs, logg))
			r.Post("/jobs/{jobID}/advance", controllers.AdvanceMyJob(svc.Jobs, logg))
			r.Post("/jobs/{jobID}/reschedule", controllers.RequestReschedule(svc.Jobs, loc, logg))
			r.Get("/calendar.ics", controllers.MyCalendar(svc.Calendar, logg))
			r.Get("/clock", controllers.MyClockStatus(svc.Clock, logg))
			r.Post("/clock/in", controllers.ClockIn(svc.Clock, logg))
			r.Post("/clock/out", controllers.ClockOut(svc.Clock, logg))
			r.Get("/teams", controllers.MyTeams(svc.Teams, logg))
		})

		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/", controllers.Vehicles(svc.Vehicles, logg))
			r.Post("/{plateID}/assign", controllers.AssignVehicle(svc.Vehicles, svc.Teams, logg))
			r.Post("/{plateID}/release", controllers.ReleaseVehicle(svc.Vehicles, logg))
		})

		if svc.Hub != nil {
			r.Get("/ws", controllers.Realtime(svc.Hub, logg))
		}

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
			r.Get("/jobs", controllers.AdminJobs(svc.Jobs, loc, logg))
			r.Get("/jobs/export.xlsx", controllers.AdminExportJobs(svc.Dashboard, loc, logg))
			r.Get("/jobs/{jobID}", controllers.AdminJob(svc.Jobs, logg))
			r.Put("/jobs/{jobID}/status", controllers.AdminSetJobStatus(svc.Jobs, logg))
			r.Post("/jobs/{jobID}/reschedule/approve", controllers.AdminApproveReschedule(svc.Jobs, loc, logg))
			r.Post("/jobs/{jobID}/reschedule/decline", controllers.AdminDeclineReschedule(svc.Jobs, logg))
			r.Get("/reschedules", controllers.AdminPendingReschedules(svc.Jobs, logg))
			r.Get("/dashboard", controllers.AdminDashboard(svc.Dashboard, loc, logg))
			r.Get("/employees", controllers.AdminEmployees(svc.Employees, logg))
			r.Get("/employees/{employeeID}/time-entries", controllers.AdminEmployeeTimeEntries(svc.Clock, logg))
			r.Get("/teams", controllers.AdminTeams(svc.Teams, logg))
			r.Get("/clock/active", controllers.AdminActiveClocks(svc.Clock, logg))
			r.Post("/vehicles", controllers.AdminCreateVehicle(svc.Vehicles, logg))
		})
	})

	return r
}
