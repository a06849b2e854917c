package controllers

import (
	"net/http"
	"time"

	"github.com/qualitysquare/fieldops-backend/api/responses"
	"github.com/qualitysquare/fieldops-backend/api/validators"
	"github.com/qualitysquare/fieldops-backend/internal/calendar"
	"github.com/qualitysquare/fieldops-backend/internal/dashboard"
	"github.com/qualitysquare/fieldops-backend/pkg/logger"
)

func AdminDashboard(svc dashboard.Service, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		day, err := validators.ParseQueryDay(r, "date", loc, time.Now)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		overview, err := svc.Overview(ctx, day)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, overview)
	}
}

// AdminExportJobs downloads the day's jobs as a spreadsheet.
func AdminExportJobs(svc dashboard.Service, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		day, err := validators.ParseQueryDay(r, "date", loc, time.Now)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		export, err := svc.ExportJobs(ctx, day)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteFile(w, export.ContentType, export.Filename, export.Data.Bytes())
	}
}

func MyCalendar(svc calendar.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		feed, err := svc.FeedForEmployee(ctx, who.employeeID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteFile(w, calendar.ContentType, "jobs.ics", []byte(feed))
	}
}
