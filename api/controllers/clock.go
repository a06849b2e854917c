package controllers

import (
	"net/http"

	"github.com/qualitysquare/fieldops-backend/api/responses"
	"github.com/qualitysquare/fieldops-backend/api/validators"
	"github.com/qualitysquare/fieldops-backend/internal/timeclock"
	"github.com/qualitysquare/fieldops-backend/pkg/logger"
)

type clockInRequest struct {
	PlateID string `json:"plate_id,omitempty" validate:"omitempty,max=128"`
}

func MyClockStatus(svc timeclock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status, err := svc.Status(ctx, who.employeeID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// ClockIn opens a time entry, taking out plate_id first when given.
func ClockIn(svc timeclock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body clockInRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}
		result, err := svc.ClockIn(ctx, who.clockActor(), validators.SanitizeString(body.PlateID, 128))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func ClockOut(svc timeclock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.ClockOut(ctx, who.clockActor())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminActiveClocks(svc timeclock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		records, err := svc.ActiveEntries(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"records": records})
	}
}

func AdminEmployeeTimeEntries(svc timeclock.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		employeeID, err := pathParam(r, "employeeID", "employee id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		entries, err := svc.EntriesForEmployee(ctx, employeeID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"entries": entries})
	}
}
