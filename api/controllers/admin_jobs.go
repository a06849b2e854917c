package controllers

import (
	"net/http"
	"time"

	"github.com/qualitysquare/fieldops-backend/api/responses"
	"github.com/qualitysquare/fieldops-backend/api/validators"
	"github.com/qualitysquare/fieldops-backend/internal/jobs"
	"github.com/qualitysquare/fieldops-backend/pkg/enums"
	pkgerrors "github.com/qualitysquare/fieldops-backend/pkg/errors"
	"github.com/qualitysquare/fieldops-backend/pkg/logger"
)

type setStatusRequest struct {
	Status string `json:"status" validate:"required,max=32,job_status"`
}

type approveRescheduleRequest struct {
	NewDate *string `json:"new_date,omitempty" validate:"omitempty,day"`
}

func AdminJobs(svc jobs.Service, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		day, err := validators.ParseQueryDay(r, "date", loc, time.Now)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		list, err := svc.ListAllOnDay(ctx, day)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteDayList(w, day, map[string]any{"jobs": list}, len(list))
	}
}

func AdminJob(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		jobID, err := pathParam(r, "jobID", "job id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		job, err := svc.GetForAdmin(ctx, jobID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}

// AdminSetJobStatus overrides the status without walking the chain.
func AdminSetJobStatus(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		jobID, err := pathParam(r, "jobID", "job id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body setStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status, err := enums.ParseJobStatus(body.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
				WithDetails(map[string]any{"field": "status"}))
			return
		}
		job, err := svc.SetStatus(ctx, jobID, who.jobActor(), status)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}

func AdminPendingReschedules(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		list, err := svc.ListPendingReschedules(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"jobs": list})
	}
}

func AdminApproveReschedule(svc jobs.Service, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		jobID, err := pathParam(r, "jobID", "job id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body approveRescheduleRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}
		newDate, err := validators.ParseOptionalDay(body.NewDate, "new_date", loc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		job, err := svc.ApproveReschedule(ctx, jobID, who.jobActor(), newDate)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}

func AdminDeclineReschedule(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		jobID, err := pathParam(r, "jobID", "job id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		job, err := svc.DeclineReschedule(ctx, jobID, who.jobActor())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}
