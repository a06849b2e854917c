package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/qualitysquare/fieldops-backend/api/responses"
	"github.com/qualitysquare/fieldops-backend/api/validators"
	"github.com/qualitysquare/fieldops-backend/internal/jobs"
	"github.com/qualitysquare/fieldops-backend/pkg/enums"
	pkgerrors "github.com/qualitysquare/fieldops-backend/pkg/errors"
	"github.com/qualitysquare/fieldops-backend/pkg/logger"
)

type advanceStatusRequest struct {
	ExpectedStatus *string `json:"expected_status,omitempty" validate:"omitempty,max=32,job_status"`
}

type rescheduleRequest struct {
	Reason       string  `json:"reason" validate:"required,min=3,max=500"`
	ProposedDate *string `json:"proposed_date,omitempty" validate:"omitempty,day"`
}

// MyJobs lists the caller's jobs for ?date= (today by default).
func MyJobs(svc jobs.Service, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		day, err := validators.ParseQueryDay(r, "date", loc, time.Now)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		list, err := svc.ListForEmployeeOnDay(ctx, who.employeeID, day)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteDayList(w, day, map[string]any{"jobs": list}, len(list))
	}
}

func MyJobHistory(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		list, err := svc.HistoryForEmployee(ctx, who.employeeID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"jobs": list})
	}
}

func MyJob(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
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
		job, err := svc.GetForRequester(ctx, jobID, who.employeeID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}

// AdvanceMyJob moves the job one step along the status chain. An optional
// expected_status guards against stale screens.
func AdvanceMyJob(svc jobs.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body advanceStatusRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}
		var expected *enums.JobStatus
		if body.ExpectedStatus != nil && strings.TrimSpace(*body.ExpectedStatus) != "" {
			status, err := enums.ParseJobStatus(*body.ExpectedStatus)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid expected_status"))
				return
			}
			expected = &status
		}

		job, err := svc.AdvanceStatus(ctx, jobID, who.jobActor(), expected)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}

func RequestReschedule(svc jobs.Service, loc *time.Location, logg *logger.Logger) http.HandlerFunc {
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
		var body rescheduleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		proposed, err := validators.ParseOptionalDay(body.ProposedDate, "proposed_date", loc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		job, err := svc.SubmitReschedule(ctx, jobID, who.jobActor(), jobs.RescheduleInput{
			Reason:       validators.SanitizeString(body.Reason, 500),
			ProposedDate: proposed,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, job)
	}
}
