package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/qualitysquare/fieldops-backend/api/responses"
	"github.com/qualitysquare/fieldops-backend/api/validators"
	"github.com/qualitysquare/fieldops-backend/internal/teams"
	"github.com/qualitysquare/fieldops-backend/internal/vehicles"
	pkgerrors "github.com/qualitysquare/fieldops-backend/pkg/errors"
	"github.com/qualitysquare/fieldops-backend/pkg/logger"
)

type membershipLookup interface {
	MembershipsFor(ctx context.Context, employeeID string) ([]teams.Membership, error)
}

type assignPlateRequest struct {
	TeamID string `json:"team_id,omitempty" validate:"omitempty,max=128"`
}

type createPlateRequest struct {
	PlateNum string `json:"plate_num" validate:"required,min=2,max=16"`
}

func Vehicles(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		plates, err := svc.List(ctx, who.employeeID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"plates": plates})
	}
}

// AssignVehicle takes a plate out for the caller. team_id must be one of the
// caller's teams; without it the plate is taken out solo.
func AssignVehicle(svc vehicles.Service, memberships membershipLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		plateID, err := pathParam(r, "plateID", "plate id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body assignPlateRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		var team *vehicles.TeamRef
		if teamID := strings.TrimSpace(body.TeamID); teamID != "" {
			team, err = teamRefFor(ctx, memberships, who.employeeID, teamID)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		plate, err := svc.Assign(ctx, plateID, who.plateActor(), team)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, plate)
	}
}

func ReleaseVehicle(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		plateID, err := pathParam(r, "plateID", "plate id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		plate, err := svc.Release(ctx, plateID, who.plateActor())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, plate)
	}
}

func AdminCreateVehicle(svc vehicles.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		var body createPlateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		plate, err := svc.Create(ctx, body.PlateNum, who.plateActor())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, plate)
	}
}

func teamRefFor(ctx context.Context, memberships membershipLookup, employeeID, teamID string) (*vehicles.TeamRef, error) {
	if memberships == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "team service unavailable")
	}
	list, err := memberships.MembershipsFor(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	for _, m := range list {
		if m.TeamID == teamID {
			return &vehicles.TeamRef{ID: m.TeamID, Name: m.TeamName, Members: m.MemberNames}, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this team")
}
