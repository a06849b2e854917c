package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/qualitysquare/fieldops-backend/api/middleware"
	"github.com/qualitysquare/fieldops-backend/internal/jobs"
	"github.com/qualitysquare/fieldops-backend/internal/timeclock"
	"github.com/qualitysquare/fieldops-backend/internal/vehicles"
	"github.com/qualitysquare/fieldops-backend/pkg/enums"
	pkgerrors "github.com/qualitysquare/fieldops-backend/pkg/errors"
)

// caller is the authenticated identity seeded by the auth middleware.
type caller struct {
	employeeID string
	name       string
	role       enums.Role
}

func (c caller) jobActor() jobs.Actor {
	return jobs.Actor{EmployeeID: c.employeeID, Name: c.name, Role: c.role}
}

func (c caller) plateActor() vehicles.Actor {
	return vehicles.Actor{EmployeeID: c.employeeID, Name: c.name, Role: c.role}
}

func (c caller) clockActor() timeclock.Actor {
	return timeclock.Actor{EmployeeID: c.employeeID, Name: c.name, Role: c.role}
}

func callerFrom(r *http.Request) (caller, error) {
	ctx := r.Context()
	c := caller{
		employeeID: middleware.EmployeeIDFromContext(ctx),
		name:       middleware.NameFromContext(ctx),
		role:       middleware.RoleFromContext(ctx),
	}
	if c.employeeID == "" {
		return caller{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing employee context")
	}
	return c, nil
}

func pathParam(r *http.Request, name, label string) (string, error) {
	value := strings.TrimSpace(chi.URLParam(r, name))
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, label+" is required")
	}
	return value, nil
}
