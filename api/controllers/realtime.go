package controllers

import (
	"net/http"

	"github.com/qualitysquare/fieldops-backend/api/responses"
	"github.com/qualitysquare/fieldops-backend/api/validators"
	"github.com/qualitysquare/fieldops-backend/internal/realtime"
	"github.com/qualitysquare/fieldops-backend/pkg/logger"
)

// Realtime upgrades to a websocket. ?topics=jobs,plates narrows the feed.
func Realtime(hub *realtime.Hub, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		who, err := callerFrom(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		topics := validators.ParseQueryList(r, "topics")
		// the upgrader has already answered the client on failure
		if err := hub.Serve(w, r, who.employeeID, topics); err != nil {
			logg.Warn(logg.WithEmployeeID(ctx, who.employeeID), "realtime.upgrade_failed")
		}
	}
}
