package controllers

import (
	"net/http"

	"github.com/lukechats/retail-backend/api/responses"
	"github.com/lukechats/retail-backend/pkg/config"
	"github.com/lukechats/retail-backend/pkg/db"
	pkgerrors "github.com/lukechats/retail-backend/pkg/errors"
	"github.com/lukechats/retail-backend/pkg/logger"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every wired dependency. Redis is optional; a nil pinger
// is skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, pingers ...db.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, p := range pingers {
			if p == nil {
				continue
			}
			if err := p.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency not ready"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
