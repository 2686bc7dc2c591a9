package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/wareline/wareline-backend/api/responses"
	"github.com/wareline/wareline-backend/pkg/config"
	"github.com/wareline/wareline-backend/pkg/db"
	pkgerrors "github.com/wareline/wareline-backend/pkg/errors"
	"github.com/wareline/wareline-backend/pkg/logger"
)

type redisPinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Wareline-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the database and Redis before reporting readiness.
func HealthReady(cfg *config.Config, logg *logger.Logger, database db.Pinger, cache redisPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Wareline-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"db": "ok", "redis": "ok"}
		failed := false

		if database != nil {
			if err := database.Ping(ctx); err != nil {
				checks["db"] = "unavailable"
				failed = true
				if logg != nil {
					logg.Error(ctx, "readiness db ping failed", err)
				}
			}
		}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				checks["redis"] = "unavailable"
				failed = true
				if logg != nil {
					logg.Error(ctx, "readiness redis ping failed", err)
				}
			}
		}

		if failed {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
