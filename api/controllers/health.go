package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/teahaven/teahaven-backend/api/responses"
	"github.com/teahaven/teahaven-backend/pkg/config"
	pkgerrors "github.com/teahaven/teahaven-backend/pkg/errors"
	"github.com/teahaven/teahaven-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

const readinessProbeTimeout = 2 * time.Second

// HealthLive reports process liveness. It never touches dependencies.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"status": "ok",
			"env":    cfg.App.Env,
		})
	}
}

// HealthReady probes the database and Redis so load balancers only route
// traffic to instances that can actually serve it.
func HealthReady(cfg *config.Config, logg *logger.Logger, database pinger, cache pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessProbeTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		if database == nil {
			checks["database"] = "not configured"
			healthy = false
		} else if err := database.Ping(ctx); err != nil {
			logg.Error(ctx, "health.database.unreachable", err)
			checks["database"] = "unreachable"
			healthy = false
		} else {
			checks["database"] = "ok"
		}

		if cache == nil {
			checks["redis"] = "not configured"
			healthy = false
		} else if err := cache.Ping(ctx); err != nil {
			logg.Error(ctx, "health.redis.unreachable", err)
			checks["redis"] = "unreachable"
			healthy = false
		} else {
			checks["redis"] = "ok"
		}

		if !healthy {
			err := pkgerrors.New(pkgerrors.CodeDependency, "service dependencies unavailable").
				WithDetails(checks)
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"status": "ready",
			"checks": checks,
		})
	}
}
