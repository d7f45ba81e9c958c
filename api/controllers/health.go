package controllers

import (
	"context"
	"net/http"

	"github.com/dealerops/partstrail-backend/api/responses"
	"github.com/dealerops/partstrail-backend/pkg/config"
	"github.com/dealerops/partstrail-backend/pkg/db"
	pkgerrors "github.com/dealerops/partstrail-backend/pkg/errors"
	"github.com/dealerops/partstrail-backend/pkg/logger"
	"github.com/dealerops/partstrail-backend/pkg/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PartsTrail-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness only when every wired dependency answers a
// ping. Dependencies passed as nil are considered disabled and skipped.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PartsTrail-Env", cfg.App.Env)

		checks := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				checks[name] = "disabled"
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				checks[name] = "down"
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").WithDetails(checks))
				return
			}
			checks[name] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}

// ReadinessDeps assembles the named dependency set for HealthReady. The
// redis client is optional; a nil client reports as disabled.
func ReadinessDeps(dbP db.Pinger, redisClient *redis.Client) map[string]pinger {
	deps := map[string]pinger{
		"database": dbP,
		"redis":    nil,
	}
	if redisClient != nil {
		deps["redis"] = redisClient
	}
	return deps
}
