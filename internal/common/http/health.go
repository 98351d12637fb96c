package http

import (
	"context"
	"net/http"
	"time"

	"github.com/AlibekovAA/defis-users/internal/common/logger"
)

type ReadinessCheck func(ctx context.Context) error

func HealthHandler(log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("health check request")
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadinessHandler reports 503 until every named check passes.
func ReadinessHandler(log *logger.Logger, checks map[string]ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failed := map[string]any{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				log.WithFields(ctx, logger.Fields{
					"check":  name,
					"action": "readiness_check_failed",
				}).Warnf("readiness check failed: %v", err)
				failed[name] = err.Error()
			}
		}

		if len(failed) > 0 {
			WriteErrorEnvelope(w, http.StatusServiceUnavailable, CodeNotReady, "service not ready", failed, TraceIDFromContext(ctx))
			return
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
