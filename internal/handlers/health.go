package handlers

import (
	"context"
	"net/http"
	"time"

	"todoTracker/internal/logger"
)

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

func HealthCheck(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger.HttpRequestInfo(r, "HTTP: Health check")

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.HealthCheck(ctx); err != nil {
			logger.Error("HTTP: Хранилище недоступно", err)
			responseWithJSON(w, http.StatusServiceUnavailable,
				toPayload("status", "unhealthy"),
				toPayload("error", err.Error()),
				toPayload("timestamp", time.Now().UTC()),
			)
			return
		}

		responseWithJSON(w, http.StatusOK,
			toPayload("status", "healthy"),
			toPayload("timestamp", time.Now().UTC()),
		)
	}
}
