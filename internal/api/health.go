package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	pool  *pgxpool.Pool
	redis *redis.Client
}

func NewHealthHandler(pool *pgxpool.Pool, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{pool: pool, redis: rdb}
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness reports per-dependency health. Postgres down means the service
// cannot take traffic; Redis down only degrades it because booking falls
// back to the database advisory lock.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status := "ok"
	httpStatus := http.StatusOK

	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()
	if err := h.pool.Ping(ctx); err != nil {
		checks["postgres"] = "error: " + err.Error()
		status = "error"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["postgres"] = "ok"
	}

	rctx, rcancel := context.WithTimeout(r.Context(), time.Second)
	defer rcancel()
	if err := h.redis.Ping(rctx).Err(); err != nil {
		checks["redis"] = "error: " + err.Error()
		if status == "ok" {
			status = "degraded"
		}
	} else {
		checks["redis"] = "ok"
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}
