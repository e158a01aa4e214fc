package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	clinicIDKey  contextKey = "clinic_id"
	userIDKey    contextKey = "user_id"
)

// RequestIDMiddleware tags every request with an id, honoring an inbound
// X-Request-ID when the caller supplies one.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClinicContextMiddleware resolves the tenant from the X-Clinic-ID header set
// by the auth gateway. Requests without a valid clinic id are rejected before
// they reach any handler. X-User-ID is optional and carried through for audit
// fields.
func ClinicContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clinicID, err := uuid.Parse(r.Header.Get("X-Clinic-ID"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "MISSING_CLINIC", "X-Clinic-ID header must be a valid UUID")
			return
		}
		ctx := context.WithValue(r.Context(), clinicIDKey, clinicID)
		if userID, err := uuid.Parse(r.Header.Get("X-User-ID")); err == nil {
			ctx = context.WithValue(ctx, userIDKey, userID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClinicID returns the tenant id resolved by ClinicContextMiddleware.
func ClinicID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(clinicIDKey).(uuid.UUID)
	return id
}

// UserID returns the acting user id, or uuid.Nil for unattributed requests.
func UserID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(userIDKey).(uuid.UUID)
	return id
}

// RequestID returns the request id, or "" outside a request context.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs one structured line per request.
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rw.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", RequestID(r.Context())),
			)
		})
	}
}
