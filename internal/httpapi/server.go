package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"modelops/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Status() types.StatusResponse
	Ready() bool
	// Export re-runs the promotion. It must not block behind an export
	// already in progress.
	Export(ctx context.Context) (types.ExportResult, error)
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if h := corsHandler(); h != nil {
		r.Use(h)
	}
	r.Use(MetricsMiddleware)
	r.Use(AccessLog)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(svc))
	r.Get("/status", status(svc))
	r.Post("/export", export(svc))

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	if swaggerEnabled {
		MountSwagger(r)
	}
	return r
}

// healthz godoc
// @Summary Liveness probe
// @Produce plain
// @Success 200 {string} string "ok"
// @Router /healthz [get]
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readyz godoc
// @Summary Readiness probe
// @Description 200 once the serving process is up, 503 with the current phase otherwise.
// @Produce plain
// @Success 200 {string} string "ready"
// @Failure 503 {string} string "phase"
// @Router /readyz [get]
func readyz(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(svc.Status().Phase))
	}
}

// status godoc
// @Summary Pipeline status
// @Produce json
// @Success 200 {object} types.StatusResponse
// @Router /status [get]
func status(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	}
}

// export godoc
// @Summary Export the staged model version
// @Description Resolves the version holding the configured stage and installs its artifacts at the export directory.
// @Produce json
// @Success 200 {object} types.ExportResult
// @Failure 404 {object} types.ErrorResponse "no version in stage"
// @Failure 409 {object} types.ErrorResponse "export in progress"
// @Failure 500 {object} types.ErrorResponse
// @Failure 502 {object} types.ErrorResponse "artifact retrieval failed"
// @Router /export [post]
func export(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if d := exportTimeout(); d > 0 {
			var c context.CancelFunc
			ctx, c = context.WithTimeout(ctx, d)
			defer c()
		}
		start := time.Now()
		res, err := svc.Export(ctx)
		if err != nil {
			code := statusFor(err)
			if code == http.StatusConflict {
				IncrementRejected("in_progress")
			}
			logger().Warn().Err(err).Int("status", code).Dur("dur", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).Msg("export failed")
			writeJSONError(w, code, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(b, '\n'))
}
