package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
)

// exportTimeoutSec bounds a POST /export request. Zero means no additional
// timeout beyond server/connection timeouts.
var exportTimeoutSec = int64(0)

// SetExportTimeoutSeconds sets the export timeout in seconds (0 disables).
func SetExportTimeoutSeconds(sec int64) {
	if sec < 0 {
		sec = 0
	}
	exportTimeoutSec = sec
}

func exportTimeout() time.Duration { return time.Duration(exportTimeoutSec) * time.Second }

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}

func corsHandler() func(http.Handler) http.Handler {
	if !corsEnabled {
		return nil
	}
	opts := cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: corsAllowedMethods,
		AllowedHeaders: corsAllowedHeaders,
		MaxAge:         300,
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if len(opts.AllowedMethods) == 0 {
		opts.AllowedMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	if len(opts.AllowedHeaders) == 0 {
		opts.AllowedHeaders = []string{"Accept", "Content-Type", "X-Request-Id", "X-Log-Level"}
	}
	return cors.Handler(opts)
}

// swaggerEnabled mounts the swagger UI under /swagger/.
var swaggerEnabled bool

// SetSwaggerEnabled toggles the swagger UI.
func SetSwaggerEnabled(on bool) { swaggerEnabled = on }
