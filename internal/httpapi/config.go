package httpapi

import (
	"time"

	"golang.org/x/time/rate"
)

// defaultMaxBodyBytes bounds uploaded bundles unless configured.
const defaultMaxBodyBytes int64 = 256 << 20

// maxBodyBytes controls the maximum accepted bundle size for imports.
var maxBodyBytes = defaultMaxBodyBytes

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
		return
	}
	maxBodyBytes = n
}

// importLimiter throttles POST /projects/import. Nil means unlimited.
var importLimiter *rate.Limiter

// SetImportRate allows perMinute imports per minute with a burst of the
// same size. Zero or negative disables the limit.
func SetImportRate(perMinute int) {
	if perMinute <= 0 {
		importLimiter = nil
		return
	}
	importLimiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}

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
