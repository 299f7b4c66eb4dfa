package response

import (
	"net/http"
)

// ErrorTypeForbidden is used when an authenticated caller lacks rights
const ErrorTypeForbidden = "FORBIDDEN"

// HealthStatus represents system health status
type HealthStatus struct {
	Status      string                 `json:"status"`
	Timestamp   int64                  `json:"timestamp"`
	Version     string                 `json:"version,omitempty"`
	Environment string                 `json:"environment,omitempty"`
	Uptime      float64                `json:"uptime_seconds,omitempty"`
	Services    map[string]interface{} `json:"services,omitempty"`
}

// WriteHealthCheck writes 200 for a healthy system and 503 otherwise
func (b *Builder) WriteHealthCheck(w http.ResponseWriter, r *http.Request, health *HealthStatus) {
	code := http.StatusOK
	if health.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	b.WriteJSON(w, r, b.Success(r.Context(), health), code)
}
