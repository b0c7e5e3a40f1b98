package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const probeTimeout = 3 * time.Second

// Pinger is a dependency the service needs to be ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Component names a checked dependency.
type Component struct {
	Name   string
	Pinger Pinger
	// Optional components report their status but never fail readiness.
	Optional bool
}

// HealthHandler serves the probe endpoints.
type HealthHandler struct {
	components []Component
	version    string
	now        func() time.Time
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(version string, components ...Component) *HealthHandler {
	return &HealthHandler{components: components, version: version, now: time.Now}
}

// HealthResponse is the JSON body of /live, /ready and /health.
type HealthResponse struct {
	Status     string                `json:"status"`
	Version    string                `json:"version,omitempty"`
	Components map[string]CompStatus `json:"components,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}

// CompStatus is the status of one component.
type CompStatus struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Live always returns 200.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Timestamp: h.now()})
}

// Ready returns 503 when any required component is down.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ok, _ := h.check(r.Context())
	status, code := "ok", http.StatusOK
	if !ok {
		status, code = "down", http.StatusServiceUnavailable
	}
	writeJSON(w, code, HealthResponse{Status: status, Timestamp: h.now()})
}

// Health reports every component with its ping latency.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ok, components := h.check(r.Context())

	var status string
	code := http.StatusOK
	switch {
	case !ok:
		status, code = "down", http.StatusServiceUnavailable
	case degraded(components):
		status = "degraded"
	default:
		status = "ok"
	}

	writeJSON(w, code, HealthResponse{
		Status:     status,
		Version:    h.version,
		Components: components,
		Timestamp:  h.now(),
	})
}

func (h *HealthHandler) check(ctx context.Context) (bool, map[string]CompStatus) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	ok := true
	out := make(map[string]CompStatus, len(h.components))
	for _, c := range h.components {
		start := time.Now()
		err := c.Pinger.Ping(ctx)
		if err != nil {
			out[c.Name] = CompStatus{Status: "down", Error: err.Error()}
			if !c.Optional {
				ok = false
			}
			continue
		}
		out[c.Name] = CompStatus{Status: "ok", Latency: time.Since(start).String()}
	}
	return ok, out
}

func degraded(components map[string]CompStatus) bool {
	for _, c := range components {
		if c.Status != "ok" {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
