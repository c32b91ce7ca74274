package api

import (
	"net/http"
	"time"

	"github.com/steveyegge/slogan-gen/internal/ai"
)

type HealthHandler struct {
	client  *ai.Client
	version string
}

func NewHealthHandler(client *ai.Client, version string) *HealthHandler {
	return &HealthHandler{client: client, version: version}
}

// Health handles GET /api/v1/health. It answers 503 when the backend is
// unreachable.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	hs := h.client.Health(r.Context())
	dep := DependencyStatus{
		Connected: hs.Connected,
		URL:       hs.URL,
		Error:     hs.Error,
	}
	if hs.Connected {
		ms := hs.ResponseTime.Milliseconds()
		dep.ResponseTimeMS = &ms
	}

	resp := HealthResponse{
		Status:       "healthy",
		Version:      h.version,
		Timestamp:    time.Now().UTC(),
		Dependencies: map[string]DependencyStatus{h.client.Backend().Name(): dep},
	}

	status := http.StatusOK
	if !hs.Connected {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
