package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mike-a-ellis/smart-building-kb/internal/storage"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status     string `json:"status"`
	Tier       string `json:"tier"`
	TierLetter string `json:"tier_letter"`
	Ranked     bool   `json:"ranked"`
	Persistent bool   `json:"persistent"`
	Chunks     int    `json:"chunks"`
	Timestamp  string `json:"timestamp"`
}

// healthChecker is implemented by tiers backed by an external service.
type healthChecker interface {
	Health(ctx context.Context) error
}

// NewHealthHandler creates an HTTP handler for the /health endpoint. It reports
// the active storage tier and returns 503 when the collection cannot be read.
func NewHealthHandler(collection storage.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		caps := collection.Capabilities()
		response := HealthResponse{
			Tier:       string(caps.Tier),
			TierLetter: caps.Tier.Letter(),
			Ranked:     caps.Ranked,
			Persistent: caps.Persistent,
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		}

		var err error
		if hc, ok := collection.(healthChecker); ok {
			err = hc.Health(ctx)
		}
		if err == nil {
			response.Chunks, err = collection.Count(ctx)
		}

		w.Header().Set("Content-Type", "application/json")

		if err != nil {
			response.Status = "unhealthy"
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(response)
			return
		}

		response.Status = "healthy"
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}
