package httptransport

import (
	"context"
	"net/http"
	"time"

	"wanderlog/pkg/platform/httputil"
	"wanderlog/pkg/requestcontext"
)

// HealthCheck pings one backing service.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

const healthTimeout = 2 * time.Second

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *Handler) handleHealth(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for _, c := range checks {
			if err := c.Ping(ctx); err != nil {
				h.logger.WarnContext(ctx, "health check failed",
					"check", c.Name,
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				resp.Checks[c.Name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
