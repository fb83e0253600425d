package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Strob0t/productapi/internal/domain"
	"github.com/Strob0t/productapi/internal/service"
)

const healthCheckTimeout = 2 * time.Second

var errStockRequired = fmt.Errorf("%w: stock is required", domain.ErrValidation)

// HealthCheck checks one dependency. A failing Critical check turns the
// overall status to 503.
type HealthCheck struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	Products *service.ProductService
	Checks   []HealthCheck
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health handles GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(h.Checks))}
	status := http.StatusOK
	for _, c := range h.Checks {
		if err := c.Check(ctx); err != nil {
			slog.WarnContext(r.Context(), "health check failed", "check", c.Name, "critical", c.Critical, "error", err)
			resp.Checks[c.Name] = "error"
			if c.Critical {
				resp.Status = "unavailable"
				status = http.StatusServiceUnavailable
			} else if resp.Status == "ok" {
				resp.Status = "degraded"
			}
			continue
		}
		resp.Checks[c.Name] = "ok"
	}
	writeJSON(w, status, resp)
}
