// Package httptransport assembles the HTTP surface: middleware chain,
// health and metrics endpoints, and the authenticated API routes.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	documenthandler "tradevault/internal/document/handler"
	integrityhandler "tradevault/internal/integrity/handler"
	ledgerhandler "tradevault/internal/ledger/handler"
	"tradevault/internal/platform/metrics"
	tradehandler "tradevault/internal/trade/handler"
	id "tradevault/pkg/domain"
	adminmw "tradevault/pkg/platform/middleware/admin"
	authmw "tradevault/pkg/platform/middleware/auth"
	"tradevault/pkg/platform/middleware/metadata"
	request "tradevault/pkg/platform/middleware/request"
	"tradevault/pkg/platform/middleware/requesttime"
)

// Deps carries everything the router needs. Handlers own their services;
// the router owns cross-cutting middleware and route gating.
type Deps struct {
	Documents *documenthandler.Handler
	Ledger    *ledgerhandler.Handler
	Trades    *tradehandler.Handler
	Integrity *integrityhandler.Handler

	TokenValidator authmw.TokenValidator
	AdminToken     string
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
}

// NewRouter wires middleware and mounts all endpoints.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Authenticated API.
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(deps.TokenValidator, deps.Logger))

		deps.Documents.Register(r)
		deps.Ledger.Register(r)
		deps.Trades.Register(r)

		// The verification engine and its alerts are an oversight surface.
		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireRole(deps.Logger, id.RoleAdmin, id.RoleAuditor))
			deps.Integrity.Register(r)
		})
	})

	// Operator maintenance, gated by a shared token instead of user auth.
	if deps.AdminToken != "" {
		r.Group(func(r chi.Router) {
			r.Use(adminmw.RequireAdminToken(deps.AdminToken, deps.Logger))
			r.Route("/admin", func(r chi.Router) {
				deps.Ledger.RegisterMaintenance(r)
			})
		})
	}

	return r
}
