package main

import (
	"net/http"

	"github.com/diewo77/go-partners/httpx"
	"github.com/diewo77/go-partners/internal/handlers"
	"github.com/diewo77/go-partners/internal/logger"
	"github.com/diewo77/go-partners/internal/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux       *http.ServeMux
	db        *gorm.DB
	routerCfg *handlers.RouterConfig
	log       *zap.Logger
	handler   http.Handler
}

// NewApp creates a new application with all routes configured.
func NewApp(db *gorm.DB, routerCfg *handlers.RouterConfig, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	app := &App{
		mux:       http.NewServeMux(),
		db:        db,
		routerCfg: routerCfg,
		log:       log,
	}
	app.setupRoutes()

	// Metrics sits next to the mux so it sees the matched route pattern.
	var h http.Handler = metrics.Middleware(app.mux)
	h = routerCfg.Auth.Middleware(h)
	h = logger.Middleware(log)(h)
	app.handler = logger.Recover(log)(h)
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *App) requirePartner(h http.HandlerFunc) http.Handler {
	return a.routerCfg.Auth.RequirePartner(h)
}

func (a *App) requireAdmin(h http.HandlerFunc) http.Handler {
	return a.routerCfg.Auth.RequireAdmin(h)
}

func (a *App) public(h http.HandlerFunc) http.Handler {
	if a.routerCfg.PublicLimit == nil {
		return h
	}
	return a.routerCfg.PublicLimit(h)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	// ─────────────────────────────────────────────────────────────────────────
	// Operational routes
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("GET /health", a.health)
	a.mux.Handle("GET /metrics", metrics.Handler())

	// ─────────────────────────────────────────────────────────────────────────
	// Authentication
	// ─────────────────────────────────────────────────────────────────────────
	ah := a.routerCfg.AuthHandler
	a.mux.HandleFunc("POST /auth/partner/login", ah.PartnerLogin)
	a.mux.HandleFunc("POST /auth/admin/login", ah.AdminLogin)
	a.mux.HandleFunc("POST /auth/logout", ah.Logout)

	// ─────────────────────────────────────────────────────────────────────────
	// Public proposal routes (token holders, throttled per IP)
	// ─────────────────────────────────────────────────────────────────────────
	ph := a.routerCfg.ProposalHandler
	a.mux.Handle("GET /public/proposals/{token}", a.public(ph.PublicView))
	a.mux.Handle("PATCH /public/proposals/{token}/status", a.public(ph.PublicStatus))

	// ─────────────────────────────────────────────────────────────────────────
	// Partner routes (require an ACTIVE partner)
	// ─────────────────────────────────────────────────────────────────────────
	dh := a.routerCfg.DashboardHandler
	a.mux.Handle("GET /api/dashboard", a.requirePartner(dh.Stats))
	a.mux.Handle("GET /api/dashboard/history", a.requirePartner(dh.History))

	a.mux.Handle("GET /api/proposals", a.requirePartner(ph.List))
	a.mux.Handle("POST /api/proposals", a.requirePartner(ph.Create))
	a.mux.Handle("GET /api/proposals/{id}", a.requirePartner(ph.View))
	a.mux.Handle("PATCH /api/proposals/{id}", a.requirePartner(ph.Update))
	a.mux.Handle("DELETE /api/proposals/{id}", a.requirePartner(ph.Delete))
	a.mux.Handle("GET /api/proposals/{id}/pdf", a.requirePartner(ph.PDF))

	ch := a.routerCfg.ClientHandler
	a.mux.Handle("GET /api/clients", a.requirePartner(ch.List))
	a.mux.Handle("POST /api/clients", a.requirePartner(ch.Create))
	a.mux.Handle("GET /api/clients/{id}", a.requirePartner(ch.View))
	a.mux.Handle("PUT /api/clients/{id}", a.requirePartner(ch.Update))
	a.mux.Handle("DELETE /api/clients/{id}", a.requirePartner(ch.Delete))
	a.mux.Handle("POST /api/clients/{id}/services", a.requirePartner(ch.AddService))
	a.mux.Handle("PUT /api/services/{id}", a.requirePartner(ch.UpdateService))
	a.mux.Handle("POST /api/services/{id}/cancel", a.requirePartner(ch.CancelService))

	// ─────────────────────────────────────────────────────────────────────────
	// Admin routes (require a platform admin)
	// ─────────────────────────────────────────────────────────────────────────
	adm := a.routerCfg.AdminHandler
	a.mux.Handle("GET /admin/overview", a.requireAdmin(adm.Overview))
	a.mux.Handle("GET /admin/partners", a.requireAdmin(adm.ListPartners))
	a.mux.Handle("POST /admin/partners", a.requireAdmin(adm.CreatePartner))
	a.mux.Handle("GET /admin/partners/stats", a.requireAdmin(adm.Stats))
	a.mux.Handle("GET /admin/partners/{id}", a.requireAdmin(adm.ViewPartner))
	a.mux.Handle("PATCH /admin/partners/{id}", a.requireAdmin(adm.UpdatePartner))
}

// health reports whether the database answers.
func (a *App) health(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		a.log.Warn("health check failed", zap.Error(err))
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
