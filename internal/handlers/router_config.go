package handlers

import (
	"net/http"
	"time"

	"github.com/diewo77/go-partners/auth"
	"github.com/diewo77/go-partners/internal/platform"
	"github.com/diewo77/go-partners/internal/policy"
	"github.com/diewo77/go-partners/internal/proposal"
	"github.com/diewo77/go-partners/internal/ratelimit"
	"github.com/diewo77/go-partners/internal/revenue"
	"github.com/diewo77/go-partners/internal/services"
	"github.com/diewo77/go-partners/internal/storage"
	"github.com/diewo77/go-partners/internal/store"
	"go.uber.org/zap"
)

// Deps are the collaborators built in main.
type Deps struct {
	Store  *store.Store
	Issuer *auth.Issuer
	Logger *zap.Logger

	// Optional collaborators; nil disables the feature.
	Revoker auth.Revoker
	Limiter ratelimit.Limiter
	Archive storage.Archive

	Clock    func() time.Time
	Location *time.Location

	// OverviewConcurrency bounds the per-partner fan-out of the overview.
	OverviewConcurrency int
}

// RouterConfig holds configured handlers and middleware for the application.
type RouterConfig struct {
	// Auth authenticates callers and guards the partner and admin routes
	Auth *auth.Authenticator

	// PublicLimit throttles the token endpoints; nil disables throttling
	PublicLimit func(http.Handler) http.Handler

	AuthHandler      *AuthHandler
	ClientHandler    *ClientHandler
	ProposalHandler  *ProposalHandler
	DashboardHandler *DashboardHandler
	AdminHandler     *AdminHandler

	// Services
	Partners   *services.PartnerService
	Proposals  *proposal.Service
	Aggregator *revenue.Aggregator
	Composer   *platform.Composer
}

// NewRouterConfig wires the tenant guard, domain services and handlers.
func NewRouterConfig(d Deps) *RouterConfig {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	guard := policy.NewTenantGuard()

	partners := services.NewPartnerService(d.Store)
	clients := services.NewClientService(d.Store, guard)
	proposals := proposal.NewService(d.Store, guard, proposal.WithLogger(log.Named("proposal")))

	aggOpts := []revenue.Option{}
	if d.Clock != nil {
		aggOpts = append(aggOpts, revenue.WithClock(d.Clock))
	}
	if d.Location != nil {
		aggOpts = append(aggOpts, revenue.WithLocation(d.Location))
	}
	agg := revenue.NewAggregator(d.Store, aggOpts...)
	composer := platform.NewComposer(d.Store, agg, log.Named("platform"), d.OverviewConcurrency)

	authOpts := []auth.Option{
		auth.WithPartnerVerifier(partners.IsActive),
		auth.WithAdminVerifier(partners.AdminExists),
	}
	if d.Revoker != nil {
		authOpts = append(authOpts, auth.WithRevoker(d.Revoker))
	}
	authenticator := auth.NewAuthenticator(d.Issuer, authOpts...)

	var limit func(http.Handler) http.Handler
	if d.Limiter != nil {
		limit = ratelimit.Middleware(d.Limiter)
	}

	return &RouterConfig{
		Auth:             authenticator,
		PublicLimit:      limit,
		AuthHandler:      NewAuthHandler(partners, authenticator),
		ClientHandler:    NewClientHandler(clients),
		ProposalHandler:  NewProposalHandler(proposals, partners, d.Archive),
		DashboardHandler: NewDashboardHandler(agg, d.Store),
		AdminHandler:     NewAdminHandler(composer, agg, partners),
		Partners:         partners,
		Proposals:        proposals,
		Aggregator:       agg,
		Composer:         composer,
	}
}
