package api

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/arsenmarkotskyi/tt-event-management/internal/api/handlers"
	"github.com/arsenmarkotskyi/tt-event-management/internal/api/middleware"
	"github.com/arsenmarkotskyi/tt-event-management/internal/config"
	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/accounts"
	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/events"
	"github.com/arsenmarkotskyi/tt-event-management/internal/domain/registrations"
	"github.com/arsenmarkotskyi/tt-event-management/internal/metrics"
	"github.com/arsenmarkotskyi/tt-event-management/web"
)

// Dependencies carries everything the router wires together. The caller owns
// the pool and service lifecycles.
type Dependencies struct {
	Config        config.Config
	Logger        zerolog.Logger
	Pool          *pgxpool.Pool
	Accounts      *accounts.Service
	Events        *events.Service
	Registrations *registrations.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	env := cfg.Environment

	accountsHandler := handlers.NewAccountsHandler(deps.Accounts, env)
	eventsHandler := handlers.NewEventsHandler(deps.Events, env)
	registrationsHandler := handlers.NewRegistrationsHandler(deps.Registrations, env)
	healthHandler := handlers.NewHealthHandler(deps.Pool)

	requireAuth := middleware.RequireAuth(deps.Accounts, env)
	optionalAuth := middleware.OptionalAuth(deps.Accounts, env)
	rateLimit := middleware.RateLimit(cfg.RateLimit)
	authTier := middleware.WithRateLimitTierHandler(middleware.TierAuth)
	loginTier := middleware.WithRateLimitTierHandler(middleware.TierLogin)

	mux := http.NewServeMux()

	handle := func(pattern string, h http.Handler, wrappers ...func(http.Handler) http.Handler) {
		// Applied right to left, so the first wrapper runs first. The rate
		// limiter sits after tier assignment so it sees the right tier.
		for i := len(wrappers) - 1; i >= 0; i-- {
			h = wrappers[i](h)
		}
		mux.Handle(pattern, middleware.HTTPMetrics(pattern, h))
	}

	mux.Handle("GET /{$}", web.IndexHandler())
	mux.Handle("GET /robots.txt", web.RobotsTxtHandler())

	handle("GET /healthz", http.HandlerFunc(healthHandler.Healthz))
	handle("GET /readyz", http.HandlerFunc(healthHandler.Readyz))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	handle("POST /accounts/register/{$}", http.HandlerFunc(accountsHandler.Register), rateLimit)
	handle("POST /accounts/login/{$}", http.HandlerFunc(accountsHandler.Login), loginTier, rateLimit)
	handle("POST /accounts/logout/{$}", http.HandlerFunc(accountsHandler.Logout), authTier, rateLimit, requireAuth)
	handle("GET /accounts/me/{$}", http.HandlerFunc(accountsHandler.Me), authTier, rateLimit, requireAuth)
	handle("GET /accounts/profile/{$}", http.HandlerFunc(accountsHandler.Me), authTier, rateLimit, requireAuth)

	handle("GET /events/{$}", http.HandlerFunc(eventsHandler.List), rateLimit, optionalAuth)
	handle("POST /events/{$}", http.HandlerFunc(eventsHandler.Create), authTier, rateLimit, requireAuth)
	handle("GET /events/{id}/{$}", http.HandlerFunc(eventsHandler.Get), rateLimit, optionalAuth)
	handle("PUT /events/{id}/{$}", http.HandlerFunc(eventsHandler.Update), authTier, rateLimit, requireAuth)
	handle("PATCH /events/{id}/{$}", http.HandlerFunc(eventsHandler.PartialUpdate), authTier, rateLimit, requireAuth)
	handle("DELETE /events/{id}/{$}", http.HandlerFunc(eventsHandler.Delete), authTier, rateLimit, requireAuth)

	handle("POST /events/{id}/register/{$}", http.HandlerFunc(registrationsHandler.Register), authTier, rateLimit, requireAuth)
	handle("DELETE /events/{id}/register/{$}", http.HandlerFunc(registrationsHandler.Unregister), authTier, rateLimit, requireAuth)
	handle("DELETE /events/{id}/unregister/{$}", http.HandlerFunc(registrationsHandler.Unregister), authTier, rateLimit, requireAuth)
	handle("GET /events/{id}/registrations/{$}", http.HandlerFunc(registrationsHandler.ListForEvent), authTier, rateLimit, requireAuth)
	handle("GET /registrations/{$}", http.HandlerFunc(registrationsHandler.ListForUser), authTier, rateLimit, requireAuth)

	var root http.Handler = mux
	root = middleware.RequestLogging(deps.Logger)(root)
	root = middleware.Tracing(root)
	root = middleware.CorrelationID(deps.Logger)(root)
	return root
}
