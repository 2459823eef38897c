// Package api wires the HTTP surface: routing, handlers, and middleware.
package api

import (
	"log/slog"
	"net/http"

	"github.com/resonate-app/resonate/internal/api/middleware"
	"github.com/resonate-app/resonate/internal/catalog"
	"github.com/resonate-app/resonate/internal/history"
	"github.com/resonate-app/resonate/internal/provider"
)

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	CatalogService   *catalog.Service
	Aggregator       *catalog.Aggregator
	HistoryService   *history.Service
	ProviderSettings *provider.SettingsService
	Logger           *slog.Logger
	BasePath         string
	StaticDir        string
}

// Router sets up all HTTP routes for the application.
type Router struct {
	catalogService   *catalog.Service
	aggregator       *catalog.Aggregator
	historyService   *history.Service
	providerSettings *provider.SettingsService
	logger           *slog.Logger
	basePath         string
	staticDir        string
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		catalogService:   deps.CatalogService,
		aggregator:       deps.Aggregator,
		historyService:   deps.HistoryService,
		providerSettings: deps.ProviderSettings,
		logger:           deps.Logger,
		basePath:         deps.BasePath,
		staticDir:        deps.StaticDir,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	bp := r.basePath

	mux.HandleFunc("GET "+bp+"/api/v1/health", r.handleHealth)
	mux.HandleFunc("GET "+bp+"/api/v1/search", r.handleSearch)
	mux.HandleFunc("GET "+bp+"/api/v1/featured", r.handleFeatured)
	mux.HandleFunc("GET "+bp+"/api/v1/random", r.handleRandom)
	mux.HandleFunc("GET "+bp+"/api/v1/pricing", r.handlePricing)
	mux.HandleFunc("GET "+bp+"/api/v1/history", r.handleHistory)

	// Provider credential routes
	mux.HandleFunc("GET "+bp+"/api/v1/providers", r.handleListProviders)
	mux.HandleFunc("PUT "+bp+"/api/v1/providers/{name}/key", r.handleSetProviderKey)
	mux.HandleFunc("DELETE "+bp+"/api/v1/providers/{name}/key", r.handleDeleteProviderKey)

	// Storefront page
	mux.Handle("GET "+bp+"/static/", r.staticHandler())
	mux.HandleFunc("GET "+bp+"/{$}", r.handleIndex)

	return middleware.Logging(r.logger)(mux)
}
