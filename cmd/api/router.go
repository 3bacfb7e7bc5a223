package main

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/RynoXLI/annex/internal/config"
	"github.com/RynoXLI/annex/internal/middleware"
)

const (
	apiTitle   = "Annex License API"
	apiVersion = "0.1.0"
)

// newRouter builds the HTTP handler serving the API, metrics and docs
func newRouter(app *App, cfg *config.Config) http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Logger)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Metrics)
	router.Use(middleware.RateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))

	router.Handle("/metrics", promhttp.Handler())

	humaConfig := huma.DefaultConfig(apiTitle, apiVersion)
	if !cfg.Server.EnableDocs {
		humaConfig.DocsPath = ""
	}
	api := humachi.New(router, humaConfig)
	RegisterRoutes(api, app)

	// Wrap with h2c for HTTP/2
	return h2c.NewHandler(router, &http2.Server{})
}
