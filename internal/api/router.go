package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Adjusted-Price-Engine/internal/api/handlers"
	custommiddleware "github.com/ndewijer/Adjusted-Price-Engine/internal/api/middleware"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/api/response"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/config"
	"github.com/ndewijer/Adjusted-Price-Engine/internal/service"
)

// NewRouter creates and configures the HTTP router.
// A nil metrics handler leaves /metrics unmounted.
func NewRouter(
	systemService *service.SystemService,
	adjustedPriceService *service.AdjustedPriceService,
	metrics http.Handler,
	logger zerolog.Logger,
	cfg *config.Config,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger(logger))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.RespondError(w, http.StatusNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		response.RespondError(w, http.StatusMethodNotAllowed, "method not allowed", req.Method)
	})

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		adjustedPriceHandler := handlers.NewAdjustedPriceHandler(adjustedPriceService)
		r.Get("/adjusted-price", adjustedPriceHandler.AdjustedPrice)
		r.Get("/calculate-adjusted-price", adjustedPriceHandler.AdjustedPrice)
	})

	return r
}
