package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"tra-backend/infrastructure/config"
	"tra-backend/interfaces/http/rest/handlers"
	"tra-backend/interfaces/http/rest/middleware"
	"tra-backend/pkg/common"
)

// NewRouter assembles the HTTP API
func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	assessmentHandler *handlers.AssessmentHandler,
	documentHandler *handlers.DocumentHandler,
	chatHandler *handlers.ChatHandler,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(chimiddleware.RealIP)

	if cfg.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret, cfg.JWTIssuer, logger))

		assessmentHandler.RegisterRoutes(r)
		documentHandler.RegisterRoutes(r)
		chatHandler.RegisterRoutes(r)
	})

	return r
}
