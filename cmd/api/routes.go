package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	_ "github.com/uvgride/grouprides/docs"
	"github.com/uvgride/grouprides/internal/config"
	"github.com/uvgride/grouprides/internal/group"
	"github.com/uvgride/grouprides/internal/rating"
	mw "github.com/uvgride/grouprides/pkg/middleware"
)

func newRouter(cfg *config.Config, logger *zap.Logger, groupHandler *group.Handler, ratingHandler *rating.Handler) http.Handler {
	r := chi.NewRouter()

	// Request ID must be first to reach the request log
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Test-User-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.JWTSecret != "" {
			r.Use(mw.AuthMiddleware(cfg.JWTSecret))
		} else {
			logger.Warn("JWT_SECRET not set; accepting X-Test-User-ID identities")
			r.Use(mw.TestUserMiddleware)
		}

		groupRouter := groupHandler.Routes()
		ratingHandler.RegisterGroupRoutes(groupRouter)

		r.Mount("/groups", groupRouter)
		r.Mount("/drivers", ratingHandler.Routes())
	})

	return r
}
