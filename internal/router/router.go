package router

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"triphub/internal/cache"
	"triphub/internal/config"
	"triphub/internal/database"
	"triphub/internal/handlers/api/v1/progression"
	"triphub/internal/middleware"
	"triphub/internal/response"
	"triphub/internal/services"
	"triphub/internal/validation"
)

// Deps bundles everything the router needs.
type Deps struct {
	Config            *config.Config
	ServiceCollection *services.ServiceCollection
	DB                *database.Manager
	Cache             cache.Cache
	Validator         *validation.Validator
	Logger            *zap.Logger
}

// Setup configures all HTTP routes and returns the main handler.
func Setup(deps *Deps) http.Handler {
	writer := response.NewWriter(deps.Logger)
	authenticator := middleware.NewAuthenticator(&deps.Config.Auth, writer, deps.Logger)
	controller := progression.NewController(deps.ServiceCollection, deps.Validator, writer, deps.Logger)

	root := mux.NewRouter()
	root.Use(middleware.RequestID())
	root.Use(middleware.StructuredLogger(deps.Logger))
	root.Use(middleware.Recovery(deps.Logger, writer))

	root.HandleFunc("/health", healthHandler(deps)).Methods(http.MethodGet)

	api := root.PathPrefix("/api/v1/progression").Subrouter()
	api.Use(authenticator.RequireAuth)

	api.HandleFunc("/award", controller.Award).Methods(http.MethodPost)
	api.HandleFunc("/users/{id:[0-9]+}/stats", controller.GetUserStats).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}/milestones", controller.GetUserMilestones).Methods(http.MethodGet)
	api.HandleFunc("/users/{id:[0-9]+}/recalculate", controller.Recalculate).Methods(http.MethodPost)
	api.HandleFunc("/levels", controller.GetLevels).Methods(http.MethodGet)
	api.HandleFunc("/badges", controller.GetBadges).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", controller.GetLeaderboard).Methods(http.MethodGet)

	return root
}

// healthHandler reports store, cache and event bus health.
func healthHandler(deps *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := deps.DB.Health(r.Context()); err != nil {
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := deps.Cache.Health(r.Context()); err != nil {
			checks["cache"] = err.Error()
			status = http.StatusServiceUnavailable
		}

		body := map[string]interface{}{
			"status": http.StatusText(status),
			"checks": checks,
			"events": deps.ServiceCollection.EventBusStats(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(body); err != nil {
			deps.Logger.Error("Failed to encode health response", zap.Error(err))
		}
	}
}
