package router

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"unihub/internal/appinfo"
	"unihub/internal/config"
	_ "unihub/internal/docs" // registers the swagger document
	"unihub/internal/handlers/api/v1/gamification"
	"unihub/internal/middleware"
	"unihub/internal/monitoring"
	"unihub/internal/response"
	"unihub/internal/services"
)

// Dependencies are the pieces the router mounts
type Dependencies struct {
	Services        *services.ServiceCollection
	Auth            *middleware.AuthMiddleware
	RateLimiter     *middleware.RateLimiter
	ResponseBuilder *response.Builder
	// Realtime serves the websocket endpoint; nil disables /ws
	Realtime  http.Handler
	Dashboard *monitoring.Dashboard
	Config    *config.Config
	Logger    *zap.Logger
}

// SetupRouter configures all HTTP routes and returns the main handler
func SetupRouter(deps Dependencies) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		deps.ResponseBuilder.WriteError(w, req, services.NewNotFoundError("route not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		deps.ResponseBuilder.WriteError(w, req, &services.ServiceError{
			Type:       "METHOD_NOT_ALLOWED",
			Message:    "method not allowed",
			StatusCode: http.StatusMethodNotAllowed,
		})
	})

	r.HandleFunc("/health", healthHandler(deps)).Methods(http.MethodGet)

	if deps.Config.Server.EnableSwagger {
		r.PathPrefix("/swagger/").Handler(middleware.SwaggerHandler(&middleware.SwaggerConfig{
			URL:          "/swagger/doc.json",
			DeepLinking:  true,
			DocExpansion: "list",
			Username:     deps.Config.Server.SwaggerUsername,
			Password:     deps.Config.Server.SwaggerPassword,
		}))
	}

	if deps.Realtime != nil {
		r.Handle("/ws", deps.Realtime).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	gamification.NewController(deps.Services, deps.Logger, deps.ResponseBuilder).
		RegisterRoutes(api.PathPrefix("/gamification").Subrouter(), deps.Auth, deps.RateLimiter)

	if deps.Dashboard != nil {
		api.Handle("/monitoring/dashboard",
			middleware.Chain(deps.Dashboard.Handler(deps.ResponseBuilder), deps.Auth.RequireAdmin()),
		).Methods(http.MethodGet)
	}

	return middleware.Chain(r,
		chimiddleware.RealIP,
		chimiddleware.Heartbeat("/ping"),
		middleware.RequestID(deps.Logger),
		middleware.StructuredLogging(middleware.DefaultLoggingConfig()),
		middleware.Recovery(deps.ResponseBuilder),
		middleware.CORS(deps.Config.Server.AllowedOrigins),
		middleware.SecureHeaders,
	)
}

func healthHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := deps.Services.HealthCheck(r.Context())

		checks := make(map[string]interface{}, len(health.Dependencies))
		for name, dep := range health.Dependencies {
			checks[name] = dep.Status
		}
		deps.ResponseBuilder.WriteHealthCheck(w, r, &response.HealthStatus{
			Status:      health.Status,
			Timestamp:   health.Timestamp.Unix(),
			Version:     appinfo.GetVersion(),
			Environment: deps.Config.Server.Environment,
			Uptime:      health.Uptime.Seconds(),
			Services:    checks,
		})
	}
}
