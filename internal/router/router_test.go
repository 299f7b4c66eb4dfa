package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"unihub/internal/config"
	"unihub/internal/middleware"
	"unihub/internal/monitoring"
	"unihub/internal/repositories/memory"
	"unihub/internal/response"
	"unihub/internal/services"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zap.NewNop()
	cfg := &config.Config{
		Server: config.ServerConfig{Environment: "test", EnableSwagger: true},
		Gamification: config.GamificationConfig{
			MaxRetries:         1,
			RetryDelay:         time.Millisecond,
			SeedDefaultTiers:   true,
			EventBusWorkers:    1,
			EventBusBufferSize: 16,
		},
	}

	sc, err := services.NewServiceCollection(services.Dependencies{
		Repositories: memory.NewStore().Collection(),
		Config:       cfg,
		Logger:       logger,
	})
	require.NoError(t, err)
	require.NoError(t, sc.Start(context.Background()))
	t.Cleanup(func() { _ = sc.Shutdown(context.Background()) })

	builder := response.NewBuilder(response.DefaultConfig(), logger)
	auth, err := middleware.NewAuthMiddleware(&middleware.AuthConfig{JWTSecret: "router-secret"}, builder, logger)
	require.NoError(t, err)

	return SetupRouter(Dependencies{
		Services:        sc,
		Auth:            auth,
		RateLimiter:     middleware.NewRateLimiter(nil, nil, builder, logger),
		ResponseBuilder: builder,
		Dashboard:       monitoring.NewDashboard(sc, nil, logger, "test", "test"),
		Config:          cfg,
		Logger:          logger,
	})
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRouter_Ping(t *testing.T) {
	rec := serve(newTestRouter(t), http.MethodGet, "/ping")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Health(t *testing.T) {
	rec := serve(newTestRouter(t), http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body struct {
		Success bool                  `json:"success"`
		Data    response.HealthStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "healthy", body.Data.Status)
	assert.Contains(t, body.Data.Services, "event_bus")
}

func TestRouter_UnknownRouteUsesEnvelope(t *testing.T) {
	rec := serve(newTestRouter(t), http.MethodGet, "/api/v1/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body response.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, services.ErrorTypeNotFound, body.Error.Type)
}

func TestRouter_MountsGamificationAndDashboard(t *testing.T) {
	h := newTestRouter(t)

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/api/v1/gamification/badges").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(h, http.MethodGet, "/api/v1/monitoring/dashboard").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, serve(h, http.MethodDelete, "/api/v1/gamification/badges").Code)
}

func TestRouter_SecureHeaders(t *testing.T) {
	rec := serve(newTestRouter(t), http.MethodGet, "/api/v1/gamification/badges")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
