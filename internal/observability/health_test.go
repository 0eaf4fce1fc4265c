package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthCheckHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheckHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, ServiceName, body.Service)
}

func TestReadinessHandler(t *testing.T) {
	ok := func(context.Context) (bool, error) { return true, nil }
	notReady := func(context.Context) (bool, error) { return false, errors.New("state is Initializing") }

	t.Run("all healthy", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ReadinessHandler(NamedCheck{Name: "session", Check: ok})(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var body HealthStatus
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "ready", body.Status)
		assert.Equal(t, "healthy", body.Dependencies["session"].Status)
	})

	t.Run("one unhealthy", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ReadinessHandler(
			NamedCheck{Name: "store", Check: ok},
			NamedCheck{Name: "session", Check: notReady},
		)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body HealthStatus
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "not_ready", body.Status)
		assert.Equal(t, "unhealthy", body.Dependencies["session"].Status)
		assert.Equal(t, "state is Initializing", body.Dependencies["session"].Message)
	})
}

func TestGRPCHealth(t *testing.T) {
	h := NewGRPCHealth()
	req := &healthpb.HealthCheckRequest{Service: ServiceName}

	resp, err := h.Server().Check(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	h.SetReady(true)
	resp, err = h.Server().Check(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
