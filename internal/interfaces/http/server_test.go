package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jetprint/print-workflow/internal/auth"
	"github.com/jetprint/print-workflow/internal/domain/entity"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(
		ServerConfig{
			Host:        "127.0.0.1",
			Port:        0,
			ReadTimeout: 15 * time.Second,
			IdleTimeout: 2 * time.Minute,
		},
		nil, nil, nil, nil, nil,
		auth.NewTokenManager("test-secret", time.Hour),
		zap.NewNop(),
	)
}

// The event stream stays open for the life of the subscription, so the
// server must not carry a write deadline that would sever it.
func TestServer_NoWriteTimeout(t *testing.T) {
	s := newTestServer(t)

	require.NotNil(t, s.httpServer)
	assert.Zero(t, s.httpServer.WriteTimeout)
	assert.Equal(t, 15*time.Second, s.httpServer.ReadTimeout)
	assert.Equal(t, 2*time.Minute, s.httpServer.IdleTimeout)
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_AuthRequired(t *testing.T) {
	s := newTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/stage-claims/my/active", nil)
		s.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/stage-claims/my/active", nil)
		req.Header.Set("Authorization", "Basic abc123")
		s.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/stage-claims/my/active", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		s.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("staff token rejected on admin routes", func(t *testing.T) {
		token, err := s.tokens.Issue(&entity.User{ID: "alice", Role: entity.RoleStaff})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/admin/users", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		s.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
