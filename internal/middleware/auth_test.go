package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/car-maintenance/internal/auth"
	"github.com/ukydev/car-maintenance/internal/models"
)

func newTokens(t *testing.T) *auth.Service {
	t.Helper()
	service, err := auth.NewService("test-secret", time.Hour)
	require.NoError(t, err)
	return service
}

func tokenFor(t *testing.T, s *auth.Service, role models.Role) string {
	t.Helper()
	token, err := s.GenerateToken(models.Identity{UserID: "owner-1", Username: string(role) + "-user", Role: role})
	require.NoError(t, err)
	return token
}

func serve(h http.Handler, path, token string) (*httptest.ResponseRecorder, bool) {
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w, w.Header().Get("X-Handler") == "called"
}

var called = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Handler", "called")
})

func TestAuthMiddleware_Authenticate(t *testing.T) {
	tokens := newTokens(t)
	middleware := NewAuthMiddleware(tokens)

	t.Run("valid token", func(t *testing.T) {
		token := tokenFor(t, tokens, models.RoleOperator)
		req := httptest.NewRequest("GET", "/api/vehicles", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
			id, ok := IdentityFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, "owner-1", id.UserID)
			assert.Equal(t, models.RoleOperator, id.Role)
		})

		middleware.Authenticate(handler).ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing authorization header", func(t *testing.T) {
		w, ok := serve(middleware.Authenticate(called), "/api/vehicles", "")
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		w, ok := serve(middleware.Authenticate(called), "/api/vehicles", "invalid-token")
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("header without bearer scheme", func(t *testing.T) {
		token := tokenFor(t, tokens, models.RoleAdmin)
		for _, header := range []string{token, "Token " + token, "bearer " + token} {
			req := httptest.NewRequest("GET", "/api/vehicles", nil)
			req.Header.Set("Authorization", header)
			w := httptest.NewRecorder()
			middleware.Authenticate(called).ServeHTTP(w, req)
			assert.Empty(t, w.Header().Get("X-Handler"), header)
			assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		}
	})

	t.Run("skip auth path", func(t *testing.T) {
		for _, path := range []string{"/health", "/metrics"} {
			w, ok := serve(middleware.Authenticate(called), path, "")
			assert.True(t, ok, path)
			assert.Equal(t, http.StatusOK, w.Code, path)
		}
	})
}

func TestAuthMiddleware_RequirePermission(t *testing.T) {
	tokens := newTokens(t)
	middleware := NewAuthMiddleware(tokens)

	tests := []struct {
		name    string
		role    models.Role
		action  string
		allowed bool
	}{
		{"admin runs batch", models.RoleAdmin, models.ActionRunBatch, true},
		{"manager cannot run batch", models.RoleManager, models.ActionRunBatch, false},
		{"operator updates tasks", models.RoleOperator, models.ActionUpdateMaintenance, true},
		{"viewer reads tasks", models.RoleViewer, models.ActionViewMaintenance, true},
		{"viewer cannot predict", models.RoleViewer, models.ActionPredictMaintenance, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := middleware.Authenticate(middleware.RequirePermission(tt.action)(called))
			w, ok := serve(h, "/api/maintenance/v1", tokenFor(t, tokens, tt.role))
			assert.Equal(t, tt.allowed, ok)
			if tt.allowed {
				assert.Equal(t, http.StatusOK, w.Code)
			} else {
				assert.Equal(t, http.StatusForbidden, w.Code)
			}
		})
	}

	t.Run("no user context", func(t *testing.T) {
		w, ok := serve(middleware.RequirePermission(models.ActionViewVehicles)(called), "/api/vehicles", "")
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	middleware := NewRateLimitMiddleware()

	t.Run("rate limit not exceeded", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/test", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		middleware.RateLimit(5, time.Minute)(handler).ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rate limit exceeded", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/test", nil)
		req.RemoteAddr = "192.168.1.2:12345"
		rateLimitHandler := middleware.RateLimit(1, time.Minute)(called)

		w := httptest.NewRecorder()
		rateLimitHandler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		rateLimitHandler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		// Another client is unaffected.
		other := httptest.NewRequest("GET", "/api/test", nil)
		other.Header.Set("X-Forwarded-For", "10.0.0.9, 192.168.1.2")
		w = httptest.NewRecorder()
		rateLimitHandler.ServeHTTP(w, other)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("idle visitors are evicted", func(t *testing.T) {
		m := NewRateLimitMiddleware()
		now := time.Now()
		m.now = func() time.Time { return now }
		h := m.RateLimit(1, time.Minute)(called)

		req := httptest.NewRequest("GET", "/api/test", nil)
		req.RemoteAddr = "192.168.1.3:1"
		h.ServeHTTP(httptest.NewRecorder(), req)

		now = now.Add(2 * time.Minute)
		next := httptest.NewRequest("GET", "/api/test", nil)
		next.RemoteAddr = "192.168.1.4:1"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, next)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, m.visitors, 1)
		assert.Contains(t, m.visitors, "192.168.1.4")
	})
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "172.16.0.4:5555"
	assert.Equal(t, "172.16.0.4", getClientIP(req))

	req.Header.Set("X-Real-IP", "10.1.1.1")
	assert.Equal(t, "10.1.1.1", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "10.2.2.2, 10.3.3.3")
	assert.Equal(t, "10.2.2.2", getClientIP(req))
}

func TestGetUserFromContext(t *testing.T) {
	claims := &models.Claims{
		UserID:   "test-id",
		Username: "testuser",
		Role:     models.RoleAdmin,
	}

	ctx := WithClaims(context.Background(), claims)

	retrievedClaims, ok := GetUserFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, claims.UserID, retrievedClaims.UserID)
	assert.Equal(t, claims.Username, retrievedClaims.Username)
	assert.Equal(t, claims.Role, retrievedClaims.Role)

	_, ok = GetUserFromContext(context.Background())
	assert.False(t, ok)
	_, ok = IdentityFromContext(context.Background())
	assert.False(t, ok)
}
