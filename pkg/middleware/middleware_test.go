package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/spend-reconciler/internal/domain"
	"github.com/vfg2006/spend-reconciler/internal/usecases/authenticating"
	"github.com/vfg2006/spend-reconciler/internal/usecases/authenticating/mocks"
	"github.com/vfg2006/spend-reconciler/pkg/log"
	"go.uber.org/mock/gomock"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		header     string
		setup      func(auth *mocks.MockAuthenticator)
		wantStatus int
	}{
		{
			name:       "rota pública dispensa token",
			path:       "/healthcheck",
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "sem cabeçalho",
			path:       "/v1/runs",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "sem prefixo Bearer",
			path:       "/v1/runs",
			header:     "Token abc",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "token expirado",
			path:   "/v1/runs",
			header: "Bearer abc",
			setup: func(auth *mocks.MockAuthenticator) {
				auth.EXPECT().ValidateToken("abc").Return(nil, authenticating.ErrExpiredToken)
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "token válido",
			path:   "/v1/runs",
			header: "Bearer abc",
			setup: func(auth *mocks.MockAuthenticator) {
				auth.EXPECT().ValidateToken("abc").Return(&domain.Claims{Role: domain.RoleAdmin}, nil)
			},
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			auth := mocks.NewMockAuthenticator(ctrl)
			if tt.setup != nil {
				tt.setup(auth)
			}

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			AuthMiddleware(auth)(okHandler()).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRoleMiddleware(t *testing.T) {
	serve := func(claims *domain.Claims, mw func(http.Handler) http.Handler) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/runs", nil)
		if claims != nil {
			req = req.WithContext(contextWithClaims(req, claims))
		}
		rec := httptest.NewRecorder()
		mw(okHandler()).ServeHTTP(rec, req)
		return rec.Code
	}

	admin := &domain.Claims{Role: domain.RoleAdmin}
	operator := &domain.Claims{Role: domain.RoleOperator}

	assert.Equal(t, http.StatusNoContent, serve(admin, AdminOnly()))
	assert.Equal(t, http.StatusForbidden, serve(operator, AdminOnly()))
	assert.Equal(t, http.StatusNoContent, serve(operator, AllRoles()))
	assert.Equal(t, http.StatusUnauthorized, serve(nil, AllRoles()))
}

func TestLoggingMiddleware_CorrelationID(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = log.GetCorrelationID(r.Context())
	})

	t.Run("reaproveita o id do cliente", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
		req.Header.Set(log.CorrelationIDHeader, "req-123")
		rec := httptest.NewRecorder()

		LoggingMiddleware()(next).ServeHTTP(rec, req)
		assert.Equal(t, "req-123", seen)
		assert.Equal(t, "req-123", rec.Header().Get(log.CorrelationIDHeader))
	})

	t.Run("gera um id quando o recebido é inválido", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
		req.Header.Set(log.CorrelationIDHeader, "id com espaço")
		rec := httptest.NewRecorder()

		LoggingMiddleware()(next).ServeHTTP(rec, req)
		require.NotEmpty(t, seen)
		assert.NotEqual(t, "id com espaço", seen)
		assert.Len(t, seen, 36)
	})
}

func TestLogPanicMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	LogPanicMiddleware()(panicking).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func contextWithClaims(req *http.Request, claims *domain.Claims) context.Context {
	return context.WithValue(req.Context(), ContextKeyUser, claims)
}
