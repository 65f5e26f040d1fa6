package authenticating

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/spend-reconciler/internal/config"
	"github.com/vfg2006/spend-reconciler/internal/domain"
)

func newTestService(secret string) *Service {
	return NewService(&config.Config{Auth: config.Auth{Secret: secret}}).(*Service)
}

func TestService_IssueAndValidate(t *testing.T) {
	service := newTestService("segredo")

	token, err := service.IssueToken("ana", domain.RoleOperator, time.Hour)
	require.NoError(t, err)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ana", claims.Subject)
	assert.Equal(t, domain.RoleOperator, claims.Role)
	assert.Equal(t, issuer, claims.Issuer)
}

func TestService_IssueToken_Validation(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		subject string
		role    string
		ttl     time.Duration
		wantErr error
	}{
		{name: "sem segredo", secret: "", subject: "ana", role: domain.RoleAdmin, ttl: time.Hour, wantErr: ErrMissingSecret},
		{name: "sem subject", secret: "s", subject: "", role: domain.RoleAdmin, ttl: time.Hour, wantErr: ErrInvalidSubject},
		{name: "role desconhecida", secret: "s", subject: "ana", role: "root", ttl: time.Hour, wantErr: ErrInvalidRole},
		{name: "validade zero", secret: "s", subject: "ana", role: domain.RoleAdmin, ttl: 0, wantErr: ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestService(tt.secret).IssueToken(tt.subject, tt.role, tt.ttl)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_ValidateToken_Rejections(t *testing.T) {
	service := newTestService("segredo")

	t.Run("token expirado", func(t *testing.T) {
		token, err := service.IssueToken("ana", domain.RoleAdmin, time.Minute)
		require.NoError(t, err)

		service.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { service.now = time.Now }()

		_, err = service.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
		assert.True(t, IsAuthorizationError(err))
	})

	t.Run("assinado com outro segredo", func(t *testing.T) {
		token, err := newTestService("outro").IssueToken("ana", domain.RoleAdmin, time.Hour)
		require.NoError(t, err)

		_, err = service.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("algoritmo none", func(t *testing.T) {
		claims := domain.Claims{
			Role: domain.RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = service.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("texto qualquer", func(t *testing.T) {
		_, err := service.ValidateToken("abc.def.ghi")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("serviço sem segredo recusa tudo", func(t *testing.T) {
		_, err := newTestService("").ValidateToken("abc")
		assert.ErrorIs(t, err, ErrMissingSecret)
	})
}
