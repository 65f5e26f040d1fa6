package authenticating

import (
	"errors"
)

var (
	ErrInvalidToken    = errors.New("token inválido")
	ErrExpiredToken    = errors.New("token expirado")
	ErrMissingSecret   = errors.New("auth_secret não configurado")
	ErrInvalidRole     = errors.New("role inválida")
	ErrInvalidSubject  = errors.New("subject obrigatório")
	ErrInvalidDuration = errors.New("validade do token deve ser positiva")
)

// IsAuthorizationError verifica se o erro está relacionado a um token recusado
func IsAuthorizationError(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrMissingSecret)
}
