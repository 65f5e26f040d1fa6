package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Policy define quantas tentativas fazer e quanto esperar entre elas
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// CallTimeout limita cada tentativa individualmente; zero desativa
	CallTimeout time.Duration
}

// Permanent marca um erro que não deve ser tentado novamente
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do executa op até ter sucesso, esgotar as tentativas ou o contexto ser cancelado.
// Retorna o último erro de op.
func Do(ctx context.Context, policy Policy, operation string, op func(ctx context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = policy.BaseDelay
	if policy.MaxDelay > 0 {
		expo.MaxInterval = policy.MaxDelay
	}
	expo.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(attempts-1)), ctx)

	attempt := 0
	call := func() error {
		attempt++

		callCtx := ctx
		if policy.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, policy.CallTimeout)
			defer cancel()
		}

		return op(callCtx)
	}

	notify := func(err error, wait time.Duration) {
		logrus.WithFields(logrus.Fields{
			"operation": operation,
			"attempt":   attempt,
			"max":       attempts,
			"wait":      wait.String(),
		}).Warnf("Falha na tentativa, tentando novamente: %v", err)
	}

	return backoff.RetryNotify(call, b, notify)
}
