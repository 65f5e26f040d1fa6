package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDo(t *testing.T) {
	policy := Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	t.Run("sucesso na primeira tentativa", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), policy, "teste", func(ctx context.Context) error {
			calls++
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("sucesso após falhas transitórias", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), policy, "teste", func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("indisponível")
			}
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("esgota as tentativas e devolve o último erro", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), policy, "teste", func(ctx context.Context) error {
			calls++
			return errors.New("indisponível")
		})

		assert.EqualError(t, err, "indisponível")
		assert.Equal(t, 3, calls)
	})

	t.Run("erro permanente não é repetido", func(t *testing.T) {
		calls := 0
		sentinel := errors.New("dados inválidos")
		err := Do(context.Background(), policy, "teste", func(ctx context.Context) error {
			calls++
			return Permanent(sentinel)
		})

		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, 1, calls)
	})

	t.Run("aplica timeout por tentativa", func(t *testing.T) {
		p := policy
		p.MaxAttempts = 1
		p.CallTimeout = 10 * time.Millisecond

		err := Do(context.Background(), p, "teste", func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("zero tentativas executa uma vez", func(t *testing.T) {
		calls := 0
		_ = Do(context.Background(), Policy{}, "teste", func(ctx context.Context) error {
			calls++
			return errors.New("falha")
		})

		assert.Equal(t, 1, calls)
	})
}
