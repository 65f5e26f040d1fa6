package reconciling

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/spend-reconciler/internal/domain"
)

type flushRecorder struct {
	batches [][]domain.NormalizedRecord
	err     error
}

func (f *flushRecorder) flush(ctx context.Context, batch []domain.NormalizedRecord) error {
	f.batches = append(f.batches, batch)
	return f.err
}

func numberedRecord(i int) domain.NormalizedRecord {
	return domain.NormalizedRecord{AccountID: fmt.Sprintf("%d", i)}
}

func TestAccumulator(t *testing.T) {
	ctx := context.Background()

	t.Run("exatamente 10000 registros geram uma única descarga", func(t *testing.T) {
		rec := &flushRecorder{}
		acc := NewAccumulator(DefaultBatchSize, rec.flush)

		for i := 0; i < 10000; i++ {
			require.NoError(t, acc.Add(ctx, numberedRecord(i)))
			if i < 9999 {
				require.Empty(t, rec.batches)
			}
		}

		require.Len(t, rec.batches, 1)
		assert.Len(t, rec.batches[0], 10000)
		assert.Equal(t, 0, acc.Pending())

		require.NoError(t, acc.FlushRemainder(ctx))
		assert.Len(t, rec.batches, 1)
	})

	t.Run("10001 registros geram um lote cheio e um resto de 1", func(t *testing.T) {
		rec := &flushRecorder{}
		acc := NewAccumulator(DefaultBatchSize, rec.flush)

		for i := 0; i < 10001; i++ {
			require.NoError(t, acc.Add(ctx, numberedRecord(i)))
		}
		require.Len(t, rec.batches, 1)

		require.NoError(t, acc.FlushRemainder(ctx))
		require.Len(t, rec.batches, 2)
		assert.Len(t, rec.batches[0], 10000)
		assert.Len(t, rec.batches[1], 1)
		assert.Equal(t, "10000", rec.batches[1][0].AccountID)
		assert.Equal(t, 2, acc.Batches())
		assert.Equal(t, 10001, acc.Flushed())
	})

	t.Run("ordem de chegada é preservada entre lotes", func(t *testing.T) {
		rec := &flushRecorder{}
		acc := NewAccumulator(3, rec.flush)

		for i := 0; i < 7; i++ {
			require.NoError(t, acc.Add(ctx, numberedRecord(i)))
		}
		require.NoError(t, acc.FlushRemainder(ctx))

		var got []string
		for _, b := range rec.batches {
			for _, r := range b {
				got = append(got, r.AccountID)
			}
		}
		assert.Equal(t, []string{"0", "1", "2", "3", "4", "5", "6"}, got)
	})

	t.Run("resto vazio não chama a descarga", func(t *testing.T) {
		rec := &flushRecorder{}
		acc := NewAccumulator(10, rec.flush)

		require.NoError(t, acc.FlushRemainder(ctx))
		assert.Empty(t, rec.batches)
		assert.Equal(t, 0, acc.Batches())
	})

	t.Run("erro na descarga é devolvido e o lote não é reenviado", func(t *testing.T) {
		rec := &flushRecorder{err: errors.New("falha")}
		acc := NewAccumulator(2, rec.flush)

		require.NoError(t, acc.Add(ctx, numberedRecord(0)))
		assert.EqualError(t, acc.Add(ctx, numberedRecord(1)), "falha")
		assert.Equal(t, 0, acc.Pending())

		require.NoError(t, acc.FlushRemainder(ctx))
		assert.Len(t, rec.batches, 1)
	})

	t.Run("tamanho inválido usa o padrão", func(t *testing.T) {
		acc := NewAccumulator(0, (&flushRecorder{}).flush)
		assert.Equal(t, DefaultBatchSize, acc.size)
	})
}
