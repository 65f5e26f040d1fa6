package reconciling

import (
	"context"

	"github.com/vfg2006/spend-reconciler/internal/domain"
)

// DefaultBatchSize é o limite de registros por carga na staging
const DefaultBatchSize = 10000

// FlushFunc recebe um lote completo, na ordem em que os registros chegaram
type FlushFunc func(ctx context.Context, batch []domain.NormalizedRecord) error

// Accumulator agrupa registros normalizados e entrega lotes de tamanho fixo
type Accumulator struct {
	size   int
	flush  FlushFunc
	buffer []domain.NormalizedRecord

	batches int
	flushed int
}

func NewAccumulator(size int, flush FlushFunc) *Accumulator {
	if size <= 0 {
		size = DefaultBatchSize
	}

	return &Accumulator{
		size:   size,
		flush:  flush,
		buffer: make([]domain.NormalizedRecord, 0, size),
	}
}

// Add inclui o registro e descarrega o buffer se ele atingiu o limite
func (a *Accumulator) Add(ctx context.Context, rec domain.NormalizedRecord) error {
	a.buffer = append(a.buffer, rec)
	return a.FlushIfFull(ctx)
}

func (a *Accumulator) FlushIfFull(ctx context.Context) error {
	if len(a.buffer) < a.size {
		return nil
	}
	return a.flushBuffer(ctx)
}

// FlushRemainder descarrega o que sobrou; buffer vazio não gera chamada
func (a *Accumulator) FlushRemainder(ctx context.Context) error {
	if len(a.buffer) == 0 {
		return nil
	}
	return a.flushBuffer(ctx)
}

// O buffer é trocado antes da entrega, então um lote nunca é reenviado
func (a *Accumulator) flushBuffer(ctx context.Context) error {
	batch := a.buffer
	a.buffer = make([]domain.NormalizedRecord, 0, a.size)

	a.batches++
	a.flushed += len(batch)

	return a.flush(ctx, batch)
}

// Pending retorna quantos registros aguardam descarga
func (a *Accumulator) Pending() int {
	return len(a.buffer)
}

func (a *Accumulator) Batches() int {
	return a.batches
}

func (a *Accumulator) Flushed() int {
	return a.flushed
}
