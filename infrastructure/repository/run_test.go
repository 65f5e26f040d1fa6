package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/spend-reconciler/internal/domain"
)

func TestRunRepository(t *testing.T) {
	ctx := context.Background()

	repo := NewRunRepository(newTestConnection(t), "reconcile_runs")
	require.NoError(t, repo.EnsureSchema(ctx))

	older := domain.NewRunReport("run001", time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Save(ctx, older))

	newer := domain.NewRunReport("run002", time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Save(ctx, newer))

	// Atualização da mesma execução ao final
	newer.State = domain.RunStateMerge
	newer.FinishedAt = newer.StartedAt.Add(90 * time.Second)
	newer.Merged = 42
	newer.FailedBatches = 1
	newer.Error = "MERGE: falha"
	require.NoError(t, repo.Save(ctx, newer))

	reports, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, "run002", reports[0].ID)
	assert.Equal(t, domain.RunStateMerge, reports[0].State)
	assert.Equal(t, int64(42), reports[0].Merged)
	assert.Equal(t, 1, reports[0].FailedBatches)
	assert.Equal(t, "MERGE: falha", reports[0].Error)
	assert.Equal(t, 90*time.Second, reports[0].Duration())

	assert.Equal(t, "run001", reports[1].ID)
	assert.Equal(t, domain.RunStateInit, reports[1].State)
	assert.True(t, reports[1].FinishedAt.IsZero())

	limited, err := repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
