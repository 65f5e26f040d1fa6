package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimezoneDirectoryRepository(t *testing.T) {
	ctx := context.Background()

	conn := newTestConnection(t)
	repo := NewTimezoneDirectoryRepository(conn, "mb_accountrelation_main")
	require.NoError(t, repo.EnsureSchema(ctx))

	require.NoError(t, repo.Upsert(ctx, "Conta A", "America/Sao_Paulo"))
	require.NoError(t, repo.Upsert(ctx, "Conta A", "America/New_York"))
	require.NoError(t, repo.Upsert(ctx, "Conta B", ""))

	_, err := conn.Exec(ctx, "INSERT INTO mb_accountrelation_main (ad_account_code, timezone) VALUES ('Conta C', NULL)")
	require.NoError(t, err)

	t.Run("devolve apenas contas com fuso", func(t *testing.T) {
		got, err := repo.GetTimezones(ctx, []string{"Conta A", "Conta B", "Conta C", "Conta D"})
		require.NoError(t, err)

		assert.Equal(t, map[string]string{"Conta A": "America/New_York"}, got)
	})

	t.Run("lista vazia não consulta o banco", func(t *testing.T) {
		got, err := repo.GetTimezones(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
