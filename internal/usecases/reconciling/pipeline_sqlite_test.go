package reconciling

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/spend-reconciler/infrastructure/database"
	"github.com/vfg2006/spend-reconciler/infrastructure/repository"
	"github.com/vfg2006/spend-reconciler/internal/domain"
	"github.com/vfg2006/spend-reconciler/pkg/retry"
)

const (
	e2eSourceTable    = "meta_hourly_spend"
	e2eStagingTable   = "spend_hourly_staging"
	e2eTargetTable    = "spend_hourly_normalized"
	e2eRunsTable      = "reconcile_runs"
	e2eDirectoryTable = "mb_accountrelation_main"
)

type sqliteFixture struct {
	conn      *database.Connection
	staging   repository.StagingRepository
	target    repository.TargetRepository
	runs      repository.RunRepository
	directory repository.TimezoneDirectoryRepository
	pipeline  *Pipeline
}

func newSQLiteFixture(t *testing.T, opts Options) *sqliteFixture {
	t.Helper()
	ctx := context.Background()

	conn, err := database.NewSQLiteConnection(ctx, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, err = conn.Exec(ctx, `
		CREATE TABLE `+e2eSourceTable+` (
			date_start TEXT,
			date_stop TEXT,
			account_id INTEGER,
			account_name TEXT,
			account_currency TEXT,
			campaign_id TEXT,
			campaign_name TEXT,
			ad_set_id TEXT,
			ad_set_name TEXT,
			amount_spend TEXT,
			hourly_stats_aggregated_by_advertiser_time_zone TEXT
		)`)
	require.NoError(t, err)

	f := &sqliteFixture{
		conn:      conn,
		staging:   repository.NewStagingRepository(conn, e2eStagingTable),
		target:    repository.NewTargetRepository(conn, e2eTargetTable, e2eStagingTable),
		runs:      repository.NewRunRepository(conn, e2eRunsTable),
		directory: repository.NewTimezoneDirectoryRepository(conn, e2eDirectoryTable),
	}
	require.NoError(t, f.directory.EnsureSchema(ctx))

	if opts.Canonical == nil {
		opts.Canonical = mustLocation(t, "America/Los_Angeles")
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.Policy{MaxAttempts: 1}
	}

	f.pipeline = NewPipeline(Dependencies{
		Locker:    conn,
		Staging:   f.staging,
		Target:    f.target,
		Runs:      f.runs,
		Source:    repository.NewSQLSpendSource(conn, e2eSourceTable, e2eTargetTable),
		Directory: f.directory,
	}, opts)

	return f
}

func (f *sqliteFixture) insertSource(t *testing.T, accountID int, accountName, date, campaignID, window string) {
	t.Helper()
	_, err := f.conn.Exec(context.Background(), `
		INSERT INTO `+e2eSourceTable+` VALUES (?, ?, ?, ?, 'USD', ?, 'Campanha', 'as1', 'Conjunto', '10.50', ?)`,
		date, date, accountID, accountName, campaignID, window)
	require.NoError(t, err)
}

func TestPipeline_RunSQLite(t *testing.T) {
	ctx := context.Background()

	t.Run("duas contas, uma resolvida e outra não, geram duas linhas no destino", func(t *testing.T) {
		f := newSQLiteFixture(t, Options{PageSize: 1})

		require.NoError(t, f.directory.Upsert(ctx, "Conta A", "America/New_York"))
		f.insertSource(t, 1001, "Conta A", "2024-06-01", "c1", "09:00:00 - 10:00:00")
		f.insertSource(t, 1002, "Conta B", "2024-06-01", "c1", "09:00:00 - 10:00:00")

		report, err := f.pipeline.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.RunStateDone, report.State)
		assert.Equal(t, 2, report.Extracted)
		assert.Equal(t, 1, report.Fallback)
		assert.Equal(t, int64(2), report.Merged)

		count, err := f.target.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		resolved, err := f.target.ListByAccount(ctx, "1001")
		require.NoError(t, err)
		require.Len(t, resolved, 1)
		assert.Equal(t, "2024-06-01", resolved[0].DateStart.Format(domain.DateLayout))
		assert.Equal(t, "06:00:00", resolved[0].Hour)
		assert.Equal(t, "06:00:00 - 07:00:00", resolved[0].HourlyWindow)
		assert.Equal(t, "America/New_York", resolved[0].Timezone)
		assert.Equal(t, "10.5", resolved[0].AmountSpend.String())

		fallback, err := f.target.ListByAccount(ctx, "1002")
		require.NoError(t, err)
		require.Len(t, fallback, 1)
		assert.Equal(t, "1900-01-01", fallback[0].DateStart.Format(domain.DateLayout))
		assert.Equal(t, "09:00:00", fallback[0].Hour)
		assert.Equal(t, "2024-06-01", fallback[0].SourceDate.Format(domain.DateLayout))

		staged, err := f.staging.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, staged)

		runs, err := f.runs.ListRecent(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 1)
		assert.Equal(t, report.ID, runs[0].ID)
		assert.Equal(t, domain.RunStateDone, runs[0].State)
		assert.Equal(t, int64(2), runs[0].Merged)
	})

	t.Run("segunda execução não extrai nem insere nada", func(t *testing.T) {
		f := newSQLiteFixture(t, Options{})

		require.NoError(t, f.directory.Upsert(ctx, "Conta A", "America/New_York"))
		f.insertSource(t, 1001, "Conta A", "2024-06-01", "c1", "09:00:00 - 10:00:00")
		f.insertSource(t, 1002, "Conta B", "2024-06-01", "c1", "09:00:00 - 10:00:00")

		_, err := f.pipeline.Run(ctx)
		require.NoError(t, err)

		report, err := f.pipeline.Run(ctx)
		require.NoError(t, err)
		assert.Zero(t, report.Extracted)
		assert.Zero(t, report.Merged)

		count, err := f.target.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("campanhas na mesma hora viram uma única linha", func(t *testing.T) {
		f := newSQLiteFixture(t, Options{})

		require.NoError(t, f.directory.Upsert(ctx, "Conta A", "UTC"))
		f.insertSource(t, 1001, "Conta A", "2024-06-01", "c1", "09:00:00 - 10:00:00")
		f.insertSource(t, 1001, "Conta A", "2024-06-01", "c2", "09:00:00 - 10:00:00")
		f.insertSource(t, 1001, "Conta A", "2024-06-01", "c1", "10:00:00 - 11:00:00")

		report, err := f.pipeline.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, report.Staged)
		assert.Equal(t, int64(2), report.Merged)

		rows, err := f.target.ListByAccount(ctx, "1001")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "c1", rows[0].CampaignID)

		report, err = f.pipeline.Run(ctx)
		require.NoError(t, err)
		assert.Zero(t, report.Extracted)
	})

	t.Run("nova hora chega depois e só ela é inserida", func(t *testing.T) {
		f := newSQLiteFixture(t, Options{})

		f.insertSource(t, 1001, "Conta A", "2024-06-01", "c1", "09:00:00 - 10:00:00")
		_, err := f.pipeline.Run(ctx)
		require.NoError(t, err)

		f.insertSource(t, 1001, "Conta A", "2024-06-01", "c1", "10:00:00 - 11:00:00")
		report, err := f.pipeline.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Extracted)
		assert.Equal(t, int64(1), report.Merged)

		count, err := f.target.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("linha sentinela nunca chega ao destino", func(t *testing.T) {
		f := newSQLiteFixture(t, Options{SeedSentinelRow: true})

		report, err := f.pipeline.Run(ctx)
		require.NoError(t, err)
		assert.True(t, report.Succeeded())

		rows, err := f.target.ListByAccount(ctx, domain.SentinelAccountID)
		require.NoError(t, err)
		assert.Empty(t, rows)

		staged, err := f.staging.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, staged)
	})

	t.Run("execução concorrente é recusada", func(t *testing.T) {
		f := newSQLiteFixture(t, Options{})

		release, acquired, err := f.conn.TryLock(ctx, runLockKey)
		require.NoError(t, err)
		require.True(t, acquired)
		defer release()

		_, err = f.pipeline.Run(ctx)
		assert.ErrorIs(t, err, ErrRunInProgress)
	})
}
