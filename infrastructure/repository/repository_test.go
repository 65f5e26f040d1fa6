package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/spend-reconciler/infrastructure/database"
	"github.com/vfg2006/spend-reconciler/internal/domain"
)

const (
	testStagingTable = "spend_hourly_staging"
	testTargetTable  = "spend_hourly_normalized"
)

func newTestConnection(t *testing.T) *database.Connection {
	t.Helper()

	conn, err := database.NewSQLiteConnection(context.Background(), "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func pacificLocation(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)
	return loc
}

func normalizedRecord(accountID, date, hour, amount string) domain.NormalizedRecord {
	day, _ := time.Parse(domain.DateLayout, date)
	clock, _ := time.Parse(domain.ClockLayout, hour)
	instant := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC)

	return domain.NormalizedRecord{
		DateStart:       day,
		DateStop:        day,
		AccountID:       accountID,
		AccountName:     "Conta " + accountID,
		AccountCurrency: "USD",
		CampaignID:      "c1",
		CampaignName:    "Campanha",
		AdSetID:         "as1",
		AdSetName:       "Conjunto",
		AmountSpend:     decimal.RequireFromString(amount),
		Hour:            hour,
		SourceDatetime:  instant,
		PacificDatetime: instant,
		Timezone:        "UTC",
		HourlyWindow:    hour + domain.WindowSeparator + hour,
		SourceDate:      day,
		SourceHour:      hour,
	}
}
