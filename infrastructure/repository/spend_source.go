package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"
	"github.com/vfg2006/spend-reconciler/infrastructure/database"
	"github.com/vfg2006/spend-reconciler/internal/domain"
)

// Coluna da janela horária no fuso local da conta, na tabela bruta
const rawWindowColumn = "hourly_stats_aggregated_by_advertiser_time_zone"

//go:generate mockgen -source=spend_source.go -destination=mocks/spend_source_mock.go -package=mocks

// SpendSource lê da fonte analítica as linhas de gasto que ainda não chegaram
// ao destino, em páginas de ordem estável.
type SpendSource interface {
	FetchPending(ctx context.Context, offset, limit int) ([]domain.SourceRecord, error)
}

type sqlSpendSource struct {
	conn        *database.Connection
	table       string
	targetTable string
}

// NewSQLSpendSource lê a tabela bruta no mesmo banco do destino
func NewSQLSpendSource(conn *database.Connection, table, targetTable string) SpendSource {
	return &sqlSpendSource{
		conn:        conn,
		table:       table,
		targetTable: targetTable,
	}
}

func (s *sqlSpendSource) FetchPending(ctx context.Context, offset, limit int) ([]domain.SourceRecord, error) {
	sqlQuery, args, err := squirrel.
		Select(
			"r.date_start",
			"r.date_stop",
			"CAST(r.account_id AS TEXT)",
			"r.account_name",
			"r.account_currency",
			"r.campaign_id",
			"r.campaign_name",
			"r.ad_set_id",
			"r.ad_set_name",
			"r.amount_spend",
			"r."+rawWindowColumn,
		).
		From(s.table+" r").
		LeftJoin(fmt.Sprintf(
			"%s t ON t.account_id = CAST(r.account_id AS TEXT) AND t.source_date = r.date_start AND t.source_hour = substr(r.%s, 1, 8)",
			s.targetTable, rawWindowColumn,
		)).
		Where("t.account_id IS NULL").
		OrderBy("r.account_id", "r.date_start", "r."+rawWindowColumn, "r.campaign_id", "r.ad_set_id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(s.conn.Dialect.Placeholder()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := s.conn.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao consultar a fonte de gastos: %w", database.DescribeError(err))
	}
	defer rows.Close()

	var records []domain.SourceRecord
	for rows.Next() {
		rec, err := scanSourceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("erro ao ler linha da fonte de gastos: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar linhas da fonte de gastos: %w", err)
	}

	return records, nil
}

func scanSourceRow(rows *sql.Rows) (domain.SourceRecord, error) {
	var (
		rec          domain.SourceRecord
		dateStart    database.NullableDate
		dateStop     database.NullableDate
		name         sql.NullString
		currency     sql.NullString
		campaignID   sql.NullString
		campaignName sql.NullString
		adSetID      sql.NullString
		adSetName    sql.NullString
		amount       decimal.NullDecimal
		window       sql.NullString
	)

	err := rows.Scan(
		&dateStart,
		&dateStop,
		&rec.AccountID,
		&name,
		&currency,
		&campaignID,
		&campaignName,
		&adSetID,
		&adSetName,
		&amount,
		&window,
	)
	if err != nil {
		return rec, err
	}

	rec.DateStart = dateStart.Time
	rec.DateStop = dateStop.Time
	rec.AccountName = name.String
	rec.AccountCurrency = currency.String
	rec.CampaignID = campaignID.String
	rec.CampaignName = campaignName.String
	rec.AdSetID = adSetID.String
	rec.AdSetName = adSetName.String
	rec.AmountSpend = amount.Decimal
	rec.HourlyWindow = window.String

	return rec, nil
}
