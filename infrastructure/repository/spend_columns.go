package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"
	"github.com/vfg2006/spend-reconciler/infrastructure/database"
	"github.com/vfg2006/spend-reconciler/internal/domain"
)

// Coluna da janela horária no fuso canônico, com o nome herdado da tabela legada
const hourlyWindowColumn = "dimension__hourly_stats_aggregated_by_advertiser_time_zone"

// spendColumns é a ordem de colunas compartilhada por staging e destino
var spendColumns = []string{
	"date_start",
	"date_stop",
	"account_currency",
	"account_id",
	"account_name",
	"ad_set_id",
	"ad_set_name",
	"campaign_id",
	"campaign_name",
	"amount_spend",
	"hour",
	"source_datetime",
	"timezone",
	"pacific_datetime",
	hourlyWindowColumn,
	"source_date",
	"source_hour",
}

// spendColumnsDDL monta a definição das colunas de gasto para o dialeto
func spendColumnsDDL(types database.ColumnTypes) string {
	defs := []string{
		"date_start " + types.Date + " NOT NULL",
		"date_stop " + types.Date,
		"account_currency " + types.Text,
		"account_id " + types.Text + " NOT NULL",
		"account_name " + types.Text,
		"ad_set_id " + types.Text,
		"ad_set_name " + types.Text,
		"campaign_id " + types.Text,
		"campaign_name " + types.Text,
		"amount_spend " + types.Numeric,
		"hour " + types.Text + " NOT NULL",
		"source_datetime " + types.Timestamp,
		"timezone " + types.Text,
		"pacific_datetime " + types.Timestamp,
		hourlyWindowColumn + " " + types.Text,
		"source_date " + types.Date,
		"source_hour " + types.Text,
	}
	return strings.Join(defs, ",\n\t\t\t")
}

// spendRowValues serializa o registro no formato de escrita: datas ISO e timestamps em UTC RFC3339
func spendRowValues(r domain.NormalizedRecord) []interface{} {
	return []interface{}{
		r.DateStart.Format(domain.DateLayout),
		r.DateStop.Format(domain.DateLayout),
		r.AccountCurrency,
		r.AccountID,
		r.AccountName,
		r.AdSetID,
		r.AdSetName,
		r.CampaignID,
		r.CampaignName,
		r.AmountSpend.String(),
		r.Hour,
		database.FormatTimestamp(r.SourceDatetime),
		r.Timezone,
		database.FormatTimestamp(r.PacificDatetime),
		r.HourlyWindow,
		r.SourceDate.Format(domain.DateLayout),
		r.SourceHour,
	}
}

func prefixColumns(prefix string, columns []string) []string {
	prefixed := make([]string, len(columns))
	for i, c := range columns {
		prefixed[i] = prefix + c
	}
	return prefixed
}

func scanSpendRow(rows *sql.Rows) (domain.NormalizedRecord, error) {
	var (
		rec             domain.NormalizedRecord
		dateStart       database.NullableDate
		dateStop        database.NullableDate
		sourceDate      database.NullableDate
		sourceDatetime  database.NullableTimestamp
		pacificDatetime database.NullableTimestamp
		currency        sql.NullString
		name            sql.NullString
		adSetID         sql.NullString
		adSetName       sql.NullString
		campaignID      sql.NullString
		campaignName    sql.NullString
		tz              sql.NullString
		window          sql.NullString
		sourceHour      sql.NullString
		amount          decimal.NullDecimal
	)

	err := rows.Scan(
		&dateStart,
		&dateStop,
		&currency,
		&rec.AccountID,
		&name,
		&adSetID,
		&adSetName,
		&campaignID,
		&campaignName,
		&amount,
		&rec.Hour,
		&sourceDatetime,
		&tz,
		&pacificDatetime,
		&window,
		&sourceDate,
		&sourceHour,
	)
	if err != nil {
		return rec, err
	}

	rec.DateStart = dateStart.Time
	rec.DateStop = dateStop.Time
	rec.AccountCurrency = currency.String
	rec.AccountName = name.String
	rec.AdSetID = adSetID.String
	rec.AdSetName = adSetName.String
	rec.CampaignID = campaignID.String
	rec.CampaignName = campaignName.String
	rec.AmountSpend = amount.Decimal
	rec.SourceDatetime = sourceDatetime.Time
	rec.Timezone = tz.String
	rec.PacificDatetime = pacificDatetime.Time
	rec.HourlyWindow = window.String
	rec.SourceDate = sourceDate.Time
	rec.SourceHour = sourceHour.String

	return rec, nil
}

// execStatements executa DDLs em sequência, parando no primeiro erro
func execStatements(ctx context.Context, conn *database.Connection, statements ...string) error {
	for _, stmt := range statements {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("erro ao executar DDL: %w", database.DescribeError(err))
		}
	}
	return nil
}

func countRows(ctx context.Context, q database.Executor, dialect database.Dialect, table string) (int64, error) {
	query, args, err := squirrel.Select("COUNT(*)").
		From(table).
		PlaceholderFormat(dialect.Placeholder()).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("erro ao construir a query: %w", err)
	}

	var count int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("erro ao contar linhas de %s: %w", table, err)
	}

	return count, nil
}
