package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vfg2006/spend-reconciler/internal/domain"
)

type clickHouseSpendSource struct {
	conn   driver.Conn
	table  string
	mirror string
}

// NewClickHouseSpendSource lê a tabela bruta no ClickHouse. O anti-join usa
// mirror, uma tabela com engine PostgreSQL apontando para o destino.
func NewClickHouseSpendSource(conn driver.Conn, table, mirror string) SpendSource {
	return &clickHouseSpendSource{
		conn:   conn,
		table:  table,
		mirror: mirror,
	}
}

// pendingClickHouseQuery monta a página de linhas da tabela bruta sem
// correspondente em mirror pela chave de origem (conta, data, início da janela)
func pendingClickHouseQuery(table, mirror string, offset, limit int) (string, []any, error) {
	return squirrel.
		Select(
			"toString(toDate(r.date_start))",
			"toString(toDate(r.date_stop))",
			"toString(r.account_id)",
			"ifNull(toString(r.account_name), '')",
			"ifNull(toString(r.account_currency), '')",
			"ifNull(toString(r.campaign_id), '')",
			"ifNull(toString(r.campaign_name), '')",
			"ifNull(toString(r.ad_set_id), '')",
			"ifNull(toString(r.ad_set_name), '')",
			"ifNull(toString(r.amount_spend), '0')",
			"ifNull(toString(r."+rawWindowColumn+"), '')",
		).
		From(table + " AS r").
		JoinClause(fmt.Sprintf(
			"LEFT ANTI JOIN %s AS t ON t.account_id = toString(r.account_id) AND toDate(t.source_date) = toDate(r.date_start) AND t.source_hour = substring(r.%s, 1, 8)",
			mirror, rawWindowColumn,
		)).
		OrderBy("r.account_id", "r.date_start", "r."+rawWindowColumn, "r.campaign_id", "r.ad_set_id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(squirrel.Question).
		ToSql()
}

func (s *clickHouseSpendSource) FetchPending(ctx context.Context, offset, limit int) ([]domain.SourceRecord, error) {
	query, args, err := pendingClickHouseQuery(s.table, s.mirror, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("erro ao construir a query: %w", err)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("erro ao consultar a fonte de gastos no ClickHouse: %w", err)
	}
	defer rows.Close()

	var records []domain.SourceRecord
	for rows.Next() {
		var (
			rec                 domain.SourceRecord
			dateStart, dateStop string
			amount              string
		)

		err := rows.Scan(
			&dateStart,
			&dateStop,
			&rec.AccountID,
			&rec.AccountName,
			&rec.AccountCurrency,
			&rec.CampaignID,
			&rec.CampaignName,
			&rec.AdSetID,
			&rec.AdSetName,
			&amount,
			&rec.HourlyWindow,
		)
		if err != nil {
			return nil, fmt.Errorf("erro ao ler linha do ClickHouse: %w", err)
		}

		if rec.DateStart, err = time.Parse(domain.DateLayout, dateStart); err != nil {
			return nil, fmt.Errorf("date_start inválido %q: %w", dateStart, err)
		}

		if rec.DateStop, err = time.Parse(domain.DateLayout, dateStop); err != nil {
			logrus.Warnf("date_stop inválido %q para a conta %s, usando date_start", dateStop, rec.AccountID)
			rec.DateStop = rec.DateStart
		}

		if rec.AmountSpend, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("amount_spend inválido %q: %w", amount, err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar linhas do ClickHouse: %w", err)
	}

	return records, nil
}
