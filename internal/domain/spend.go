package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DateLayout é o formato de data usado nas colunas date_start/date_stop
	DateLayout = "2006-01-02"
	// ClockLayout é o formato HH:MM:SS das janelas horárias
	ClockLayout = "15:04:05"
	// WindowSeparator separa início e fim em "HH:MM:SS - HH:MM:SS"
	WindowSeparator = " - "

	// SentinelAccountID marca a linha de semente da tabela de staging
	SentinelAccountID = "DUMMY"
)

// SentinelDate é a data usada quando o fuso da conta é desconhecido
var SentinelDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// SourceRecord representa uma linha de gasto horário vinda da fonte analítica.
// HourlyWindow está no fuso local de anúncios da conta.
type SourceRecord struct {
	DateStart       time.Time       `json:"date_start"`
	DateStop        time.Time       `json:"date_stop"`
	AccountID       string          `json:"account_id"`
	AccountName     string          `json:"account_name"`
	AccountCurrency string          `json:"account_currency"`
	CampaignID      string          `json:"campaign_id"`
	CampaignName    string          `json:"campaign_name"`
	AdSetID         string          `json:"ad_set_id"`
	AdSetName       string          `json:"ad_set_name"`
	AmountSpend     decimal.Decimal `json:"amount_spend"`
	HourlyWindow    string          `json:"hourly_window"`
}

// NormalizedRecord é a linha pronta para carga, com hora e janela no fuso canônico
type NormalizedRecord struct {
	DateStart       time.Time       `json:"date_start"`
	DateStop        time.Time       `json:"date_stop"`
	AccountID       string          `json:"account_id"`
	AccountName     string          `json:"account_name"`
	AccountCurrency string          `json:"account_currency"`
	CampaignID      string          `json:"campaign_id"`
	CampaignName    string          `json:"campaign_name"`
	AdSetID         string          `json:"ad_set_id"`
	AdSetName       string          `json:"ad_set_name"`
	AmountSpend     decimal.Decimal `json:"amount_spend"`
	Hour            string          `json:"hour"`
	SourceDatetime  time.Time       `json:"source_datetime"`
	PacificDatetime time.Time       `json:"pacific_datetime"`
	Timezone        string          `json:"timezone"`
	HourlyWindow    string          `json:"hourly_window"`

	// Chave da linha na fonte, usada pelo anti-join da extração
	SourceDate time.Time `json:"source_date"`
	SourceHour string    `json:"source_hour"`
}

// SpendKey é a chave lógica de deduplicação da tabela de destino
type SpendKey struct {
	AccountID string
	DateStart string
	Hour      string
}

// Key retorna a chave (account_id, date_start, hour) do registro
func (r NormalizedRecord) Key() SpendKey {
	return SpendKey{
		AccountID: r.AccountID,
		DateStart: r.DateStart.Format(DateLayout),
		Hour:      r.Hour,
	}
}

// SentinelRecord monta a linha de semente usada para que o staging nunca fique vazio
func SentinelRecord(canonical *time.Location) NormalizedRecord {
	return NormalizedRecord{
		DateStart:       SentinelDate,
		DateStop:        SentinelDate,
		AccountID:       SentinelAccountID,
		AccountName:     SentinelAccountID,
		AccountCurrency: SentinelAccountID,
		CampaignID:      SentinelAccountID,
		CampaignName:    SentinelAccountID,
		AdSetID:         SentinelAccountID,
		AdSetName:       SentinelAccountID,
		AmountSpend:     decimal.Zero,
		Hour:            "00:00:00",
		SourceDatetime:  SentinelDate,
		PacificDatetime: time.Date(1900, time.January, 1, 0, 0, 0, 0, canonical),
		Timezone:        "UTC",
		HourlyWindow:    "00:00:00" + WindowSeparator + "00:00:00",
		SourceDate:      SentinelDate,
		SourceHour:      "00:00:00",
	}
}
