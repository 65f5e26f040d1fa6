package reconciling

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/sirupsen/logrus"
	"github.com/vfg2006/spend-reconciler/internal/domain"
)

// Clock é um horário de parede HH:MM:SS, sem data nem fuso
type Clock struct {
	Hour   int
	Minute int
	Second int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// On ancora o horário na data informada, no fuso loc. Nas trocas de horário
// de verão vale o instante posterior à transição: um horário pulado avança
// pela diferença de offset e um horário repetido usa a segunda ocorrência.
func (c Clock) On(date time.Time, loc *time.Location) time.Time {
	t := time.Date(date.Year(), date.Month(), date.Day(), c.Hour, c.Minute, c.Second, 0, loc)
	want := time.Date(date.Year(), date.Month(), date.Day(), c.Hour, c.Minute, c.Second, 0, time.UTC)

	if gap := want.Sub(wallClock(t)); gap != 0 {
		return t.Add(gap)
	}

	_, offset := t.Zone()
	if _, end := t.ZoneBounds(); !end.IsZero() {
		_, next := end.Zone()
		if offset > next {
			later := t.Add(time.Duration(offset-next) * time.Second)
			if wallClock(later).Equal(want) {
				return later
			}
		}
	}

	return t
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// ParseWindow separa "HH:MM:SS - HH:MM:SS" em início e fim
func ParseWindow(window string) (Clock, Clock, error) {
	parts := strings.Split(strings.TrimSpace(window), domain.WindowSeparator)
	if len(parts) != 2 {
		return Clock{}, Clock{}, fmt.Errorf("%w: %q", ErrInvalidWindow, window)
	}

	start, err := parseClock(parts[0])
	if err != nil {
		return Clock{}, Clock{}, fmt.Errorf("%w: %q: %v", ErrInvalidWindow, window, err)
	}

	end, err := parseClock(parts[1])
	if err != nil {
		return Clock{}, Clock{}, fmt.Errorf("%w: %q: %v", ErrInvalidWindow, window, err)
	}

	return start, end, nil
}

func parseClock(s string) (Clock, error) {
	fields := strings.Split(strings.TrimSpace(s), ":")
	if len(fields) != 3 {
		return Clock{}, fmt.Errorf("horário %q fora do formato HH:MM:SS", s)
	}

	limits := [3]int{23, 59, 59}
	var values [3]int
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil || len(f) != 2 {
			return Clock{}, fmt.Errorf("campo %q inválido em %q", f, s)
		}
		if v < 0 || v > limits[i] {
			return Clock{}, fmt.Errorf("campo %q fora do intervalo em %q", f, s)
		}
		values[i] = v
	}

	return Clock{Hour: values[0], Minute: values[1], Second: values[2]}, nil
}

// Normalizer converte a janela horária do fuso da conta para o fuso canônico
type Normalizer struct {
	canonical *time.Location

	mu        sync.Mutex
	locations map[string]*time.Location
}

func NewNormalizer(canonical *time.Location) *Normalizer {
	return &Normalizer{
		canonical: canonical,
		locations: make(map[string]*time.Location),
	}
}

// Normalize gera o registro de carga. Com fuso resolvido, a data e o início
// da janela viram um instante no fuso da conta, convertido para o canônico.
// Sem fuso, os horários são lidos como horário canônico na data sentinela,
// sem conversão, e date_start passa a ser a data sentinela.
func (n *Normalizer) Normalize(rec domain.SourceRecord, tz string, resolved bool) (domain.NormalizedRecord, error) {
	if rec.AccountID == domain.SentinelAccountID {
		return domain.NormalizedRecord{}, fmt.Errorf("%w: %q", ErrReservedAccount, rec.AccountID)
	}

	start, end, err := ParseWindow(rec.HourlyWindow)
	if err != nil {
		return domain.NormalizedRecord{}, err
	}

	out := domain.NormalizedRecord{
		DateStop:        rec.DateStop,
		AccountID:       rec.AccountID,
		AccountName:     rec.AccountName,
		AccountCurrency: rec.AccountCurrency,
		CampaignID:      rec.CampaignID,
		CampaignName:    rec.CampaignName,
		AdSetID:         rec.AdSetID,
		AdSetName:       rec.AdSetName,
		AmountSpend:     rec.AmountSpend,
		SourceDate:      rec.DateStart,
		SourceHour:      start.String(),
	}

	if resolved {
		loc, err := n.location(tz)
		if err == nil {
			sourceStart := start.On(rec.DateStart, loc)
			canonicalStart := sourceStart.In(n.canonical)
			canonicalEnd := end.On(rec.DateStart, loc).In(n.canonical)

			out.DateStart = rec.DateStart
			out.SourceDatetime = sourceStart
			out.PacificDatetime = canonicalStart
			out.Timezone = tz
			out.Hour = canonicalStart.Format(domain.ClockLayout)
			out.HourlyWindow = out.Hour + domain.WindowSeparator + canonicalEnd.Format(domain.ClockLayout)

			return out, nil
		}

		logrus.WithField("account_id", rec.AccountID).Warnf("Fuso %q não carregado, usando fallback: %v", tz, err)
	}

	sentinelStart := start.On(domain.SentinelDate, n.canonical)

	out.DateStart = domain.SentinelDate
	out.SourceDatetime = sentinelStart
	out.PacificDatetime = sentinelStart
	out.Timezone = n.canonical.String()
	out.Hour = start.String()
	out.HourlyWindow = start.String() + domain.WindowSeparator + end.String()

	return out, nil
}

func (n *Normalizer) location(name string) (*time.Location, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if loc, ok := n.locations[name]; ok {
		return loc, nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}

	n.locations[name] = loc
	return loc, nil
}
