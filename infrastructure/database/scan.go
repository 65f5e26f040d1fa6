package database

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// NullableDate lê colunas de data que chegam como time.Time (Postgres)
// ou como texto (SQLite).
type NullableDate struct {
	Time  time.Time
	Valid bool
}

func (d *NullableDate) Scan(value interface{}) error {
	t, ok, err := scanTime(value, "2006-01-02")
	if err != nil {
		return err
	}
	d.Time, d.Valid = t, ok
	return nil
}

// NullableTimestamp lê timestamps com fuso em ambos os dialetos
type NullableTimestamp struct {
	Time  time.Time
	Valid bool
}

func (ts *NullableTimestamp) Scan(value interface{}) error {
	t, ok, err := scanTime(value, time.RFC3339Nano)
	if err != nil {
		return err
	}
	ts.Time, ts.Valid = t, ok
	return nil
}

func (ts NullableTimestamp) Value() (driver.Value, error) {
	if !ts.Valid {
		return nil, nil
	}
	return FormatTimestamp(ts.Time), nil
}

// FormatTimestamp serializa um instante no formato canônico de escrita (UTC, RFC3339)
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func scanTime(value interface{}, layout string) (time.Time, bool, error) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return v, true, nil
	case []byte:
		return parseTime(string(v), layout)
	case string:
		return parseTime(v, layout)
	default:
		return time.Time{}, false, fmt.Errorf("tipo não suportado para data: %T", value)
	}
}

func parseTime(s, layout string) (time.Time, bool, error) {
	if s == "" {
		return time.Time{}, false, nil
	}

	layouts := []string{layout, time.RFC3339Nano, "2006-01-02 15:04:05-07:00", "2006-01-02 15:04:05", "2006-01-02"}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true, nil
		}
	}

	return time.Time{}, false, fmt.Errorf("não foi possível interpretar a data %q", s)
}
