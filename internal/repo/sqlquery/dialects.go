package sqlquery

import (
	"fmt"
	"time"
)

// Postgres expects TIMESTAMPTZ time columns. Hour and minute keys are taken
// after converting to UTC, regardless of the session time zone.
type Postgres struct{}

func (Postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (Postgres) HourUTC(col string) string {
	return fmt.Sprintf("CAST(EXTRACT(HOUR FROM %s AT TIME ZONE 'UTC') AS INTEGER)", col)
}

func (Postgres) MinuteUTC(col string) string {
	return fmt.Sprintf("to_char(%s AT TIME ZONE 'UTC', 'YYYY-MM-DD HH24:MI')", col)
}

func (Postgres) CompareTime(col, op, ph string) string {
	return fmt.Sprintf("%s %s %s", col, op, ph)
}

func (Postgres) DistinctSet(col string) string {
	return fmt.Sprintf("array_agg(DISTINCT %s ORDER BY %s)", col, col)
}

func (Postgres) AvgMinutesBetween(from, until string) string {
	return fmt.Sprintf("CAST(AVG(EXTRACT(EPOCH FROM (%s - %s)) / 60.0) AS DOUBLE PRECISION)", until, from)
}

func (Postgres) Ratio(num, den, scale string, places int) string {
	return fmt.Sprintf("CAST(ROUND(CAST(%s * %s AS NUMERIC) / NULLIF(%s, 0), %d) AS DOUBLE PRECISION)", scale, num, den, places)
}

func (Postgres) BindTime(t time.Time) any { return t.UTC() }

// SQLite stores times as text with a zone offset, as written by
// mattn/go-sqlite3. strftime and julianday normalize those to UTC.
type SQLite struct{}

func (SQLite) Placeholder(int) string { return "?" }

func (SQLite) HourUTC(col string) string {
	return fmt.Sprintf("CAST(strftime('%%H', %s) AS INTEGER)", col)
}

func (SQLite) MinuteUTC(col string) string {
	return fmt.Sprintf("strftime('%%Y-%%m-%%d %%H:%%M', %s)", col)
}

func (SQLite) CompareTime(col, op, ph string) string {
	return fmt.Sprintf("julianday(%s) %s julianday(%s)", col, op, ph)
}

func (SQLite) DistinctSet(col string) string {
	return fmt.Sprintf("json_group_array(DISTINCT %s)", col)
}

func (SQLite) AvgMinutesBetween(from, until string) string {
	return fmt.Sprintf("AVG((julianday(%s) - julianday(%s)) * 1440.0)", until, from)
}

func (SQLite) Ratio(num, den, scale string, places int) string {
	return fmt.Sprintf("ROUND((%s * %s) / NULLIF(%s, 0), %d)", scale, num, den, places)
}

func (SQLite) BindTime(t time.Time) any { return t.UTC() }
