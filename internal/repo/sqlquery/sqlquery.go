// Package sqlquery compiles query filters and pipelines into SQL for the
// relational store adapters. Dialects cover the differences in placeholder
// syntax, UTC time extraction and set aggregation.
package sqlquery

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hamed0406/healthreport/internal/query"
)

// Dialect renders the store-specific fragments of a statement.
type Dialect interface {
	Placeholder(n int) string
	HourUTC(col string) string
	MinuteUTC(col string) string
	CompareTime(col, op, placeholder string) string
	// DistinctSet aggregates the distinct values of col into an array
	// (Postgres) or a JSON array (SQLite); DecodeRow accepts either.
	DistinctSet(col string) string
	AvgMinutesBetween(from, until string) string
	Ratio(num, den, scale string, places int) string
	BindTime(t time.Time) any
}

// RowIDColumn is the insertion-ordered surrogate key both schemas carry.
// It defines store-native order.
const RowIDColumn = "id"

const firstIDAlias = "_first_id"

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// textFields get an extra non-empty check for query.Present.
var textFields = map[string]bool{
	query.FieldService: true,
	query.FieldURL:     true,
	query.FieldError:   true,
	query.FieldStatus:  true,
	query.FieldType:    true,
}

// Quote validates and double-quotes an identifier.
func Quote(ident string) (string, error) {
	if !identRe.MatchString(ident) {
		return "", fmt.Errorf("invalid identifier %q", ident)
	}
	return `"` + ident + `"`, nil
}

type Statement struct {
	SQL  string
	Args []any
}

type builder struct {
	d    Dialect
	args []any
}

func (b *builder) bind(v any) string {
	if t, ok := v.(time.Time); ok {
		v = b.d.BindTime(t)
	}
	b.args = append(b.args, v)
	return b.d.Placeholder(len(b.args))
}

func (b *builder) where(f query.Filter) (string, error) {
	if len(f) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(f))
	for _, c := range f {
		col, err := Quote(c.Field)
		if err != nil {
			return "", err
		}
		switch c.Op {
		case query.OpPresent:
			if textFields[c.Field] {
				parts = append(parts, fmt.Sprintf("(%s IS NOT NULL AND %s <> '')", col, col))
			} else {
				parts = append(parts, col+" IS NOT NULL")
			}
		case query.OpEq, query.OpGte, query.OpLte:
			ph := b.bind(c.Value)
			if _, isTime := c.Value.(time.Time); isTime {
				parts = append(parts, b.d.CompareTime(col, c.Op.String(), ph))
			} else {
				parts = append(parts, fmt.Sprintf("%s %s %s", col, c.Op, ph))
			}
		default:
			return "", fmt.Errorf("unsupported operator %v on %s", c.Op, c.Field)
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

// Find selects columns in store-native order.
func Find(d Dialect, table string, columns []string, f query.Filter) (Statement, error) {
	tbl, err := Quote(table)
	if err != nil {
		return Statement{}, err
	}
	cols := make([]string, len(columns))
	for i, c := range columns {
		if cols[i], err = Quote(c); err != nil {
			return Statement{}, err
		}
	}
	b := &builder{d: d}
	where, err := b.where(f)
	if err != nil {
		return Statement{}, err
	}
	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %q", strings.Join(cols, ", "), tbl, where, RowIDColumn)
	return Statement{SQL: sql, Args: b.args}, nil
}

func Count(d Dialect, table string, f query.Filter) (Statement, error) {
	tbl, err := Quote(table)
	if err != nil {
		return Statement{}, err
	}
	b := &builder{d: d}
	where, err := b.where(f)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "SELECT COUNT(*) FROM " + tbl + where, Args: b.args}, nil
}

func literal(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
