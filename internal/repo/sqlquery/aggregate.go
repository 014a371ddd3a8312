package sqlquery

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/hamed0406/healthreport/internal/query"
)

type columnRole int

const (
	roleKey columnRole = iota
	roleValue
)

// Column describes one output column of an aggregate statement so adapters
// can normalize driver values back into query.Row.
type Column struct {
	Name    string
	role    columnRole
	keyKind query.KeyKind
	accKind query.AccKind
	ratio   bool
}

// Plan is a compiled pipeline. The last selected column is the hidden
// first-row id used for tie-breaking and is not part of Columns.
type Plan struct {
	Statement
	Columns []Column
}

// Aggregate compiles p against table. Ties in the requested sort are broken
// by the smallest row id in each group, which reproduces the in-memory
// evaluator's first-encountered order.
func Aggregate(d Dialect, table string, p query.Pipeline) (Plan, error) {
	tbl, err := Quote(table)
	if err != nil {
		return Plan{}, err
	}
	b := &builder{d: d}
	where, err := b.where(p.Match)
	if err != nil {
		return Plan{}, err
	}

	var (
		selects []string
		groupBy []string
		cols    []Column
		exprs   = make(map[string]string)
	)
	for _, k := range p.GroupBy {
		col, err := Quote(k.Field)
		if err != nil {
			return Plan{}, err
		}
		alias, err := Quote(k.Name)
		if err != nil {
			return Plan{}, err
		}
		expr := col
		switch k.Kind {
		case query.KeyHour:
			expr = d.HourUTC(col)
		case query.KeyMinute:
			expr = d.MinuteUTC(col)
		}
		exprs[k.Name] = expr
		groupBy = append(groupBy, expr)
		selects = append(selects, expr+" AS "+alias)
		cols = append(cols, Column{Name: k.Name, role: roleKey, keyKind: k.Kind})
	}

	for _, a := range p.Accumulators {
		expr, err := accumulatorSQL(d, a)
		if err != nil {
			return Plan{}, err
		}
		alias, err := Quote(a.Name)
		if err != nil {
			return Plan{}, err
		}
		exprs[a.Name] = expr
		selects = append(selects, expr+" AS "+alias)
		cols = append(cols, Column{Name: a.Name, role: roleValue, accKind: a.Kind})
	}

	for _, r := range p.Ratios {
		num, ok1 := exprs[r.Numerator]
		den, ok2 := exprs[r.Denominator]
		if !ok1 || !ok2 {
			return Plan{}, fmt.Errorf("ratio %s references unknown accumulator", r.Name)
		}
		alias, err := Quote(r.Name)
		if err != nil {
			return Plan{}, err
		}
		scale := r.Scale
		if scale == 0 {
			scale = 1
		}
		expr := d.Ratio(num, den, literal(scale), r.Places)
		exprs[r.Name] = expr
		selects = append(selects, expr+" AS "+alias)
		cols = append(cols, Column{Name: r.Name, role: roleValue, ratio: true})
	}

	rowID, _ := Quote(RowIDColumn)
	selects = append(selects, fmt.Sprintf("MIN(%s) AS %q", rowID, firstIDAlias))

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s%s", strings.Join(selects, ", "), tbl, where)
	if len(groupBy) > 0 {
		sb.WriteString(" GROUP BY " + strings.Join(groupBy, ", "))
	}

	having := make([]string, 0, 2)
	if len(groupBy) == 0 {
		having = append(having, "COUNT(*) > 0")
	}
	if p.Having != nil {
		expr, ok := exprs[p.Having.Name]
		if !ok {
			return Plan{}, fmt.Errorf("having references unknown accumulator %s", p.Having.Name)
		}
		having = append(having, fmt.Sprintf("%s >= %s", expr, b.bind(p.Having.Min)))
	}
	if len(having) > 0 {
		sb.WriteString(" HAVING " + strings.Join(having, " AND "))
	}

	order := make([]string, 0, len(p.Sort)+1)
	for _, s := range p.Sort {
		expr, ok := exprs[s.Name]
		if !ok {
			return Plan{}, fmt.Errorf("sort references unknown column %s", s.Name)
		}
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		order = append(order, fmt.Sprintf("%s %s NULLS LAST", expr, dir))
	}
	order = append(order, fmt.Sprintf("%q ASC", firstIDAlias))
	sb.WriteString(" ORDER BY " + strings.Join(order, ", "))

	if p.Limit > 0 {
		sb.WriteString(" LIMIT " + b.bind(p.Limit))
	}
	return Plan{Statement: Statement{SQL: sb.String(), Args: b.args}, Columns: cols}, nil
}

func accumulatorSQL(d Dialect, a query.Accumulator) (string, error) {
	if a.Kind == query.AccCount {
		return "COUNT(*)", nil
	}
	col, err := Quote(a.Field)
	if err != nil {
		return "", err
	}
	switch a.Kind {
	case query.AccAvg:
		return fmt.Sprintf("CAST(AVG(%s) AS DOUBLE PRECISION)", col), nil
	case query.AccMax:
		return fmt.Sprintf("CAST(MAX(%s) AS DOUBLE PRECISION)", col), nil
	case query.AccCountTrue:
		return fmt.Sprintf("SUM(CASE WHEN %s THEN 1 ELSE 0 END)", col), nil
	case query.AccCountFalse:
		return fmt.Sprintf("SUM(CASE WHEN %s THEN 0 ELSE 1 END)", col), nil
	case query.AccDistinct:
		return d.DistinctSet(col), nil
	case query.AccAvgMinutes:
		until, err := Quote(a.Until)
		if err != nil {
			return "", err
		}
		return d.AvgMinutesBetween(col, until), nil
	}
	return "", fmt.Errorf("unsupported accumulator %d", a.Kind)
}

// DecodeRow normalizes one result row's driver values into a query.Row.
// vals must include the trailing hidden id column.
func (p Plan) DecodeRow(vals []any) (query.Row, error) {
	if len(vals) != len(p.Columns)+1 {
		return query.Row{}, fmt.Errorf("want %d columns, got %d", len(p.Columns)+1, len(vals))
	}
	row := query.Row{Keys: make(map[string]any), Values: make(map[string]any)}
	for i, c := range p.Columns {
		v, err := c.decode(vals[i])
		if err != nil {
			return query.Row{}, fmt.Errorf("column %s: %w", c.Name, err)
		}
		if c.role == roleKey {
			row.Keys[c.Name] = v
		} else {
			row.Values[c.Name] = v
		}
	}
	return row, nil
}

func (c Column) decode(v any) (any, error) {
	if c.role == roleKey {
		if v == nil {
			return nil, nil
		}
		switch c.keyKind {
		case query.KeyHour:
			n, ok := query.AsInt64(v)
			if !ok {
				return nil, fmt.Errorf("hour %v (%T) is not an integer", v, v)
			}
			return int(n), nil
		default:
			if s, ok := query.AsString(v); ok {
				return s, nil
			}
			return v, nil
		}
	}

	if c.ratio {
		return nullableFloat(v)
	}
	switch c.accKind {
	case query.AccCount, query.AccCountTrue, query.AccCountFalse:
		if v == nil {
			return int64(0), nil
		}
		n, ok := query.AsInt64(v)
		if !ok {
			return nil, fmt.Errorf("count %v (%T) is not an integer", v, v)
		}
		return n, nil
	case query.AccDistinct:
		return decodeSet(v)
	}
	return nullableFloat(v)
}

func decodeSet(v any) (any, error) {
	var out []string
	switch s := v.(type) {
	case nil:
	case []string:
		out = append(out, s...)
	case []any:
		for _, e := range s {
			str, ok := query.AsString(e)
			if !ok {
				return nil, fmt.Errorf("set member %v (%T) is not text", e, e)
			}
			out = append(out, str)
		}
	default:
		raw, ok := query.AsString(v)
		if !ok {
			return nil, fmt.Errorf("set %v (%T) is neither an array nor JSON", v, v)
		}
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, fmt.Errorf("decode set: %w", err)
		}
	}
	if out == nil {
		out = []string{}
	}
	sort.Strings(out)
	return out, nil
}

func nullableFloat(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	f, ok := query.AsFloat64(v)
	if !ok {
		return nil, fmt.Errorf("%v (%T) is not numeric", v, v)
	}
	return f, nil
}
