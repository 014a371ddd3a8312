// Package query describes store-neutral filters and aggregation pipelines
// over the health_checks and incidents collections. Store adapters either
// compile them (SQL) or evaluate them in process (memory).
package query

import "time"

// Collection names.
const (
	HealthChecks = "health_checks"
	Incidents    = "incidents"
)

// Field names. Both collections share FieldService.
const (
	FieldService      = "service"
	FieldTimestamp    = "timestamp"
	FieldHealthy      = "is_healthy"
	FieldResponseTime = "response_time_ms"
	FieldStatusCode   = "status_code"
	FieldURL          = "url"
	FieldError        = "error"

	FieldStatus     = "status"
	FieldType       = "type"
	FieldStartedAt  = "started_at"
	FieldResolvedAt = "resolved_at"
)

type Op int

const (
	OpEq Op = iota
	OpGte
	OpLte
	OpPresent
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpGte:
		return ">="
	case OpLte:
		return "<="
	case OpPresent:
		return "present"
	}
	return "?"
}

// Cond is a single predicate on one field.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Filter is a conjunction of conditions. An empty filter matches everything.
type Filter []Cond

func Eq(field string, v any) Cond  { return Cond{Field: field, Op: OpEq, Value: v} }
func Gte(field string, v any) Cond { return Cond{Field: field, Op: OpGte, Value: v} }
func Lte(field string, v any) Cond { return Cond{Field: field, Op: OpLte, Value: v} }

// Present matches records where the field is set: non-null, and non-empty
// for strings.
func Present(field string) Cond { return Cond{Field: field, Op: OpPresent} }

// Between is the inclusive range start <= field <= end.
func Between(field string, start, end time.Time) Filter {
	return Filter{Gte(field, start), Lte(field, end)}
}

// Record is anything the in-process evaluator can read fields from.
// ok is false when the field is absent or null.
type Record interface {
	Field(name string) (v any, ok bool)
}
