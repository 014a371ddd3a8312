// Package metrics is the health-report engine: a catalog of independent
// read-only queries over the health_checks and incidents collections.
//
// Every method builds a query.Filter or query.Pipeline, runs it through the
// repo.Store it was given and decodes the result into typed values. Store
// failures are returned unchanged (they wrap repo.ErrStoreUnavailable); an
// empty result is never an error.
//
// Malformed-record policy: aggregates match only records whose grouping
// fields are present (service, plus timestamp where bucketed), so a record
// missing them is skipped rather than failing the query. Result rows that
// still cannot be decoded are logged with ErrMalformedRecord and dropped.
// Point queries return records exactly as stored.
package metrics

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/healthreport/internal/query"
	"github.com/hamed0406/healthreport/internal/repo"
)

var ErrMalformedRecord = errors.New("malformed record")

type Engine struct {
	store repo.Store
	log   *zap.Logger
	now   func() time.Time
}

func New(store repo.Store, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, log: log, now: time.Now}
}

// WithClock returns a copy of the engine reading time from now.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	cp := *e
	cp.now = now
	return &cp
}

// Now is the engine's time reference, taken fresh on each call.
func (e *Engine) Now() time.Time { return e.now().UTC() }

func (e *Engine) skip(op string, row query.Row, reason string) {
	e.log.Warn("metrics_row_skipped",
		zap.String("query", op),
		zap.String("reason", reason),
		zap.Any("keys", row.Keys),
		zap.Error(ErrMalformedRecord),
	)
}

func stringKey(row query.Row, name string) (string, bool) {
	v, ok := row.Keys[name]
	if !ok || v == nil {
		return "", false
	}
	s, ok := query.AsString(v)
	return s, ok && s != ""
}

func intValue(row query.Row, name string) (int64, bool) {
	v, ok := row.Lookup(name)
	if !ok || v == nil {
		return 0, false
	}
	return query.AsInt64(v)
}

func floatValue(row query.Row, name string) (float64, bool) {
	v, ok := row.Lookup(name)
	if !ok || v == nil {
		return 0, false
	}
	return query.AsFloat64(v)
}
