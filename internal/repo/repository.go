package repo

import (
	"context"
	"errors"

	"github.com/hamed0406/healthreport/internal/domain"
	"github.com/hamed0406/healthreport/internal/query"
)

// ErrStoreUnavailable marks failures reaching the record store: connect,
// ping, or a query the session could not run. Adapters wrap it with %w.
var ErrStoreUnavailable = errors.New("record store unavailable")

// Ports. The metrics engine only reads through these.
type CheckReader interface {
	FindChecks(ctx context.Context, f query.Filter) ([]domain.HealthCheck, error)
	CountChecks(ctx context.Context, f query.Filter) (int64, error)
	AggregateChecks(ctx context.Context, p query.Pipeline) ([]query.Row, error)
}

type IncidentReader interface {
	FindIncidents(ctx context.Context, f query.Filter) ([]domain.Incident, error)
	AggregateIncidents(ctx context.Context, p query.Pipeline) ([]query.Row, error)
}

// Store is a connected session owned by the caller for one report run.
type Store interface {
	CheckReader
	IncidentReader
	Ping(ctx context.Context) error
	Close() error
}
