package metrics

import (
	"context"
	"time"

	"github.com/hamed0406/healthreport/internal/domain"
	"github.com/hamed0406/healthreport/internal/query"
)

func (e *Engine) ChecksForService(ctx context.Context, service string) ([]domain.HealthCheck, error) {
	return e.store.FindChecks(ctx, query.Filter{query.Eq(query.FieldService, service)})
}

func (e *Engine) UnhealthyChecks(ctx context.Context) ([]domain.HealthCheck, error) {
	return e.store.FindChecks(ctx, query.Filter{query.Eq(query.FieldHealthy, false)})
}

// ChecksInRange returns checks with start <= timestamp <= end.
func (e *Engine) ChecksInRange(ctx context.Context, start, end time.Time) ([]domain.HealthCheck, error) {
	return e.store.FindChecks(ctx, query.Between(query.FieldTimestamp, start, end))
}

func (e *Engine) CountForService(ctx context.Context, service string) (int64, error) {
	return e.store.CountChecks(ctx, query.Filter{query.Eq(query.FieldService, service)})
}

// CountPerService counts checks for each listed service, in list order.
// Unknown services report zero.
func (e *Engine) CountPerService(ctx context.Context, services ...string) ([]ServiceCount, error) {
	out := make([]ServiceCount, 0, len(services))
	for _, svc := range services {
		n, err := e.CountForService(ctx, svc)
		if err != nil {
			return nil, err
		}
		out = append(out, ServiceCount{Service: svc, Checks: n})
	}
	return out, nil
}
