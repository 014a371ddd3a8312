package metrics

import (
	"context"

	"github.com/hamed0406/healthreport/internal/domain"
	"github.com/hamed0406/healthreport/internal/query"
)

func (e *Engine) ActiveIncidents(ctx context.Context) ([]domain.Incident, error) {
	return e.store.FindIncidents(ctx, query.Filter{query.Eq(query.FieldStatus, string(domain.IncidentActive))})
}

// MostIncidentsService returns the service with the most incidents, or nil
// when there are none. Equal counts go to the service seen first.
func (e *Engine) MostIncidentsService(ctx context.Context) (*ServiceIncidents, error) {
	const op = "most_incidents"
	rows, err := e.store.AggregateIncidents(ctx, query.Pipeline{
		Match:        query.Filter{query.Present(query.FieldService)},
		GroupBy:      []query.Key{query.ByField(query.FieldService)},
		Accumulators: []query.Accumulator{query.Count("incident_count")},
		Sort:         []query.SortKey{query.Desc("incident_count")},
		Limit:        1,
	})
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		svc, ok := stringKey(row, query.FieldService)
		if !ok {
			e.skip(op, row, "missing service")
			continue
		}
		n, ok := intValue(row, "incident_count")
		if !ok || n < 1 {
			continue
		}
		return &ServiceIncidents{Service: svc, IncidentCount: n}, nil
	}
	return nil, nil
}

// AverageIncidentDuration is the mean minutes from start to resolution of
// resolved incidents, per service, in store order.
func (e *Engine) AverageIncidentDuration(ctx context.Context) ([]ServiceDuration, error) {
	const op = "average_incident_duration"
	rows, err := e.store.AggregateIncidents(ctx, query.Pipeline{
		Match: query.Filter{
			query.Eq(query.FieldStatus, string(domain.IncidentResolved)),
			query.Present(query.FieldService),
			query.Present(query.FieldStartedAt),
			query.Present(query.FieldResolvedAt),
		},
		GroupBy: []query.Key{query.ByField(query.FieldService)},
		Accumulators: []query.Accumulator{
			query.AvgMinutesBetween("avg_duration_min", query.FieldStartedAt, query.FieldResolvedAt),
		},
	})
	if err != nil {
		return nil, err
	}
	out := make([]ServiceDuration, 0, len(rows))
	for _, row := range rows {
		svc, ok := stringKey(row, query.FieldService)
		if !ok {
			e.skip(op, row, "missing service")
			continue
		}
		avg, ok := floatValue(row, "avg_duration_min")
		if !ok {
			continue
		}
		out = append(out, ServiceDuration{Service: svc, AvgDurationMin: query.Round(avg, 2)})
	}
	return out, nil
}
