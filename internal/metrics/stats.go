package metrics

import (
	"context"
	"sort"
	"time"

	"github.com/hamed0406/healthreport/internal/query"
)

// DefaultMinServicesDown is the threshold SimultaneousDowntime uses when
// given a non-positive value.
const DefaultMinServicesDown = 2

// AverageResponseTime is the mean present latency per service over checks
// with timestamp >= windowStart, slowest first. Services with no recorded
// latency in the window are omitted.
func (e *Engine) AverageResponseTime(ctx context.Context, windowStart time.Time) ([]ServiceAverage, error) {
	const op = "average_response_time"
	rows, err := e.store.AggregateChecks(ctx, query.Pipeline{
		Match: query.Filter{
			query.Present(query.FieldService),
			query.Gte(query.FieldTimestamp, windowStart),
		},
		GroupBy:      []query.Key{query.ByField(query.FieldService)},
		Accumulators: []query.Accumulator{query.Avg("avg_response_ms", query.FieldResponseTime)},
		Sort:         []query.SortKey{query.Desc("avg_response_ms")},
	})
	if err != nil {
		return nil, err
	}
	out := make([]ServiceAverage, 0, len(rows))
	for _, row := range rows {
		svc, ok := stringKey(row, query.FieldService)
		if !ok {
			e.skip(op, row, "missing service")
			continue
		}
		avg, ok := floatValue(row, "avg_response_ms")
		if !ok {
			continue
		}
		out = append(out, ServiceAverage{Service: svc, AvgResponseMS: avg})
	}
	return out, nil
}

// AverageResponseTimeSince averages over the trailing window ending now.
func (e *Engine) AverageResponseTimeSince(ctx context.Context, window time.Duration) ([]ServiceAverage, error) {
	return e.AverageResponseTime(ctx, e.Now().Add(-window))
}

// UptimePercentage reports round(100*healthy/total, 2) per service that has
// at least one check, in store order.
func (e *Engine) UptimePercentage(ctx context.Context) ([]ServiceUptime, error) {
	const op = "uptime_percentage"
	rows, err := e.store.AggregateChecks(ctx, query.Pipeline{
		Match:   query.Filter{query.Present(query.FieldService)},
		GroupBy: []query.Key{query.ByField(query.FieldService)},
		Accumulators: []query.Accumulator{
			query.Count("total_checks"),
			query.CountTrue("healthy_checks", query.FieldHealthy),
		},
		Ratios: []query.Ratio{{
			Name:        "uptime_pct",
			Numerator:   "healthy_checks",
			Denominator: "total_checks",
			Scale:       100,
			Places:      2,
		}},
	})
	if err != nil {
		return nil, err
	}
	out := make([]ServiceUptime, 0, len(rows))
	for _, row := range rows {
		svc, ok := stringKey(row, query.FieldService)
		if !ok {
			e.skip(op, row, "missing service")
			continue
		}
		total, ok := intValue(row, "total_checks")
		if !ok || total < 1 {
			continue
		}
		healthy, _ := intValue(row, "healthy_checks")
		pct, ok := floatValue(row, "uptime_pct")
		if !ok {
			e.skip(op, row, "missing uptime ratio")
			continue
		}
		out = append(out, ServiceUptime{
			Service:       svc,
			UptimePct:     pct,
			TotalChecks:   total,
			HealthyChecks: healthy,
		})
	}
	return out, nil
}

// SlowestResponsePerService is the maximum present latency per service,
// slowest first.
func (e *Engine) SlowestResponsePerService(ctx context.Context) ([]ServiceMax, error) {
	const op = "slowest_response"
	rows, err := e.store.AggregateChecks(ctx, query.Pipeline{
		Match:        query.Filter{query.Present(query.FieldService)},
		GroupBy:      []query.Key{query.ByField(query.FieldService)},
		Accumulators: []query.Accumulator{query.Max("max_response_ms", query.FieldResponseTime)},
		Sort:         []query.SortKey{query.Desc("max_response_ms")},
	})
	if err != nil {
		return nil, err
	}
	out := make([]ServiceMax, 0, len(rows))
	for _, row := range rows {
		svc, ok := stringKey(row, query.FieldService)
		if !ok {
			e.skip(op, row, "missing service")
			continue
		}
		peak, ok := floatValue(row, "max_response_ms")
		if !ok {
			continue
		}
		if peak < 0 {
			e.skip(op, row, "negative latency")
			continue
		}
		out = append(out, ServiceMax{Service: svc, MaxResponseMS: peak})
	}
	return out, nil
}

// HourlyTrend buckets checks by service and UTC hour of day, ordered by
// hour. Services sharing an hour keep store order.
func (e *Engine) HourlyTrend(ctx context.Context) ([]HourlyBucket, error) {
	const op = "hourly_trend"
	rows, err := e.store.AggregateChecks(ctx, query.Pipeline{
		Match: query.Filter{
			query.Present(query.FieldService),
			query.Present(query.FieldTimestamp),
		},
		GroupBy: []query.Key{
			query.ByField(query.FieldService),
			query.ByHour("hour", query.FieldTimestamp),
		},
		Accumulators: []query.Accumulator{
			query.Avg("avg_response_ms", query.FieldResponseTime),
			query.Count("total_checks"),
			query.CountFalse("failures", query.FieldHealthy),
		},
		Sort: []query.SortKey{query.Asc("hour")},
	})
	if err != nil {
		return nil, err
	}
	out := make([]HourlyBucket, 0, len(rows))
	for _, row := range rows {
		svc, ok := stringKey(row, query.FieldService)
		if !ok {
			e.skip(op, row, "missing service")
			continue
		}
		hour, ok := intValue(row, "hour")
		if !ok || hour < 0 || hour > 23 {
			e.skip(op, row, "bad hour")
			continue
		}
		b := HourlyBucket{Service: svc, Hour: int(hour)}
		b.TotalChecks, _ = intValue(row, "total_checks")
		b.Failures, _ = intValue(row, "failures")
		if avg, ok := floatValue(row, "avg_response_ms"); ok {
			b.AvgResponseMS = &avg
		}
		out = append(out, b)
	}
	return out, nil
}

// SimultaneousDowntime finds UTC minutes in which at least minServices
// distinct services recorded an unhealthy check, newest first.
func (e *Engine) SimultaneousDowntime(ctx context.Context, minServices int) ([]DowntimeWindow, error) {
	const op = "simultaneous_downtime"
	if minServices <= 0 {
		minServices = DefaultMinServicesDown
	}
	rows, err := e.store.AggregateChecks(ctx, query.Pipeline{
		Match: query.Filter{
			query.Eq(query.FieldHealthy, false),
			query.Present(query.FieldService),
			query.Present(query.FieldTimestamp),
		},
		GroupBy: []query.Key{query.ByMinute("minute", query.FieldTimestamp)},
		Accumulators: []query.Accumulator{
			query.Distinct("services_down", query.FieldService),
			query.Count("checks"),
		},
		// A minute needs at least minServices failed checks to have
		// minServices distinct services down.
		Having: &query.Having{Name: "checks", Min: int64(minServices)},
		Sort:   []query.SortKey{query.Desc("minute")},
	})
	if err != nil {
		return nil, err
	}
	out := make([]DowntimeWindow, 0, len(rows))
	for _, row := range rows {
		minute, ok := stringKey(row, "minute")
		if !ok {
			e.skip(op, row, "missing minute")
			continue
		}
		v, _ := row.Lookup("services_down")
		services, ok := v.([]string)
		if !ok {
			e.skip(op, row, "bad service set")
			continue
		}
		if len(services) < minServices {
			continue
		}
		sort.Strings(services)
		out = append(out, DowntimeWindow{
			Minute:       minute,
			ServicesDown: services,
			Count:        int64(len(services)),
		})
	}
	return out, nil
}
