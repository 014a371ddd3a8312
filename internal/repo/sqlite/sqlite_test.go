package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/healthreport/internal/domain"
	"github.com/hamed0406/healthreport/internal/metrics"
	"github.com/hamed0406/healthreport/internal/query"
	"github.com/hamed0406/healthreport/internal/repo"
	"github.com/hamed0406/healthreport/internal/repo/memory"
)

var base = time.Date(2025, 8, 18, 9, 30, 0, 0, time.UTC)

func ms(v float64) *float64 { return &v }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "health.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return s
}

func seedChecks(t *testing.T, s *Store, cs ...domain.HealthCheck) {
	t.Helper()
	for _, c := range cs {
		_, err := s.DB().ExecContext(context.Background(),
			`INSERT INTO health_checks (service, url, status_code, response_time_ms, is_healthy, timestamp, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.Service, c.URL, c.StatusCode, c.ResponseTimeMS, c.IsHealthy, c.Timestamp, c.Error)
		if err != nil {
			t.Fatalf("insert check: %v", err)
		}
	}
}

func seedIncidents(t *testing.T, s *Store, is ...domain.Incident) {
	t.Helper()
	for _, i := range is {
		_, err := s.DB().ExecContext(context.Background(),
			`INSERT INTO incidents (service, type, status, started_at, resolved_at) VALUES (?, ?, ?, ?, ?)`,
			i.Service, i.Type, string(i.Status), i.StartedAt, i.ResolvedAt)
		if err != nil {
			t.Fatalf("insert incident: %v", err)
		}
	}
}

func TestFindAndCountChecks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	code := 200
	msg := "timeout"
	seedChecks(t, s,
		domain.HealthCheck{Service: "a", URL: "https://a", StatusCode: &code, ResponseTimeMS: ms(120), IsHealthy: true, Timestamp: base},
		domain.HealthCheck{Service: "b", URL: "https://b", IsHealthy: false, Timestamp: base, Error: &msg},
		domain.HealthCheck{Service: "a", URL: "https://a", IsHealthy: false, Timestamp: base.Add(time.Minute), Error: &msg},
	)

	byA := query.Filter{query.Eq(query.FieldService, "a")}
	checks, err := s.FindChecks(ctx, byA)
	if err != nil {
		t.Fatalf("find checks: %v", err)
	}
	n, err := s.CountChecks(ctx, byA)
	if err != nil {
		t.Fatalf("count checks: %v", err)
	}
	if int64(len(checks)) != n || n != 2 {
		t.Fatalf("find=%d count=%d, want 2", len(checks), n)
	}
	if checks[0].ID >= checks[1].ID {
		t.Fatalf("checks not in insertion order: %d, %d", checks[0].ID, checks[1].ID)
	}
	if checks[0].StatusCode == nil || *checks[0].StatusCode != 200 || *checks[0].ResponseTimeMS != 120 {
		t.Fatalf("unexpected first check: %+v", checks[0])
	}
	if checks[1].ResponseTimeMS != nil || checks[1].StatusCode != nil || checks[1].Error == nil {
		t.Fatalf("want null latency/status on failed check, got %+v", checks[1])
	}
	if !checks[1].Timestamp.Equal(base.Add(time.Minute)) {
		t.Fatalf("timestamp = %s", checks[1].Timestamp)
	}

	unhealthy, err := s.CountChecks(ctx, query.Filter{query.Eq(query.FieldHealthy, false)})
	if err != nil || unhealthy != 2 {
		t.Fatalf("unhealthy = %d, err = %v", unhealthy, err)
	}
}

func TestFindChecks_RangeIsInclusive(t *testing.T) {
	s := newTestStore(t)
	start, end := base, base.Add(10*time.Minute)
	for _, at := range []time.Time{start.Add(-time.Second), start, start.Add(time.Minute), end, end.Add(time.Second)} {
		seedChecks(t, s, domain.HealthCheck{Service: "a", IsHealthy: true, Timestamp: at})
	}

	got, err := s.FindChecks(context.Background(), query.Between(query.FieldTimestamp, start, end))
	if err != nil {
		t.Fatalf("find checks: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d checks in range, want 3", len(got))
	}
	for _, c := range got {
		if c.Timestamp.Before(start) || c.Timestamp.After(end) {
			t.Fatalf("check outside range: %s", c.Timestamp)
		}
	}
}

func TestTimeBoundsAreExactBelowOneMillisecond(t *testing.T) {
	s := newTestStore(t)
	mem := memory.New()
	ctx := context.Background()
	start, end := base, base.Add(time.Minute)
	checks := []domain.HealthCheck{
		{Service: "a", IsHealthy: true, ResponseTimeMS: ms(1000), Timestamp: start.Add(-400 * time.Microsecond)},
		{Service: "a", IsHealthy: true, ResponseTimeMS: ms(100), Timestamp: start},
		{Service: "a", IsHealthy: true, ResponseTimeMS: ms(200), Timestamp: end},
		{Service: "b", IsHealthy: true, ResponseTimeMS: ms(5000), Timestamp: end.Add(400 * time.Microsecond)},
	}
	seedChecks(t, s, checks...)
	mem.AddChecks(checks...)

	inRange := query.Between(query.FieldTimestamp, start, end)
	got, err := s.FindChecks(ctx, inRange)
	if err != nil {
		t.Fatalf("find checks: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d checks in range, want 2: %+v", len(got), got)
	}
	for _, c := range got {
		if c.Timestamp.Before(start) || c.Timestamp.After(end) {
			t.Fatalf("check outside range: %s", c.Timestamp.Format(time.RFC3339Nano))
		}
	}
	n, err := s.CountChecks(ctx, inRange)
	if err != nil || n != 2 {
		t.Fatalf("count in range = %d, err = %v", n, err)
	}

	want, err := metrics.New(mem, zap.NewNop()).AverageResponseTime(ctx, start)
	if err != nil {
		t.Fatalf("average (memory): %v", err)
	}
	avg, err := metrics.New(s, zap.NewNop()).AverageResponseTime(ctx, start)
	if err != nil {
		t.Fatalf("average (sqlite): %v", err)
	}
	if !reflect.DeepEqual(avg, want) {
		t.Fatalf("window start leaked an earlier check:\n sqlite: %+v\n memory: %+v", avg, want)
	}
}

func TestFindIncidents_NullResolvedAt(t *testing.T) {
	s := newTestStore(t)
	end := base.Add(5 * time.Minute)
	seedIncidents(t, s,
		domain.Incident{Service: "a", Type: "down", Status: domain.IncidentActive, StartedAt: base},
		domain.Incident{Service: "a", Type: "down", Status: domain.IncidentResolved, StartedAt: base, ResolvedAt: &end},
	)

	active, err := s.FindIncidents(context.Background(), query.Filter{query.Eq(query.FieldStatus, "active")})
	if err != nil {
		t.Fatalf("find incidents: %v", err)
	}
	if len(active) != 1 || active[0].ResolvedAt != nil || active[0].Status != domain.IncidentActive {
		t.Fatalf("unexpected active incidents: %+v", active)
	}
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	s := newTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := s.CountChecks(context.Background(), nil); !errors.Is(err, repo.ErrStoreUnavailable) {
		t.Fatalf("want ErrStoreUnavailable, got %v", err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, repo.ErrStoreUnavailable) {
		t.Fatalf("ping: want ErrStoreUnavailable, got %v", err)
	}
}

// The SQL compilation must agree with the in-process evaluator on every
// engine query.
func TestEngineParityWithMemoryStore(t *testing.T) {
	ctx := context.Background()
	checks := []domain.HealthCheck{
		{Service: "svc1", IsHealthy: true, ResponseTimeMS: ms(100), Timestamp: base},
		{Service: "svc2", IsHealthy: false, Timestamp: base.Add(10 * time.Second)},
		{Service: "svc1", IsHealthy: false, Timestamp: base.Add(20 * time.Second)},
		{Service: "svc1", IsHealthy: true, ResponseTimeMS: ms(200), Timestamp: base.Add(time.Hour)},
		{Service: "svc2", IsHealthy: true, ResponseTimeMS: ms(50.5), Timestamp: base.Add(time.Hour)},
		{Service: "svc3", IsHealthy: false, Timestamp: base.Add(-3 * time.Hour)},
		{Service: "", IsHealthy: true, ResponseTimeMS: ms(9999), Timestamp: base},
		{Service: "a,b", IsHealthy: false, Timestamp: base.Add(30 * time.Second)},
		{Service: "a,b", IsHealthy: false, Timestamp: base.Add(2 * time.Hour)},
	}
	r1, r2 := base.Add(10*time.Minute), base.Add(21*time.Minute)
	incidents := []domain.Incident{
		{Service: "svc1", Type: "down", Status: domain.IncidentActive, StartedAt: base},
		{Service: "svc2", Type: "down", Status: domain.IncidentResolved, StartedAt: base, ResolvedAt: &r1},
		{Service: "svc2", Type: "slow", Status: domain.IncidentResolved, StartedAt: base, ResolvedAt: &r2},
		{Service: "svc1", Type: "down", Status: domain.IncidentResolved, StartedAt: base},
	}

	sq := newTestStore(t)
	seedChecks(t, sq, checks...)
	seedIncidents(t, sq, incidents...)
	mem := memory.New()
	mem.AddChecks(checks...)
	mem.AddIncidents(incidents...)

	fromSQL := metrics.New(sq, zap.NewNop())
	fromMem := metrics.New(mem, zap.NewNop())

	compare := func(name string, run func(e *metrics.Engine) (any, error)) {
		t.Helper()
		want, err := run(fromMem)
		if err != nil {
			t.Fatalf("%s (memory): %v", name, err)
		}
		got, err := run(fromSQL)
		if err != nil {
			t.Fatalf("%s (sqlite): %v", name, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s mismatch:\n sqlite: %+v\n memory: %+v", name, got, want)
		}
	}

	compare("average", func(e *metrics.Engine) (any, error) { return e.AverageResponseTime(ctx, base.Add(-time.Hour)) })
	compare("uptime", func(e *metrics.Engine) (any, error) { return e.UptimePercentage(ctx) })
	compare("slowest", func(e *metrics.Engine) (any, error) { return e.SlowestResponsePerService(ctx) })
	compare("hourly", func(e *metrics.Engine) (any, error) { return e.HourlyTrend(ctx) })
	compare("downtime", func(e *metrics.Engine) (any, error) { return e.SimultaneousDowntime(ctx, 2) })
	compare("most", func(e *metrics.Engine) (any, error) { return e.MostIncidentsService(ctx) })
	compare("duration", func(e *metrics.Engine) (any, error) { return e.AverageIncidentDuration(ctx) })
	compare("counts", func(e *metrics.Engine) (any, error) { return e.CountPerService(ctx, "svc1", "svc2", "a,b", "none") })

	windows, err := fromSQL.SimultaneousDowntime(ctx, 2)
	if err != nil {
		t.Fatalf("downtime: %v", err)
	}
	if len(windows) != 1 || windows[0].Count != 3 {
		t.Fatalf("a service name with a comma must count once: %+v", windows)
	}
}
