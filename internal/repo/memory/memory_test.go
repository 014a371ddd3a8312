package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hamed0406/healthreport/internal/domain"
	"github.com/hamed0406/healthreport/internal/query"
	"github.com/hamed0406/healthreport/internal/repo"
)

func ms(v float64) *float64 { return &v }

func TestMemoryStore_FindAndCountChecks(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	s.AddChecks(
		domain.HealthCheck{Service: "a", IsHealthy: true, ResponseTimeMS: ms(10), Timestamp: now},
		domain.HealthCheck{Service: "b", IsHealthy: false, Timestamp: now},
		domain.HealthCheck{Service: "a", IsHealthy: false, Timestamp: now.Add(time.Minute)},
	)

	got, err := s.FindChecks(ctx, query.Filter{query.Eq(query.FieldService, "a")})
	if err != nil {
		t.Fatalf("FindChecks: %v", err)
	}
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Fatalf("want ids [1 3] in insertion order, got %+v", got)
	}

	n, err := s.CountChecks(ctx, query.Filter{query.Eq(query.FieldHealthy, false)})
	if err != nil {
		t.Fatalf("CountChecks: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2 unhealthy, got %d", n)
	}
}

func TestMemoryStore_ClosedIsUnavailable(t *testing.T) {
	s := New()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	_, err := s.FindIncidents(context.Background(), nil)
	if !errors.Is(err, repo.ErrStoreUnavailable) {
		t.Fatalf("want ErrStoreUnavailable, got %v", err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, repo.ErrStoreUnavailable) {
		t.Fatalf("ping after close: want ErrStoreUnavailable, got %v", err)
	}
}

func TestLoad_Fixtures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixtures.json")
	body := `{
  "health_checks": [
    {"service":"svc1","is_healthy":true,"response_time_ms":120,"timestamp":"2025-08-18T12:00:00Z"},
    {"service":"svc1","is_healthy":false,"response_time_ms":null,"timestamp":"2025-08-18T12:01:00Z","error":"timeout"}
  ],
  "incidents": [
    {"service":"svc1","type":"down","status":"active","started_at":"2025-08-18T12:01:00Z"}
  ]
}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixtures: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	rows, err := s.AggregateChecks(context.Background(), query.Pipeline{
		GroupBy:      []query.Key{query.ByField(query.FieldService)},
		Accumulators: []query.Accumulator{query.Avg("avg", query.FieldResponseTime), query.Count("n")},
	})
	if err != nil {
		t.Fatalf("AggregateChecks: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("want 1 group, got %d", len(rows))
	}
	if rows[0].Values["avg"] != 120.0 || rows[0].Values["n"] != int64(2) {
		t.Fatalf("unexpected row: %+v", rows[0])
	}

	inc, err := s.FindIncidents(context.Background(), query.Filter{query.Eq(query.FieldStatus, "active")})
	if err != nil || len(inc) != 1 {
		t.Fatalf("want 1 active incident, got %d err=%v", len(inc), err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing fixtures file")
	}
}
