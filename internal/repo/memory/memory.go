package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-json"

	"github.com/hamed0406/healthreport/internal/domain"
	"github.com/hamed0406/healthreport/internal/query"
	"github.com/hamed0406/healthreport/internal/repo"
)

var _ repo.Store = (*Store)(nil)

// Store keeps both collections in process, in insertion order, and
// evaluates filters and pipelines with query.Evaluate.
type Store struct {
	mu        sync.RWMutex
	checks    []domain.HealthCheck
	incidents []domain.Incident
	closed    bool
}

func New() *Store {
	return &Store{
		checks:    make([]domain.HealthCheck, 0, 128),
		incidents: make([]domain.Incident, 0, 16),
	}
}

// Fixtures is the on-disk seed format for the memory store.
type Fixtures struct {
	HealthChecks []domain.HealthCheck `json:"health_checks"`
	Incidents    []domain.Incident    `json:"incidents"`
}

// Load reads a JSON fixtures file into a new store.
func Load(path string) (*Store, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var fx Fixtures
	if err := json.Unmarshal(b, &fx); err != nil {
		return nil, fmt.Errorf("decode fixtures %s: %w", path, err)
	}
	s := New()
	s.AddChecks(fx.HealthChecks...)
	s.AddIncidents(fx.Incidents...)
	return s, nil
}

// AddChecks seeds health checks. IDs are assigned in insertion order when
// unset.
func (m *Store) AddChecks(cs ...domain.HealthCheck) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cs {
		if c.ID == 0 {
			c.ID = int64(len(m.checks) + 1)
		}
		m.checks = append(m.checks, c)
	}
}

func (m *Store) AddIncidents(is ...domain.Incident) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, i := range is {
		if i.ID == 0 {
			i.ID = int64(len(m.incidents) + 1)
		}
		m.incidents = append(m.incidents, i)
	}
}

func (m *Store) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.usable(ctx)
}

func (m *Store) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// usable must be called with mu held.
func (m *Store) usable(ctx context.Context) error {
	if m.closed {
		return fmt.Errorf("%w: memory store closed", repo.ErrStoreUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", repo.ErrStoreUnavailable, err)
	}
	return nil
}

// ---- CheckReader ----

func (m *Store) FindChecks(ctx context.Context, f query.Filter) ([]domain.HealthCheck, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.usable(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.HealthCheck, 0)
	for _, c := range m.checks {
		if query.Match(repo.CheckRecord(c), f) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Store) CountChecks(ctx context.Context, f query.Filter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.usable(ctx); err != nil {
		return 0, err
	}
	var n int64
	for _, c := range m.checks {
		if query.Match(repo.CheckRecord(c), f) {
			n++
		}
	}
	return n, nil
}

func (m *Store) AggregateChecks(ctx context.Context, p query.Pipeline) ([]query.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.usable(ctx); err != nil {
		return nil, err
	}
	recs := make([]query.Record, len(m.checks))
	for i, c := range m.checks {
		recs[i] = repo.CheckRecord(c)
	}
	return query.Evaluate(recs, p), nil
}

// ---- IncidentReader ----

func (m *Store) FindIncidents(ctx context.Context, f query.Filter) ([]domain.Incident, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.usable(ctx); err != nil {
		return nil, err
	}
	out := make([]domain.Incident, 0)
	for _, i := range m.incidents {
		if query.Match(repo.IncidentRecord(i), f) {
			out = append(out, i)
		}
	}
	return out, nil
}

func (m *Store) AggregateIncidents(ctx context.Context, p query.Pipeline) ([]query.Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.usable(ctx); err != nil {
		return nil, err
	}
	recs := make([]query.Record, len(m.incidents))
	for i, inc := range m.incidents {
		recs[i] = repo.IncidentRecord(inc)
	}
	return query.Evaluate(recs, p), nil
}
