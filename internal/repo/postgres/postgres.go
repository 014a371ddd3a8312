package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/healthreport/internal/domain"
	"github.com/hamed0406/healthreport/internal/query"
	"github.com/hamed0406/healthreport/internal/repo"
	"github.com/hamed0406/healthreport/internal/repo/sqlquery"
)

var _ repo.Store = (*Store)(nil)

var (
	checkColumns    = []string{"id", "service", "url", "status_code", "response_time_ms", "is_healthy", "timestamp", "error"}
	incidentColumns = []string{"id", "service", "type", "status", "started_at", "resolved_at"}
)

type Store struct {
	pool    *pgxpool.Pool
	log     *zap.Logger
	dialect sqlquery.Postgres
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: pgxpool.New: %v", repo.ErrStoreUnavailable, err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", repo.ErrStoreUnavailable, err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping: %v", repo.ErrStoreUnavailable, err)
	}
	return nil
}

// EnsureSchema creates both collections and their indexes if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("%w: apply schema: %v", repo.ErrStoreUnavailable, err)
	}
	return nil
}

// ---- CheckReader ----

func (s *Store) FindChecks(ctx context.Context, f query.Filter) ([]domain.HealthCheck, error) {
	st, err := sqlquery.Find(s.dialect, query.HealthChecks, checkColumns, f)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, unavailable("find checks", err)
	}
	defer rows.Close()

	out := make([]domain.HealthCheck, 0)
	for rows.Next() {
		var (
			c       domain.HealthCheck
			service *string
			url     *string
			status  *int32
		)
		if err := rows.Scan(&c.ID, &service, &url, &status, &c.ResponseTimeMS, &c.IsHealthy, &c.Timestamp, &c.Error); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		if service != nil {
			c.Service = *service
		}
		if url != nil {
			c.URL = *url
		}
		if status != nil {
			v := int(*status)
			c.StatusCode = &v
		}
		c.Timestamp = c.Timestamp.UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("find checks", err)
	}
	return out, nil
}

func (s *Store) CountChecks(ctx context.Context, f query.Filter) (int64, error) {
	st, err := sqlquery.Count(s.dialect, query.HealthChecks, f)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.pool.QueryRow(ctx, st.SQL, st.Args...).Scan(&n); err != nil {
		return 0, unavailable("count checks", err)
	}
	return n, nil
}

func (s *Store) AggregateChecks(ctx context.Context, p query.Pipeline) ([]query.Row, error) {
	return s.aggregate(ctx, query.HealthChecks, p)
}

// ---- IncidentReader ----

func (s *Store) FindIncidents(ctx context.Context, f query.Filter) ([]domain.Incident, error) {
	st, err := sqlquery.Find(s.dialect, query.Incidents, incidentColumns, f)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, unavailable("find incidents", err)
	}
	defer rows.Close()

	out := make([]domain.Incident, 0)
	for rows.Next() {
		var (
			i       domain.Incident
			service *string
			typ     *string
			status  string
		)
		if err := rows.Scan(&i.ID, &service, &typ, &status, &i.StartedAt, &i.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		if service != nil {
			i.Service = *service
		}
		if typ != nil {
			i.Type = *typ
		}
		i.Status = domain.IncidentStatus(status)
		i.StartedAt = i.StartedAt.UTC()
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("find incidents", err)
	}
	return out, nil
}

func (s *Store) AggregateIncidents(ctx context.Context, p query.Pipeline) ([]query.Row, error) {
	return s.aggregate(ctx, query.Incidents, p)
}

func (s *Store) aggregate(ctx context.Context, table string, p query.Pipeline) ([]query.Row, error) {
	plan, err := sqlquery.Aggregate(s.dialect, table, p)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, plan.SQL, plan.Args...)
	if err != nil {
		return nil, unavailable("aggregate "+table, err)
	}
	defer rows.Close()

	out := make([]query.Row, 0)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read %s row: %w", table, err)
		}
		row, err := plan.DecodeRow(vals)
		if err != nil {
			s.log.Warn("aggregate_row_skipped", zap.String("collection", table), zap.Error(err))
			continue
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("aggregate "+table, err)
	}
	return out, nil
}

func unavailable(op string, err error) error {
	if err == pgx.ErrNoRows {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %v", repo.ErrStoreUnavailable, op, err)
}
