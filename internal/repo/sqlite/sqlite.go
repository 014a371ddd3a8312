package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
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
	db      *sqlx.DB
	log     *zap.Logger
	dialect sqlquery.SQLite
}

// Open connects to the database file at path, creating its directory.
// The store only reads, but the file is opened read-write so EnsureSchema
// can bootstrap an empty database.
func Open(ctx context.Context, path string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir data dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %v", repo.ErrStoreUnavailable, err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctxPing); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping: %v", repo.ErrStoreUnavailable, err)
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %v", repo.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: apply schema: %v", repo.ErrStoreUnavailable, err)
		}
	}
	return nil
}

type checkRow struct {
	ID             int64           `db:"id"`
	Service        sql.NullString  `db:"service"`
	URL            sql.NullString  `db:"url"`
	StatusCode     sql.NullInt64   `db:"status_code"`
	ResponseTimeMS sql.NullFloat64 `db:"response_time_ms"`
	IsHealthy      sql.NullBool    `db:"is_healthy"`
	Timestamp      time.Time       `db:"timestamp"`
	Error          sql.NullString  `db:"error"`
}

func (r checkRow) toDomain() domain.HealthCheck {
	c := domain.HealthCheck{
		ID:        r.ID,
		Service:   r.Service.String,
		URL:       r.URL.String,
		IsHealthy: r.IsHealthy.Valid && r.IsHealthy.Bool,
		Timestamp: r.Timestamp.UTC(),
	}
	if r.StatusCode.Valid {
		v := int(r.StatusCode.Int64)
		c.StatusCode = &v
	}
	if r.ResponseTimeMS.Valid {
		v := r.ResponseTimeMS.Float64
		c.ResponseTimeMS = &v
	}
	if r.Error.Valid {
		v := r.Error.String
		c.Error = &v
	}
	return c
}

type incidentRow struct {
	ID         int64          `db:"id"`
	Service    sql.NullString `db:"service"`
	Type       sql.NullString `db:"type"`
	Status     string         `db:"status"`
	StartedAt  time.Time      `db:"started_at"`
	ResolvedAt sql.NullTime   `db:"resolved_at"`
}

func (r incidentRow) toDomain() domain.Incident {
	i := domain.Incident{
		ID:        r.ID,
		Service:   r.Service.String,
		Type:      r.Type.String,
		Status:    domain.IncidentStatus(r.Status),
		StartedAt: r.StartedAt.UTC(),
	}
	if r.ResolvedAt.Valid {
		v := r.ResolvedAt.Time.UTC()
		i.ResolvedAt = &v
	}
	return i
}

// ---- CheckReader ----

func (s *Store) FindChecks(ctx context.Context, f query.Filter) ([]domain.HealthCheck, error) {
	st, err := sqlquery.Find(s.dialect, query.HealthChecks, checkColumns, f)
	if err != nil {
		return nil, err
	}
	var rows []checkRow
	if err := s.db.SelectContext(ctx, &rows, st.SQL, st.Args...); err != nil {
		return nil, unavailable("find checks", err)
	}
	exact := timeBound(f)
	out := make([]domain.HealthCheck, 0, len(rows))
	for _, r := range rows {
		c := r.toDomain()
		if exact && !query.Match(repo.CheckRecord(c), f) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) CountChecks(ctx context.Context, f query.Filter) (int64, error) {
	if timeBound(f) {
		cs, err := s.FindChecks(ctx, f)
		if err != nil {
			return 0, err
		}
		return int64(len(cs)), nil
	}
	st, err := sqlquery.Count(s.dialect, query.HealthChecks, f)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.GetContext(ctx, &n, st.SQL, st.Args...); err != nil {
		return 0, unavailable("count checks", err)
	}
	return n, nil
}

func (s *Store) AggregateChecks(ctx context.Context, p query.Pipeline) ([]query.Row, error) {
	if timeBound(p.Match) {
		cs, err := s.FindChecks(ctx, p.Match)
		if err != nil {
			return nil, err
		}
		recs := make([]query.Record, len(cs))
		for i, c := range cs {
			recs[i] = repo.CheckRecord(c)
		}
		return query.Evaluate(recs, p), nil
	}
	return s.aggregate(ctx, query.HealthChecks, p)
}

// ---- IncidentReader ----

func (s *Store) FindIncidents(ctx context.Context, f query.Filter) ([]domain.Incident, error) {
	st, err := sqlquery.Find(s.dialect, query.Incidents, incidentColumns, f)
	if err != nil {
		return nil, err
	}
	var rows []incidentRow
	if err := s.db.SelectContext(ctx, &rows, st.SQL, st.Args...); err != nil {
		return nil, unavailable("find incidents", err)
	}
	exact := timeBound(f)
	out := make([]domain.Incident, 0, len(rows))
	for _, r := range rows {
		i := r.toDomain()
		if exact && !query.Match(repo.IncidentRecord(i), f) {
			continue
		}
		out = append(out, i)
	}
	return out, nil
}

func (s *Store) AggregateIncidents(ctx context.Context, p query.Pipeline) ([]query.Row, error) {
	if timeBound(p.Match) {
		is, err := s.FindIncidents(ctx, p.Match)
		if err != nil {
			return nil, err
		}
		recs := make([]query.Record, len(is))
		for i, inc := range is {
			recs[i] = repo.IncidentRecord(inc)
		}
		return query.Evaluate(recs, p), nil
	}
	return s.aggregate(ctx, query.Incidents, p)
}

// timeBound reports whether f compares against a time. julianday resolves
// to whole milliseconds, so the SQL filter also admits rows just outside a
// bound; those are dropped by re-matching in process at full precision.
// julianday is monotonic, so no row inside a bound is lost.
func timeBound(f query.Filter) bool {
	for _, c := range f {
		if _, ok := c.Value.(time.Time); ok {
			return true
		}
	}
	return false
}

func (s *Store) aggregate(ctx context.Context, table string, p query.Pipeline) ([]query.Row, error) {
	plan, err := sqlquery.Aggregate(s.dialect, table, p)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryxContext(ctx, plan.SQL, plan.Args...)
	if err != nil {
		return nil, unavailable("aggregate "+table, err)
	}
	defer rows.Close()

	out := make([]query.Row, 0)
	for rows.Next() {
		vals, err := rows.SliceScan()
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
	return fmt.Errorf("%w: %s: %v", repo.ErrStoreUnavailable, op, err)
}
