package postgres

// Columns other than id are nullable so that records written by external
// producers with missing fields can still be read; aggregates skip them.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS health_checks (
  id               BIGSERIAL PRIMARY KEY,
  service          TEXT NULL,
  url              TEXT NULL,
  status_code      INTEGER NULL,
  response_time_ms DOUBLE PRECISION NULL,
  is_healthy       BOOLEAN NOT NULL DEFAULT false,
  "timestamp"      TIMESTAMPTZ NOT NULL,
  error            TEXT NULL
);

CREATE INDEX IF NOT EXISTS service_timestamp_idx ON health_checks (service, "timestamp" DESC);
CREATE INDEX IF NOT EXISTS health_checks_timestamp_idx ON health_checks ("timestamp");

CREATE TABLE IF NOT EXISTS incidents (
  id          BIGSERIAL PRIMARY KEY,
  service     TEXT NULL,
  type        TEXT NULL,
  status      TEXT NOT NULL,
  started_at  TIMESTAMPTZ NOT NULL,
  resolved_at TIMESTAMPTZ NULL
);

CREATE INDEX IF NOT EXISTS incidents_status_idx ON incidents (status);
`
