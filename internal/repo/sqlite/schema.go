package sqlite

var schema = []string{
	`CREATE TABLE IF NOT EXISTS health_checks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		service TEXT,
		url TEXT,
		status_code INTEGER,
		response_time_ms REAL,
		is_healthy BOOLEAN NOT NULL DEFAULT 0,
		timestamp TIMESTAMP NOT NULL,
		error TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS service_timestamp_idx ON health_checks(service, timestamp DESC);`,
	`CREATE INDEX IF NOT EXISTS health_checks_timestamp_idx ON health_checks(timestamp);`,
	`CREATE TABLE IF NOT EXISTS incidents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		service TEXT,
		type TEXT,
		status TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		resolved_at TIMESTAMP
	);`,
	`CREATE INDEX IF NOT EXISTS incidents_status_idx ON incidents(status);`,
}
