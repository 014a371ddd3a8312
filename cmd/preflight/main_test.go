package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/hamed0406/healthreport/internal/config"
)

func noEnv(string) string { return "" }

func TestCheck_PostgresNeedsDatabaseURL(t *testing.T) {
	r := check(config.Config{StoreDriver: config.DriverPostgres}, noEnv)
	if len(r.fails) != 1 || !strings.Contains(r.fails[0], "DATABASE_URL") {
		t.Fatalf("want DATABASE_URL failure, got %v", r.fails)
	}
}

func TestCheck_MissingFixturesFails(t *testing.T) {
	cfg := config.Config{StoreDriver: config.DriverMemory, Fixtures: filepath.Join(t.TempDir(), "nope.json")}
	if r := check(cfg, noEnv); len(r.fails) != 1 {
		t.Fatalf("want one failure, got %v", r.fails)
	}
}

func TestCheck_UnknownDriverAndSpacedKeys(t *testing.T) {
	env := func(k string) string {
		if k == "PUBLIC_API_KEYS" {
			return "a, b"
		}
		return ""
	}
	r := check(config.Config{StoreDriver: "mongo", PublicAPIKeys: []string{"a", "b"}}, env)
	if len(r.fails) != 1 {
		t.Fatalf("want unknown driver failure, got %v", r.fails)
	}
	found := false
	for _, w := range r.warns {
		if strings.HasPrefix(w, "PUBLIC_API_KEYS contains spaces") {
			found = true
		}
	}
	if !found {
		t.Fatalf("want spaces warning, got %v", r.warns)
	}
}

func TestCheck_SQLitePasses(t *testing.T) {
	r := check(config.Config{StoreDriver: config.DriverSQLite, SQLitePath: "data/h.db", PublicAPIKeys: []string{"k"}, AdminAPIKeys: []string{"a"}}, noEnv)
	if len(r.fails) != 0 {
		t.Fatalf("unexpected failures: %v", r.fails)
	}
}
