// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/hamed0406/healthreport/internal/config"
)

type result struct {
	fails []string
	warns []string
	oks   []string
}

func (r *result) fail(msg string) { r.fails = append(r.fails, msg) }
func (r *result) warn(msg string) { r.warns = append(r.warns, msg) }
func (r *result) ok(msg string)   { r.oks = append(r.oks, msg) }

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "✖", ".env:", err)
		os.Exit(1)
	}
	r := check(cfg, os.Getenv)
	for _, m := range r.oks {
		fmt.Println("✔", m)
	}
	for _, m := range r.warns {
		fmt.Fprintln(os.Stderr, "⚠", m)
	}
	for _, m := range r.fails {
		fmt.Fprintln(os.Stderr, "✖", m)
	}
	if len(r.fails) > 0 {
		os.Exit(1)
	}
	fmt.Println("✔ preflight passed")
}

// check validates configuration before a report run or API start. getenv
// reads raw values for the checks the parsed config cannot express.
func check(cfg config.Config, getenv func(string) string) *result {
	r := &result{}

	switch cfg.StoreDriver {
	case config.DriverMemory:
		if cfg.Fixtures == "" {
			r.warn("STORE_DRIVER=memory without FIXTURES_PATH; reports will be empty.")
		} else if _, err := os.Stat(cfg.Fixtures); err != nil {
			r.fail("FIXTURES_PATH not readable: " + err.Error())
		} else {
			r.ok("FIXTURES_PATH=" + cfg.Fixtures)
		}
	case config.DriverPostgres:
		if cfg.DatabaseURL == "" {
			r.fail("STORE_DRIVER=postgres but DATABASE_URL is empty.")
		} else {
			r.ok("DATABASE_URL present")
		}
	case config.DriverSQLite:
		r.ok("SQLITE_PATH=" + cfg.SQLitePath)
	default:
		r.fail("STORE_DRIVER must be memory, postgres or sqlite; got " + cfg.StoreDriver)
	}

	if len(cfg.PublicAPIKeys) == 0 {
		r.warn("PUBLIC_API_KEYS is empty (read routes are open).")
	}
	if len(cfg.AdminAPIKeys) == 0 {
		r.warn("ADMIN_API_KEYS is empty (/api/report is open).")
	}
	// Normalize and sanity-check lists (no spaces around commas).
	for _, name := range []string{"ADMIN_API_KEYS", "PUBLIC_API_KEYS", "REPORT_SERVICES"} {
		if strings.Contains(getenv(name), " ") {
			r.warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	r.ok("API_ADDR=" + cfg.Addr)
	r.ok("REPORT_SERVICES=" + strings.Join(cfg.Services, ","))
	if len(cfg.AllowedOrigins) == 0 {
		r.warn("ALLOWED_ORIGINS empty; CORS allows every origin.")
	} else {
		r.ok("ALLOWED_ORIGINS=" + strings.Join(cfg.AllowedOrigins, ","))
	}
	return r
}
