package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is read once at startup. Lists are comma-separated in the
// environment.
type Config struct {
	Addr         string
	LogDir       string
	LogLevel     string
	StoreDriver  string
	DatabaseURL  string
	SQLitePath   string
	Fixtures     string
	EnsureSchema bool

	Services     []string
	AvgWindow    time.Duration
	QueryTimeout time.Duration
	MinServices  int

	PublicAPIKeys  []string
	AdminAPIKeys   []string
	AllowedOrigins []string
	PublicRPM      int
	PublicBurst    int
	AdminRPM       int
	AdminBurst     int
}

// Load reads an optional .env file (existing env wins), then the environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	return FromEnv(), nil
}

func FromEnv() Config {
	// Bind address (Windows-friendly default)
	addr := os.Getenv("API_ADDR")
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	// Logs
	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	// Store: explicit driver, else postgres when DATABASE_URL is set, else memory
	db := os.Getenv("DATABASE_URL")
	driver := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_DRIVER")))
	if driver == "" {
		driver = DriverMemory
		if db != "" {
			driver = DriverPostgres
		}
	}
	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		sqlitePath = "data/health.db"
	}

	services := splitList(os.Getenv("REPORT_SERVICES"))
	if len(services) == 0 {
		services = []string{"jsonplaceholder_api", "open_meteo_api"}
	}

	return Config{
		Addr:         addr,
		LogDir:       logDir,
		LogLevel:     envOr("LOG_LEVEL", "info"),
		StoreDriver:  driver,
		DatabaseURL:  db,
		SQLitePath:   sqlitePath,
		Fixtures:     os.Getenv("FIXTURES_PATH"),
		EnsureSchema: envBool("ENSURE_SCHEMA", false),

		Services:     services,
		AvgWindow:    time.Duration(envInt("AVG_WINDOW_MINUTES", 60, 1)) * time.Minute,
		QueryTimeout: time.Duration(envInt("QUERY_TIMEOUT_MS", 30000, 1)) * time.Millisecond,
		MinServices:  envInt("MIN_SERVICES_DOWN", 2, 1),

		PublicAPIKeys:  splitList(os.Getenv("PUBLIC_API_KEYS")),
		AdminAPIKeys:   splitList(os.Getenv("ADMIN_API_KEYS")),
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		PublicRPM:      envInt("PUBLIC_RPM", 120, 0),
		PublicBurst:    envInt("PUBLIC_BURST", 60, 1),
		AdminRPM:       envInt("ADMIN_RPM", 30, 0),
		AdminBurst:     envInt("ADMIN_BURST", 10, 1),
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envInt falls back to def when the value is missing, malformed or below floor.
func envInt(key string, def, floor int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= floor {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
