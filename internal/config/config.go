package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Store drivers understood by Load.
const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Database credentials are only required when the
// MySQL driver is selected.
type Config struct {
	Env           string // application environment (e.g. "dev", "prod")
	Port          string // HTTP port to listen on
	StoreDriver   string // mysql, sqlite or memory
	DBUser        string // database username
	DBPass        string // database password (optional)
	DBHost        string // database host address
	DBPort        string // database port number
	DBName        string // database name
	SQLitePath    string // SQLite file path (":memory:" allowed)
	JWTSecret     string // secret used to sign JWTs
	AccessTTLMin  int    // access token time-to-live in minutes
	BcryptCost    int    // bcrypt cost for password hashing
	AdminEmail    string // bootstrap administrator account (optional)
	AdminPassword string // bootstrap administrator password
	SeedDemo      bool   // create demo sessions on an empty store
}

// Load reads configuration values from the environment, after merging an
// optional .env file from the working directory.  Missing required values
// cause the program to exit with a fatal log message.
func Load() Config {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg := Config{
		Env:           envStr("APP_ENV", "dev"),
		Port:          envStr("APP_PORT", "8080"),
		StoreDriver:   strings.ToLower(envStr("STORE_DRIVER", DriverMySQL)),
		SQLitePath:    envStr("SQLITE_PATH", "clinic.db"),
		JWTSecret:     must("JWT_SECRET"),
		AccessTTLMin:  envInt("ACCESS_TOKEN_TTL_MIN", 60),
		BcryptCost:    envInt("BCRYPT_COST", 12),
		AdminEmail:    strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		SeedDemo:      envBool("SEED_DEMO", false),
	}
	switch cfg.StoreDriver {
	case DriverMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case DriverSQLite, DriverMemory:
	default:
		log.Fatalf("unsupported STORE_DRIVER: %q", cfg.StoreDriver)
	}
	if cfg.AdminEmail != "" && cfg.AdminPassword == "" {
		log.Fatalf("ADMIN_PASSWORD is required when ADMIN_EMAIL is set")
	}
	return cfg
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool { return strings.EqualFold(c.Env, "prod") }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
