package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	Ledger   LedgerConfig   `toml:"ledger"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port string `toml:"port"`
	Env  string `toml:"env"`
}

// DatabaseConfig selects and connects the backing store.
type DatabaseConfig struct {
	Driver     string `toml:"driver"` // postgres or sqlite
	Host       string `toml:"host"`
	Port       string `toml:"port"`
	User       string `toml:"user"`
	Password   string `toml:"password"`
	Name       string `toml:"name"`
	SSLMode    string `toml:"sslmode"`
	SQLitePath string `toml:"sqlite_path"`
	Migrations string `toml:"migrations"`
}

// AuthConfig holds JWT settings.
type AuthConfig struct {
	JWTSecret  string        `toml:"jwt_secret"`
	AccessTTL  time.Duration `toml:"-"`
	RefreshTTL time.Duration `toml:"-"`
	AccessRaw  string        `toml:"access_ttl"`
	RefreshRaw string        `toml:"refresh_ttl"`
}

// LedgerConfig holds domain switches.
type LedgerConfig struct {
	RequireReconciliation bool   `toml:"require_reconciliation"`
	CurrencyLabel         string `toml:"currency_label"`
}

// DefaultConfig returns the configuration used when nothing overrides it.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{Port: "8080", Env: "development"},
		Database: DatabaseConfig{
			Driver:     "postgres",
			Host:       "localhost",
			Port:       "5432",
			User:       "budgethq",
			Password:   "budgethq",
			Name:       "budgethq",
			SSLMode:    "disable",
			SQLitePath: "budgethq.db",
			Migrations: "file://migrations",
		},
		Auth: AuthConfig{
			JWTSecret:  "fallback-secret-key-for-dev-only",
			AccessRaw:  "15m",
			RefreshRaw: "168h",
		},
		Ledger: LedgerConfig{RequireReconciliation: true, CurrencyLabel: "USD"},
	}
}

var appConfig *Config

// Load builds the configuration from defaults, an optional TOML file
// (BUDGETHQ_CONFIG, default budgethq.toml), and environment variables, in
// increasing order of precedence.
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg := DefaultConfig()
	path := getEnv("BUDGETHQ_CONFIG", "budgethq.toml")
	if err := loadFile(path, &cfg); err != nil {
		return nil, err
	}
	applyEnv(&cfg)

	cfg.Auth.AccessTTL = parseDuration("access_ttl", cfg.Auth.AccessRaw, 15*time.Minute)
	cfg.Auth.RefreshTTL = parseDuration("refresh_ttl", cfg.Auth.RefreshRaw, 7*24*time.Hour)

	appConfig = &cfg
	return appConfig, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.Env = getEnv("ENV", cfg.Server.Env)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.SQLitePath = getEnv("DB_SQLITE_PATH", cfg.Database.SQLitePath)
	cfg.Database.Migrations = getEnv("DB_MIGRATIONS", cfg.Database.Migrations)

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.AccessRaw = getEnv("JWT_ACCESS_TTL", cfg.Auth.AccessRaw)
	cfg.Auth.RefreshRaw = getEnv("JWT_REFRESH_TTL", cfg.Auth.RefreshRaw)

	if v := os.Getenv("REQUIRE_RECONCILIATION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Ledger.RequireReconciliation = b
		} else {
			log.Printf("Warning: invalid REQUIRE_RECONCILIATION value '%s', keeping %v\n", v, cfg.Ledger.RequireReconciliation)
		}
	}
	cfg.Ledger.CurrencyLabel = getEnv("CURRENCY_LABEL", cfg.Ledger.CurrencyLabel)
}

func parseDuration(name, raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", name, raw, fallback)
		return fallback
	}
	return d
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// Set replaces the process configuration. Tests use it to avoid reading the
// environment.
func Set(cfg *Config) {
	appConfig = cfg
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// URL returns a migrate-compatible database URL for the configured driver.
func (c DatabaseConfig) URL() string {
	if c.Driver == "sqlite" {
		return "sqlite3://" + c.SQLitePath
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
