package app

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/gradebook/internal/gradebook/service"
	"github.com/aussiebroadwan/gradebook/pkg/httpx"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Denylist backends.
const (
	DenylistStore = "store"
	DenylistRedis = "redis"
	DenylistNone  = "none"
)

type Config struct {
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Denylist purge interval (default: 1h)

	DatabaseDriver string // sqlite or postgres (default: sqlite)
	DatabaseFile   string // SQLite file (default: ./gradebook.db)
	DatabaseURL    string // PostgreSQL DSN, required for postgres

	PepperFile    string // Password pepper file (default: ./pepper)
	MasterKeyPath string // Optional: key file for sealing TOTP secrets

	Issuer        string // iss claim on session tokens (default: gradebook)
	MFAIssuer     string // Label shown in authenticator apps
	JWTSecret     string // HS256 secret; ephemeral in dev when both are empty
	JWTSecretFile string
	TokenTTL      time.Duration // Session lifetime (default: 60m)

	TokenTransport httpx.Transport // bearer, cookie or any (default: any)
	CookieSecure   bool            // Secure flag on the session cookie (default: true)

	Denylist      string // store, redis or none (default: store)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RegistrationMode service.RegistrationMode // open or admin (default: open)
	CORSOrigins      []string
	TrustedProxies   []string // Peers allowed to set X-Forwarded-For (default: none)
	HashConcurrency  int      // Concurrent Argon2id evaluations (default: NumCPU)
	AuditBuffer      int      // Queued audit entries before dropping (default: 256)

	BootstrapAdminEmail    string // Optional: create this admin when none exists
	BootstrapAdminPassword string // Generated and logged once when empty
	BootstrapAdminName     string
}

// LoadConfig reads the configuration from the environment. Unparseable
// enum values are kept as-is so Validate can report them.
func LoadConfig() Config {
	return Config{
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		DatabaseDriver: strings.ToLower(getEnvOrDefault("GRADEBOOK_DATABASE_DRIVER", DriverSQLite)),
		DatabaseFile:   getEnvOrDefault("GRADEBOOK_DATABASE_FILE", "gradebook.db"),
		DatabaseURL:    os.Getenv("GRADEBOOK_DATABASE_URL"),

		PepperFile:    getEnvOrDefault("GRADEBOOK_PEPPER_FILE", "pepper"),
		MasterKeyPath: os.Getenv("GRADEBOOK_MASTER_KEY_PATH"),

		Issuer:        getEnvOrDefault("GRADEBOOK_ISSUER", "gradebook"),
		MFAIssuer:     getEnvOrDefault("GRADEBOOK_MFA_ISSUER", "Sistema de Notas"),
		JWTSecret:     os.Getenv("GRADEBOOK_JWT_SECRET"),
		JWTSecretFile: os.Getenv("GRADEBOOK_JWT_SECRET_FILE"),
		TokenTTL:      getEnvDurationOrDefault("GRADEBOOK_TOKEN_TTL", 60*time.Minute),

		TokenTransport: httpx.Transport(strings.ToLower(getEnvOrDefault("GRADEBOOK_TOKEN_TRANSPORT", string(httpx.TransportAny)))),
		CookieSecure:   getEnvBoolOrDefault("GRADEBOOK_COOKIE_SECURE", true),

		Denylist:      strings.ToLower(getEnvOrDefault("GRADEBOOK_DENYLIST", DenylistStore)),
		RedisAddr:     getEnvOrDefault("GRADEBOOK_REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("GRADEBOOK_REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("GRADEBOOK_REDIS_DB", 0),

		RegistrationMode: service.RegistrationMode(strings.ToLower(getEnvOrDefault("GRADEBOOK_REGISTRATION_MODE", string(service.RegistrationOpen)))),
		CORSOrigins:      splitList(getEnvOrDefault("GRADEBOOK_CORS_ORIGINS", "http://localhost:8100,http://localhost:4200")),
		TrustedProxies:   splitList(os.Getenv("GRADEBOOK_TRUSTED_PROXIES")),
		HashConcurrency:  getEnvIntOrDefault("GRADEBOOK_HASH_CONCURRENCY", runtime.NumCPU()),
		AuditBuffer:      getEnvIntOrDefault("GRADEBOOK_AUDIT_BUFFER", 256),

		BootstrapAdminEmail:    os.Getenv("GRADEBOOK_BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapAdminPassword: os.Getenv("GRADEBOOK_BOOTSTRAP_ADMIN_PASSWORD"),
		BootstrapAdminName:     getEnvOrDefault("GRADEBOOK_BOOTSTRAP_ADMIN_NAME", "Administrador"),
	}
}

// IsProd reports whether the service runs in production.
func (c Config) IsProd() bool {
	return c.Env == "prod" || c.Env == "production"
}

// Validate reports every configuration problem at once.
func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("GRADEBOOK_DATABASE_FILE is required for sqlite"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("GRADEBOOK_DATABASE_URL is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown GRADEBOOK_DATABASE_DRIVER %q", c.DatabaseDriver))
	}

	if _, err := httpx.ParseTransport(string(c.TokenTransport)); err != nil {
		errs = append(errs, fmt.Errorf("GRADEBOOK_TOKEN_TRANSPORT: %w", err))
	}
	if _, err := service.ParseRegistrationMode(string(c.RegistrationMode)); err != nil {
		errs = append(errs, fmt.Errorf("GRADEBOOK_REGISTRATION_MODE: %w", err))
	}

	if _, err := httpx.ParseTrustedProxies(c.TrustedProxies); err != nil {
		errs = append(errs, fmt.Errorf("GRADEBOOK_TRUSTED_PROXIES: %w", err))
	}

	switch c.Denylist {
	case DenylistStore, DenylistNone:
	case DenylistRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("GRADEBOOK_REDIS_ADDR is required for the redis denylist"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown GRADEBOOK_DENYLIST %q", c.Denylist))
	}

	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("GRADEBOOK_TOKEN_TTL must be positive"))
	}
	if c.AuditBuffer <= 0 {
		errs = append(errs, errors.New("GRADEBOOK_AUDIT_BUFFER must be positive"))
	}

	if c.IsProd() {
		if c.JWTSecret == "" && c.JWTSecretFile == "" {
			errs = append(errs, errors.New("GRADEBOOK_JWT_SECRET or GRADEBOOK_JWT_SECRET_FILE is required in prod"))
		}
		if c.MasterKeyPath == "" {
			errs = append(errs, errors.New("GRADEBOOK_MASTER_KEY_PATH is required in prod"))
		}
		if !c.CookieSecure {
			errs = append(errs, errors.New("GRADEBOOK_COOKIE_SECURE cannot be disabled in prod"))
		}
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
