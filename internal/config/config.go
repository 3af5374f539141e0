package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/spec-kit/helpdesk-sla/internal/domain"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	SLA          SLAConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
	// Development switches to console output with stack traces on warnings.
	Development bool
	Service     string
}

// AuthConfig defines authentication parameters for API callers and the cron trigger.
type AuthConfig struct {
	JWTSecret      string
	CronSecretHash string
}

// SLAConfig tunes the SLA engine.
type SLAConfig struct {
	DefaultTimeZone    string
	WarningPercent     float64
	MaxEscalationLevel int
	SweepBatchSize     int
	// SweepInterval runs the sweep in-process when positive; zero leaves it to the HTTP trigger.
	SweepInterval      time.Duration
	DefaultHours       map[domain.TicketPriority]float64
	WarningDedupTTL    time.Duration
	NoResponseDays     int
	NoResponseDedupTTL time.Duration
	// NoResponseConditions is an optional JSON condition list narrowing the no-response rule.
	NoResponseConditions string
}

// NotificationConfig controls notification fan-out.
type NotificationConfig struct {
	ChannelPrefix string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	defaultHours, err := ParseDefaultHours(getEnv("SLA_DEFAULT_HOURS", "baixa:72,media:24,alta:8,critica:4"))
	if err != nil {
		return nil, fmt.Errorf("invalid SLA_DEFAULT_HOURS: %w", err)
	}

	tz := getEnv("SLA_DEFAULT_TIMEZONE", "America/Sao_Paulo")
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid SLA_DEFAULT_TIMEZONE: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-sla"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnv("APP_ENV", "development") == "development",
			Service:     getEnv("APP_NAME", "helpdesk-sla"),
		},
		Auth: AuthConfig{
			JWTSecret:      getEnv("AUTH_JWT_SECRET", "dev-secret"),
			CronSecretHash: os.Getenv("CRON_SECRET_HASH"),
		},
		SLA: SLAConfig{
			DefaultTimeZone:      tz,
			WarningPercent:       getEnvAsFloat("SLA_WARNING_PERCENT", 80),
			MaxEscalationLevel:   getEnvAsInt("SLA_MAX_ESCALATION_LEVEL", 3),
			SweepBatchSize:       getEnvAsInt("SLA_SWEEP_BATCH_SIZE", 200),
			SweepInterval:        time.Duration(getEnvAsInt("SLA_SWEEP_INTERVAL_SECONDS", 0)) * time.Second,
			DefaultHours:         defaultHours,
			WarningDedupTTL:      time.Duration(getEnvAsInt("SLA_WARNING_DEDUP_HOURS", 24)) * time.Hour,
			NoResponseDays:       getEnvAsInt("NO_RESPONSE_DAYS", 3),
			NoResponseDedupTTL:   time.Duration(getEnvAsInt("NO_RESPONSE_DEDUP_HOURS", 24)) * time.Hour,
			NoResponseConditions: os.Getenv("NO_RESPONSE_CONDITIONS"),
		},
		Notification: NotificationConfig{
			ChannelPrefix: getEnv("NOTIFY_CHANNEL_PREFIX", "notifications"),
		},
	}

	return cfg, nil
}

// ParseDefaultHours parses "priority:hours" pairs separated by commas.
func ParseDefaultHours(raw string) (map[domain.TicketPriority]float64, error) {
	out := make(map[domain.TicketPriority]float64)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("expected priority:hours, got %q", pair)
		}
		priority := domain.TicketPriority(strings.TrimSpace(name))
		if !priority.Valid() {
			return nil, fmt.Errorf("unknown priority %q", name)
		}
		hours, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || hours <= 0 {
			return nil, fmt.Errorf("invalid hours %q for %s", value, priority)
		}
		out[priority] = hours
	}
	return out, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Location resolves the default SLA time zone.
func (s SLAConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.DefaultTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
