package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"

	maxWindowHours = 24 * 366
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Log       LogConfig       `json:"log"`
	Database  DatabaseConfig  `json:"database"`
	Mongo     MongoConfig     `json:"mongo"`
	Redis     RedisConfig     `json:"redis"`
	Allocator AllocatorConfig `json:"allocator"`
	Auth      AuthConfig      `json:"auth"`
	Tracing   TracingConfig   `json:"tracing"`
	Analytics AnalyticsConfig `json:"analytics"`
}

type ServerConfig struct {
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	AllowedOrigins []string `json:"allowed_origins"`
}

type LogConfig struct {
	Level string `json:"level"`
}

type DatabaseConfig struct {
	Driver         string `json:"driver"`
	Host           string `json:"host"`
	Port           int    `json:"port"`
	User           string `json:"user"`
	Password       string `json:"password"`
	DBName         string `json:"dbname"`
	SSLMode        string `json:"sslmode"`
	Path           string `json:"path"`
	MigrationsPath string `json:"migrations_path"`
	MaxOpenConns   int    `json:"max_open_conns"`
	MaxIdleConns   int    `json:"max_idle_conns"`
}

type MongoConfig struct {
	URI      string `json:"uri"`
	Database string `json:"database"`
}

type RedisConfig struct {
	Enabled        bool    `json:"enabled"`
	Host           string  `json:"host"`
	Port           int     `json:"port"`
	Password       string  `json:"password"`
	DB             int     `json:"db"`
	ListingTTLMs   int     `json:"listing_ttl_ms"`
	BloomCapacity  uint64  `json:"bloom_capacity"`
	BloomFalseRate float64 `json:"bloom_false_rate"`
}

type AllocatorConfig struct {
	RetryAttempts int `json:"retry_attempts"`
	BaseBackoffMs int `json:"base_backoff_ms"`
	MaxBackoffMs  int `json:"max_backoff_ms"`
}

type AuthConfig struct {
	JWTSecret string `json:"jwt_secret"`
	Issuer    string `json:"issuer"`
	TokenTTL  int    `json:"token_ttl_minutes"`
}

type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	Endpoint    string `json:"endpoint"`
	ServiceName string `json:"service_name"`
	Environment string `json:"environment"`
}

type AnalyticsConfig struct {
	RefreshIntervalSec int `json:"refresh_interval_sec"`
	WindowHours        int `json:"window_hours"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{Level: "info"},
		Database: DatabaseConfig{
			Driver:       DriverPostgres,
			Host:         "localhost",
			Port:         5432,
			User:         "flashsale",
			DBName:       "flashsale",
			SSLMode:      "disable",
			Path:         "flashsale.db",
			MaxOpenConns: 100,
			MaxIdleConns: 50,
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017/?replicaSet=rs0",
			Database: "flashsale",
		},
		Redis: RedisConfig{
			Host:           "localhost",
			Port:           6379,
			ListingTTLMs:   2000,
			BloomCapacity:  100000,
			BloomFalseRate: 0.01,
		},
		Allocator: AllocatorConfig{
			RetryAttempts: 5,
			BaseBackoffMs: 5,
			MaxBackoffMs:  200,
		},
		Auth: AuthConfig{
			Issuer:   "flashsale",
			TokenTTL: 60,
		},
		Tracing: TracingConfig{
			Endpoint:    "http://localhost:14268/api/traces",
			ServiceName: "flashsale-service",
			Environment: "development",
		},
		Analytics: AnalyticsConfig{
			RefreshIntervalSec: 30,
			WindowHours:        24,
		},
	}
}

// LoadConfig reads an optional .env file, then the JSON file at path (if it
// exists) over the defaults, then environment overrides.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		switch {
		case err == nil:
			defer file.Close()
			decoder := json.NewDecoder(file)
			if err := decoder.Decode(cfg); err != nil {
				return nil, fmt.Errorf("decode config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvInt("SERVER_PORT", c.Server.Port)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = strings.Split(origins, ",")
	}
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.Path = getEnv("DB_PATH", c.Database.Path)
	c.Database.MigrationsPath = getEnv("DB_MIGRATIONS_PATH", c.Database.MigrationsPath)

	c.Mongo.URI = getEnv("MONGO_URI", c.Mongo.URI)
	c.Mongo.Database = getEnv("MONGO_DATABASE", c.Mongo.Database)

	c.Redis.Enabled = getEnvBool("REDIS_ENABLED", c.Redis.Enabled)
	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnvInt("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)

	c.Allocator.RetryAttempts = getEnvInt("ALLOCATOR_RETRY_ATTEMPTS", c.Allocator.RetryAttempts)
	c.Allocator.BaseBackoffMs = getEnvInt("ALLOCATOR_BASE_BACKOFF_MS", c.Allocator.BaseBackoffMs)
	c.Allocator.MaxBackoffMs = getEnvInt("ALLOCATOR_MAX_BACKOFF_MS", c.Allocator.MaxBackoffMs)

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.Issuer = getEnv("JWT_ISSUER", c.Auth.Issuer)

	c.Tracing.Enabled = getEnvBool("TRACING_ENABLED", c.Tracing.Enabled)
	c.Tracing.Endpoint = getEnv("JAEGER_ENDPOINT", c.Tracing.Endpoint)
	c.Tracing.Environment = getEnv("ENVIRONMENT", c.Tracing.Environment)
}

func (c *Config) Validate() error {
	var problems []string

	switch c.Database.Driver {
	case DriverPostgres, DriverPgx, DriverSQLite, DriverMongo, DriverMemory:
	default:
		problems = append(problems, fmt.Sprintf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, "server.port must be between 1 and 65535")
	}
	if c.Allocator.RetryAttempts < 1 {
		problems = append(problems, "allocator.retry_attempts must be at least 1")
	}
	if c.Allocator.BaseBackoffMs < 0 || c.Allocator.MaxBackoffMs < c.Allocator.BaseBackoffMs {
		problems = append(problems, "allocator backoff must satisfy 0 <= base_backoff_ms <= max_backoff_ms")
	}
	if c.Analytics.WindowHours < 1 || c.Analytics.WindowHours > maxWindowHours {
		problems = append(problems, fmt.Sprintf("analytics.window_hours must be between 1 and %d", maxWindowHours))
	}
	if c.Auth.JWTSecret == "" {
		problems = append(problems, "auth.jwt_secret (JWT_SECRET) is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *RedisConfig) ListingTTL() time.Duration {
	return time.Duration(c.ListingTTLMs) * time.Millisecond
}

func (c *AllocatorConfig) BaseBackoff() time.Duration {
	return time.Duration(c.BaseBackoffMs) * time.Millisecond
}

func (c *AllocatorConfig) MaxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffMs) * time.Millisecond
}

func (c *AuthConfig) TokenLifetime() time.Duration {
	return time.Duration(c.TokenTTL) * time.Minute
}

func (c *AnalyticsConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSec) * time.Second
}

func (c *AnalyticsConfig) Window() time.Duration {
	return time.Duration(c.WindowHours) * time.Hour
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
