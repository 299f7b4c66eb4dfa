// file: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Cache        CacheConfig
	Realtime     RealtimeConfig
	Auth         AuthConfig
	Gamification GamificationConfig
	Logging      LoggingConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string        `json:"port"`
	Host            string        `json:"host"`
	Environment     string        `json:"environment"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	EnableSwagger   bool          `json:"enable_swagger"`
	SwaggerUsername string        `json:"-"`
	SwaggerPassword string        `json:"-"`

	// RateLimitPerMinute bounds points mutations per caller; 0 disables the limiter
	RateLimitPerMinute int      `json:"rate_limit_per_minute"`
	AllowedOrigins     []string `json:"allowed_origins"`
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL                string        `json:"-"`
	MaxOpenConns       int           `json:"max_open_conns"`
	MaxIdleConns       int           `json:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `json:"conn_max_idle_time"`
	SlowQueryThreshold time.Duration `json:"slow_query_threshold"`
	RunMigrations      bool          `json:"run_migrations"`
	MaxRetryAttempts   int           `json:"max_retry_attempts"`
	RetryBackoff       time.Duration `json:"retry_backoff"`
}

// CacheConfig selects and tunes the cache provider
type CacheConfig struct {
	Provider      string        `json:"provider"`
	RedisURL      string        `json:"-"`
	RedisPassword string        `json:"-"`
	RedisDB       int           `json:"redis_db"`
	PoolSize      int           `json:"pool_size"`
	DefaultTTL    time.Duration `json:"default_ttl"`
	MaxKeys       int           `json:"max_keys"`
}

// RealtimeConfig controls fan-out transports
type RealtimeConfig struct {
	RedisEnabled    bool          `json:"redis_enabled"`
	ChannelPrefix   string        `json:"channel_prefix"`
	ReadBufferSize  int           `json:"read_buffer_size"`
	WriteBufferSize int           `json:"write_buffer_size"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	PingInterval    time.Duration `json:"ping_interval"`
	ClientBuffer    int           `json:"client_buffer"`
	AllowedOrigins  []string      `json:"allowed_origins"`
}

// AuthConfig holds settings for validating tokens issued by the platform auth service
type AuthConfig struct {
	JWTSecret string `json:"-"`
	JWTIssuer string `json:"jwt_issuer"`
}

// GamificationConfig tunes the points engine
type GamificationConfig struct {
	StorageDriver        string        `json:"storage_driver"`
	MaxRetries           int           `json:"max_retries"`
	RetryDelay           time.Duration `json:"retry_delay"`
	SeedDefaultTiers     bool          `json:"seed_default_tiers"`
	LeaderboardCacheTTL  time.Duration `json:"leaderboard_cache_ttl"`
	TierCacheTTL         time.Duration `json:"tier_cache_ttl"`
	EventBusWorkers      int           `json:"event_bus_workers"`
	EventBusBufferSize   int           `json:"event_bus_buffer_size"`
	FanoutPublishTimeout time.Duration `json:"fanout_publish_timeout"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Load reads configuration from the environment. Values in .env.<GO_ENV> win over .env.
func Load() (*Config, error) {
	env := getEnv("GO_ENV", "development")

	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server:       loadServerConfig(env),
		Database:     loadDatabaseConfig(env),
		Cache:        loadCacheConfig(),
		Realtime:     loadRealtimeConfig(),
		Auth:         loadAuthConfig(),
		Gamification: loadGamificationConfig(env),
		Logging:      loadLoggingConfig(env),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig(env string) ServerConfig {
	return ServerConfig{
		Port:            getEnv("PORT", "8080"),
		Host:            getEnv("HOST", "0.0.0.0"),
		Environment:     env,
		ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		EnableSwagger:   getBoolEnv("ENABLE_SWAGGER", env != "production"),
		SwaggerUsername: os.Getenv("SWAGGER_USERNAME"),
		SwaggerPassword: os.Getenv("SWAGGER_PASSWORD"),

		RateLimitPerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", 120),
		AllowedOrigins:     getSliceEnv("CORS_ALLOWED_ORIGINS", nil),
	}
}

func loadDatabaseConfig(env string) DatabaseConfig {
	var defaultMaxOpen, defaultMaxIdle int
	var defaultConnLifetime time.Duration

	switch env {
	case "production":
		defaultMaxOpen = 50
		defaultMaxIdle = 20
		defaultConnLifetime = 15 * time.Minute
	case "staging":
		defaultMaxOpen = 25
		defaultMaxIdle = 10
		defaultConnLifetime = 10 * time.Minute
	default: // development
		defaultMaxOpen = 10
		defaultMaxIdle = 5
		defaultConnLifetime = 5 * time.Minute
	}

	return DatabaseConfig{
		URL:                os.Getenv("DATABASE_URL"),
		MaxOpenConns:       getIntEnv("DB_MAX_OPEN_CONNS", defaultMaxOpen),
		MaxIdleConns:       getIntEnv("DB_MAX_IDLE_CONNS", defaultMaxIdle),
		ConnMaxLifetime:    getDurationEnv("DB_CONN_MAX_LIFETIME", defaultConnLifetime),
		ConnMaxIdleTime:    getDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
		SlowQueryThreshold: getDurationEnv("DB_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
		RunMigrations:      getBoolEnv("DB_RUN_MIGRATIONS", true),
		MaxRetryAttempts:   getIntEnv("DB_MAX_RETRY_ATTEMPTS", 5),
		RetryBackoff:       getDurationEnv("DB_RETRY_BACKOFF", time.Second),
	}
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Provider:      getEnv("CACHE_PROVIDER", "memory"),
		RedisURL:      os.Getenv("REDIS_URL"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		PoolSize:      getIntEnv("REDIS_POOL_SIZE", 10),
		DefaultTTL:    getDurationEnv("CACHE_DEFAULT_TTL", 15*time.Minute),
		MaxKeys:       getIntEnv("CACHE_MAX_KEYS", 10000),
	}
}

func loadRealtimeConfig() RealtimeConfig {
	return RealtimeConfig{
		RedisEnabled:    getBoolEnv("REALTIME_REDIS_ENABLED", false),
		ChannelPrefix:   getEnv("REALTIME_CHANNEL_PREFIX", "unihub:"),
		ReadBufferSize:  getIntEnv("WS_READ_BUFFER_SIZE", 1024),
		WriteBufferSize: getIntEnv("WS_WRITE_BUFFER_SIZE", 1024),
		WriteTimeout:    getDurationEnv("WS_WRITE_TIMEOUT", 10*time.Second),
		PingInterval:    getDurationEnv("WS_PING_INTERVAL", 30*time.Second),
		ClientBuffer:    getIntEnv("WS_CLIENT_BUFFER", 32),
		AllowedOrigins:  getSliceEnv("WS_ALLOWED_ORIGINS", nil),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "unihub"),
	}
}

func loadGamificationConfig(env string) GamificationConfig {
	return GamificationConfig{
		StorageDriver:        getEnv("STORAGE_DRIVER", "postgres"),
		MaxRetries:           getIntEnv("GAMIFICATION_MAX_RETRIES", 5),
		RetryDelay:           getDurationEnv("GAMIFICATION_RETRY_DELAY", 20*time.Millisecond),
		SeedDefaultTiers:     getBoolEnv("GAMIFICATION_SEED_TIERS", true),
		LeaderboardCacheTTL:  getDurationEnv("LEADERBOARD_CACHE_TTL", 30*time.Second),
		TierCacheTTL:         getDurationEnv("TIER_CACHE_TTL", 10*time.Minute),
		EventBusWorkers:      getIntEnv("EVENT_BUS_WORKERS", defaultWorkers(env)),
		EventBusBufferSize:   getIntEnv("EVENT_BUS_BUFFER", 1000),
		FanoutPublishTimeout: getDurationEnv("FANOUT_PUBLISH_TIMEOUT", 5*time.Second),
	}
}

func loadLoggingConfig(env string) LoggingConfig {
	return LoggingConfig{
		Level:  getEnv("LOG_LEVEL", getDefaultLogLevel(env)),
		Format: getEnv("LOG_FORMAT", getDefaultLogFormat(env)),
	}
}

// ===============================
// VALIDATION
// ===============================

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if c.Gamification.StorageDriver == "postgres" {
		if err := c.Database.Validate(); err != nil {
			return fmt.Errorf("database config: %w", err)
		}
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	if err := c.Gamification.Validate(); err != nil {
		return fmt.Errorf("gamification config: %w", err)
	}

	if c.IsProduction() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth config: JWT_SECRET must be set for production")
	}

	return nil
}

func (s *ServerConfig) Validate() error {
	if s.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if s.ReadTimeout <= 0 {
		return fmt.Errorf("ReadTimeout must be positive")
	}

	if s.WriteTimeout <= 0 {
		return fmt.Errorf("WriteTimeout must be positive")
	}

	return nil
}

func (d *DatabaseConfig) Validate() error {
	if d.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if d.MaxOpenConns <= 0 {
		return fmt.Errorf("MaxOpenConns must be positive")
	}

	if d.MaxIdleConns < 0 {
		return fmt.Errorf("MaxIdleConns cannot be negative")
	}

	if d.MaxIdleConns > d.MaxOpenConns {
		return fmt.Errorf("MaxIdleConns cannot be greater than MaxOpenConns")
	}

	if d.ConnMaxLifetime <= 0 {
		return fmt.Errorf("ConnMaxLifetime must be positive")
	}

	return nil
}

func (c *CacheConfig) Validate() error {
	switch strings.ToLower(c.Provider) {
	case "memory", "":
		return nil
	case "redis":
		return nil
	default:
		return fmt.Errorf("unsupported cache provider %q", c.Provider)
	}
}

func (g *GamificationConfig) Validate() error {
	switch g.StorageDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported storage driver %q", g.StorageDriver)
	}

	if g.MaxRetries < 0 {
		return fmt.Errorf("GAMIFICATION_MAX_RETRIES cannot be negative")
	}

	if g.EventBusWorkers <= 0 {
		return fmt.Errorf("EVENT_BUS_WORKERS must be positive")
	}

	if g.EventBusBufferSize <= 0 {
		return fmt.Errorf("EVENT_BUS_BUFFER must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// ===============================
// HELPERS
// ===============================

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultWorkers(env string) int {
	if env == "production" {
		return 8
	}
	return 4
}

func getDefaultLogLevel(env string) string {
	switch env {
	case "production":
		return "info"
	default:
		return "debug"
	}
}

func getDefaultLogFormat(env string) string {
	switch env {
	case "production", "staging":
		return "json"
	default:
		return "console"
	}
}
