package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Lockout  LockoutConfig
	IPGuard  IPGuardConfig
	TOTP     TOTPConfig
	Redis    RedisConfig
	Email    EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	AutoMigrate       bool
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type AuthConfig struct {
	JWTSecret          string
	JWTIssuer          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	BcryptCost         int
	TimingBaseDelayMs  int
	TimingRandomMs     int
	CleanupInterval    time.Duration
}

// LockoutConfig is the per-account failed login policy
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

// IPGuardConfig is the per-client-IP failed login policy
type IPGuardConfig struct {
	MaxFailures   int
	BlockDuration time.Duration
	Backend       string // "memory" or "redis"
}

type TOTPConfig struct {
	Issuer        string
	Skew          uint
	EncryptionKey []byte // 32 bytes, decoded from TOTP_ENCRYPTION_KEY hex
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type EmailConfig struct {
	Provider    string // "ses" or "log"
	AWSRegion   string
	From        string
	FrontendURL string
}

const (
	IPGuardBackendMemory = "memory"
	IPGuardBackendRedis  = "redis"
)

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "barberbook"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "5000"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:          jwtSecret,
			JWTIssuer:          getEnv("JWT_ISSUER", "barberbook"),
			AccessTokenExpiry:  getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
			RefreshTokenExpiry: getEnvAsDuration("REFRESH_TOKEN_EXPIRY", 7*24*time.Hour),
			BcryptCost:         getEnvAsInt("BCRYPT_COST", 12),
			TimingBaseDelayMs:  getEnvAsInt("TIMING_DELAY_BASE_MS", 300),
			TimingRandomMs:     getEnvAsInt("TIMING_DELAY_RANDOM_MS", 100),
			CleanupInterval:    getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
		},
		Lockout: LockoutConfig{
			Threshold: getEnvAsInt("LOCKOUT_THRESHOLD", 5),
			Duration:  getEnvAsDuration("LOCKOUT_DURATION", 15*time.Minute),
		},
		IPGuard: IPGuardConfig{
			MaxFailures:   getEnvAsInt("IP_GUARD_MAX_FAILURES", 5),
			BlockDuration: getEnvAsDuration("IP_GUARD_BLOCK_DURATION", 15*time.Minute),
			Backend:       strings.ToLower(getEnv("IP_GUARD_BACKEND", IPGuardBackendMemory)),
		},
		TOTP: TOTPConfig{
			Issuer: getEnv("TOTP_ISSUER", "MyBarber.ai"),
			Skew:   uint(getEnvAsInt("TOTP_SKEW", 1)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Email: EmailConfig{
			Provider:    strings.ToLower(getEnv("EMAIL_PROVIDER", "log")),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			From:        getEnv("EMAIL_FROM", "noreply@mybarber.ai"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	key, err := parseEncryptionKey(getEnv("TOTP_ENCRYPTION_KEY", ""))
	if err != nil {
		return nil, err
	}
	cfg.TOTP.EncryptionKey = key

	if err := cfg.validatePolicies(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

// parseEncryptionKey decodes the 64-hex-character AES-256 key for TOTP secrets
func parseEncryptionKey(value string) ([]byte, error) {
	if value == "" {
		return nil, fmt.Errorf("TOTP_ENCRYPTION_KEY is required")
	}
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("TOTP_ENCRYPTION_KEY must be hex encoded: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("TOTP_ENCRYPTION_KEY must decode to 32 bytes (got %d)", len(key))
	}
	return key, nil
}

func (c *Config) validatePolicies() error {
	if c.Lockout.Threshold < 1 {
		return fmt.Errorf("LOCKOUT_THRESHOLD must be at least 1")
	}
	if c.Lockout.Duration <= 0 {
		return fmt.Errorf("LOCKOUT_DURATION must be positive")
	}
	if c.IPGuard.MaxFailures < 1 {
		return fmt.Errorf("IP_GUARD_MAX_FAILURES must be at least 1")
	}
	if c.IPGuard.BlockDuration <= 0 {
		return fmt.Errorf("IP_GUARD_BLOCK_DURATION must be positive")
	}
	switch c.IPGuard.Backend {
	case IPGuardBackendMemory, IPGuardBackendRedis:
	default:
		return fmt.Errorf("IP_GUARD_BACKEND must be %q or %q (got %q)", IPGuardBackendMemory, IPGuardBackendRedis, c.IPGuard.Backend)
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		origins := splitList(getEnv("ALLOWED_ORIGINS", ""))
		if origins == nil {
			return []string{}
		}
		return origins
	}

	return []string{
		"http://localhost:3000",
		"http://localhost:5000",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5000",
		"http://127.0.0.1:5173",
	}
}
