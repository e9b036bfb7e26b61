package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile          = ".env"
	defaultPort             = "8080"
	defaultReadTimeout      = 15 * time.Second
	defaultWriteTimeout     = 30 * time.Second
	defaultIdleTimeout      = 120 * time.Second
	defaultSQLitePath       = "ventia.db"
	defaultSQLiteBusyWait   = 5 * time.Second
	defaultRedisAddr        = "localhost:6379"
	defaultSessionTTL       = 30 * time.Minute
	defaultOpenAIModel      = "gpt-4o-mini"
	defaultClassifyTimeout  = 5 * time.Second
	defaultGenerateTimeout  = 10 * time.Second
	defaultTTSTimeout       = 8 * time.Second
	defaultTTSVoiceID       = "pNInz6obpgDQGcFmaJgB"
	defaultJWTTTL           = 24 * time.Hour
	defaultRateLimitLogin   = 5
	defaultRateLimitChat    = 30
	defaultRateLimitHealth  = 100
	defaultRateLimitDefault = 120
	defaultIdempotencyKey   = "Idempotency-Key"
	defaultIdempotencyTTL   = 24 * time.Hour
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Session     SessionConfig
	AI          AIConfig
	TTS         TTSConfig
	Knowledge   KnowledgeConfig
	RateLimits  RateLimitConfig
	Security    SecurityConfig
	Idempotency IdempotencyConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig stores SQLite parameters.
type DatabaseConfig struct {
	Path        string
	BusyTimeout time.Duration
}

// RedisConfig stores connection parameters for the session backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SessionConfig controls conversation session persistence.
type SessionConfig struct {
	TTL time.Duration
	// MemoryFallback swaps the redis-backed store for an in-process map.
	// Development only; must stay off in production.
	MemoryFallback bool
}

// AIConfig defines credentials and budgets for the LLM provider.
type AIConfig struct {
	OpenAIAPIKey    string
	Model           string
	ClassifyTimeout time.Duration
	GenerateTimeout time.Duration
}

// TTSConfig defines the speech synthesis provider settings.
type TTSConfig struct {
	ElevenLabsAPIKey string
	VoiceID          string
	Timeout          time.Duration
}

// KnowledgeConfig locates the FAQ corpus loaded at startup.
type KnowledgeConfig struct {
	CSVPath string
}

// RateLimitConfig controls request throttling per minute.
type RateLimitConfig struct {
	LoginPerMinute   int
	ChatPerMinute    int
	HealthPerMinute  int
	DefaultPerMinute int
}

// SecurityConfig groups token signing settings.
type SecurityConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header string
	TTL    time.Duration
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// and environment variables.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}

	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Database: DatabaseConfig{
			Path:        stringWithDefault(lookup, "API_SQLITE_PATH", defaultSQLitePath),
			BusyTimeout: durationWithDefault(lookup, "API_SQLITE_BUSY_TIMEOUT", defaultSQLiteBusyWait),
		},
		Redis: RedisConfig{
			Addr:     stringWithDefault(lookup, "API_REDIS_ADDR", defaultRedisAddr),
			Password: stringWithDefault(lookup, "API_REDIS_PASSWORD", ""),
			DB:       intWithDefault(lookup, "API_REDIS_DB", 0),
		},
		Session: SessionConfig{
			TTL:            durationWithDefault(lookup, "API_SESSION_TTL", defaultSessionTTL),
			MemoryFallback: boolWithDefault(lookup, "API_SESSION_MEMORY_FALLBACK", false),
		},
		AI: AIConfig{
			OpenAIAPIKey:    stringWithDefault(lookup, "API_OPENAI_API_KEY", ""),
			Model:           stringWithDefault(lookup, "API_OPENAI_MODEL", defaultOpenAIModel),
			ClassifyTimeout: durationWithDefault(lookup, "API_AI_CLASSIFY_TIMEOUT", defaultClassifyTimeout),
			GenerateTimeout: durationWithDefault(lookup, "API_AI_GENERATE_TIMEOUT", defaultGenerateTimeout),
		},
		TTS: TTSConfig{
			ElevenLabsAPIKey: stringWithDefault(lookup, "API_ELEVENLABS_API_KEY", ""),
			VoiceID:          stringWithDefault(lookup, "API_ELEVENLABS_VOICE_ID", defaultTTSVoiceID),
			Timeout:          durationWithDefault(lookup, "API_TTS_TIMEOUT", defaultTTSTimeout),
		},
		Knowledge: KnowledgeConfig{
			CSVPath: stringWithDefault(lookup, "API_FAQ_CSV_PATH", ""),
		},
		RateLimits: RateLimitConfig{
			LoginPerMinute:   intWithDefault(lookup, "API_RATELIMIT_LOGIN_PER_MIN", defaultRateLimitLogin),
			ChatPerMinute:    intWithDefault(lookup, "API_RATELIMIT_CHAT_PER_MIN", defaultRateLimitChat),
			HealthPerMinute:  intWithDefault(lookup, "API_RATELIMIT_HEALTH_PER_MIN", defaultRateLimitHealth),
			DefaultPerMinute: intWithDefault(lookup, "API_RATELIMIT_DEFAULT_PER_MIN", defaultRateLimitDefault),
		},
		Security: SecurityConfig{
			JWTSecret: stringWithDefault(lookup, "API_JWT_SECRET", ""),
			TokenTTL:  durationWithDefault(lookup, "API_JWT_TTL", defaultJWTTTL),
		},
		Idempotency: IdempotencyConfig{
			Header: stringWithDefault(lookup, "API_IDEMPOTENCY_HEADER", defaultIdempotencyKey),
			TTL:    durationWithDefault(lookup, "API_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if strings.TrimSpace(cfg.Database.Path) == "" {
		missing = append(missing, "Database.Path")
	}
	if cfg.Session.TTL <= 0 {
		missing = append(missing, "Session.TTL")
	}
	if strings.TrimSpace(cfg.Security.JWTSecret) == "" {
		missing = append(missing, "Security.JWTSecret")
	}
	if cfg.Security.TokenTTL <= 0 {
		missing = append(missing, "Security.TokenTTL")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		missing = append(missing, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
