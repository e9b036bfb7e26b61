package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	env := map[string]string{
		"API_JWT_SECRET": "test-secret",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Database.Path != defaultSQLitePath {
		t.Errorf("unexpected sqlite path: %s", cfg.Database.Path)
	}
	if cfg.Redis.Addr != defaultRedisAddr {
		t.Errorf("unexpected redis addr: %s", cfg.Redis.Addr)
	}
	if cfg.Session.TTL != 30*time.Minute {
		t.Errorf("unexpected session ttl: %s", cfg.Session.TTL)
	}
	if cfg.Session.MemoryFallback {
		t.Error("memory fallback must default to off")
	}
	if cfg.AI.Model != defaultOpenAIModel {
		t.Errorf("unexpected model: %s", cfg.AI.Model)
	}
	if cfg.AI.ClassifyTimeout != 5*time.Second {
		t.Errorf("unexpected classify timeout: %s", cfg.AI.ClassifyTimeout)
	}
	if cfg.AI.GenerateTimeout != 10*time.Second {
		t.Errorf("unexpected generate timeout: %s", cfg.AI.GenerateTimeout)
	}
	if cfg.RateLimits.LoginPerMinute != 5 {
		t.Errorf("unexpected login rate limit: %d", cfg.RateLimits.LoginPerMinute)
	}
	if cfg.RateLimits.ChatPerMinute != 30 {
		t.Errorf("unexpected chat rate limit: %d", cfg.RateLimits.ChatPerMinute)
	}
	if cfg.RateLimits.HealthPerMinute != 100 {
		t.Errorf("unexpected health rate limit: %d", cfg.RateLimits.HealthPerMinute)
	}
	if cfg.Idempotency.Header != defaultIdempotencyKey {
		t.Errorf("unexpected idempotency header: %s", cfg.Idempotency.Header)
	}
	if cfg.Security.TokenTTL != defaultJWTTTL {
		t.Errorf("unexpected token ttl: %s", cfg.Security.TokenTTL)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := map[string]string{
		"API_SERVER_PORT":             "9090",
		"API_SERVER_READ_TIMEOUT":     "20s",
		"API_SERVER_IDLE_TIMEOUT":     "2m",
		"API_SQLITE_PATH":             "/data/store.db",
		"API_REDIS_ADDR":              "redis:6380",
		"API_REDIS_DB":                "3",
		"API_SESSION_TTL":             "45m",
		"API_SESSION_MEMORY_FALLBACK": "true",
		"API_OPENAI_API_KEY":          "sk-test",
		"API_OPENAI_MODEL":            "gpt-4o",
		"API_AI_CLASSIFY_TIMEOUT":     "3s",
		"API_ELEVENLABS_API_KEY":      "el-test",
		"API_FAQ_CSV_PATH":            "/data/faq.csv",
		"API_RATELIMIT_LOGIN_PER_MIN": "10",
		"API_JWT_SECRET":              "override-secret",
		"API_JWT_TTL":                 "12h",
		"API_IDEMPOTENCY_HEADER":      "X-Idem-Key",
		"API_IDEMPOTENCY_TTL":         "48h",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.IdleTimeout != 2*time.Minute {
		t.Errorf("unexpected idle timeout: %s", cfg.Server.IdleTimeout)
	}
	if cfg.Database.Path != "/data/store.db" {
		t.Errorf("unexpected sqlite path: %s", cfg.Database.Path)
	}
	if cfg.Redis.Addr != "redis:6380" || cfg.Redis.DB != 3 {
		t.Errorf("unexpected redis config: %+v", cfg.Redis)
	}
	if cfg.Session.TTL != 45*time.Minute {
		t.Errorf("unexpected session ttl: %s", cfg.Session.TTL)
	}
	if !cfg.Session.MemoryFallback {
		t.Error("expected memory fallback enabled")
	}
	if cfg.AI.OpenAIAPIKey != "sk-test" || cfg.AI.Model != "gpt-4o" {
		t.Errorf("unexpected AI config: %+v", cfg.AI)
	}
	if cfg.AI.ClassifyTimeout != 3*time.Second {
		t.Errorf("unexpected classify timeout: %s", cfg.AI.ClassifyTimeout)
	}
	if cfg.Knowledge.CSVPath != "/data/faq.csv" {
		t.Errorf("unexpected faq path: %s", cfg.Knowledge.CSVPath)
	}
	if cfg.RateLimits.LoginPerMinute != 10 {
		t.Errorf("unexpected login rate limit: %d", cfg.RateLimits.LoginPerMinute)
	}
	if cfg.Security.JWTSecret != "override-secret" {
		t.Errorf("unexpected jwt secret: %s", cfg.Security.JWTSecret)
	}
	if cfg.Security.TokenTTL != 12*time.Hour {
		t.Errorf("unexpected token ttl: %s", cfg.Security.TokenTTL)
	}
	if cfg.Idempotency.Header != "X-Idem-Key" {
		t.Errorf("unexpected idempotency header: %s", cfg.Idempotency.Header)
	}
	if cfg.Idempotency.TTL != 48*time.Hour {
		t.Errorf("unexpected idempotency ttl: %s", cfg.Idempotency.TTL)
	}
}

func TestLoadDotEnvFallback(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "API_SERVER_PORT=7070\nAPI_JWT_SECRET=dot-secret\n"
	if err := os.WriteFile(envPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write dotenv file: %v", err)
	}

	cfg, err := Load(WithEnvFile(envPath), WithoutSystemEnv())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port from dotenv 7070, got %s", cfg.Server.Port)
	}
	if cfg.Security.JWTSecret != "dot-secret" {
		t.Errorf("expected jwt secret from dotenv, got %s", cfg.Security.JWTSecret)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	_, err := Load(WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	found := false
	for _, field := range verr.Fields() {
		if field == "Security.JWTSecret" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected Security.JWTSecret among missing fields, got %v", verr.Fields())
	}
}
