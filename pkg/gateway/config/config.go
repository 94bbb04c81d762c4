// Package config loads gateway configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LLM provider selection values.
const (
	LLMProviderOpenAI = "openai"
	LLMProviderGemini = "gemini"
)

type Config struct {
	Addr string

	// Session engine tuning.
	MaxTurnPairs       int
	SessionIdleTimeout time.Duration
	CleanupPeriod      time.Duration

	// Storage.
	AudioDir      string
	HistoryDBPath string

	// LLM backend: openai or gemini.
	LLMProvider string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	WhisperModel  string

	GeminiAPIKey string
	GeminiModel  string

	CartesiaAPIKey  string
	CartesiaVoiceID string

	// Upload limits for the turn endpoint.
	MaxUploadBytes int64

	// CORS; empty means same-origin only.
	CORSAllowedOrigins []string

	// Operational defaults.
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("LUNA_ADDR", ":8080"),
		MaxTurnPairs:        envIntOr("LUNA_MAX_TURN_PAIRS", 15),
		SessionIdleTimeout:  envDurationOr("LUNA_SESSION_IDLE_TIMEOUT", time.Hour),
		CleanupPeriod:       envDurationOr("LUNA_CLEANUP_PERIOD", 10*time.Minute),
		AudioDir:            envOr("LUNA_AUDIO_DIR", "audio_output"),
		HistoryDBPath:       envOr("LUNA_HISTORY_DB", "data/history.db"),
		LLMProvider:         strings.ToLower(envOr("LUNA_LLM_PROVIDER", LLMProviderOpenAI)),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:       envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:         envOr("LUNA_OPENAI_MODEL", "gpt-4o"),
		WhisperModel:        envOr("LUNA_WHISPER_MODEL", "whisper-1"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         envOr("LUNA_GEMINI_MODEL", "gemini-2.0-flash"),
		CartesiaAPIKey:      os.Getenv("CARTESIA_API_KEY"),
		CartesiaVoiceID:     os.Getenv("CARTESIA_VOICE_ID"),
		MaxUploadBytes:      envInt64Or("LUNA_MAX_UPLOAD_BYTES", 10<<20), // 10 MiB
		CORSAllowedOrigins:  splitCSV(os.Getenv("LUNA_CORS_ORIGINS")),
		ReadHeaderTimeout:   envDurationOr("LUNA_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:         envDurationOr("LUNA_READ_TIMEOUT", 60*time.Second),
		ShutdownGracePeriod: envDurationOr("LUNA_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	switch cfg.LLMProvider {
	case LLMProviderOpenAI, LLMProviderGemini:
	default:
		return Config{}, fmt.Errorf("LUNA_LLM_PROVIDER must be one of openai|gemini")
	}

	if cfg.MaxTurnPairs <= 0 {
		return Config{}, fmt.Errorf("LUNA_MAX_TURN_PAIRS must be > 0")
	}
	if cfg.SessionIdleTimeout <= 0 {
		return Config{}, fmt.Errorf("LUNA_SESSION_IDLE_TIMEOUT must be > 0")
	}
	if cfg.CleanupPeriod <= 0 {
		return Config{}, fmt.Errorf("LUNA_CLEANUP_PERIOD must be > 0")
	}
	if strings.TrimSpace(cfg.AudioDir) == "" {
		return Config{}, fmt.Errorf("LUNA_AUDIO_DIR must not be empty")
	}
	if strings.TrimSpace(cfg.HistoryDBPath) == "" {
		return Config{}, fmt.Errorf("LUNA_HISTORY_DB must not be empty")
	}
	if cfg.MaxUploadBytes <= 0 {
		return Config{}, fmt.Errorf("LUNA_MAX_UPLOAD_BYTES must be > 0")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("LUNA_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ReadTimeout <= 0 {
		return Config{}, fmt.Errorf("LUNA_READ_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("LUNA_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
