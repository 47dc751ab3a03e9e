package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Port               string
	Env                string
	CORSAllowOrigin    []string
	TrustedProxies     []string
	LLMProvider        string
	LLMModel           string
	LLMTemperature     float64
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	GeminiAPIKey       string
	MaxUploadBytes     int64
	RateLimitPerMinute int
	DailyQuota         int
	DatabaseURL        string
	TelegramBotToken   string
}

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Load reads configuration from the environment, a local .env file and, when
// cfgFile is set, a YAML/JSON/TOML config file. Environment wins over file.
func Load(cfgFile string) (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Port:               strings.TrimSpace(v.GetString("port")),
		Env:                normalizeEnv(v.GetString("env")),
		CORSAllowOrigin:    splitAndTrim(v.GetString("cors_allow_origins")),
		TrustedProxies:     splitAndTrim(v.GetString("trusted_proxies")),
		LLMProvider:        normalizeProvider(v.GetString("llm_provider")),
		LLMModel:           strings.TrimSpace(v.GetString("llm_model")),
		LLMTemperature:     v.GetFloat64("llm_temperature"),
		OpenAIAPIKey:       strings.TrimSpace(v.GetString("openai_api_key")),
		OpenAIBaseURL:      strings.TrimSpace(v.GetString("openai_base_url")),
		GeminiAPIKey:       strings.TrimSpace(v.GetString("gemini_api_key")),
		MaxUploadBytes:     v.GetInt64("max_upload_bytes"),
		RateLimitPerMinute: v.GetInt("rate_limit_per_minute"),
		DailyQuota:         v.GetInt("daily_quota"),
		DatabaseURL:        strings.TrimSpace(v.GetString("database_url")),
		TelegramBotToken:   strings.TrimSpace(v.GetString("telegram_bot_token")),
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.LLMTemperature <= 0 {
		cfg.LLMTemperature = DefaultTemperature
	}
	return cfg, nil
}

const (
	DefaultMaxUploadBytes = 5 << 20
	DefaultTemperature    = 0.7
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("env", "production")
	v.SetDefault("cors_allow_origins", "*")
	v.SetDefault("trusted_proxies", "")
	v.SetDefault("llm_provider", ProviderOpenAI)
	v.SetDefault("llm_model", "")
	v.SetDefault("llm_temperature", DefaultTemperature)
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("max_upload_bytes", DefaultMaxUploadBytes)
	v.SetDefault("rate_limit_per_minute", 5)
	v.SetDefault("daily_quota", 0)
	v.SetDefault("database_url", "")
	v.SetDefault("telegram_bot_token", "")
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// normalizeEnv maps ENV to a known name. Anything unrecognized is treated as
// production so dev-only routes and the placeholder model are opt-in.
func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "dev", "development":
		return "dev"
	case "local":
		return "local"
	case "staging":
		return "staging"
	default:
		return "production"
	}
}

// IsDevLike reports whether env enables dev-only behaviour.
func IsDevLike(env string) bool {
	switch env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gemini", "google":
		return ProviderGemini
	default:
		return ProviderOpenAI
	}
}
