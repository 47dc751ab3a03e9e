package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"fumble-backend/internal/analyses"
	"fumble-backend/internal/llm"
	"fumble-backend/internal/llm/gemini"
	"fumble-backend/internal/llm/openai"
	"fumble-backend/internal/services/health"
	"fumble-backend/internal/shared/config"
	"fumble-backend/internal/shared/ratelimit"
	"fumble-backend/internal/shared/server"
	"fumble-backend/internal/shared/storage/db"
	"fumble-backend/internal/shared/telemetry"
	"fumble-backend/internal/usage"
)

// App holds process-wide dependencies, built once at startup.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	LLM             llm.Client
	Provider        string
	Model           string
	Limiter         *ratelimit.Limiter
	UsageService    *usage.Service
	AnalysesService *analyses.Service
	AnalysisHandler *analyses.Handler
	UsageHandler    *usage.Handler
	Health          *health.Service
}

// Build prepares shared dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "production"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = analyses.DefaultMaxUploadBytes
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, provider, model, err := BuildLLM(cfg)
	if err != nil {
		if sqlDB != nil {
			sqlDB.Close()
		}
		return nil, err
	}

	app := &App{
		Config:   cfg,
		DB:       sqlDB,
		LLM:      client,
		Provider: provider,
		Model:    model,
		Limiter:  ratelimit.New(nil),
	}

	if sqlDB != nil {
		app.UsageService = usage.NewPostgresService(sqlDB, cfg.DailyQuota)
	} else {
		app.UsageService = usage.NewService(cfg.DailyQuota)
	}
	app.AnalysesService = &analyses.Service{
		LLM:            client,
		Usage:          app.UsageService,
		Provider:       provider,
		Model:          model,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}
	app.AnalysisHandler = analyses.NewHandler(app.AnalysesService)
	app.UsageHandler = usage.NewHandler(app.UsageService)
	app.Health = health.NewService(provider, model, sqlDB)

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		AnalysisHandler: app.AnalysisHandler,
		UsageHandler:    app.UsageHandler,
		Health:          app.Health,
		Limiter:         app.Limiter,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":         cfg.Env,
		"provider":    provider,
		"model":       model,
		"daily_quota": cfg.DailyQuota,
		"database":    sqlDB != nil,
	})
	return app, nil
}

// Close releases the database pool, if any.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// BuildLLM picks the vision provider from configuration. Without credentials
// dev-like environments get a placeholder that fails every call.
func BuildLLM(cfg config.Config) (llm.Client, string, string, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return placeholder(cfg, config.ProviderGemini, "GEMINI_API_KEY")
		}
		client, err := gemini.New(cfg.GeminiAPIKey, cfg.LLMModel, cfg.LLMTemperature)
		if err != nil {
			return nil, "", "", err
		}
		return client, config.ProviderGemini, client.Model(), nil
	default:
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return placeholder(cfg, config.ProviderOpenAI, "OPENAI_API_KEY")
		}
		client, err := openai.NewClient(openai.Config{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
			BaseURL:     cfg.OpenAIBaseURL,
		})
		if err != nil {
			return nil, "", "", err
		}
		return client, config.ProviderOpenAI, client.Model(), nil
	}
}

func placeholder(cfg config.Config, provider, keyName string) (llm.Client, string, string, error) {
	if !isDevLike(cfg.Env) {
		return nil, "", "", fmt.Errorf("%s is required", keyName)
	}
	telemetry.Warn("bootstrap.llm_not_configured", map[string]any{
		"provider": provider,
		"missing":  keyName,
	})
	return llm.PlaceholderClient{}, provider, "unconfigured", nil
}

// Quotas are the only persisted state, so the database is opened only when
// they are enabled.
func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if cfg.DailyQuota <= 0 {
		return nil, nil
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_usage", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required when DAILY_QUOTA is set")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err == nil {
		err = db.RunMigrations(ctx, sqlDB)
		if err != nil {
			sqlDB.Close()
		}
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_usage", map[string]any{"reason": "database unavailable", "error": err})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func isDevLike(env string) bool {
	return config.IsDevLike(strings.ToLower(strings.TrimSpace(env)))
}
