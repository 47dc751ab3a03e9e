package main

import (
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"fumble-backend/internal/bootstrap"
	"fumble-backend/internal/shared/ratelimit"
	"fumble-backend/internal/telegram"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram bot",
	Long: `Run the Telegram front end. Users send a chat screenshot as a photo or an
image file and get the verdict back as a reply. Upload limits, the per-minute
rate limit and the daily quota are the same as for the HTTP API.

Requires TELEGRAM_BOT_TOKEN.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if strings.TrimSpace(cfg.TelegramBotToken) == "" {
			return errors.New("TELEGRAM_BOT_TOKEN is required")
		}

		app, err := bootstrap.Build(cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		go app.Limiter.RunJanitor(cmd.Context(), sweepEvery, sweepEvery)
		go app.UsageService.RunJanitor(cmd.Context(), sweepEvery)

		api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
		if err != nil {
			return err
		}

		bot := &telegram.Bot{
			API:            api,
			Analyzer:       app.AnalysesService,
			Limiter:        app.Limiter,
			Rule:           ratelimit.PerMinute(cfg.RateLimitPerMinute),
			MaxUploadBytes: cfg.MaxUploadBytes,
		}
		return bot.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
}
