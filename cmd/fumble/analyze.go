package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"fumble-backend/internal/analyses"
	"fumble-backend/internal/bootstrap"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <screenshot>",
	Short: "Judge a screenshot from disk and print the verdict as JSON",
	Long: `Run one screenshot through the same pipeline as POST /analyze and print
the verdict. Daily quotas and rate limits do not apply.

Examples:
  fumble analyze chat.png
  LLM_PROVIDER=gemini fumble analyze chat.webp`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		path := args[0]
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}

		shot, err := analyses.ReadScreenshot(f, mime.TypeByExtension(filepath.Ext(path)), info.Size(), cfg.MaxUploadBytes)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		shot.FileName = filepath.Base(path)

		client, provider, model, err := bootstrap.BuildLLM(cfg)
		if err != nil {
			return err
		}
		svc := &analyses.Service{
			LLM:            client,
			Provider:       provider,
			Model:          model,
			MaxUploadBytes: cfg.MaxUploadBytes,
		}
		res, err := svc.Analyze(cmd.Context(), shot)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(res)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
