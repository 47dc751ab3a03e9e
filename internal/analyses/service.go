package analyses

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fumble-backend/internal/llm"
	"fumble-backend/internal/shared/metrics"
	"fumble-backend/internal/shared/telemetry"
	"fumble-backend/internal/usage"
	"fumble-backend/internal/verdict"
)

// Service turns screenshots into verdicts. It holds no per-request state.
type Service struct {
	LLM            llm.Client
	Usage          *usage.Service
	Provider       string
	Model          string
	MaxUploadBytes int64
}

// Analyze validates the screenshot, asks the model once and normalizes the
// reply. Malformed replies yield the fallback verdict; only model call
// failures return ErrUpstream.
func (s *Service) Analyze(ctx context.Context, shot Screenshot) (verdict.Result, error) {
	res, _, err := s.AnalyzeReport(ctx, shot)
	return res, err
}

// AnalyzeReport is Analyze plus the corrections normalization applied.
func (s *Service) AnalyzeReport(ctx context.Context, shot Screenshot) (verdict.Result, verdict.Report, error) {
	if err := shot.validate(s.MaxUploadBytes); err != nil {
		metrics.IncUploadRejected()
		return verdict.Result{}, verdict.Report{}, err
	}

	// The unit is reserved before the model call so concurrent requests
	// cannot overshoot the quota. Upstream failures give it back.
	if _, err := s.Usage.Consume(ctx, shot.ClientKey, 1); err != nil {
		if errors.Is(err, usage.ErrLimitReached) {
			metrics.IncRequestLimited()
			return verdict.Result{}, verdict.Report{}, usage.ErrLimitReached
		}
		return verdict.Result{}, verdict.Report{}, fmt.Errorf("reserve usage: %w", err)
	}

	client := s.LLM
	if client == nil {
		client = llm.PlaceholderClient{}
	}

	metrics.IncAnalysisRequested()
	requestID := requestIDFromContext(ctx)
	start := time.Now()
	text, err := client.JudgeScreenshot(ctx, llm.ScreenshotInput{
		Image:    shot.Data,
		MIMEType: shot.MIMEType,
	})
	latency := time.Since(start)
	metrics.ObserveModelLatencyMs(float64(latency.Milliseconds()))
	if err != nil {
		metrics.IncAnalysisUpstreamFailed()
		if _, relErr := s.Usage.Release(context.WithoutCancel(ctx), shot.ClientKey, 1); relErr != nil {
			telemetry.Warn("analysis.usage_release_failed", map[string]any{
				"request_id": requestID,
				"error":      relErr,
			})
		}
		telemetry.Error("analysis.upstream_failed", map[string]any{
			"request_id":  requestID,
			"provider":    s.Provider,
			"model":       s.Model,
			"duration_ms": latency.Milliseconds(),
			"canceled":    errors.Is(err, context.Canceled),
			"error":       err,
		})
		return verdict.Result{}, verdict.Report{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	res, rep := verdict.NormalizeReport(verdict.Extract(text))
	metrics.IncAnalysisCompleted()
	if rep.Fallback {
		metrics.IncAnalysisFallback()
	}
	if rep.OutcomeReplaced {
		metrics.IncAnalysisOutcomeReplaced()
	}

	fields := map[string]any{
		"request_id":       requestID,
		"provider":         s.Provider,
		"model":            s.Model,
		"duration_ms":      latency.Milliseconds(),
		"reply_chars":      len(text),
		"image_bytes":      len(shot.Data),
		"mime_type":        shot.MIMEType,
		"outcome":          string(res.Outcome),
		"fallback":         rep.Fallback,
		"outcome_replaced": rep.OutcomeReplaced,
		"truncated":        rep.Truncated,
	}
	if rep.Reason != "" {
		fields["fallback_reason"] = rep.Reason
	}
	telemetry.Info("analysis.complete", fields)
	return res, rep, nil
}
