package analyses

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fumble-backend/internal/llm"
	"fumble-backend/internal/usage"
	"fumble-backend/internal/verdict"
)

func TestAnalyzeReturnsNormalizedVerdict(t *testing.T) {
	fake := &fakeLLM{reply: cookedReply}
	svc := &Service{LLM: fake}

	res, err := svc.Analyze(context.Background(), Screenshot{Data: pngBytes(128), MIMEType: "image/png"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Outcome != verdict.OutcomeCooked {
		t.Fatalf("unexpected outcome %q", res.Outcome)
	}
	if res.Roast != "Smooth opener, zero cringe." || res.Tip != "Lock in the plan." {
		t.Fatalf("unexpected verdict: %+v", res)
	}
	if fake.calls != 1 {
		t.Fatalf("expected one model call, got %d", fake.calls)
	}
	if fake.last.MIMEType != "image/png" || len(fake.last.Image) != 128 {
		t.Fatalf("unexpected model input: %s %d", fake.last.MIMEType, len(fake.last.Image))
	}
}

func TestAnalyzeFencedReply(t *testing.T) {
	fake := &fakeLLM{reply: "Here you go:\n```json\n" + cookedReply + "\n```"}
	svc := &Service{LLM: fake}

	res, err := svc.Analyze(context.Background(), Screenshot{Data: pngBytes(64), MIMEType: "image/png"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Outcome != verdict.OutcomeCooked {
		t.Fatalf("expected fenced reply to be parsed, got %+v", res)
	}
}

func TestAnalyzeMalformedReplyFallsBack(t *testing.T) {
	for _, reply := range []string{"", "I can't judge this one.", `{"outcome":"You cooked 🔥"}`, "null"} {
		fake := &fakeLLM{reply: reply}
		svc := &Service{LLM: fake}

		res, rep, err := svc.AnalyzeReport(context.Background(), Screenshot{Data: pngBytes(64), MIMEType: "image/png"})
		if err != nil {
			t.Fatalf("reply %q: unexpected error %v", reply, err)
		}
		if res != verdict.Fallback() || !rep.Fallback {
			t.Fatalf("reply %q: expected fallback, got %+v %+v", reply, res, rep)
		}
	}
}

func TestAnalyzeUnknownOutcomeIsReplaced(t *testing.T) {
	fake := &fakeLLM{reply: `{"outcome":"Legendary","roast":"ok","tip":"ok"}`}
	svc := &Service{LLM: fake}

	res, rep, err := svc.AnalyzeReport(context.Background(), Screenshot{Data: pngBytes(64), MIMEType: "image/png"})
	if err != nil {
		t.Fatalf("AnalyzeReport: %v", err)
	}
	if res.Outcome != verdict.OutcomeRecoverable || !rep.OutcomeReplaced {
		t.Fatalf("expected outcome replacement, got %+v %+v", res, rep)
	}
	if res.Roast != "ok" || res.Tip != "ok" {
		t.Fatalf("roast and tip must be kept, got %+v", res)
	}
}

func TestAnalyzeUpstreamFailure(t *testing.T) {
	boom := errors.New("401 invalid api key sk-secret")
	fake := &fakeLLM{err: boom}
	svc := &Service{LLM: fake}

	_, err := svc.Analyze(context.Background(), Screenshot{Data: pngBytes(64), MIMEType: "image/png"})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected underlying error to be wrapped, got %v", err)
	}
	if fake.calls != 1 {
		t.Fatalf("expected exactly one model call, got %d", fake.calls)
	}
}

func TestAnalyzeWithoutProviderFailsUpstream(t *testing.T) {
	svc := &Service{}
	_, err := svc.Analyze(context.Background(), Screenshot{Data: pngBytes(64), MIMEType: "image/png"})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream without a provider, got %v", err)
	}
}

func TestAnalyzeRejectsInvalidInputBeforeModelCall(t *testing.T) {
	cases := []struct {
		name string
		shot Screenshot
		want error
	}{
		{name: "empty", shot: Screenshot{MIMEType: "image/png"}, want: ErrNoImage},
		{name: "pdf", shot: Screenshot{Data: pdfBytes(), MIMEType: "application/pdf"}, want: ErrUnsupportedType},
		{name: "too large", shot: Screenshot{Data: pngBytes(DefaultMaxUploadBytes + 1), MIMEType: "image/png"}, want: ErrTooLarge},
	}
	for _, tc := range cases {
		fake := &fakeLLM{reply: cookedReply}
		svc := &Service{LLM: fake}
		_, err := svc.Analyze(context.Background(), tc.shot)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if fake.calls != 0 {
			t.Fatalf("%s: model must not be called", tc.name)
		}
	}
}

func TestAnalyzeQuota(t *testing.T) {
	fake := &fakeLLM{reply: cookedReply}
	svc := &Service{LLM: fake, Usage: usage.NewService(1)}
	shot := Screenshot{Data: pngBytes(64), MIMEType: "image/png", ClientKey: "203.0.113.5"}

	if _, err := svc.Analyze(context.Background(), shot); err != nil {
		t.Fatalf("first analysis: %v", err)
	}
	if _, err := svc.Analyze(context.Background(), shot); !errors.Is(err, usage.ErrLimitReached) {
		t.Fatalf("expected ErrLimitReached, got %v", err)
	}
	if fake.calls != 1 {
		t.Fatalf("quota rejection must not call the model, calls=%d", fake.calls)
	}
}

func TestAnalyzeUpstreamFailureDoesNotConsumeQuota(t *testing.T) {
	fake := &fakeLLM{err: errors.New("timeout")}
	quota := usage.NewService(1)
	svc := &Service{LLM: fake, Usage: quota}
	shot := Screenshot{Data: pngBytes(64), MIMEType: "image/png", ClientKey: "203.0.113.6"}

	if _, err := svc.Analyze(context.Background(), shot); !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	ok, _, err := quota.CanConsume(context.Background(), shot.ClientKey, 1)
	if err != nil || !ok {
		t.Fatalf("failed analyses should not count, ok=%v err=%v", ok, err)
	}
}

type slowLLM struct {
	calls atomic.Int32
	delay time.Duration
}

func (s *slowLLM) JudgeScreenshot(ctx context.Context, in llm.ScreenshotInput) (string, error) {
	s.calls.Add(1)
	time.Sleep(s.delay)
	return cookedReply, nil
}

func TestAnalyzeConcurrentRequestsRespectQuota(t *testing.T) {
	model := &slowLLM{delay: 20 * time.Millisecond}
	svc := &Service{LLM: model, Usage: usage.NewService(1)}
	shot := Screenshot{Data: pngBytes(64), MIMEType: "image/png", ClientKey: "203.0.113.8"}

	var served, limited atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Analyze(context.Background(), shot)
			switch {
			case err == nil:
				served.Add(1)
			case errors.Is(err, usage.ErrLimitReached):
				limited.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if served.Load() != 1 || limited.Load() != 9 {
		t.Fatalf("expected 1 served and 9 limited, got %d and %d", served.Load(), limited.Load())
	}
	if got := model.calls.Load(); got != 1 {
		t.Fatalf("expected one model call, got %d", got)
	}
}
