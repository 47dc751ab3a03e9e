package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	analysesRequestedTotal       atomic.Uint64
	analysesCompletedTotal       atomic.Uint64
	analysesFallbackTotal        atomic.Uint64
	analysesOutcomeReplacedTotal atomic.Uint64
	analysesUpstreamFailedTotal  atomic.Uint64
	uploadsRejectedTotal         atomic.Uint64
	requestsLimitedTotal         atomic.Uint64

	modelLatency = newHistogram([]float64{250, 500, 1000, 2000, 4000, 8000, 15000, 30000, 60000})
)

func IncAnalysisRequested()       { analysesRequestedTotal.Add(1) }
func IncAnalysisCompleted()       { analysesCompletedTotal.Add(1) }
func IncAnalysisFallback()        { analysesFallbackTotal.Add(1) }
func IncAnalysisOutcomeReplaced() { analysesOutcomeReplacedTotal.Add(1) }
func IncAnalysisUpstreamFailed()  { analysesUpstreamFailedTotal.Add(1) }
func IncUploadRejected()          { uploadsRejectedTotal.Add(1) }
func IncRequestLimited()          { requestsLimitedTotal.Add(1) }

// ObserveModelLatencyMs records one model round trip in milliseconds.
func ObserveModelLatencyMs(value float64) {
	if value < 0 {
		value = 0
	}
	modelLatency.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "fumble_analyses_requested_total", "Screenshots accepted for analysis", analysesRequestedTotal.Load())
	writeCounter(&buf, "fumble_analyses_completed_total", "Analyses answered with a verdict", analysesCompletedTotal.Load())
	writeCounter(&buf, "fumble_analyses_fallback_total", "Verdicts replaced by the fallback", analysesFallbackTotal.Load())
	writeCounter(&buf, "fumble_analyses_outcome_replaced_total", "Verdicts whose outcome was outside the allowed set", analysesOutcomeReplacedTotal.Load())
	writeCounter(&buf, "fumble_analyses_upstream_failed_total", "Model calls that failed", analysesUpstreamFailedTotal.Load())
	writeCounter(&buf, "fumble_uploads_rejected_total", "Uploads rejected before the model call", uploadsRejectedTotal.Load())
	writeCounter(&buf, "fumble_requests_limited_total", "Requests rejected by rate limit or quota", requestsLimitedTotal.Load())
	writeHistogram(&buf, "fumble_model_latency_ms", "Model call latency in milliseconds", modelLatency.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe counts value in the first bucket that holds it; Render accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
