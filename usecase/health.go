package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/AzielCF/az-prospect/domains/routing"
	"github.com/AzielCF/az-prospect/pkg/outcomelog"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultHealthWindow     = 15 * time.Minute
	DefaultHealthMaxSamples = 200
	recentErrorLimit        = 20
)

type HealthConfig struct {
	Window     time.Duration
	MaxSamples int
}

type healthMonitor struct {
	log    routing.SampleLog
	window time.Duration
	max    int
	now    func() time.Time

	// local keeps this process's recent failures for when the log is unreachable
	local *outcomelog.Ring[routing.RecentError]
}

// NewHealthMonitor builds the rolling health view over log. A nil clock means time.Now.
func NewHealthMonitor(log routing.SampleLog, cfg HealthConfig, now func() time.Time) routing.IHealthMonitor {
	if cfg.Window <= 0 {
		cfg.Window = DefaultHealthWindow
	}
	if cfg.MaxSamples <= 0 {
		cfg.MaxSamples = DefaultHealthMaxSamples
	}
	if now == nil {
		now = time.Now
	}
	return &healthMonitor{
		log:    log,
		window: cfg.Window,
		max:    cfg.MaxSamples,
		now:    now,
		local:  outcomelog.New[routing.RecentError](recentErrorLimit),
	}
}

func (h *healthMonitor) Observe(ctx context.Context, provider routing.Provider, outcome routing.Outcome) {
	if outcome.Canceled {
		return
	}
	now := h.now().UTC()
	sample := routing.HealthSample{Timestamp: now, Success: outcome.Success}
	if outcome.Latency > 0 {
		ms := outcome.Latency.Milliseconds()
		sample.LatencyMs = &ms
	}
	if !outcome.Success {
		sample.ErrorID = uuid.NewString()
		sample.Error = "call failed"
		if outcome.Err != nil {
			sample.Error = outcome.Err.Error()
		}
		h.local.Push(routing.RecentError{
			ID:        sample.ErrorID,
			Provider:  provider,
			Message:   sample.Error,
			Timestamp: now,
		})
	}

	if err := h.log.Append(ctx, provider, sample, now.Add(-h.window), h.max); err != nil {
		logrus.WithError(err).Warnf("[HEALTH] Failed to record %s sample", provider)
	}
}

// GetHealthSummary never fails: without a readable log every provider is reported healthy.
func (h *healthMonitor) GetHealthSummary(ctx context.Context) routing.HealthSummary {
	now := h.now().UTC()
	cutoff := now.Add(-h.window)

	summary := routing.HealthSummary{
		Sources:      make(map[routing.Provider]routing.SourceHealth, len(routing.AllProviders)),
		RecentErrors: []routing.RecentError{},
	}
	for _, p := range routing.AllProviders {
		summary.Sources[p] = routing.SourceHealth{SuccessRate: 1}
	}

	samples, err := h.log.Since(ctx, cutoff)
	if err != nil {
		logrus.WithError(err).Warn("[HEALTH] Sample log unavailable, reporting optimistic health")
		summary.RecentErrors = h.localErrors(cutoff)
		return summary
	}

	for p, list := range samples {
		summary.Sources[p] = summarizeSamples(list)
		for _, s := range list {
			if s.Success {
				continue
			}
			summary.RecentErrors = append(summary.RecentErrors, routing.RecentError{
				ID:        s.ErrorID,
				Provider:  p,
				Message:   s.Error,
				Timestamp: s.Timestamp,
			})
		}
	}

	sortRecentErrors(summary.RecentErrors)
	if len(summary.RecentErrors) > recentErrorLimit {
		summary.RecentErrors = summary.RecentErrors[:recentErrorLimit]
	}
	return summary
}

func (h *healthMonitor) localErrors(cutoff time.Time) []routing.RecentError {
	errs := h.local.Filter(func(e routing.RecentError) bool { return e.Timestamp.After(cutoff) })
	sortRecentErrors(errs)
	return errs
}

func sortRecentErrors(errs []routing.RecentError) {
	sort.SliceStable(errs, func(i, j int) bool {
		return errs[i].Timestamp.After(errs[j].Timestamp)
	})
}

func summarizeSamples(samples []routing.HealthSample) routing.SourceHealth {
	out := routing.SourceHealth{SuccessRate: 1, SampleCount: len(samples)}
	if len(samples) == 0 {
		return out
	}

	var (
		successes   int
		latencySum  int64
		latencyN    int
		lastFailure time.Time
	)
	for _, s := range samples {
		if s.Success {
			successes++
		} else {
			out.FailureCount++
			if s.Timestamp.After(lastFailure) {
				lastFailure = s.Timestamp
			}
		}
		if s.LatencyMs != nil {
			latencySum += *s.LatencyMs
			latencyN++
		}
	}

	out.SuccessRate = float64(successes) / float64(len(samples))
	if latencyN > 0 {
		avg := float64(latencySum) / float64(latencyN)
		out.AvgLatencyMs = &avg
	}
	if !lastFailure.IsZero() {
		out.LastFailureAt = &lastFailure
	}
	return out
}
