package repository

import (
	"context"
	"sync"
	"time"

	"github.com/AzielCF/az-prospect/domains/routing"
	"github.com/AzielCF/az-prospect/pkg/outcomelog"
)

// MemoryHealthLog implements routing.SampleLog with one ring buffer per provider.
type MemoryHealthLog struct {
	mu    sync.RWMutex
	rings map[routing.Provider]*outcomelog.Ring[routing.HealthSample]
}

func NewMemoryHealthLog() *MemoryHealthLog {
	return &MemoryHealthLog{rings: make(map[routing.Provider]*outcomelog.Ring[routing.HealthSample])}
}

func (l *MemoryHealthLog) ring(provider routing.Provider, maxSamples int) *outcomelog.Ring[routing.HealthSample] {
	l.mu.RLock()
	r, ok := l.rings[provider]
	l.mu.RUnlock()
	if ok {
		return r
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.rings[provider]; ok {
		return r
	}
	r = outcomelog.New[routing.HealthSample](maxSamples)
	l.rings[provider] = r
	return r
}

func (l *MemoryHealthLog) Append(ctx context.Context, provider routing.Provider, sample routing.HealthSample, cutoff time.Time, maxSamples int) error {
	r := l.ring(provider, maxSamples)
	r.Push(sample)
	r.Retain(func(s routing.HealthSample) bool { return s.Timestamp.After(cutoff) })
	return nil
}

func (l *MemoryHealthLog) Since(ctx context.Context, cutoff time.Time) (map[routing.Provider][]routing.HealthSample, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[routing.Provider][]routing.HealthSample, len(l.rings))
	for p, r := range l.rings {
		samples := r.Filter(func(s routing.HealthSample) bool { return s.Timestamp.After(cutoff) })
		if len(samples) > 0 {
			out[p] = samples
		}
	}
	return out, nil
}
