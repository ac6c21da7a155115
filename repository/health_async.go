package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AzielCF/az-prospect/domains/routing"
	"github.com/AzielCF/az-prospect/pkg/workerpool"
)

const asyncAppendTimeout = 2 * time.Second

// ErrSampleDropped is returned by AsyncHealthLog.Append when the write queue is full.
var ErrSampleDropped = errors.New("health sample dropped: write queue full")

// AsyncHealthLog queues Append calls on a worker pool so recording an outcome never waits
// on the backing log. Samples of one provider are written in order. Since reads through.
type AsyncHealthLog struct {
	inner routing.SampleLog
	pool  *workerpool.Pool
}

// NewAsyncHealthLog wraps inner. The caller owns pool and must Start and Stop it.
func NewAsyncHealthLog(inner routing.SampleLog, pool *workerpool.Pool) *AsyncHealthLog {
	return &AsyncHealthLog{inner: inner, pool: pool}
}

func (l *AsyncHealthLog) Append(ctx context.Context, provider routing.Provider, sample routing.HealthSample, cutoff time.Time, maxSamples int) error {
	ok := l.pool.TryDispatch(workerpool.Job{
		Key: string(provider),
		Handler: func(workerCtx context.Context) error {
			writeCtx, cancel := context.WithTimeout(context.WithoutCancel(workerCtx), asyncAppendTimeout)
			defer cancel()
			return l.inner.Append(writeCtx, provider, sample, cutoff, maxSamples)
		},
	})
	if !ok {
		return ErrSampleDropped
	}
	return nil
}

func (l *AsyncHealthLog) Since(ctx context.Context, cutoff time.Time) (map[routing.Provider][]routing.HealthSample, error) {
	return l.inner.Since(ctx, cutoff)
}
