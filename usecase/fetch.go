package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainCache "github.com/AzielCF/az-prospect/domains/cache"
	"github.com/AzielCF/az-prospect/domains/routing"
	"golang.org/x/sync/singleflight"
)

// ErrNoProvider means routing found no eligible provider; callers should skip the data source.
var ErrNoProvider = errors.New("no provider available")

var fetchGroup singleflight.Group

type fetchResult[T any] struct {
	value    T
	provider routing.Provider
}

// Fetch serves key from cache, or routes task to a provider, calls it once for all concurrent
// callers of the same key, reports the outcome and caches a successful result for ttlMinutes.
// The returned provider is empty on a cache hit. An empty key disables caching and collapsing.
// Fetch never retries; a failed call is returned to the caller as is.
//
// A collapsed call runs detached from the caller that started it, bounded by SharedCallTimeout,
// so one caller giving up neither fails the others nor counts against the provider.
func Fetch[T any](
	ctx context.Context,
	c domainCache.ICacheUsecase,
	r routing.IRouter,
	task routing.TaskKind,
	key string,
	ttlMinutes int,
	call func(ctx context.Context, provider routing.Provider) (T, error),
) (T, routing.Provider, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, "", err
	}

	if key == "" {
		res, err := fetchOnce(ctx, r, task, call)
		if err != nil {
			return zero, res.provider, err
		}
		return res.value, res.provider, nil
	}

	if v, ok := GetCached[T](ctx, c, key); ok {
		return v, "", nil
	}

	shared, err := doShared(ctx, &fetchGroup, fmt.Sprintf("%p|%s|%s", c, task, key), func(ctx context.Context) (any, error) {
		if v, ok := GetCached[T](ctx, c, key); ok {
			return fetchResult[T]{value: v}, nil
		}
		res, err := fetchOnce(ctx, r, task, call)
		if err != nil {
			return res, err
		}
		c.Set(ctx, key, res.value, ttlMinutes)
		return res, nil
	})
	res, _ := shared.(fetchResult[T])
	if err != nil {
		return zero, res.provider, err
	}
	return res.value, res.provider, nil
}

func fetchOnce[T any](ctx context.Context, r routing.IRouter, task routing.TaskKind, call func(ctx context.Context, provider routing.Provider) (T, error)) (fetchResult[T], error) {
	d := r.Route(ctx, task)
	if !d.Found() {
		return fetchResult[T]{}, ErrNoProvider
	}

	start := time.Now()
	v, err := call(ctx, d.Chosen)
	r.RecordOutcome(ctx, d.Chosen, routing.Outcome{
		Success:  err == nil,
		Canceled: err != nil && callerCanceled(ctx, err),
		Latency:  time.Since(start),
		Err:      err,
	})
	if err != nil {
		return fetchResult[T]{provider: d.Chosen}, fmt.Errorf("%s: %w", d.Chosen, err)
	}
	return fetchResult[T]{value: v, provider: d.Chosen}, nil
}

// callerCanceled reports whether err comes from the caller giving up rather than the provider.
// A provider-side timeout under a live ctx, or a collapsed call hitting SharedCallTimeout,
// is still a provider failure.
func callerCanceled(ctx context.Context, err error) bool {
	if errors.Is(context.Cause(ctx), ErrSharedCallTimeout) {
		return false
	}
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}
