package repository

import (
	"context"
	"fmt"
	"time"

	valkeylib "github.com/valkey-io/valkey-go"

	"github.com/AzielCF/az-prospect/domains/routing"
	"github.com/AzielCF/az-prospect/infrastructure/valkey"
	"github.com/AzielCF/az-prospect/pkg/timeutils"
)

// usageRetention keeps finished days around for dashboards before valkey drops them.
const usageRetention = 7 * 24 * time.Hour

// ValkeyUsageStore implements routing.UsageStore with one INCR counter per provider and day.
type ValkeyUsageStore struct {
	client *valkey.Client
	prefix string
}

func NewValkeyUsageStore(client *valkey.Client) *ValkeyUsageStore {
	return &ValkeyUsageStore{
		client: client,
		prefix: client.Key("usage") + ":",
	}
}

func (s *ValkeyUsageStore) fullKey(provider routing.Provider, day string) string {
	return s.prefix + string(provider) + ":" + day
}

func (s *ValkeyUsageStore) inner() valkeylib.Client {
	return s.client.Inner()
}

func (s *ValkeyUsageStore) Get(ctx context.Context, provider routing.Provider, day string) (int64, error) {
	cmd := s.inner().B().Get().Key(s.fullKey(provider, day)).Build()
	n, err := s.inner().Do(ctx, cmd).AsInt64()
	if err != nil {
		if valkey.IsNil(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get usage for %s on %s: %w", provider, day, err)
	}
	return n, nil
}

func (s *ValkeyUsageStore) Increment(ctx context.Context, provider routing.Provider, day string) (int64, error) {
	key := s.fullKey(provider, day)
	n, err := s.inner().Do(ctx, s.inner().B().Incr().Key(key).Build()).AsInt64()
	if err != nil {
		return 0, fmt.Errorf("failed to increment usage for %s on %s: %w", provider, day, err)
	}

	if n == 1 {
		expireAt := time.Now().Add(usageRetention)
		if d, perr := time.Parse(timeutils.DayLayout, day); perr == nil {
			expireAt = d.Add(usageRetention)
		}
		cmd := s.inner().B().Expireat().Key(key).Timestamp(expireAt.Unix()).Build()
		if err := s.inner().Do(ctx, cmd).Error(); err != nil {
			return n, fmt.Errorf("failed to set usage expiry for %s: %w", provider, err)
		}
	}
	return n, nil
}
