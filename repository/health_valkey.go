package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	valkeylib "github.com/valkey-io/valkey-go"

	"github.com/AzielCF/az-prospect/domains/routing"
	"github.com/AzielCF/az-prospect/infrastructure/valkey"
)

// ValkeyHealthLog implements routing.SampleLog with one sorted set per provider scored by timestamp (ms).
// Shared across instances, so every process routes on the same health view.
type ValkeyHealthLog struct {
	client *valkey.Client
	prefix string
}

type healthMember struct {
	ID string `json:"id"`
	routing.HealthSample
}

func NewValkeyHealthLog(client *valkey.Client) *ValkeyHealthLog {
	return &ValkeyHealthLog{
		client: client,
		prefix: client.Key("health") + ":",
	}
}

func (l *ValkeyHealthLog) fullKey(provider routing.Provider) string {
	return l.prefix + string(provider)
}

func (l *ValkeyHealthLog) inner() valkeylib.Client {
	return l.client.Inner()
}

func (l *ValkeyHealthLog) Append(ctx context.Context, provider routing.Provider, sample routing.HealthSample, cutoff time.Time, maxSamples int) error {
	data, err := json.Marshal(healthMember{ID: uuid.NewString(), HealthSample: sample})
	if err != nil {
		return fmt.Errorf("failed to marshal health sample: %w", err)
	}

	key := l.fullKey(provider)
	c := l.inner()
	cmds := valkeylib.Commands{
		c.B().Zadd().Key(key).ScoreMember().ScoreMember(float64(sample.Timestamp.UnixMilli()), string(data)).Build(),
		c.B().Zremrangebyscore().Key(key).Min("-inf").Max(strconv.FormatInt(cutoff.UnixMilli(), 10)).Build(),
	}
	if maxSamples > 0 {
		cmds = append(cmds, c.B().Zremrangebyrank().Key(key).Start(0).Stop(-int64(maxSamples)-1).Build())
	}
	if window := sample.Timestamp.Sub(cutoff); window > 0 {
		cmds = append(cmds, c.B().Pexpire().Key(key).Milliseconds(window.Milliseconds()).Build())
	}

	for _, resp := range c.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return fmt.Errorf("failed to append health sample for %s: %w", provider, err)
		}
	}
	return nil
}

func (l *ValkeyHealthLog) Since(ctx context.Context, cutoff time.Time) (map[routing.Provider][]routing.HealthSample, error) {
	c := l.inner()
	cmds := make(valkeylib.Commands, 0, len(routing.AllProviders))
	for _, p := range routing.AllProviders {
		// "(" makes the lower bound exclusive, matching the in-memory log
		cmds = append(cmds, c.B().Zrangebyscore().Key(l.fullKey(p)).Min("("+strconv.FormatInt(cutoff.UnixMilli(), 10)).Max("+inf").Build())
	}

	out := make(map[routing.Provider][]routing.HealthSample)
	for i, resp := range c.DoMulti(ctx, cmds...) {
		members, err := resp.AsStrSlice()
		if err != nil {
			if valkey.IsNil(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read health samples: %w", err)
		}
		if len(members) == 0 {
			continue
		}

		samples := make([]routing.HealthSample, 0, len(members))
		for _, raw := range members {
			var m healthMember
			if err := json.Unmarshal([]byte(raw), &m); err != nil {
				logrus.Warnf("[HEALTH] Skipping malformed sample: %v", err)
				continue
			}
			samples = append(samples, m.HealthSample)
		}
		out[routing.AllProviders[i]] = samples
	}
	return out, nil
}
