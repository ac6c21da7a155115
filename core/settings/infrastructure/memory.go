package infrastructure

import (
	"context"
	"strings"
	"sync"
)

// MemorySettingsRepository keeps settings in process. Used when no database is configured and in tests.
type MemorySettingsRepository struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemorySettingsRepository() *MemorySettingsRepository {
	return &MemorySettingsRepository{values: make(map[string]string)}
}

func (r *MemorySettingsRepository) InitSchema(ctx context.Context) error {
	return nil
}

func (r *MemorySettingsRepository) Get(ctx context.Context, key string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.values[key], nil
}

func (r *MemorySettingsRepository) All(ctx context.Context) (map[string]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out, nil
}

func (r *MemorySettingsRepository) Set(ctx context.Context, key string, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = strings.TrimSpace(value)
	return nil
}

func (r *MemorySettingsRepository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.values, key)
	return nil
}
