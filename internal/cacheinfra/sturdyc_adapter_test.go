package cacheinfra

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Capacity = 1000
	cfg.NumShards = 8
	return cfg
}

func newTestService(t *testing.T) *sturdycService {
	t.Helper()
	svc, err := NewSturdycService(testConfig())
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}
	if cfg.NumShards != 64 {
		t.Errorf("expected NumShards to be 64, got %d", cfg.NumShards)
	}
	if cfg.TTL != 10*time.Minute {
		t.Errorf("expected TTL to be 10 minutes, got %v", cfg.TTL)
	}
	if cfg.EarlyRefresh != nil {
		t.Error("expected early refresh to be disabled by default")
	}
	if cfg.MissingRecordStorage {
		t.Error("expected MissingRecordStorage to be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		field    string
		errorMsg string
	}{
		{name: "zero capacity", mutate: func(c *Config) { c.Capacity = 0 }, field: "Capacity", errorMsg: "must be greater than 0"},
		{name: "zero shards", mutate: func(c *Config) { c.NumShards = 0 }, field: "NumShards", errorMsg: "must be greater than 0"},
		{name: "more shards than capacity", mutate: func(c *Config) { c.Capacity = 4 }, field: "NumShards", errorMsg: "must not exceed Capacity"},
		{name: "zero ttl", mutate: func(c *Config) { c.TTL = 0 }, field: "TTL", errorMsg: "must be greater than 0"},
		{name: "eviction too low", mutate: func(c *Config) { c.EvictionPercentage = 0 }, field: "EvictionPercentage", errorMsg: "must be between 1 and 100"},
		{name: "eviction too high", mutate: func(c *Config) { c.EvictionPercentage = 101 }, field: "EvictionPercentage", errorMsg: "must be between 1 and 100"},
		{
			name: "negative early refresh",
			mutate: func(c *Config) {
				c.EarlyRefresh = &EarlyRefreshConfig{RetryBaseDelay: -time.Second}
			},
			field:    "EarlyRefresh.RetryBaseDelay",
			errorMsg: "must be non-negative",
		},
		{
			name: "min refresh above max",
			mutate: func(c *Config) {
				c.EarlyRefresh = &EarlyRefreshConfig{MinAsyncRefreshTime: 2 * time.Second, MaxAsyncRefreshTime: time.Second}
			},
			field:    "EarlyRefresh.MinAsyncRefreshTime",
			errorMsg: "must not exceed MaxAsyncRefreshTime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, cfgErr.Field)
			}
			if !strings.Contains(err.Error(), tt.errorMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
			}
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	cfg := testConfig()
	if got := len(cfg.ToSturdycOptions()); got != 0 {
		t.Errorf("expected no options for default config, got %d", got)
	}

	cfg.EarlyRefresh = &EarlyRefreshConfig{
		MinAsyncRefreshTime: time.Second,
		MaxAsyncRefreshTime: 2 * time.Second,
		SyncRefreshTime:     3 * time.Second,
		RetryBaseDelay:      10 * time.Millisecond,
	}
	cfg.MissingRecordStorage = true
	cfg.EvictionInterval = time.Minute
	if got := len(cfg.ToSturdycOptions()); got != 3 {
		t.Errorf("expected 3 options, got %d", got)
	}
}

func TestNewSturdycService_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.TTL = 0
	if _, err := NewSturdycService(cfg); err == nil {
		t.Fatal("expected error for invalid config")
	}
}

func TestSturdycService_GetOrFetch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var calls int32
	fetch := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		got, err := svc.GetOrFetch(ctx, "key", fetch)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "value" {
			t.Errorf("expected 'value', got %v", got)
		}
	}
	if calls != 1 {
		t.Errorf("expected fetch to run once, ran %d times", calls)
	}
}

func TestSturdycService_GetOrFetch_ErrorNotCached(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var calls int32
	fetch := func(ctx context.Context) (int, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return 0, errors.New("backend down")
		}
		return 42, nil
	}

	if _, err := svc.GetOrFetch(ctx, "key", fetch); err == nil {
		t.Fatal("expected first fetch to fail")
	}
	got, err := svc.GetOrFetch(ctx, "key", fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %v", got)
	}
}

func TestSturdycService_GetOrFetch_ConcurrentCallsShareFetch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.GetOrFetch(ctx, "hot", fetch); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("expected a single fetch for concurrent callers, got %d", calls)
	}
}

func TestSturdycService_GetOrFetch_InvalidFetchFn(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		fn   any
	}{
		{name: "nil", fn: nil},
		{name: "not a function", fn: "nope"},
		{name: "wrong arity", fn: func() (int, error) { return 0, nil }},
		{name: "no context", fn: func(int) (int, error) { return 0, nil }},
		{name: "no error", fn: func(context.Context) (int, int) { return 0, 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfgErr *ConfigError
			if _, err := svc.GetOrFetch(ctx, "k", tt.fn); !errors.As(err, &cfgErr) {
				t.Errorf("expected *ConfigError, got %v", err)
			}
		})
	}
}

func TestSturdycService_DirectAccess(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, ok := svc.Get(ctx, "missing"); ok {
		t.Error("expected miss for unknown key")
	}

	_ = svc.Set(ctx, "member::idx::project::5", []int{1, 2})
	_ = svc.Set(ctx, "member::idx::project::6", []int{3})
	_ = svc.Set(ctx, "member::id::1", 1)

	keys := svc.Keys(ctx)
	sort.Strings(keys)
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys, got %v", keys)
	}

	_ = svc.DeleteByPrefix(ctx, "member::idx::")
	if _, ok := svc.Get(ctx, "member::idx::project::5"); ok {
		t.Error("expected index entry to be removed by prefix")
	}
	if _, ok := svc.Get(ctx, "member::id::1"); !ok {
		t.Error("expected primary entry to survive prefix deletion")
	}

	_ = svc.InvalidateKeys(ctx, []string{"member::id::1"})
	if _, ok := svc.Get(ctx, "member::id::1"); ok {
		t.Error("expected entry to be invalidated")
	}

	_ = svc.Set(ctx, "a", 1)
	_ = svc.Delete(ctx, "a")
	if _, ok := svc.Get(ctx, "a"); ok {
		t.Error("expected entry to be deleted")
	}

	_ = svc.Set(ctx, "b", 1)
	_ = svc.Set(ctx, "c", 1)
	_ = svc.Clear(ctx)
	if got := len(svc.Keys(ctx)); got != 0 {
		t.Errorf("expected empty cache after Clear, got %d keys", got)
	}
}
