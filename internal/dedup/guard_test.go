package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeLogSource struct {
	found   bool
	err     error
	queried int
}

func (f *fakeLogSource) ExistsRecent(ctx context.Context, ruleID, recipientID int64, window time.Duration) (bool, error) {
	f.queried++
	return f.found, f.err
}

type fakeCache struct {
	keys      map[string]bool
	existsErr error
	setErr    error
}

func newFakeCache() *fakeCache {
	return &fakeCache{keys: make(map[string]bool)}
}

func (f *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.keys[key], nil
}

func (f *fakeCache) Set(ctx context.Context, key string, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.keys[key] = true
	return nil
}

func TestAlreadyNotified(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		cache    *fakeCache
		logs     *fakeLogSource
		want     bool
		wantLogQ int
	}{
		{
			name:     "cache hit short-circuits log",
			cache:    &fakeCache{keys: map[string]bool{"dedup:1:7": true}},
			logs:     &fakeLogSource{},
			want:     true,
			wantLogQ: 0,
		},
		{
			name:     "cache miss falls through to log",
			cache:    newFakeCache(),
			logs:     &fakeLogSource{found: true},
			want:     true,
			wantLogQ: 1,
		},
		{
			name:     "cache error falls through to log",
			cache:    &fakeCache{existsErr: errors.New("redis down")},
			logs:     &fakeLogSource{found: true},
			want:     true,
			wantLogQ: 1,
		},
		{
			name:     "log error fails open",
			cache:    newFakeCache(),
			logs:     &fakeLogSource{err: errors.New("db down")},
			want:     false,
			wantLogQ: 1,
		},
		{
			name:     "nothing recorded",
			cache:    newFakeCache(),
			logs:     &fakeLogSource{},
			want:     false,
			wantLogQ: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGuard(tt.logs, tt.cache, 24*time.Hour, zap.NewNop())
			got := g.AlreadyNotified(ctx, 1, 7)
			if got != tt.want {
				t.Errorf("AlreadyNotified() = %v, want %v", got, tt.want)
			}
			if tt.logs.queried != tt.wantLogQ {
				t.Errorf("log queried %d times, want %d", tt.logs.queried, tt.wantLogQ)
			}
		})
	}
}

func TestAlreadyNotifiedNoCache(t *testing.T) {
	logs := &fakeLogSource{found: true}
	g := NewGuard(logs, nil, 24*time.Hour, zap.NewNop())
	if !g.AlreadyNotified(context.Background(), 2, 3) {
		t.Error("AlreadyNotified() = false with recorded log entry")
	}
}

func TestMarkNotifiedPrimesCache(t *testing.T) {
	cache := newFakeCache()
	g := NewGuard(&fakeLogSource{}, cache, 24*time.Hour, zap.NewNop())

	g.MarkNotified(context.Background(), 5, 9)
	if !cache.keys["dedup:5:9"] {
		t.Error("MarkNotified() did not set the cache key")
	}

	if !g.AlreadyNotified(context.Background(), 5, 9) {
		t.Error("AlreadyNotified() = false after MarkNotified")
	}
}

func TestMarkNotifiedSwallowsCacheError(t *testing.T) {
	cache := &fakeCache{setErr: errors.New("redis down")}
	g := NewGuard(&fakeLogSource{}, cache, 24*time.Hour, zap.NewNop())
	// Must not panic or propagate.
	g.MarkNotified(context.Background(), 1, 1)
}
