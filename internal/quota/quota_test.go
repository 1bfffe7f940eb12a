package quota_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/velocoach/internal/quota"
	"github.com/myrjola/velocoach/internal/sqlite"
	"github.com/myrjola/velocoach/internal/testhelpers"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func stores(t *testing.T) map[string]quota.Store {
	t.Helper()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	db, err := sqlite.NewDatabase(t.Context(), ":memory:", logger)
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	t.Cleanup(func() {
		if err = db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return map[string]quota.Store{
		"memory": quota.NewMemoryStore(),
		"sqlite": quota.NewSQLiteStore(db),
	}
}

func TestGuard_CheckAndConsume(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			c := &clock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
			g := quota.NewGuard(store, 100, c.now)
			key := "device-" + name

			if err := store.Set(ctx, key, quota.Counter{Date: "2026-03-14", Count: 99}); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			decision, err := g.CheckAndConsume(ctx, key)
			if err != nil || decision != quota.Allowed {
				t.Fatalf("100th attempt = %v, %v, want allowed", decision, err)
			}
			assertCounter(ctx, t, store, key, quota.Counter{Date: "2026-03-14", Count: 100})

			decision, err = g.CheckAndConsume(ctx, key)
			if !errors.Is(err, quota.ErrDailyLimitReached) || decision != quota.Denied {
				t.Fatalf("101st attempt = %v, %v, want denied", decision, err)
			}
			assertCounter(ctx, t, store, key, quota.Counter{Date: "2026-03-14", Count: 100})

			remaining, err := g.Remaining(ctx, key)
			if err != nil || remaining != 0 {
				t.Errorf("Remaining() = %d, %v, want 0", remaining, err)
			}

			// A new day starts from zero.
			c.t = c.t.Add(24 * time.Hour)
			if remaining, _ = g.Remaining(ctx, key); remaining != 100 {
				t.Errorf("Remaining() on a new day = %d, want 100", remaining)
			}
			if decision, err = g.CheckAndConsume(ctx, key); err != nil || decision != quota.Allowed {
				t.Fatalf("attempt on a new day = %v, %v, want allowed", decision, err)
			}
			assertCounter(ctx, t, store, key, quota.Counter{Date: "2026-03-15", Count: 1})

			if err = store.Reset(ctx, key); err != nil {
				t.Fatalf("Reset() error = %v", err)
			}
			assertCounter(ctx, t, store, key, quota.Counter{Date: "", Count: 0})
		})
	}
}

func TestGuard_CeilingN(t *testing.T) {
	ctx := t.Context()
	c := &clock{t: time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)}
	g := quota.NewGuard(quota.NewMemoryStore(), 3, c.now)
	for i := 1; i <= 3; i++ {
		if _, err := g.CheckAndConsume(ctx, "k"); err != nil {
			t.Fatalf("attempt %d error = %v", i, err)
		}
	}
	if _, err := g.CheckAndConsume(ctx, "k"); !errors.Is(err, quota.ErrDailyLimitReached) {
		t.Fatalf("attempt 4 error = %v, want ErrDailyLimitReached", err)
	}
	if _, err := g.CheckAndConsume(ctx, "other"); err != nil {
		t.Errorf("other device denied: %v", err)
	}
}

func assertCounter(ctx context.Context, t *testing.T, store quota.Store, key string, want quota.Counter) {
	t.Helper()
	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("counter mismatch (-want +got):\n%s", diff)
	}
}
