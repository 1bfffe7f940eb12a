// Package quota limits plan generation attempts per device and calendar day.
package quota

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/myrjola/velocoach/internal/errors"
)

// ErrDailyLimitReached is returned when the device has used up today's attempts.
var ErrDailyLimitReached = errors.NewSentinel("daily plan limit reached")

// DateLayout is the layout of Counter.Date.
const DateLayout = time.DateOnly

// Counter is the number of attempts made on Date.
type Counter struct {
	Date  string
	Count int
}

// Store persists counters keyed by device. Get returns the zero Counter for an unknown key.
type Store interface {
	Get(ctx context.Context, key string) (Counter, error)
	Set(ctx context.Context, key string, c Counter) error
	Reset(ctx context.Context, key string) error
}

// Decision is the outcome of CheckAndConsume.
type Decision int

const (
	Denied Decision = iota
	Allowed
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "denied"
}

// Guard enforces a fixed daily ceiling of attempts.
type Guard struct {
	store   Store
	ceiling int
	now     func() time.Time
	mu      sync.Mutex
}

// NewGuard creates a guard allowing ceiling attempts per key and day. now is used to determine the current date.
func NewGuard(store Store, ceiling int, now func() time.Time) *Guard {
	return &Guard{
		store:   store,
		ceiling: ceiling,
		now:     now,
		mu:      sync.Mutex{},
	}
}

// current loads the counter for key, starting from zero when it was recorded on another day.
func (g *Guard) current(ctx context.Context, key string) (Counter, error) {
	today := g.now().Format(DateLayout)
	c, err := g.store.Get(ctx, key)
	if err != nil {
		return Counter{}, fmt.Errorf("get counter: %w", err)
	}
	if c.Date != today {
		c = Counter{Date: today, Count: 0}
	}
	return c, nil
}

// CheckAndConsume records an attempt for key if today's ceiling has not been reached.
//
// A denied attempt returns ErrDailyLimitReached and leaves the stored counter untouched.
func (g *Guard) CheckAndConsume(ctx context.Context, key string) (Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	c, err := g.current(ctx, key)
	if err != nil {
		return Denied, err
	}
	if c.Count >= g.ceiling {
		return Denied, ErrDailyLimitReached
	}
	c.Count++
	if err = g.store.Set(ctx, key, c); err != nil {
		return Denied, fmt.Errorf("set counter: %w", err)
	}
	return Allowed, nil
}

// Remaining returns the attempts key has left today.
func (g *Guard) Remaining(ctx context.Context, key string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	c, err := g.current(ctx, key)
	if err != nil {
		return 0, err
	}
	return max(g.ceiling-c.Count, 0), nil
}

// Ceiling is the number of attempts allowed per day.
func (g *Guard) Ceiling() int { return g.ceiling }

// MemoryStore keeps counters in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]Counter
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu:       sync.Mutex{},
		counters: make(map[string]Counter),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key], nil
}

func (s *MemoryStore) Set(_ context.Context, key string, c Counter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key] = c
	return nil
}

func (s *MemoryStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, key)
	return nil
}
