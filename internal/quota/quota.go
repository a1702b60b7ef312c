// Package quota enforces the two AI analysis limits: a per-user daily allowance
// and a server-wide cap on concurrent analyses.
package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/mmynk/nbbang/internal/storage"
)

var (
	// ErrDailyLimit is returned when a user has used up today's analyses.
	ErrDailyLimit = errors.New("daily image analysis limit reached")

	// ErrServerBusy is returned when every analysis slot is taken.
	ErrServerBusy = errors.New("AI analysis capacity exhausted, try again later")
)

// Daily counts analyses per user per local calendar day. The counter resets
// when the stored day string differs from today's, so midnight in the
// configured location starts a new allowance.
type Daily struct {
	store storage.UsageStore
	limit int
	loc   *time.Location
	now   func() time.Time

	mu sync.Mutex
}

// NewDaily creates a limiter allowing limit analyses per day in loc.
func NewDaily(store storage.UsageStore, limit int, loc *time.Location) *Daily {
	if loc == nil {
		loc = time.UTC
	}
	return &Daily{store: store, limit: limit, loc: loc, now: time.Now}
}

// Limit is the number of analyses allowed per day.
func (d *Daily) Limit() int {
	return d.limit
}

// Today is the current day key in the limiter's location.
func (d *Daily) Today() string {
	return d.now().In(d.loc).Format(time.DateOnly)
}

// Remaining returns how many analyses userID has left today.
func (d *Daily) Remaining(ctx context.Context, userID string) (int, error) {
	day, count, err := d.store.GetAIUsage(ctx, userID)
	if err != nil {
		return 0, err
	}
	if day != d.Today() {
		count = 0
	}
	return max(d.limit-count, 0), nil
}

// Reserve takes one analysis from userID's allowance. The returned refund
// gives it back and is meant for analyses that failed upstream.
func (d *Daily) Reserve(ctx context.Context, userID string) (refund func(context.Context) error, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	today := d.Today()
	day, count, err := d.store.GetAIUsage(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ai usage: %w", err)
	}
	if day != today {
		count = 0
	}
	if count >= d.limit {
		return nil, ErrDailyLimit
	}
	if err := d.store.SetAIUsage(ctx, userID, today, count+1); err != nil {
		return nil, fmt.Errorf("failed to record ai usage: %w", err)
	}

	return func(ctx context.Context) error { return d.refund(ctx, userID, today) }, nil
}

func (d *Daily) refund(ctx context.Context, userID, day string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	stored, count, err := d.store.GetAIUsage(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to read ai usage: %w", err)
	}
	// A refund after midnight has nothing to give back.
	if stored != day || count == 0 {
		return nil
	}
	if err := d.store.SetAIUsage(ctx, userID, day, count-1); err != nil {
		return fmt.Errorf("failed to refund ai usage: %w", err)
	}
	return nil
}

// Capacity caps concurrent analyses across the server. It never queues: a
// request that finds every slot taken fails immediately with ErrServerBusy.
type Capacity struct {
	sem *semaphore.Weighted
}

// NewCapacity allows n concurrent analyses.
func NewCapacity(n int64) *Capacity {
	return &Capacity{sem: semaphore.NewWeighted(n)}
}

// Acquire takes a slot. The returned release must be called exactly once.
func (c *Capacity) Acquire() (release func(), err error) {
	if !c.sem.TryAcquire(1) {
		return nil, ErrServerBusy
	}
	var once sync.Once
	return func() { once.Do(func() { c.sem.Release(1) }) }, nil
}
