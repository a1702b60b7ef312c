package quota

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type memoryUsage struct {
	mu      sync.Mutex
	days    map[string]string
	count   map[string]int
	failSet error
}

func newMemoryUsage() *memoryUsage {
	return &memoryUsage{days: map[string]string{}, count: map[string]int{}}
}

func (m *memoryUsage) GetAIUsage(_ context.Context, userID string) (string, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.days[userID], m.count[userID], nil
}

func (m *memoryUsage) SetAIUsage(_ context.Context, userID, day string, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	m.days[userID], m.count[userID] = day, count
	return nil
}

func seoul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}

func TestDailyLimit(t *testing.T) {
	ctx := context.Background()
	d := NewDaily(newMemoryUsage(), 5, time.UTC)

	for i := 0; i < 5; i++ {
		if _, err := d.Reserve(ctx, "u1"); err != nil {
			t.Fatalf("reserve %d: %v", i+1, err)
		}
	}
	if _, err := d.Reserve(ctx, "u1"); !errors.Is(err, ErrDailyLimit) {
		t.Errorf("6th reserve: expected ErrDailyLimit, got %v", err)
	}
	if _, err := d.Reserve(ctx, "u2"); err != nil {
		t.Errorf("other user should be unaffected: %v", err)
	}
}

func TestDailyResetsAtLocalMidnight(t *testing.T) {
	ctx := context.Background()
	loc := seoul(t)
	d := NewDaily(newMemoryUsage(), 1, loc)

	// 23:59 in Seoul is 14:59 UTC the same day.
	d.now = func() time.Time { return time.Date(2024, 5, 1, 14, 59, 0, 0, time.UTC) }
	if _, err := d.Reserve(ctx, "u1"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := d.Reserve(ctx, "u1"); !errors.Is(err, ErrDailyLimit) {
		t.Fatalf("expected limit before midnight, got %v", err)
	}

	// 00:01 in Seoul, still 2024-05-01 in UTC.
	d.now = func() time.Time { return time.Date(2024, 5, 1, 15, 1, 0, 0, time.UTC) }
	if _, err := d.Reserve(ctx, "u1"); err != nil {
		t.Errorf("expected fresh allowance after local midnight, got %v", err)
	}
}

func TestDailyRefund(t *testing.T) {
	ctx := context.Background()
	d := NewDaily(newMemoryUsage(), 1, time.UTC)

	refund, err := d.Reserve(ctx, "u1")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if left, _ := d.Remaining(ctx, "u1"); left != 0 {
		t.Errorf("remaining = %d, want 0", left)
	}
	if err := refund(ctx); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if left, _ := d.Remaining(ctx, "u1"); left != 1 {
		t.Errorf("remaining after refund = %d, want 1", left)
	}
}

func TestDailyRefundReportsStoreError(t *testing.T) {
	ctx := context.Background()
	usage := newMemoryUsage()
	d := NewDaily(usage, 1, time.UTC)

	refund, err := d.Reserve(ctx, "u1")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	diskFull := errors.New("disk full")
	usage.failSet = diskFull
	if err := refund(ctx); !errors.Is(err, diskFull) {
		t.Errorf("refund error = %v, want %v", err, diskFull)
	}
}

func TestDailyRefundAfterMidnight(t *testing.T) {
	ctx := context.Background()
	d := NewDaily(newMemoryUsage(), 1, time.UTC)
	d.now = func() time.Time { return time.Date(2024, 5, 1, 23, 59, 0, 0, time.UTC) }

	refund, err := d.Reserve(ctx, "u1")
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	d.now = func() time.Time { return time.Date(2024, 5, 2, 0, 1, 0, 0, time.UTC) }
	if _, err := d.Reserve(ctx, "u1"); err != nil {
		t.Fatalf("reserve on new day: %v", err)
	}
	if err := refund(ctx); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if left, _ := d.Remaining(ctx, "u1"); left != 0 {
		t.Errorf("stale refund returned today's allowance: remaining = %d", left)
	}
}

func TestCapacity(t *testing.T) {
	c := NewCapacity(2)

	r1, err := c.Acquire()
	if err != nil {
		t.Fatalf("acquire 1: %v", err)
	}
	if _, err := c.Acquire(); err != nil {
		t.Fatalf("acquire 2: %v", err)
	}
	if _, err := c.Acquire(); !errors.Is(err, ErrServerBusy) {
		t.Errorf("acquire 3: expected ErrServerBusy, got %v", err)
	}

	r1()
	r1() // second call is a no-op
	if _, err := c.Acquire(); err != nil {
		t.Errorf("acquire after release: %v", err)
	}
	if _, err := c.Acquire(); !errors.Is(err, ErrServerBusy) {
		t.Errorf("double release must not free two slots, got %v", err)
	}
}
