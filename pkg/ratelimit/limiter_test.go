package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestNew_Defaults(t *testing.T) {
	tests := []struct {
		name        string
		maxRequests int
		period      time.Duration
		wantMax     int
		wantPeriod  time.Duration
	}{
		{
			name:        "explicit values",
			maxRequests: 10,
			period:      time.Second,
			wantMax:     10,
			wantPeriod:  time.Second,
		},
		{
			name:        "zero max falls back to default",
			maxRequests: 0,
			period:      time.Second,
			wantMax:     DefaultMaxRequests,
			wantPeriod:  time.Second,
		},
		{
			name:        "zero period falls back to default",
			maxRequests: 10,
			period:      0,
			wantMax:     10,
			wantPeriod:  DefaultPeriod,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.maxRequests, tt.period, testLogger())
			if l.maxRequests != tt.wantMax {
				t.Errorf("maxRequests = %d, want %d", l.maxRequests, tt.wantMax)
			}
			if l.period != tt.wantPeriod {
				t.Errorf("period = %v, want %v", l.period, tt.wantPeriod)
			}
		})
	}
}

func TestWaitIfNeeded_UnderCapDoesNotBlock(t *testing.T) {
	l := New(5, time.Second, testLogger())
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := l.WaitIfNeeded(ctx); err != nil {
			t.Fatalf("WaitIfNeeded() error = %v", err)
		}
		l.RecordRequest()
	}

	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("4 requests under a cap of 5 took %v, expected no blocking", elapsed)
	}
}

// TestWaitIfNeeded_ThroughputBound drives N rapid requests through a
// scaled-down limiter and checks the sustained-throughput lower bound:
// elapsed >= (N - max) / max * period.
func TestWaitIfNeeded_ThroughputBound(t *testing.T) {
	const (
		maxRequests = 3
		period      = 300 * time.Millisecond
		n           = 9
	)

	l := New(maxRequests, period, testLogger())
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < n; i++ {
		if err := l.WaitIfNeeded(ctx); err != nil {
			t.Fatalf("WaitIfNeeded() error = %v", err)
		}
		l.RecordRequest()

		if count := l.windowCount(time.Now()); count > maxRequests {
			t.Fatalf("window count = %d after request %d, cap is %d", count, i+1, maxRequests)
		}
	}
	elapsed := time.Since(start)

	minElapsed := time.Duration((n - maxRequests) / maxRequests * int(period))
	if elapsed < minElapsed {
		t.Errorf("%d requests completed in %v, want at least %v", n, elapsed, minElapsed)
	}
}

func TestWaitIfNeeded_WindowFreesAfterPeriod(t *testing.T) {
	l := New(2, 150*time.Millisecond, testLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := l.WaitIfNeeded(ctx); err != nil {
			t.Fatalf("WaitIfNeeded() error = %v", err)
		}
		l.RecordRequest()
	}

	// Let the whole window age out; the next call must not block.
	time.Sleep(200 * time.Millisecond)

	start := time.Now()
	if err := l.WaitIfNeeded(ctx); err != nil {
		t.Fatalf("WaitIfNeeded() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("WaitIfNeeded() blocked %v after window expired", elapsed)
	}

	if count := l.windowCount(time.Now()); count != 0 {
		t.Errorf("window count = %d after period elapsed, want 0", count)
	}
}

func TestWaitIfNeeded_ContextCancelled(t *testing.T) {
	l := New(1, 10*time.Second, testLogger())

	if err := l.WaitIfNeeded(context.Background()); err != nil {
		t.Fatalf("WaitIfNeeded() error = %v", err)
	}
	l.RecordRequest()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := l.WaitIfNeeded(ctx)
	if err == nil {
		t.Fatal("WaitIfNeeded() = nil, want context error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancellation took %v, expected prompt return", elapsed)
	}
}

func TestRecordRequest_OnlyRecordedRequestsOccupyWindow(t *testing.T) {
	l := New(10, time.Second, testLogger())
	ctx := context.Background()

	// Waiting without recording must not consume capacity.
	for i := 0; i < 20; i++ {
		if err := l.WaitIfNeeded(ctx); err != nil {
			t.Fatalf("WaitIfNeeded() error = %v", err)
		}
	}
	if count := l.windowCount(time.Now()); count != 0 {
		t.Errorf("window count = %d after waits without records, want 0", count)
	}

	l.RecordRequest()
	l.RecordRequest()
	if count := l.windowCount(time.Now()); count != 2 {
		t.Errorf("window count = %d, want 2", count)
	}
}
