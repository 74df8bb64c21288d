package resilience

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSlot_EnforcesCeiling(t *testing.T) {
	reg := NewLimiterRegistry(ServiceLimits{MaxInFlight: 2}, nil)

	var active, maxActive int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := reg.Slot(context.Background(), "svc")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			defer release()

			n := atomic.AddInt64(&active, 1)
			for {
				cur := atomic.LoadInt64(&maxActive)
				if n <= cur || atomic.CompareAndSwapInt64(&maxActive, cur, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&active, -1)
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&maxActive); got > 2 {
		t.Errorf("expected at most 2 in flight, saw %d", got)
	}
}

func TestSlot_ContextCancellation(t *testing.T) {
	reg := NewLimiterRegistry(ServiceLimits{MaxInFlight: 1}, nil)

	release, err := reg.Slot(context.Background(), "svc")
	if err != nil {
		t.Fatalf("first slot: %v", err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := reg.Slot(ctx, "svc"); err == nil {
		t.Fatal("expected error when slot unavailable and ctx expires")
	}
}

func TestPace_SpacesCalls(t *testing.T) {
	reg := NewLimiterRegistry(ServiceLimits{MaxInFlight: 4, MinInterval: 20 * time.Millisecond}, nil)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := reg.Pace(ctx, "svc"); err != nil {
			t.Fatalf("pace: %v", err)
		}
	}
	// First call is immediate; the following two each wait ~20ms.
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("expected calls to be paced, elapsed %v", elapsed)
	}
}

func TestPace_NoIntervalIsImmediate(t *testing.T) {
	reg := NewLimiterRegistry(ServiceLimits{MaxInFlight: 4}, nil)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 20; i++ {
		if err := reg.Pace(ctx, "svc"); err != nil {
			t.Fatalf("pace: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected no pacing delay, elapsed %v", elapsed)
	}
}

func TestPerServiceOverrides(t *testing.T) {
	reg := NewLimiterRegistry(
		ServiceLimits{MaxInFlight: 4},
		map[string]ServiceLimits{"slow": {MaxInFlight: 1}},
	)

	// Default service admits more than one at a time.
	r1, err := reg.Slot(context.Background(), "fast")
	if err != nil {
		t.Fatalf("slot: %v", err)
	}
	defer r1()
	r2, err := reg.Slot(context.Background(), "fast")
	if err != nil {
		t.Fatalf("slot: %v", err)
	}
	defer r2()

	// The overridden service is capped at one.
	r3, err := reg.Slot(context.Background(), "slow")
	if err != nil {
		t.Fatalf("slot: %v", err)
	}
	defer r3()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := reg.Slot(ctx, "slow"); err == nil {
		t.Fatal("expected the slow service to be capped at one slot")
	}
}

func TestServicesAreIndependent(t *testing.T) {
	reg := NewLimiterRegistry(ServiceLimits{MaxInFlight: 1}, nil)

	r1, err := reg.Slot(context.Background(), "a")
	if err != nil {
		t.Fatalf("slot a: %v", err)
	}
	defer r1()

	// Filling service a must not block service b.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	r2, err := reg.Slot(ctx, "b")
	if err != nil {
		t.Fatalf("slot b should be free: %v", err)
	}
	r2()
}
