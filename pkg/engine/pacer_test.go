package engine_test

import (
	"context"
	"testing"
	"time"

	"croon/pkg/engine"
)

func TestHumanPacer_JitterBounded(t *testing.T) {
	maxJitter := 500 * time.Millisecond
	p := engine.NewHumanPacer(time.Nanosecond, maxJitter)

	var slept []time.Duration
	p.SetSleepFunc(func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	})

	for i := 0; i < 50; i++ {
		if err := p.Pace(context.Background()); err != nil {
			t.Fatalf("pace %d: %v", i, err)
		}
	}
	if len(slept) != 50 {
		t.Fatalf("jitter sleeps = %d, want 50", len(slept))
	}
	for _, d := range slept {
		if d < 0 || d >= maxJitter {
			t.Fatalf("jitter %v outside [0, %v)", d, maxJitter)
		}
	}
}

func TestHumanPacer_NoJitterWhenZero(t *testing.T) {
	p := engine.NewHumanPacer(time.Nanosecond, 0)
	p.SetSleepFunc(func(ctx context.Context, d time.Duration) error {
		t.Fatal("sleep called with zero jitter configured")
		return nil
	})
	if err := p.Pace(context.Background()); err != nil {
		t.Fatalf("pace: %v", err)
	}
}

func TestHumanPacer_CancelledContext(t *testing.T) {
	p := engine.NewHumanPacer(time.Hour, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// The first token is available immediately, the second waits an hour;
	// a cancelled context must abort the wait.
	_ = p.Pace(context.Background())
	if err := p.Pace(ctx); err == nil {
		t.Fatal("expected context error from cancelled pace")
	}
}
