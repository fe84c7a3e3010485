package scraper

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/jimezsa/jobmatch/internal/network"
)

// DelayPolicy pauses between card extractions.
type DelayPolicy func(ctx context.Context) error

// NoDelay never waits.
func NoDelay(ctx context.Context) error {
	return ctx.Err()
}

// RandomDelay waits a uniformly random duration in [min, max] using sleep.
func RandomDelay(min, max time.Duration, sleep network.SleepFunc) DelayPolicy {
	if sleep == nil {
		sleep = network.Sleep
	}
	var mu sync.Mutex
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return func(ctx context.Context) error {
		d := min
		if max > min {
			mu.Lock()
			d += time.Duration(rng.Int63n(int64(max - min + 1)))
			mu.Unlock()
		}
		return sleep(ctx, d)
	}
}

// DefaultDelay is the 0.2s to 0.5s jitter used between cards.
func DefaultDelay() DelayPolicy {
	return RandomDelay(200*time.Millisecond, 500*time.Millisecond, network.Sleep)
}
