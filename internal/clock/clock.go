package clock

import (
	"sync"
	"time"
)

const tickInterval = 100 * time.Millisecond

// Clock is a countdown bound to exactly one logical turn at a time. Start
// always re-arms to the full duration and returns a generation token; the
// timeout callback reports the generation that expired, so a consumer can
// discard an expiry armed for a turn that has already ended. Every Start and
// Stop bumps the generation and the run loop re-checks it before each tick.
type Clock struct {
	mu        sync.Mutex
	total     time.Duration
	remaining time.Duration
	gen       int
	running   bool

	onTick    func(remaining, total time.Duration)
	onTimeout func(gen int)
}

func New(total time.Duration, onTick func(remaining, total time.Duration), onTimeout func(gen int)) *Clock {
	return &Clock{
		total:     total,
		onTick:    onTick,
		onTimeout: onTimeout,
	}
}

// Start - arms the countdown at the full configured duration, replacing any
// countdown already running. Returns the generation of the armed countdown,
// or zero when no countdown is configured.
func (that *Clock) Start() int {
	that.mu.Lock()

	if that.total <= 0 {
		that.mu.Unlock()
		return 0
	}

	that.gen++
	gen := that.gen
	that.remaining = that.total
	that.running = true

	that.mu.Unlock()

	go that.run(gen)

	return gen
}

// Stop - disarms the countdown. Safe to call at any time, any number of
// times; a countdown stopped here will never deliver another tick or the
// timeout.
func (that *Clock) Stop() {
	that.mu.Lock()
	that.gen++
	that.running = false
	that.mu.Unlock()
}

// SetTotal - changes the configured duration for future starts. A running
// countdown keeps its current deadline.
func (that *Clock) SetTotal(total time.Duration) {
	that.mu.Lock()
	that.total = total
	that.mu.Unlock()
}

func (that *Clock) Total() time.Duration {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.total
}

func (that *Clock) Remaining() time.Duration {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.remaining
}

func (that *Clock) Running() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.running
}

// run owns one armed generation. Callbacks are invoked without holding the
// lock so handlers may call Stop or Start on this clock freely.
func (that *Clock) run(gen int) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for range ticker.C {
		that.mu.Lock()

		if gen != that.gen || !that.running {
			that.mu.Unlock()
			return
		}

		that.remaining -= tickInterval
		remaining := that.remaining
		total := that.total
		onTick := that.onTick
		onTimeout := that.onTimeout

		if remaining <= 0 {
			that.remaining = 0
			that.running = false
			that.mu.Unlock()

			if onTimeout != nil {
				onTimeout(gen)
			}

			return
		}

		that.mu.Unlock()

		if onTick != nil {
			onTick(remaining, total)
		}
	}
}
