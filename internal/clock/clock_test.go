package clock

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_Restart(t *testing.T) {
	// Given: a clock part-way through a countdown
	c := New(500*time.Millisecond, nil, nil)
	c.Start()
	time.Sleep(220 * time.Millisecond)
	require.Less(t, c.Remaining(), 500*time.Millisecond)

	// When: stopping and starting again
	c.Stop()
	c.Start()

	// Then: the countdown is back at the full duration, not the leftover
	assert.Equal(t, 500*time.Millisecond, c.Remaining())
	c.Stop()
}

func TestClock_TimeoutFiresExactlyOnce(t *testing.T) {
	// Given: a clock that will expire quickly
	var timeouts atomic.Int32
	c := New(200*time.Millisecond, nil, func(int) {
		timeouts.Add(1)
	})

	// When: letting it run well past expiry
	c.Start()
	time.Sleep(600 * time.Millisecond)

	// Then: the timeout fired once and the clock stopped itself
	assert.Equal(t, int32(1), timeouts.Load())
	assert.False(t, c.Running())
	assert.Equal(t, time.Duration(0), c.Remaining())
}

func TestClock_TimeoutReportsTheArmedGeneration(t *testing.T) {
	// Given: a clock whose expiries are recorded
	var fired atomic.Int32
	c := New(200*time.Millisecond, nil, func(gen int) {
		fired.Store(int32(gen))
	})

	// When: arming it and letting it expire
	armed := c.Start()
	time.Sleep(500 * time.Millisecond)

	// Then: the expiry names the generation Start handed out
	require.NotZero(t, armed)
	assert.Equal(t, int32(armed), fired.Load())

	// When: arming again
	again := c.Start()

	// Then: the new generation differs, so a holder of the old token can
	// tell a stale expiry apart
	assert.NotEqual(t, armed, again)
	c.Stop()
}

func TestClock_StopPreventsTimeout(t *testing.T) {
	// Given: a running clock
	var timeouts atomic.Int32
	c := New(200*time.Millisecond, nil, func(int) {
		timeouts.Add(1)
	})
	c.Start()

	// When: stopping before expiry and waiting past the original deadline
	time.Sleep(50 * time.Millisecond)
	c.Stop()
	time.Sleep(400 * time.Millisecond)

	// Then: no timeout was delivered
	assert.Equal(t, int32(0), timeouts.Load())
}

func TestClock_RestartSilencesTheOldCountdown(t *testing.T) {
	// Given: a clock restarted mid-countdown
	var timeouts atomic.Int32
	c := New(300*time.Millisecond, nil, func(int) {
		timeouts.Add(1)
	})
	c.Start()
	time.Sleep(150 * time.Millisecond)
	c.Start()

	// When: waiting long enough for both the stale and the fresh deadline
	time.Sleep(700 * time.Millisecond)

	// Then: only the fresh countdown delivered its timeout
	assert.Equal(t, int32(1), timeouts.Load())
}

func TestClock_TicksDecreaseMonotonically(t *testing.T) {
	// Given: a clock collecting its ticks
	var mu sync.Mutex
	var ticks []time.Duration
	c := New(500*time.Millisecond, func(remaining, total time.Duration) {
		mu.Lock()
		ticks = append(ticks, remaining)
		mu.Unlock()
	}, nil)

	// When: running for a few ticks
	c.Start()
	time.Sleep(350 * time.Millisecond)
	c.Stop()

	// Then: every tick reported less time than the one before
	mu.Lock()
	defer mu.Unlock()

	require.NotEmpty(t, ticks)
	for i := 1; i < len(ticks); i++ {
		assert.Less(t, ticks[i], ticks[i-1])
	}
}

func TestClock_StopIsIdempotent(t *testing.T) {
	// Given: a clock that was never started
	c := New(time.Second, nil, nil)

	// When: stopping repeatedly
	c.Stop()
	c.Stop()

	// Then: nothing blows up and it reports not running
	assert.False(t, c.Running())
}

func TestClock_ZeroDurationNeverStarts(t *testing.T) {
	// Given: a clock with no duration configured
	c := New(0, nil, func(int) {
		t.Error("timeout must not fire for a disabled clock")
	})

	// When: starting it
	gen := c.Start()
	time.Sleep(250 * time.Millisecond)

	// Then: it stays disarmed and hands out no generation
	assert.Zero(t, gen)
	assert.False(t, c.Running())
}
