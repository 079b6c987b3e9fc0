package relay

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/apperror"
	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/pkg"
	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/transport"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRelay(t *testing.T, registry RoomRegistry) string {
	t.Helper()

	srv := httptest.NewServer(NewServer(context.Background(), testLogger(), registry))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitEvent(t *testing.T, ch <-chan transport.Event, kind transport.EventKind) transport.Event {
	t.Helper()

	for {
		select {
		case evt, ok := <-ch:
			require.True(t, ok, "events channel closed while waiting for kind %d", kind)
			if evt.Kind == kind {
				return evt
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for event kind %d", kind)
		}
	}
}

// takenRegistry rejects the first n reservations to provoke collisions.
type takenRegistry struct {
	mu    sync.Mutex
	fails int
	inner RoomRegistry
}

func (that *takenRegistry) Reserve(ctx context.Context, code string) error {
	that.mu.Lock()
	if that.fails != 0 {
		if that.fails > 0 {
			that.fails--
		}
		that.mu.Unlock()
		return apperror.ErrRoomTaken
	}
	that.mu.Unlock()

	return that.inner.Reserve(ctx, code)
}

func (that *takenRegistry) Release(ctx context.Context, code string) error {
	return that.inner.Release(ctx, code)
}

func TestRelay_PairAndForward(t *testing.T) {
	url := newTestRelay(t, NewMemoryRegistry())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Given: a hosted room
	host, err := Dial(ctx, testLogger(), url)
	require.NoError(t, err)

	code, err := host.Host(ctx)
	require.NoError(t, err)
	assert.True(t, pkg.IsRoomCode(code))

	// When: a guest joins it
	guest, err := Dial(ctx, testLogger(), url)
	require.NoError(t, err)
	require.NoError(t, guest.Join(ctx, code))

	// Then: both sides see the channel open
	waitEvent(t, host.Events(), transport.EventOpened)
	waitEvent(t, guest.Events(), transport.EventOpened)

	// When: frames go both ways
	require.True(t, host.Send([]byte(`{"type":"game-start"}`)))
	require.True(t, guest.Send([]byte(`{"type":"move"}`)))

	// Then: each arrives untouched on the other side
	evt := waitEvent(t, guest.Events(), transport.EventData)
	assert.JSONEq(t, `{"type":"game-start"}`, string(evt.Data))

	evt = waitEvent(t, host.Events(), transport.EventData)
	assert.JSONEq(t, `{"type":"move"}`, string(evt.Data))

	// When: the host hangs up
	require.NoError(t, host.Close())

	// Then: the guest's channel dies with it
	waitEvent(t, guest.Events(), transport.EventClosed)
	assert.False(t, guest.Send([]byte("gone")))
}

func TestRelay_HostCollisionRetry(t *testing.T) {
	t.Run("Retries transparently and succeeds", func(t *testing.T) {
		// Given: a registry that rejects the first two codes
		url := newTestRelay(t, &takenRegistry{fails: 2, inner: NewMemoryRegistry()})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		host, err := Dial(ctx, testLogger(), url)
		require.NoError(t, err)
		defer host.Close()

		// When: hosting
		code, err := host.Host(ctx)

		// Then: the caller sees nothing but a working code
		require.NoError(t, err)
		assert.True(t, pkg.IsRoomCode(code))
	})

	t.Run("Surfaces the failure once attempts run out", func(t *testing.T) {
		// Given: a registry where every code is taken
		url := newTestRelay(t, &takenRegistry{fails: -1, inner: NewMemoryRegistry()})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		host, err := Dial(ctx, testLogger(), url)
		require.NoError(t, err)
		defer host.Close()

		// When: hosting
		_, err = host.Host(ctx)

		// Then: the typed failure comes through
		require.ErrorIs(t, err, apperror.ErrRoomTaken)
	})
}

func TestRelay_JoinAbsentRoom(t *testing.T) {
	url := newTestRelay(t, NewMemoryRegistry())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Given: a connected client and no rooms at all
	guest, err := Dial(ctx, testLogger(), url)
	require.NoError(t, err)
	defer guest.Close()

	// When: joining a code nobody hosts
	err = guest.Join(ctx, "AAAA1111")

	// Then: the join fails with the room-missing error
	require.ErrorIs(t, err, apperror.ErrRoomMissing)
}

func TestRelay_ThirdClientCannotJoin(t *testing.T) {
	url := newTestRelay(t, NewMemoryRegistry())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Given: a fully paired room
	host, err := Dial(ctx, testLogger(), url)
	require.NoError(t, err)
	defer host.Close()

	code, err := host.Host(ctx)
	require.NoError(t, err)

	guest, err := Dial(ctx, testLogger(), url)
	require.NoError(t, err)
	defer guest.Close()
	require.NoError(t, guest.Join(ctx, code))

	// When: a third client tries the same code
	intruder, err := Dial(ctx, testLogger(), url)
	require.NoError(t, err)
	defer intruder.Close()

	err = intruder.Join(ctx, code)

	// Then: the room is not available to it
	require.ErrorIs(t, err, apperror.ErrRoomMissing)
}

func TestRelay_RoomReleasedOnDisconnect(t *testing.T) {
	registry := NewMemoryRegistry()
	url := newTestRelay(t, registry)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Given: a hosted room
	host, err := Dial(ctx, testLogger(), url)
	require.NoError(t, err)

	code, err := host.Host(ctx)
	require.NoError(t, err)

	// When: the host disconnects without ever being paired
	require.NoError(t, host.Close())

	// Then: the reservation is released so the code can be reused
	require.Eventually(t, func() bool {
		return registry.Reserve(ctx, code) == nil
	}, 5*time.Second, 100*time.Millisecond)
}
