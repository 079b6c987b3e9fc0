package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/entity"
)

func TestRematch_Request(t *testing.T) {
	t.Run("a second request is a no-op", func(t *testing.T) {
		// Given: an idle negotiation
		r := &rematch{}

		// When: requesting twice
		first := r.request()
		second := r.request()

		// Then: only the first counts and the side is awaiting its peer
		assert.True(t, first)
		assert.False(t, second)
		assert.True(t, r.awaitingPeer())
	})
}

func TestRematch_Receive(t *testing.T) {
	t.Run("crossing requests resolve as accepted", func(t *testing.T) {
		// Given: a local request already in flight
		r := &rematch{}
		require.True(t, r.request())

		// When: the peer's request arrives
		simultaneous := r.receive(entity.PlayerTwo)

		// Then: the negotiation is settled with nobody left waiting
		assert.True(t, simultaneous)
		assert.False(t, r.awaitingPeer())
		_, pending := r.pending()
		assert.False(t, pending)
	})

	t.Run("a peer request awaits the local decision", func(t *testing.T) {
		// Given: an idle negotiation
		r := &rematch{}

		// When: the peer asks, twice
		first := r.receive(entity.PlayerTwo)
		second := r.receive(entity.PlayerOne)

		// Then: neither is simultaneous and the original requester is kept
		assert.False(t, first)
		assert.False(t, second)

		requestedBy, pending := r.pending()
		assert.True(t, pending)
		assert.Equal(t, entity.PlayerTwo, requestedBy)
	})

	t.Run("reset returns to idle", func(t *testing.T) {
		// Given: a pending peer request
		r := &rematch{}
		r.receive(entity.PlayerOne)

		// When: resetting
		r.reset()

		// Then: nothing is pending or awaited
		_, pending := r.pending()
		assert.False(t, pending)
		assert.False(t, r.awaitingPeer())
	})
}
