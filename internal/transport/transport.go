package transport

import "context"

// EventBuffer is how many undelivered events an implementation keeps before
// it starts dropping. The channel between two sides is lossy by contract, so
// consumers must tolerate missing frames either way.
const EventBuffer = 256

type EventKind int

const (
	// EventOpened - the peer channel is established; sends may now succeed.
	EventOpened EventKind = iota + 1
	// EventData - a raw frame arrived from the peer.
	EventData
	// EventClosed - the channel is gone for good. Terminal; the events
	// channel closes right after it.
	EventClosed
)

type Event struct {
	Kind EventKind
	Data []byte
}

// Transport is the point-to-point channel the session protocol runs over.
// Implementations hide everything about establishment and framing; the
// session layer sees rooms, frames and lifecycle events and nothing else.
type Transport interface {
	// Host registers a fresh room and returns its shareable code. Room-code
	// collisions are retried internally and never surface. The Opened event
	// arrives once a guest joins.
	Host(ctx context.Context) (string, error)

	// Join connects to a hosted room. Opened follows on success; a room
	// nobody hosts fails with apperror.ErrRoomMissing.
	Join(ctx context.Context, room string) error

	// Send is fire and forget. False means the channel was not open and the
	// frame is lost; callers must never treat true as proof of delivery.
	Send(data []byte) bool

	// Events delivers Opened, Data and Closed in arrival order.
	Events() <-chan Event

	Close() error
}
