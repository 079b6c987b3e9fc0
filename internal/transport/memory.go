package transport

import (
	"context"
	"sync"

	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/apperror"
	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/pkg"
)

// memoryLink is the shared rendezvous point of one in-process pair.
type memoryLink struct {
	mu     sync.Mutex
	code   string
	hosted bool
}

// MemoryConn is the in-process Transport used by tests and same-device play.
// Both halves of a pair share one link; frames move between them as channel
// events with no I/O involved.
type MemoryConn struct {
	link *memoryLink
	peer *MemoryConn

	mu     sync.Mutex
	events chan Event
	open   bool
	closed bool
}

var _ Transport = (*MemoryConn)(nil)

// NewMemoryPair returns two linked transports. The first is expected to
// Host, the second to Join with the returned code.
func NewMemoryPair() (*MemoryConn, *MemoryConn) {
	link := &memoryLink{}

	a := &MemoryConn{link: link, events: make(chan Event, EventBuffer)}
	b := &MemoryConn{link: link, events: make(chan Event, EventBuffer)}
	a.peer = b
	b.peer = a

	return a, b
}

func (that *MemoryConn) Host(_ context.Context) (string, error) {
	that.link.mu.Lock()
	defer that.link.mu.Unlock()

	that.link.code = pkg.GenerateRoomCode()
	that.link.hosted = true

	return that.link.code, nil
}

func (that *MemoryConn) Join(_ context.Context, room string) error {
	that.link.mu.Lock()
	hosted := that.link.hosted && that.link.code == room
	that.link.mu.Unlock()

	if !hosted {
		return apperror.ErrRoomMissing
	}

	that.markOpen()
	that.peer.markOpen()

	return nil
}

func (that *MemoryConn) Send(data []byte) bool {
	that.mu.Lock()
	open := that.open
	that.mu.Unlock()

	if !open {
		return false
	}

	// copy so the caller may reuse its buffer
	frame := make([]byte, len(data))
	copy(frame, data)

	that.peer.deliver(Event{Kind: EventData, Data: frame})

	return true
}

func (that *MemoryConn) Events() <-chan Event {
	return that.events
}

// Close tears the pair down. The peer sees Closed too; a memory pair has no
// reconnection story, same as the real channel.
func (that *MemoryConn) Close() error {
	that.shutdown()
	that.peer.shutdown()

	return nil
}

func (that *MemoryConn) markOpen() {
	that.mu.Lock()
	if that.closed {
		that.mu.Unlock()
		return
	}
	that.open = true
	that.mu.Unlock()

	that.deliver(Event{Kind: EventOpened})
}

func (that *MemoryConn) deliver(evt Event) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return
	}

	select {
	case that.events <- evt:
	default:
	}
}

func (that *MemoryConn) shutdown() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return
	}
	that.closed = true
	that.open = false

	select {
	case that.events <- Event{Kind: EventClosed}:
	default:
	}
	close(that.events)
}
