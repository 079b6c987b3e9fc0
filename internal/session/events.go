package session

import (
	"sync"
	"time"

	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/entity"
	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/peer"
)

// Event is anything the match announces to its observers. Rendering, score
// display and connection notices each subscribe on their own channel instead
// of overwriting a single callback field.
type Event interface {
	sessionEvent()
}

type MovePlayed struct {
	Cell       int
	Mark       string
	FromRemote bool
}

type RoundStarted struct {
	Round int
}

// GameEnded - the round reached a terminal state. Line is set for wins and
// names the cells to highlight.
type GameEnded struct {
	Winner string
	Line   *[3]int
	IsDraw bool
	Score  entity.Score
}

type ScoreChanged struct {
	Score entity.Score
}

// StateSynced - a full snapshot replaced the local state.
type StateSynced struct {
	Round int
}

type ClockTicked struct {
	Remaining time.Duration
	Total     time.Duration
	Mark      string
}

type ClockExpired struct {
	Mark string
}

type PeerJoined struct {
	Role         peer.Role
	TimerSeconds int
}

type PeerLeft struct{}

// RematchRequested - Local reports whether this side asked; a false value
// means the peer asked and a local decision is awaited.
type RematchRequested struct {
	PlayerNum int
	Local     bool
}

type RematchDeclined struct{}

type DesyncDetected struct {
	Reason string
}

func (MovePlayed) sessionEvent()       {}
func (RoundStarted) sessionEvent()     {}
func (GameEnded) sessionEvent()        {}
func (ScoreChanged) sessionEvent()     {}
func (StateSynced) sessionEvent()      {}
func (ClockTicked) sessionEvent()      {}
func (ClockExpired) sessionEvent()     {}
func (PeerJoined) sessionEvent()       {}
func (PeerLeft) sessionEvent()         {}
func (RematchRequested) sessionEvent() {}
func (RematchDeclined) sessionEvent()  {}
func (DesyncDetected) sessionEvent()   {}

const defaultSubscriberBuffer = 64

// Bus fans events out to every subscriber. Publishing never blocks; a
// subscriber that stops draining loses events rather than stalling the match.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe returns a receive channel and the function that cancels the
// subscription and closes the channel.
func (that *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}

	ch := make(chan Event, buffer)

	that.mu.Lock()
	id := that.next
	that.next++
	that.subs[id] = ch
	that.mu.Unlock()

	unsubscribe := func() {
		that.mu.Lock()
		sub, ok := that.subs[id]
		if ok {
			delete(that.subs, id)
		}
		that.mu.Unlock()

		if ok {
			close(sub)
		}
	}

	return ch, unsubscribe
}

func (that *Bus) Publish(evt Event) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for _, sub := range that.subs {
		select {
		case sub <- evt:
		default:
		}
	}
}
