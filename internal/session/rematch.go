package session

type rematchState int

const (
	rematchIdle rematchState = iota
	rematchRequestSent
	rematchRequestReceived
)

// rematch is the request/response negotiation layered over the channel after
// a round ends. The controller drives it under its own lock; it carries no
// lock of its own.
type rematch struct {
	state       rematchState
	requestedBy int
}

// request - marks the local request as outgoing. False means one is already
// in flight, which turns repeated requests into no-ops.
func (that *rematch) request() bool {
	if that.state == rematchRequestSent {
		return false
	}

	that.state = rematchRequestSent

	return true
}

// receive - records the peer's request. When a local request is already in
// flight both sides asked at the same time; that resolves as accepted with no
// response round-trip, so neither side is left waiting on the other forever.
func (that *rematch) receive(playerNum int) (simultaneous bool) {
	switch that.state {
	case rematchRequestSent:
		that.reset()
		return true
	case rematchIdle:
		that.state = rematchRequestReceived
		that.requestedBy = playerNum
	case rematchRequestReceived:
		// duplicate request, keep the original
	}

	return false
}

// pending - the peer's request awaiting a local decision, if any.
func (that *rematch) pending() (int, bool) {
	return that.requestedBy, that.state == rematchRequestReceived
}

func (that *rematch) awaitingPeer() bool {
	return that.state == rematchRequestSent
}

func (that *rematch) reset() {
	that.state = rematchIdle
	that.requestedBy = 0
}
