package peer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/apperror"
	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/entity"
	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/protocol"
	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/transport"
)

type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateHosting
	StateConnecting
	StateConnected
	StateDisconnected
)

func (that State) String() string {
	switch that {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateHosting:
		return "hosting"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Role is the connection-lifetime identity of one side. The symbol is fixed
// when the channel opens, host X and guest O, and never changes afterwards;
// who acts as which symbol each round is the controller's round-parity
// business, not the connection's.
type Role struct {
	IsHost bool
	Symbol string
	Room   string
}

// PhysicalID - the host device is physical player one, the guest two.
func (that Role) PhysicalID() int {
	if that.IsHost {
		return entity.PlayerOne
	}

	return entity.PlayerTwo
}

// Session events delivered to the single consumer driving the match.
type Event interface {
	peerEvent()
}

type Connected struct {
	Role         Role
	TimerSeconds int
}

type MessageReceived struct {
	Message *protocol.Message
}

type Disconnected struct{}

func (Connected) peerEvent()       {}
func (MessageReceived) peerEvent() {}
func (Disconnected) peerEvent()    {}

const (
	defaultHandshakeTimeout = 10 * time.Second
	eventBuffer             = 256
)

// Session wraps a Transport with the game-start handshake and a typed send
// surface. Sends are fire and forget; false means the message is lost and
// the caller must not assume delivery.
type Session struct {
	logger    *slog.Logger
	transport transport.Transport

	mu           sync.Mutex
	state        State
	role         Role
	timerSeconds int

	events           chan Event
	handshakeDone    chan struct{}
	closedCh         chan struct{}
	handshakeTimeout time.Duration
}

func NewSession(logger *slog.Logger, tr transport.Transport) *Session {
	return &Session{
		logger:           logger.With("component", "peer"),
		transport:        tr,
		events:           make(chan Event, eventBuffer),
		handshakeDone:    make(chan struct{}),
		closedCh:         make(chan struct{}),
		handshakeTimeout: defaultHandshakeTimeout,
	}
}

// HostGame registers a room and returns its code right away; the Connected
// event follows whenever a guest actually shows up. The host's symbol is X
// for the life of this connection.
func (that *Session) HostGame(ctx context.Context, timerSeconds int) (string, error) {
	that.mu.Lock()
	if that.state != StateUninitialized {
		state := that.state
		that.mu.Unlock()
		return "", fmt.Errorf("cannot host from state %s: %w", state, apperror.ErrSessionClosed)
	}
	that.state = StateInitializing
	that.mu.Unlock()

	code, err := that.transport.Host(ctx)
	if err != nil {
		that.mu.Lock()
		that.state = StateUninitialized
		that.mu.Unlock()
		return "", fmt.Errorf("could not host game: %w", err)
	}

	that.mu.Lock()
	that.role = Role{IsHost: true, Symbol: entity.PlayerX, Room: code}
	that.timerSeconds = timerSeconds
	that.state = StateHosting
	that.mu.Unlock()

	go that.run()

	that.logger.Info("hosting game", "room", code, "timer_seconds", timerSeconds)

	return code, nil
}

// JoinGame connects to a room and blocks until the host's game-start lands.
// A host that vanished after generating its code is caught by the handshake
// timeout rather than hanging the caller forever.
func (that *Session) JoinGame(ctx context.Context, room string) error {
	that.mu.Lock()
	if that.state != StateUninitialized {
		state := that.state
		that.mu.Unlock()
		return fmt.Errorf("cannot join from state %s: %w", state, apperror.ErrSessionClosed)
	}
	that.state = StateInitializing
	that.mu.Unlock()

	if err := that.transport.Join(ctx, room); err != nil {
		that.mu.Lock()
		that.state = StateUninitialized
		that.mu.Unlock()
		return fmt.Errorf("could not join game: %w", err)
	}

	that.mu.Lock()
	that.role = Role{IsHost: false, Room: room}
	that.state = StateConnecting
	that.mu.Unlock()

	go that.run()

	select {
	case <-that.handshakeDone:
		return nil
	case <-that.closedCh:
		return fmt.Errorf("channel died before game-start: %w", apperror.ErrNotConnected)
	case <-time.After(that.handshakeTimeout):
		_ = that.Close()
		return apperror.ErrHandshakeTimeout
	case <-ctx.Done():
		_ = that.Close()
		return fmt.Errorf("join canceled: %w", ctx.Err())
	}
}

func (that *Session) Events() <-chan Event {
	return that.events
}

func (that *Session) State() State {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.state
}

func (that *Session) Role() Role {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.role
}

func (that *Session) TimerSeconds() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.timerSeconds
}

func (that *Session) SendMove(cell int) bool {
	return that.send(protocol.MsgMove, protocol.MovePayload{CellIndex: cell})
}

func (that *Session) SendReset() bool {
	return that.send(protocol.MsgReset, nil)
}

func (that *Session) SendFullSync(payload protocol.FullSyncPayload) bool {
	return that.send(protocol.MsgFullSync, payload)
}

func (that *Session) SendTimerSync(remainingMs int64, player string) bool {
	return that.send(protocol.MsgTimerSync, protocol.TimerSyncPayload{RemainingMs: remainingMs, Player: player})
}

func (that *Session) SendTimerTimeout(player string) bool {
	return that.send(protocol.MsgTimerTimeout, protocol.TimerTimeoutPayload{TimedOutPlayer: player})
}

func (that *Session) SendRematchRequest(playerNum int) bool {
	return that.send(protocol.MsgRematchRequest, protocol.RematchRequestPayload{PlayerNum: playerNum})
}

func (that *Session) SendRematchResponse(accepted bool) bool {
	return that.send(protocol.MsgRematchResponse, protocol.RematchResponsePayload{Accepted: accepted})
}

// Close tears the channel down. The Disconnected event still reaches the
// consumer so it can surface the notice and stop its clock.
func (that *Session) Close() error {
	return that.transport.Close()
}

func (that *Session) send(msgType string, payload any) bool {
	that.mu.Lock()
	connected := that.state == StateConnected
	that.mu.Unlock()

	if !connected {
		return false
	}

	data, err := protocol.Encode(msgType, payload)
	if err != nil {
		that.logger.Error("could not encode message", "type", msgType, "error", err)
		return false
	}

	return that.transport.Send(data)
}

func (that *Session) run() {
	for evt := range that.transport.Events() {
		switch evt.Kind {
		case transport.EventOpened:
			that.handleOpened()
		case transport.EventData:
			that.handleData(evt.Data)
		case transport.EventClosed:
			that.handleClosed()
		}
	}

	that.handleClosed()
	close(that.events)
}

// handleOpened fires when the raw channel comes up. The host sends the
// game-start immediately, with the guest's symbol and the chosen timer.
func (that *Session) handleOpened() {
	that.mu.Lock()
	if that.state != StateHosting {
		that.mu.Unlock()
		return
	}
	that.state = StateConnected
	role := that.role
	timerSeconds := that.timerSeconds
	that.mu.Unlock()

	data, err := protocol.Encode(protocol.MsgGameStart, protocol.GameStartPayload{
		Role:         entity.PlayerO,
		TimerSeconds: timerSeconds,
	})
	if err != nil {
		that.logger.Error("could not encode game-start", "error", err)
		return
	}

	if !that.transport.Send(data) {
		that.logger.Warn("game-start lost on send")
	}

	that.logger.Info("peer connected", "room", role.Room)
	that.emit(Connected{Role: role, TimerSeconds: timerSeconds})
}

func (that *Session) handleData(data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		that.logger.Warn("dropping unreadable message", "error", err)
		return
	}

	if msg.Type == protocol.MsgGameStart {
		that.handleGameStart(msg)
		return
	}

	that.mu.Lock()
	connected := that.state == StateConnected
	that.mu.Unlock()

	if !connected {
		that.logger.Warn("dropping message before handshake", "type", msg.Type)
		return
	}

	that.emit(MessageReceived{Message: msg})
}

// handleGameStart completes the guest side of the handshake: adopt the
// assigned symbol and the host's timer, whatever was picked locally before.
func (that *Session) handleGameStart(msg *protocol.Message) {
	var payload protocol.GameStartPayload
	if err := msg.DecodePayload(&payload); err != nil {
		that.logger.Warn("dropping malformed game-start", "error", err)
		return
	}

	that.mu.Lock()
	if that.state != StateConnecting {
		state := that.state
		that.mu.Unlock()
		that.logger.Warn("ignoring unexpected game-start", "state", state.String())
		return
	}
	that.role.Symbol = payload.Role
	that.timerSeconds = payload.TimerSeconds
	that.state = StateConnected
	role := that.role
	that.mu.Unlock()

	close(that.handshakeDone)

	that.logger.Info("joined game", "room", role.Room, "symbol", role.Symbol, "timer_seconds", payload.TimerSeconds)
	that.emit(Connected{Role: role, TimerSeconds: payload.TimerSeconds})
}

func (that *Session) handleClosed() {
	that.mu.Lock()
	if that.state == StateDisconnected {
		that.mu.Unlock()
		return
	}
	that.state = StateDisconnected
	that.mu.Unlock()

	close(that.closedCh)

	that.logger.Info("peer disconnected")
	that.emit(Disconnected{})
}

func (that *Session) emit(evt Event) {
	select {
	case that.events <- evt:
	default:
		that.logger.Warn("event dropped, consumer too slow")
	}
}
