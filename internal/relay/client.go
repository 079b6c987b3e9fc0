package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/apperror"
	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/pkg"
	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/transport"
)

const (
	maxHostAttempts = 5
	controlBuffer   = 4
)

// Conn is the relay-backed Transport. It speaks the control vocabulary
// during pairing and afterwards passes the session's frames through without
// looking at them, except to notice peer-left.
type Conn struct {
	logger   *slog.Logger
	ws       *websocket.Conn
	clientID string

	events  chan transport.Event
	control chan controlMessage
	done    chan struct{}

	mu     sync.Mutex
	open   bool
	closed bool

	writeMu sync.Mutex
}

var _ transport.Transport = (*Conn)(nil)

func Dial(ctx context.Context, logger *slog.Logger, rawURL string) (*Conn, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return nil, fmt.Errorf("could not dial relay: %w", err)
	}

	conn := &Conn{
		logger:   logger.With("component", "relay-client"),
		ws:       ws,
		clientID: uuid.NewString(),
		events:   make(chan transport.Event, transport.EventBuffer),
		control:  make(chan controlMessage, controlBuffer),
		done:     make(chan struct{}),
	}

	go conn.readPump()

	return conn, nil
}

// Host keeps generating fresh codes until the relay accepts one. Collisions
// never surface to the caller; any other failure does.
func (that *Conn) Host(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxHostAttempts; attempt++ {
		code := pkg.GenerateRoomCode()

		if err := that.writeControl(controlMessage{Type: ctrlHost, Room: code, ClientID: that.clientID}); err != nil {
			return "", err
		}

		reply, err := that.awaitControl(ctx)
		if err != nil {
			return "", err
		}

		switch reply.Type {
		case ctrlRoomCreated:
			return code, nil
		case ctrlRoomTaken:
			that.logger.Debug("room code collision, retrying", "room", code)
			continue
		default:
			return "", fmt.Errorf("%w: %q while hosting", apperror.ErrUnknownMessage, reply.Type)
		}
	}

	return "", fmt.Errorf("gave up hosting after %d attempts: %w", maxHostAttempts, apperror.ErrRoomTaken)
}

func (that *Conn) Join(ctx context.Context, room string) error {
	if err := that.writeControl(controlMessage{Type: ctrlJoin, Room: room, ClientID: that.clientID}); err != nil {
		return err
	}

	reply, err := that.awaitControl(ctx)
	if err != nil {
		return err
	}

	switch reply.Type {
	case ctrlRoomJoined:
		return nil
	case ctrlRoomMissing:
		return apperror.ErrRoomMissing
	default:
		return fmt.Errorf("%w: %q while joining", apperror.ErrUnknownMessage, reply.Type)
	}
}

// awaitControl blocks for the relay's answer to a host or join request.
func (that *Conn) awaitControl(ctx context.Context) (controlMessage, error) {
	select {
	case msg := <-that.control:
		return msg, nil
	case <-that.done:
		return controlMessage{}, fmt.Errorf("relay connection lost: %w", apperror.ErrNotConnected)
	case <-ctx.Done():
		return controlMessage{}, fmt.Errorf("waiting for relay reply: %w", ctx.Err())
	}
}

func (that *Conn) writeControl(msg controlMessage) error {
	frame, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("could not marshal control message: %w", err)
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	_ = that.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := that.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("could not send control message: %w", err)
	}

	return nil
}

func (that *Conn) Send(data []byte) bool {
	that.mu.Lock()
	open := that.open
	that.mu.Unlock()

	if !open {
		return false
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	_ = that.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := that.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		that.logger.Debug("send failed", "error", err)
		return false
	}

	return true
}

func (that *Conn) Events() <-chan transport.Event {
	return that.events
}

func (that *Conn) Close() error {
	that.writeMu.Lock()
	_ = that.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = that.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	that.writeMu.Unlock()

	that.teardown()

	return nil
}

func (that *Conn) readPump() {
	defer that.teardown()

	for {
		_, frame, err := that.ws.ReadMessage()
		if err != nil {
			that.logger.Debug("relay connection lost", "error", err)
			return
		}

		that.dispatch(frame)
	}
}

func (that *Conn) dispatch(frame []byte) {
	that.mu.Lock()
	open := that.open
	that.mu.Unlock()

	// once open, everything except peer-left is the session's business
	if open {
		var msg controlMessage
		if err := json.Unmarshal(frame, &msg); err == nil && msg.Type == ctrlPeerLeft {
			that.teardown()
			return
		}

		that.deliver(transport.Event{Kind: transport.EventData, Data: frame})
		return
	}

	var msg controlMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		that.logger.Warn("unreadable relay frame", "error", err)
		return
	}

	switch msg.Type {
	case ctrlRoomCreated, ctrlRoomTaken, ctrlRoomMissing:
		select {
		case that.control <- msg:
		default:
		}
	case ctrlRoomJoined:
		select {
		case that.control <- msg:
		default:
		}
		that.markOpen()
	case ctrlPeerJoined:
		that.markOpen()
	case ctrlPeerLeft:
		that.teardown()
	default:
		that.logger.Warn("unexpected control frame", "type", msg.Type)
	}
}

func (that *Conn) markOpen() {
	that.mu.Lock()
	if that.open || that.closed {
		that.mu.Unlock()
		return
	}
	that.open = true
	that.mu.Unlock()

	that.deliver(transport.Event{Kind: transport.EventOpened})
}

func (that *Conn) deliver(evt transport.Event) {
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

func (that *Conn) teardown() {
	that.mu.Lock()
	if that.closed {
		that.mu.Unlock()
		return
	}
	that.closed = true
	that.open = false

	select {
	case that.events <- transport.Event{Kind: transport.EventClosed}:
	default:
	}
	close(that.events)
	close(that.done)
	that.mu.Unlock()

	_ = that.ws.Close()
}
