package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/apperror"
	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/pkg"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxFrameSize = 4096
	sendBuffer   = 64

	registryTimeout = 5 * time.Second
)

// Server pairs a host and a guest by room code and forwards their frames
// verbatim. It understands nothing about the game protocol riding on top;
// the channel it provides stays lossy and unordered-by-default, exactly what
// the session layer is built for.
type Server struct {
	logger   *slog.Logger
	registry RoomRegistry
	upgrader websocket.Upgrader

	ctx   context.Context
	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	code  string
	host  *client
	guest *client
}

type client struct {
	id     string
	conn   *websocket.Conn
	server *Server
	room   string

	mu      sync.Mutex
	send    chan []byte
	stopped bool
}

func NewServer(ctx context.Context, logger *slog.Logger, registry RoomRegistry) *Server {
	return &Server{
		logger:   logger.With("component", "relay"),
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		ctx:   ctx,
		rooms: make(map[string]*room),
	}
}

func (that *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		that.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		id:     uuid.NewString(),
		conn:   conn,
		server: that,
		send:   make(chan []byte, sendBuffer),
	}

	go c.writePump()
	c.readPump()
}

// route decides what a frame means. Paired clients get pure passthrough;
// everyone else is still in the control phase.
func (that *Server) route(c *client, frame []byte) {
	if partner := that.partnerOf(c); partner != nil {
		if partner.trySend(frame) {
			framesForwarded.Inc()
		} else {
			framesDropped.Inc()
		}
		return
	}

	var msg controlMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		that.logger.Warn("unreadable control frame", "client_id", c.id, "error", err)
		return
	}

	switch msg.Type {
	case ctrlHost:
		that.handleHost(c, msg)
	case ctrlJoin:
		that.handleJoin(c, msg)
	default:
		that.logger.Warn("dropping frame from unpaired client", "client_id", c.id, "type", msg.Type)
	}
}

func (that *Server) handleHost(c *client, msg controlMessage) {
	log := that.logger.With("method", "handleHost")

	if c.room != "" {
		log.Warn("client tried to host twice", "client_id", c.id, "room", c.room)
		return
	}

	if !pkg.IsRoomCode(msg.Room) {
		log.Warn("rejecting malformed room code", "client_id", c.id, "room", msg.Room)
		return
	}

	ctx, cancel := context.WithTimeout(that.ctx, registryTimeout)
	defer cancel()

	if err := that.registry.Reserve(ctx, msg.Room); err != nil {
		if errors.Is(err, apperror.ErrRoomTaken) {
			log.Info("room code collision", "client_id", c.id, "room", msg.Room)
			that.sendControl(c, controlMessage{Type: ctrlRoomTaken, Room: msg.Room})
			return
		}

		log.Error("could not reserve room", "client_id", c.id, "error", err)
		c.shutdown()
		return
	}

	that.mu.Lock()
	that.rooms[msg.Room] = &room{code: msg.Room, host: c}
	c.room = msg.Room
	that.mu.Unlock()

	roomsCreated.Inc()
	activeRooms.Inc()

	log.Info("room created", "client_id", c.id, "remote_id", msg.ClientID, "room", msg.Room)
	that.sendControl(c, controlMessage{Type: ctrlRoomCreated, Room: msg.Room})
}

func (that *Server) handleJoin(c *client, msg controlMessage) {
	log := that.logger.With("method", "handleJoin")

	if c.room != "" {
		log.Warn("client tried to join while in a room", "client_id", c.id, "room", c.room)
		return
	}

	that.mu.Lock()
	rm := that.rooms[msg.Room]
	if rm == nil || rm.guest != nil {
		that.mu.Unlock()
		log.Info("join to absent or full room", "client_id", c.id, "room", msg.Room)
		that.sendControl(c, controlMessage{Type: ctrlRoomMissing, Room: msg.Room})
		return
	}

	rm.guest = c
	c.room = msg.Room
	host := rm.host
	that.mu.Unlock()

	log.Info("room paired", "client_id", c.id, "remote_id", msg.ClientID, "room", msg.Room)
	that.sendControl(c, controlMessage{Type: ctrlRoomJoined, Room: msg.Room})
	that.sendControl(host, controlMessage{Type: ctrlPeerJoined, Room: msg.Room})
}

func (that *Server) partnerOf(c *client) *client {
	that.mu.Lock()
	defer that.mu.Unlock()

	rm := that.rooms[c.room]
	if rm == nil {
		return nil
	}

	switch c {
	case rm.host:
		return rm.guest
	case rm.guest:
		return rm.host
	default:
		return nil
	}
}

// dropClient tears the client's room down and tells the partner the peer is
// gone. No automatic re-pairing exists; the partner's session ends here.
func (that *Server) dropClient(c *client) {
	that.mu.Lock()
	rm := that.rooms[c.room]
	var partner *client
	if rm != nil {
		if rm.host == c {
			partner = rm.guest
		} else {
			partner = rm.host
		}
		delete(that.rooms, c.room)
	}
	that.mu.Unlock()

	if rm == nil {
		return
	}

	activeRooms.Dec()

	ctx, cancel := context.WithTimeout(that.ctx, registryTimeout)
	defer cancel()

	if err := that.registry.Release(ctx, rm.code); err != nil {
		that.logger.Error("could not release room", "room", rm.code, "error", err)
	}

	that.logger.Info("room closed", "room", rm.code, "client_id", c.id)

	if partner != nil {
		that.sendControl(partner, controlMessage{Type: ctrlPeerLeft, Room: rm.code})
		partner.shutdown()
	}
}

func (that *Server) sendControl(c *client, msg controlMessage) {
	frame, err := json.Marshal(msg)
	if err != nil {
		that.logger.Error("could not marshal control message", "error", err)
		return
	}

	if !c.trySend(frame) {
		that.logger.Warn("control message lost", "client_id", c.id, "type", msg.Type)
	}
}

func (that *client) readPump() {
	defer func() {
		that.server.dropClient(that)
		that.shutdown()
	}()

	that.conn.SetReadLimit(maxFrameSize)
	_ = that.conn.SetReadDeadline(time.Now().Add(pongWait))
	that.conn.SetPongHandler(func(string) error {
		return that.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := that.conn.ReadMessage()
		if err != nil {
			that.server.logger.Debug("client gone", "client_id", that.id, "error", err)
			return
		}

		that.server.route(that, frame)
	}
}

func (that *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = that.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-that.send:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = that.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := that.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = that.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend enqueues a frame or reports it lost. A full buffer means a slow
// partner; dropping beats stalling the whole relay.
func (that *client) trySend(frame []byte) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.stopped {
		return false
	}

	select {
	case that.send <- frame:
		return true
	default:
		return false
	}
}

// shutdown closes the send channel once; writePump flushes what is queued,
// writes the close frame and drops the connection.
func (that *client) shutdown() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.stopped {
		return
	}
	that.stopped = true
	close(that.send)
}
