package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/apperror"
	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/bot"
	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/clock"
	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/entity"
	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/peer"
	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/protocol"
)

type Mode int

const (
	ModeIdle Mode = iota
	ModeLocalPlay
	ModeAIPlay
	ModeAwaitingRemoteOpponent
	ModeRemotePlay
)

func (that Mode) String() string {
	switch that {
	case ModeIdle:
		return "idle"
	case ModeLocalPlay:
		return "local"
	case ModeAIPlay:
		return "computer"
	case ModeAwaitingRemoteOpponent:
		return "awaiting-opponent"
	case ModeRemotePlay:
		return "remote"
	default:
		return "unknown"
	}
}

const (
	timerSyncInterval = 500 * time.Millisecond

	thinkDelayBase   = 400 * time.Millisecond
	thinkDelayJitter = 800 * time.Millisecond
)

func defaultThinkDelay() time.Duration {
	return thinkDelayBase + time.Duration(rand.Int63n(int64(thinkDelayJitter))) //nolint: gosec // it's ok
}

// Controller orchestrates a single match: it owns the game state, the turn
// clock, the computer opponent binding and, in remote play, the peer session.
// All entry points serialize on one mutex; the game state is mutated nowhere
// else, so local input and inbound messages can only interleave between whole
// operations, never inside one.
type Controller struct {
	logger     *slog.Logger
	thinkDelay func() time.Duration

	mu    sync.Mutex
	mode  Mode
	game  *entity.Game
	score entity.Score

	timerSeconds  int
	clock         *clock.Clock
	clockGen      int
	firstMoveMade bool
	lastTimerSync time.Time

	difficulty string
	thinking   bool
	aiGen      int

	peer        *peer.Session
	role        peer.Role
	connected   bool
	pendingSync bool

	rematch *rematch

	bus *Bus
}

// NewController builds an idle controller. thinkDelay is the injected
// thinking pause for the computer opponent; nil picks the default jitter.
func NewController(logger *slog.Logger, thinkDelay func() time.Duration) *Controller {
	if thinkDelay == nil {
		thinkDelay = defaultThinkDelay
	}

	controller := &Controller{
		logger:     logger.With("component", "session"),
		game:       entity.NewGame(),
		bus:        NewBus(),
		rematch:    &rematch{},
		thinkDelay: thinkDelay,
	}

	controller.clock = clock.New(0, controller.handleTick, controller.handleTimeout)

	return controller
}

// Subscribe - attaches an observer to the match's event stream.
func (that *Controller) Subscribe(buffer int) (<-chan Event, func()) {
	return that.bus.Subscribe(buffer)
}

// StartLocal - two players sharing this device.
func (that *Controller) StartLocal(timerSeconds int) {
	that.mu.Lock()
	oldPeer := that.detachPeerLocked()
	that.mode = ModeLocalPlay
	that.timerSeconds = timerSeconds
	that.beginMatchLocked()
	that.mu.Unlock()

	closePeer(oldPeer)

	that.logger.Info("local match started", "timer_seconds", timerSeconds)
}

// StartAI - play against the computer. The computer is physical player two;
// which symbol it holds flips with the round like any other player. A zero
// timer picks the difficulty's default duration.
func (that *Controller) StartAI(difficulty string, timerSeconds int) error {
	switch difficulty {
	case entity.EasyDifficulty, entity.MediumDifficulty, entity.HardDifficulty:
	default:
		return fmt.Errorf("%w: %q", apperror.ErrUnknownDifficulty, difficulty)
	}

	if timerSeconds <= 0 {
		timerSeconds = bot.DefaultTimerSeconds(difficulty)
	}

	that.mu.Lock()
	oldPeer := that.detachPeerLocked()
	that.mode = ModeAIPlay
	that.difficulty = difficulty
	that.timerSeconds = timerSeconds
	that.beginMatchLocked()
	that.maybeScheduleAILocked()
	that.mu.Unlock()

	closePeer(oldPeer)

	that.logger.Info("computer match started", "difficulty", difficulty, "timer_seconds", timerSeconds)

	return nil
}

// HostRemote - registers a room on the given peer session and waits for an
// opponent. The returned code is what the guest joins with.
func (that *Controller) HostRemote(ctx context.Context, sess *peer.Session, timerSeconds int) (string, error) {
	code, err := sess.HostGame(ctx, timerSeconds)
	if err != nil {
		return "", err
	}

	that.bindRemote(sess, timerSeconds)

	return code, nil
}

// JoinRemote - joins a hosted room. Blocks until the handshake assigns this
// side its symbol and timer, or fails with a typed error.
func (that *Controller) JoinRemote(ctx context.Context, sess *peer.Session, room string) error {
	if err := sess.JoinGame(ctx, room); err != nil {
		return err
	}

	that.bindRemote(sess, sess.TimerSeconds())

	return nil
}

func (that *Controller) bindRemote(sess *peer.Session, timerSeconds int) {
	that.mu.Lock()
	oldPeer := that.detachPeerLocked()
	that.mode = ModeAwaitingRemoteOpponent
	that.peer = sess
	that.timerSeconds = timerSeconds
	that.beginMatchLocked()
	that.mu.Unlock()

	closePeer(oldPeer)

	go that.consumePeer(sess)
}

// HandleMove - a cell chosen on this device. Silent no-op unless this side
// may act right now; ownership is re-checked here, not when the gesture
// began.
func (that *Controller) HandleMove(cell int) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if !that.canMoveLocked() {
		return false
	}

	return that.applyMoveLocked(cell, false)
}

// CanMove reports whether local input would currently be accepted.
func (that *Controller) CanMove() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.canMoveLocked()
}

// ResetGame - starts the next round. In remote play only the host may reset;
// the guest's path to a new round is the rematch negotiation.
func (that *Controller) ResetGame() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	switch that.mode {
	case ModeLocalPlay, ModeAIPlay:
		that.advanceRoundLocked()
		return true
	case ModeRemotePlay:
		if !that.role.IsHost {
			that.logger.Warn("reset refused", "error", apperror.ErrNotHost)
			return false
		}

		if !that.connected {
			return false
		}

		that.advanceRoundLocked()
		that.peer.SendReset()
		that.sendFullSyncLocked()

		return true
	default:
		return false
	}
}

// RequestRematch - asks the peer for a new round after a finished game. When
// the peer's request is already pending locally this doubles as the accept.
func (that *Controller) RequestRematch() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.mode != ModeRemotePlay || !that.connected || !that.game.GameOver {
		return false
	}

	if _, pending := that.rematch.pending(); pending {
		that.acceptRematchLocked()
		return true
	}

	if !that.rematch.request() {
		return true
	}

	playerNum := that.role.PhysicalID()
	that.peer.SendRematchRequest(playerNum)
	that.bus.Publish(RematchRequested{PlayerNum: playerNum, Local: true})

	return true
}

// RespondRematch - resolves the peer's pending request.
func (that *Controller) RespondRematch(accept bool) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.mode != ModeRemotePlay || !that.connected {
		return false
	}

	if _, pending := that.rematch.pending(); !pending {
		return false
	}

	if !accept {
		that.rematch.reset()
		that.peer.SendRematchResponse(false)

		return true
	}

	that.acceptRematchLocked()

	return true
}

// Stop - tears the session down: clock stopped, pending rematch cleared, any
// peer connection closed. Safe to call repeatedly.
func (that *Controller) Stop() {
	that.mu.Lock()
	oldPeer := that.detachPeerLocked()
	that.mode = ModeIdle
	that.mu.Unlock()

	closePeer(oldPeer)
}

func (that *Controller) Mode() Mode {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.mode
}

// Game - read-only snapshot for rendering.
func (that *Controller) Game() *entity.Game {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.game.Clone()
}

func (that *Controller) Score() entity.Score {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.score
}

func (that *Controller) TimerSeconds() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.timerSeconds
}

func (that *Controller) Role() peer.Role {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.role
}

// RematchPending - the peer's rematch request awaiting a local decision.
func (that *Controller) RematchPending() (int, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.rematch.pending()
}

func (that *Controller) beginMatchLocked() {
	that.game = entity.NewGame()
	that.score.Reset()
	that.firstMoveMade = false
	that.clock.SetTotal(time.Duration(that.timerSeconds) * time.Second)

	that.bus.Publish(RoundStarted{Round: 0})
}

func (that *Controller) detachPeerLocked() *peer.Session {
	that.stopClockLocked()
	that.aiGen++
	that.thinking = false
	that.pendingSync = false
	that.rematch.reset()
	that.connected = false
	that.role = peer.Role{}

	old := that.peer
	that.peer = nil

	return old
}

// closePeer runs outside the controller lock: closing the transport makes the
// session emit its disconnect event, and the consumer of that event takes the
// lock itself.
func closePeer(sess *peer.Session) {
	if sess != nil {
		_ = sess.Close()
	}
}

func (that *Controller) canMoveLocked() bool {
	if that.game.GameOver {
		return false
	}

	switch that.mode {
	case ModeLocalPlay:
		return true
	case ModeAIPlay:
		return !that.thinking && that.game.Turn != that.aiSymbolLocked()
	case ModeRemotePlay:
		return that.connected && !that.pendingSync && that.localToActLocked()
	default:
		return false
	}
}

// localToActLocked - fresh role resolution on every call. A full sync can
// jump the round number with no local advance in between, so this is always
// recomputed from the round and the host flag, never cached.
func (that *Controller) localToActLocked() bool {
	return entity.PhysicalOf(that.game.Turn, that.game.Round) == that.role.PhysicalID()
}

// aiSymbolLocked - the computer is physical player two; its symbol for the
// current round falls out of the same parity rule as everyone else's.
func (that *Controller) aiSymbolLocked() string {
	return entity.SymbolOf(entity.PlayerTwo, that.game.Round)
}

// applyMoveLocked - the one path every accepted move takes, local, computer
// or remote. A local move in remote play goes on the wire before status
// evaluation so the peer's clock stops as close to ours as the channel
// allows.
func (that *Controller) applyMoveLocked(cell int, fromRemote bool) bool {
	mark := that.game.Turn

	if !that.game.PlaceMove(cell, mark) {
		if fromRemote {
			that.flagDesyncLocked(fmt.Sprintf("peer move into cell %d rejected", cell))
		}

		return false
	}

	that.firstMoveMade = true

	if !fromRemote && that.mode == ModeRemotePlay && that.connected {
		if !that.peer.SendMove(cell) {
			that.logger.Warn("move not delivered", "cell", cell)
		}
	}

	that.bus.Publish(MovePlayed{Cell: cell, Mark: mark, FromRemote: fromRemote})

	status := entity.EvaluateStatus(that.game.Board)
	if status.IsOver {
		that.finishRoundLocked(status)
		return true
	}

	that.game.SwitchTurn()
	that.restartClockLocked()
	that.maybeScheduleAILocked()

	return true
}

func (that *Controller) finishRoundLocked(status entity.Status) {
	that.stopClockLocked()
	that.game.SetTerminal(status.Winner, status.Line)

	if !status.IsDraw {
		winner := entity.PhysicalOf(status.Winner, that.game.Round)
		that.score.AddWin(winner)
		that.bus.Publish(ScoreChanged{Score: that.score})
	}

	that.bus.Publish(GameEnded{Winner: status.Winner, Line: status.Line, IsDraw: status.IsDraw, Score: that.score})

	that.logger.Info("round finished", "round", that.game.Round, "winner", status.Winner, "draw", status.IsDraw)
}

func (that *Controller) advanceRoundLocked() {
	that.stopClockLocked()
	that.aiGen++
	that.thinking = false
	that.pendingSync = false
	that.rematch.reset()

	that.game.AdvanceRound()
	that.firstMoveMade = false

	that.bus.Publish(RoundStarted{Round: that.game.Round})
	that.maybeScheduleAILocked()
}

func (that *Controller) stopClockLocked() {
	that.clock.Stop()
	that.clockGen = 0
}

// restartClockLocked - every turn change funnels through here: stop whatever
// countdown is live, then arm a fresh one only if this side's clock should
// run for the new turn. The clock stays idle until the round's first move.
func (that *Controller) restartClockLocked() {
	that.stopClockLocked()

	if !that.firstMoveMade || that.game.GameOver {
		return
	}

	if !that.clockRunsForTurnLocked() {
		return
	}

	that.clockGen = that.clock.Start()
}

// clockRunsForTurnLocked - the countdown runs on the side whose player is to
// act: both turns in local play, human turns against the computer, the
// acting side only in remote play. The passive remote side renders the
// peer's timer-sync values instead of counting down itself.
func (that *Controller) clockRunsForTurnLocked() bool {
	switch that.mode {
	case ModeLocalPlay:
		return true
	case ModeAIPlay:
		return that.game.Turn != that.aiSymbolLocked()
	case ModeRemotePlay:
		return that.connected && that.localToActLocked()
	default:
		return false
	}
}

func (that *Controller) handleTick(remaining, total time.Duration) {
	that.mu.Lock()

	mark := that.game.Turn

	var sendSync *peer.Session
	if that.mode == ModeRemotePlay && that.connected && time.Since(that.lastTimerSync) >= timerSyncInterval {
		that.lastTimerSync = time.Now()
		sendSync = that.peer
	}

	that.mu.Unlock()

	that.bus.Publish(ClockTicked{Remaining: remaining, Total: total, Mark: mark})

	if sendSync != nil {
		sendSync.SendTimerSync(remaining.Milliseconds(), mark)
	}
}

func (that *Controller) handleTimeout(gen int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	// an expiry armed for a turn that has since ended reports a generation
	// this side no longer holds
	if gen == 0 || gen != that.clockGen {
		return
	}

	that.forfeitTurnLocked(that.game.Turn, true)
}

// forfeitTurnLocked - clock expiry costs the turn. The expiring side tells
// the peer before switching; the receiving side lands here too, guarded so a
// timeout for a turn that already ended changes nothing.
func (that *Controller) forfeitTurnLocked(mark string, notifyPeer bool) {
	if !that.firstMoveMade || that.game.GameOver || that.game.Turn != mark {
		return
	}

	if notifyPeer && that.mode == ModeRemotePlay && that.connected {
		that.peer.SendTimerTimeout(mark)
	}

	that.logger.Info("turn forfeited on timeout", "mark", mark, "round", that.game.Round)
	that.bus.Publish(ClockExpired{Mark: mark})

	that.game.SwitchTurn()
	that.restartClockLocked()
	that.maybeScheduleAILocked()
}

func (that *Controller) maybeScheduleAILocked() {
	if that.mode != ModeAIPlay || that.game.GameOver || that.thinking {
		return
	}

	if that.game.Turn != that.aiSymbolLocked() {
		return
	}

	that.thinking = true
	that.aiGen++
	gen := that.aiGen

	time.AfterFunc(that.thinkDelay(), func() {
		that.playAIMove(gen)
	})
}

func (that *Controller) playAIMove(gen int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if gen != that.aiGen {
		return
	}

	that.thinking = false

	if that.mode != ModeAIPlay || that.game.GameOver {
		return
	}

	mark := that.aiSymbolLocked()
	if that.game.Turn != mark {
		return
	}

	cell, err := bot.ChooseMove(that.game.Board, mark, that.difficulty)
	if err != nil {
		that.logger.Error("computer could not pick a move", "error", err)
		return
	}

	that.applyMoveLocked(cell, false)
}

func (that *Controller) fullStateLocked() protocol.FullSyncPayload {
	return protocol.FullSyncPayload{
		GameState:    that.game.Clone(),
		Scores:       that.score,
		TimerSeconds: that.timerSeconds,
		GameStarted:  that.firstMoveMade,
	}
}

func (that *Controller) sendFullSyncLocked() {
	if !that.peer.SendFullSync(that.fullStateLocked()) {
		that.logger.Warn("snapshot not delivered")
	}
}

// applyFullStateLocked - wholesale replacement, the only way this side ever
// adopts a board it did not derive locally.
func (that *Controller) applyFullStateLocked(payload protocol.FullSyncPayload) {
	if payload.GameState == nil {
		that.logger.Warn("dropping snapshot with no game state")
		return
	}

	that.stopClockLocked()

	that.game = payload.GameState
	that.score = payload.Scores
	that.timerSeconds = payload.TimerSeconds
	that.clock.SetTotal(time.Duration(payload.TimerSeconds) * time.Second)
	that.firstMoveMade = payload.GameStarted
	that.pendingSync = false
	that.rematch.reset()

	that.restartClockLocked()

	that.bus.Publish(StateSynced{Round: that.game.Round})
	that.bus.Publish(ScoreChanged{Score: that.score})
}

// flagDesyncLocked - a protocol violation means the two boards disagree. The
// host repairs by pushing a snapshot; the guest flags it and waits for one.
func (that *Controller) flagDesyncLocked(reason string) {
	that.logger.Warn("state inconsistency", "reason", reason)
	that.bus.Publish(DesyncDetected{Reason: reason})

	if that.role.IsHost && that.connected {
		that.sendFullSyncLocked()
	}
}

func (that *Controller) consumePeer(sess *peer.Session) {
	for evt := range sess.Events() {
		switch e := evt.(type) {
		case peer.Connected:
			that.handlePeerConnected(sess, e)
		case peer.MessageReceived:
			that.handlePeerMessage(sess, e.Message)
		case peer.Disconnected:
			that.handlePeerDisconnected(sess)
		}
	}
}

func (that *Controller) handlePeerConnected(sess *peer.Session, evt peer.Connected) {
	that.mu.Lock()

	if that.peer != sess {
		that.mu.Unlock()
		return
	}

	that.mode = ModeRemotePlay
	that.connected = true
	that.role = evt.Role
	that.timerSeconds = evt.TimerSeconds
	that.clock.SetTotal(time.Duration(evt.TimerSeconds) * time.Second)

	that.mu.Unlock()

	that.logger.Info("match is live", "room", evt.Role.Room, "host", evt.Role.IsHost, "symbol", evt.Role.Symbol)
	that.bus.Publish(PeerJoined{Role: evt.Role, TimerSeconds: evt.TimerSeconds})
}

// handlePeerDisconnected - no reconnection exists; a round cut short becomes
// terminal with no winner, so nothing is scored.
func (that *Controller) handlePeerDisconnected(sess *peer.Session) {
	that.mu.Lock()

	if that.peer != sess {
		that.mu.Unlock()
		return
	}

	that.connected = false
	that.stopClockLocked()
	that.rematch.reset()
	that.pendingSync = false

	if that.mode == ModeRemotePlay && !that.game.GameOver {
		that.game.SetTerminal(entity.EmptyCell, nil)
	}

	if that.mode == ModeAwaitingRemoteOpponent {
		that.mode = ModeIdle
	}

	that.mu.Unlock()

	that.logger.Info("opponent disconnected")
	that.bus.Publish(PeerLeft{})
}

func (that *Controller) handlePeerMessage(sess *peer.Session, msg *protocol.Message) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.peer != sess || that.mode != ModeRemotePlay {
		return
	}

	log := that.logger.With("method", "handlePeerMessage", "type", msg.Type)

	switch msg.Type {
	case protocol.MsgMove:
		var payload protocol.MovePayload
		if err := msg.DecodePayload(&payload); err != nil {
			log.Warn("dropping message", "error", err)
			return
		}

		that.handleRemoteMoveLocked(payload.CellIndex)

	case protocol.MsgReset:
		if that.role.IsHost {
			log.Warn("reset from guest ignored")
			return
		}

		// prepare for the snapshot; the reset alone is never enough to play on
		that.stopClockLocked()
		that.pendingSync = true

	case protocol.MsgFullSync:
		var payload protocol.FullSyncPayload
		if err := msg.DecodePayload(&payload); err != nil {
			log.Warn("dropping message", "error", err)
			return
		}

		if that.role.IsHost {
			log.Warn("snapshot from guest ignored")
			return
		}

		that.applyFullStateLocked(payload)

	case protocol.MsgTimerSync:
		var payload protocol.TimerSyncPayload
		if err := msg.DecodePayload(&payload); err != nil {
			log.Warn("dropping message", "error", err)
			return
		}

		total := time.Duration(that.timerSeconds) * time.Second
		that.bus.Publish(ClockTicked{
			Remaining: time.Duration(payload.RemainingMs) * time.Millisecond,
			Total:     total,
			Mark:      payload.Player,
		})

	case protocol.MsgTimerTimeout:
		var payload protocol.TimerTimeoutPayload
		if err := msg.DecodePayload(&payload); err != nil {
			log.Warn("dropping message", "error", err)
			return
		}

		that.forfeitTurnLocked(payload.TimedOutPlayer, false)

	case protocol.MsgRematchRequest:
		var payload protocol.RematchRequestPayload
		if err := msg.DecodePayload(&payload); err != nil {
			log.Warn("dropping message", "error", err)
			return
		}

		that.handleRematchRequestLocked(payload.PlayerNum)

	case protocol.MsgRematchResponse:
		var payload protocol.RematchResponsePayload
		if err := msg.DecodePayload(&payload); err != nil {
			log.Warn("dropping message", "error", err)
			return
		}

		that.handleRematchResponseLocked(payload.Accepted)

	case protocol.MsgGameStart:
		// consumed by the peer session during the handshake

	default:
		log.Warn("dropping message", "error", apperror.ErrUnknownMessage)
	}
}

func (that *Controller) handleRemoteMoveLocked(cell int) {
	if that.pendingSync {
		that.logger.Warn("dropping peer move while awaiting snapshot", "cell", cell)
		return
	}

	if that.localToActLocked() {
		that.flagDesyncLocked("peer moved while this side is to act")
		return
	}

	that.applyMoveLocked(cell, true)
}

// acceptRematchLocked - the host answers and starts the round itself; the
// guest answers and waits for the host's snapshot.
func (that *Controller) acceptRematchLocked() {
	that.rematch.reset()
	that.peer.SendRematchResponse(true)

	if that.role.IsHost {
		that.hostStartRoundLocked()
		return
	}

	that.pendingSync = true
}

// hostStartRoundLocked - advance locally, then replicate: the guest never
// reconstructs a round from anything short of the snapshot.
func (that *Controller) hostStartRoundLocked() {
	that.advanceRoundLocked()
	that.sendFullSyncLocked()
}

func (that *Controller) handleRematchRequestLocked(playerNum int) {
	if !that.game.GameOver {
		that.logger.Warn("rematch request before the round ended", "player", playerNum)
		return
	}

	if that.rematch.receive(playerNum) {
		// both sides asked at once: accepted with no response round-trip
		that.logger.Info("simultaneous rematch, auto-accepting")

		if that.role.IsHost {
			that.hostStartRoundLocked()
		} else {
			that.pendingSync = true
		}

		return
	}

	if _, pending := that.rematch.pending(); pending {
		that.bus.Publish(RematchRequested{PlayerNum: playerNum, Local: false})
	}
}

func (that *Controller) handleRematchResponseLocked(accepted bool) {
	wasRequester := that.rematch.awaitingPeer()
	that.rematch.reset()

	if !wasRequester {
		that.logger.Warn("unsolicited rematch response ignored")
		return
	}

	if !accepted {
		that.bus.Publish(RematchDeclined{})
		return
	}

	if that.role.IsHost {
		that.hostStartRoundLocked()
		return
	}

	that.pendingSync = true
}
