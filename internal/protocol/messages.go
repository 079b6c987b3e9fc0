package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/entity"
)

// Message types exchanged between the two sides of a match. The envelope is
// the whole wire contract; everything else rides in the payload.
const (
	MsgGameStart       = "game-start"
	MsgMove            = "move"
	MsgReset           = "reset"
	MsgFullSync        = "full-sync"
	MsgTimerSync       = "timer-sync"
	MsgTimerTimeout    = "timer-timeout"
	MsgRematchRequest  = "rematch-request"
	MsgRematchResponse = "rematch-response"
)

var ErrMissingType = errors.New("message has no type")

type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// GameStartPayload - sent once by the host when the channel opens. Role is
// the symbol assigned to the receiving guest.
type GameStartPayload struct {
	Role         string `json:"role"`
	TimerSeconds int    `json:"timerSeconds"`
}

type MovePayload struct {
	CellIndex int `json:"cellIndex"`
}

// FullSyncPayload - complete snapshot used to repair or establish a round.
// GameStarted tells the receiver whether the round's first move happened,
// which decides whether its clock may run after applying.
type FullSyncPayload struct {
	GameState    *entity.Game `json:"gameState"`
	Scores       entity.Score `json:"scores"`
	TimerSeconds int          `json:"timerSeconds"`
	GameStarted  bool         `json:"gameStarted"`
}

// TimerSyncPayload - remaining milliseconds on the active side's countdown,
// for display on the passive side.
type TimerSyncPayload struct {
	RemainingMs int64  `json:"remaining"`
	Player      string `json:"player"`
}

type TimerTimeoutPayload struct {
	TimedOutPlayer string `json:"timedOutPlayer"`
}

type RematchRequestPayload struct {
	PlayerNum int `json:"playerNum"`
}

type RematchResponsePayload struct {
	Accepted bool `json:"accepted"`
}

func NewMessage(msgType string, payload any) (*Message, error) {
	msg := &Message{Type: msgType}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("could not marshal %s payload: %w", msgType, err)
		}
		msg.Payload = data
	}

	return msg, nil
}

// Encode - envelope straight to wire bytes.
func Encode(msgType string, payload any) ([]byte, error) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("could not marshal message: %w", err)
	}

	return data, nil
}

func Decode(data []byte) (*Message, error) {
	msg := &Message{}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("could not unmarshal message: %w", err)
	}

	if msg.Type == "" {
		return nil, ErrMissingType
	}

	return msg, nil
}

func (that *Message) DecodePayload(v any) error {
	if len(that.Payload) == 0 {
		return nil
	}

	if err := json.Unmarshal(that.Payload, v); err != nil {
		return fmt.Errorf("could not unmarshal %s payload: %w", that.Type, err)
	}

	return nil
}
