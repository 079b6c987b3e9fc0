package apperror

import "errors"

var (
	ErrNotHost           = errors.New("only the host side can do this")
	ErrNotConnected      = errors.New("peer is not connected")
	ErrSessionClosed     = errors.New("session is closed")
	ErrHandshakeTimeout  = errors.New("game-start handshake timed out")
	ErrRoomTaken         = errors.New("room code is already taken")
	ErrRoomMissing       = errors.New("room not found")
	ErrUnknownDifficulty = errors.New("unknown difficulty")
	ErrUnknownMessage    = errors.New("unknown message type")
)
