package pkg

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	roomCodeLength  = 8
	roomCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// GenerateRoomCode - 8 uppercase alphanumeric characters, fit for sharing as
// a URL query parameter.
func GenerateRoomCode() string {
	code := make([]byte, roomCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomCodeCharset))))
		if err != nil {
			return ""
		}
		code[i] = roomCodeCharset[n.Int64()]
	}

	return string(code)
}

// IsRoomCode - reports whether s has the shape GenerateRoomCode produces.
func IsRoomCode(s string) bool {
	if len(s) != roomCodeLength {
		return false
	}

	for _, r := range s {
		if !strings.ContainsRune(roomCodeCharset, r) {
			return false
		}
	}

	return true
}
