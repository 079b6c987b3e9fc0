package relay

import (
	"context"
	"sync"

	"github.com/Drivakos/3d-tic-tac-toe-sub000/internal/apperror"
)

// RoomRegistry reserves room codes so two hosts can never share one. The
// relay releases a reservation when its room dies; implementations may also
// expire reservations on their own as a crash guard.
type RoomRegistry interface {
	Reserve(ctx context.Context, code string) error
	Release(ctx context.Context, code string) error
}

// MemoryRegistry keeps reservations in process. Good for a single relay
// instance and for tests.
type MemoryRegistry struct {
	mu    sync.Mutex
	rooms map[string]struct{}
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		rooms: make(map[string]struct{}),
	}
}

func (that *MemoryRegistry) Reserve(_ context.Context, code string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, taken := that.rooms[code]; taken {
		return apperror.ErrRoomTaken
	}

	that.rooms[code] = struct{}{}

	return nil
}

func (that *MemoryRegistry) Release(_ context.Context, code string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.rooms, code)

	return nil
}
