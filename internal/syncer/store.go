package syncer

import (
	"context"

	"github.com/cwrk-planet/codeshare/internal/cache"
	"github.com/cwrk-planet/codeshare/internal/domain"
	"github.com/cwrk-planet/codeshare/internal/gateway"
)

// Store is the single persistence capability of the engine. The
// implementation is picked once at session start — remote for
// collaborative rooms, local for guest rooms — and never mixed
// mid-session.
type Store interface {
	SaveRoom(ctx context.Context, id string, patch domain.RoomPatch) (*domain.Room, error)
}

// RemoteStore persists through the room API.
type RemoteStore struct {
	GW *gateway.Client
}

func (s RemoteStore) SaveRoom(ctx context.Context, id string, patch domain.RoomPatch) (*domain.Room, error) {
	return s.GW.Patch(ctx, id, patch)
}

// LocalStore persists into the recent-rooms cache.
type LocalStore struct {
	Cache *cache.Store
}

func (s LocalStore) SaveRoom(ctx context.Context, id string, patch domain.RoomPatch) (*domain.Room, error) {
	room, err := s.Cache.Upsert(id, patch)
	if err != nil {
		return nil, err
	}
	return &room, nil
}
