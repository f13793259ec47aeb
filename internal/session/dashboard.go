package session

import (
	"context"
	"log/slog"

	"github.com/cwrk-planet/codeshare/internal/cache"
	"github.com/cwrk-planet/codeshare/internal/domain"
	"github.com/cwrk-planet/codeshare/internal/gateway"
)

// RecentRooms returns the local listing for the dashboard, silently
// dropping transient records (empty content, never renamed) accumulated
// by visits that typed nothing. Garbage collection lives here by policy:
// the store itself never discards data.
func RecentRooms(store *cache.Store) ([]domain.Room, error) {
	rooms, err := store.All()
	if err != nil {
		return nil, err
	}
	kept := make([]domain.Room, 0, len(rooms))
	for _, r := range rooms {
		if r.Transient() {
			if err := store.Delete(r.ID); err != nil {
				slog.Debug("prune failed", "room", r.ID, "err", err)
			}
			continue
		}
		kept = append(kept, r)
	}
	return kept, nil
}

// OwnedAndShared — серверный листинг для авторизованного пользователя.
func OwnedAndShared(ctx context.Context, gw *gateway.Client) (gateway.RoomList, error) {
	return gw.List(ctx)
}
