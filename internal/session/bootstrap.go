// Package session turns a route parameter into a ready-to-edit session:
// resolve the room, decide the caller's role, pick the persistence
// target and wire the sync engine to it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cwrk-planet/codeshare/internal/access"
	"github.com/cwrk-planet/codeshare/internal/cache"
	"github.com/cwrk-planet/codeshare/internal/domain"
	"github.com/cwrk-planet/codeshare/internal/gateway"
	"github.com/cwrk-planet/codeshare/internal/realtime"
	"github.com/cwrk-planet/codeshare/internal/syncer"
)

type Bootstrap struct {
	Gateway  *gateway.Client
	Cache    *cache.Store
	Channel  *realtime.Channel
	Identity Identity

	// Engine options forwarded to every resolved session.
	Engine syncer.Options
}

// Session — живое состояние одной открытой комнаты. Ровно один realtime
// канал на процесс; Close освобождает его перед следующим Resolve.
type Session struct {
	Room     domain.Room
	Role     domain.Role
	Redirect bool // caller should navigate to the canonical /rooms/{id} URL
	Engine   *syncer.Engine

	channel *realtime.Channel
	cancel  context.CancelFunc
}

// Resolve produces a session for routeID ("" means "create a fresh
// room"). Re-resolving a freshly generated id loads the same room
// instead of creating a second one.
func (b *Bootstrap) Resolve(ctx context.Context, routeID string) (*Session, error) {
	room, redirect, err := b.resolveRoom(ctx, routeID)
	if err != nil {
		return nil, err
	}

	role := access.EffectiveRole(room, b.Identity.Email)

	var store syncer.Store
	var ch syncer.Channel
	if b.Identity.IsGuest() {
		store = syncer.LocalStore{Cache: b.Cache}
	} else {
		store = syncer.RemoteStore{GW: b.Gateway}
		if b.Channel != nil {
			if err := b.Channel.Connect(ctx, b.Identity.Email); err != nil {
				// collaboration degrades, editing does not
				slog.Warn("realtime connect failed", "room", room.ID, "err", err)
			} else if err := b.Channel.Join(room.ID); err != nil {
				slog.Warn("realtime join failed", "room", room.ID, "err", err)
			} else {
				ch = b.Channel
			}
		}
	}

	engine := syncer.New(store, ch, *room, role, b.Identity.Email, b.Engine)

	return &Session{
		Room:     *room,
		Role:     role,
		Redirect: redirect,
		Engine:   engine,
		channel:  b.Channel,
	}, nil
}

func (b *Bootstrap) resolveRoom(ctx context.Context, routeID string) (*domain.Room, bool, error) {
	guest := b.Identity.IsGuest()

	if routeID == "" {
		if guest {
			room, err := b.Cache.Upsert(uuid.NewString(), domain.RoomPatch{})
			if err != nil {
				return nil, false, fmt.Errorf("session: create guest room: %w", err)
			}
			return &room, true, nil
		}
		room, err := b.Gateway.Create(ctx, gateway.CreateRoomRequest{Name: domain.DefaultName})
		if err != nil {
			return nil, false, fmt.Errorf("session: create room: %w", err)
		}
		return room, true, nil
	}

	if guest {
		room, err := b.Cache.Get(routeID)
		if errors.Is(err, domain.ErrNotFound) {
			// first open of a shared link: materialize an empty room
			// under the requested id
			created, err := b.Cache.Upsert(routeID, domain.RoomPatch{})
			if err != nil {
				return nil, false, fmt.Errorf("session: materialize room: %w", err)
			}
			return &created, false, nil
		}
		if err != nil {
			return nil, false, fmt.Errorf("session: load cached room: %w", err)
		}
		return room, false, nil
	}

	// authenticated ids are externally allocated: a miss is a miss
	room, err := b.Gateway.Get(ctx, routeID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, domain.ErrNotFound
		}
		return nil, false, fmt.Errorf("session: load room: %w", err)
	}
	return room, false, nil
}

// Start runs the engine loop until Close or ctx cancellation.
func (s *Session) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.Engine.Run(ctx)
}

// Close tears the session down: the debounce timer dies with the engine
// context, an in-flight save completes but its result is discarded, and
// the realtime connection is released for the next session.
func (s *Session) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.channel != nil {
		return s.channel.Close()
	}
	return nil
}
