// Package cache is the local counterpart of the room API: a single JSON
// document of recently edited rooms, most recently edited first. It backs
// guest sessions, which never touch the network.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cwrk-planet/codeshare/internal/domain"
)

type Store struct {
	mu   sync.Mutex
	path string

	now func() time.Time
}

func New(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// SetClock — для тестов.
func (s *Store) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// All returns every cached room, most recently edited first.
func (s *Store) All() ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Get returns the cached room or domain.ErrNotFound.
func (s *Store) Get(id string) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range rooms {
		if rooms[i].ID == id {
			return &rooms[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

// Upsert merges the patch onto the cached record and stamps LastEdited.
// A record that does not exist yet is materialized with defaults and
// inserted at the front of the iteration order.
func (s *Store) Upsert(id string, patch domain.RoomPatch) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms, err := s.load()
	if err != nil {
		return domain.Room{}, err
	}

	idx := -1
	for i := range rooms {
		if rooms[i].ID == id {
			idx = i
			break
		}
	}

	if idx == -1 {
		room := domain.Room{
			ID:       id,
			Name:     domain.DefaultName,
			Language: domain.DefaultLanguage,
			Theme:    domain.DefaultTheme,
		}
		patch.Apply(&room)
		room.LastEdited = s.now()
		rooms = append([]domain.Room{room}, rooms...)
		if err := s.save(rooms); err != nil {
			return domain.Room{}, err
		}
		return room, nil
	}

	patch.Apply(&rooms[idx])
	rooms[idx].LastEdited = s.now()
	room := rooms[idx]
	if err := s.save(rooms); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

// Delete removes the record; deleting an unknown id is a no-op.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms, err := s.load()
	if err != nil {
		return err
	}
	kept := rooms[:0]
	for _, r := range rooms {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	return s.save(kept)
}

func (s *Store) load() ([]domain.Room, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache read: %w", err)
	}
	var rooms []domain.Room
	if err := json.Unmarshal(data, &rooms); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	return rooms, nil
}

// save writes through a temp file rename so a crash never leaves a
// truncated cache behind.
func (s *Store) save(rooms []domain.Room) error {
	if rooms == nil {
		rooms = []domain.Room{}
	}
	data, err := json.Marshal(rooms)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("cache mkdir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("cache write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("cache rename: %w", err)
	}
	return nil
}
