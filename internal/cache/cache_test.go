package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/codeshare/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "recent_rooms.json"))
}

func TestMissingFileReadsEmpty(t *testing.T) {
	s := newTestStore(t)

	rooms, err := s.All()
	require.NoError(t, err)
	assert.Empty(t, rooms)

	_, err = s.Get("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpsertMaterializesWithDefaults(t *testing.T) {
	s := newTestStore(t)

	room, err := s.Upsert("g1", domain.RoomPatch{})
	require.NoError(t, err)
	assert.Equal(t, "g1", room.ID)
	assert.Equal(t, domain.DefaultName, room.Name)
	assert.Equal(t, domain.DefaultLanguage, room.Language)
	assert.Equal(t, domain.DefaultTheme, room.Theme)
	assert.False(t, room.LastEdited.IsZero())

	got, err := s.Get("g1")
	require.NoError(t, err)
	assert.Equal(t, room, *got)
}

func TestUpsertMergesAndStamps(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	s.SetClock(func() time.Time { return now })

	_, err := s.Upsert("g1", domain.RoomPatch{Content: domain.StringPtr("v1")})
	require.NoError(t, err)

	now = base.Add(time.Minute)
	room, err := s.Upsert("g1", domain.RoomPatch{Name: domain.StringPtr("scratch")})
	require.NoError(t, err)

	// merge keeps untouched fields, stamp moves forward
	assert.Equal(t, "v1", room.Content)
	assert.Equal(t, "scratch", room.Name)
	assert.Equal(t, base.Add(time.Minute), room.LastEdited)
}

func TestNewRecordsGoToTheFront(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Upsert("old", domain.RoomPatch{})
	require.NoError(t, err)
	_, err = s.Upsert("new", domain.RoomPatch{})
	require.NoError(t, err)

	rooms, err := s.All()
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "new", rooms[0].ID)
	assert.Equal(t, "old", rooms[1].ID)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Upsert("g1", domain.RoomPatch{})
	require.NoError(t, err)

	require.NoError(t, s.Delete("g1"))
	_, err = s.Get("g1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// unknown id is a no-op
	require.NoError(t, s.Delete("g1"))
}

func TestSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recent_rooms.json")
	s := New(path)

	_, err := s.Upsert("g1", domain.RoomPatch{Content: domain.StringPtr("kept")})
	require.NoError(t, err)

	reopened := New(path)
	got, err := reopened.Get("g1")
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Content)
}
