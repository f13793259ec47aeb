package devserver_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwrk-planet/codeshare/internal/devserver"
	"github.com/cwrk-planet/codeshare/internal/domain"
	"github.com/cwrk-planet/codeshare/internal/gateway"
	"github.com/cwrk-planet/codeshare/internal/realtime"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(devserver.New().Handler())
	t.Cleanup(srv.Close)
	return srv
}

func client(srv *httptest.Server, email string) *gateway.Client {
	return gateway.New(gateway.Options{BaseURL: srv.URL, Email: email, Token: "tok-" + email})
}

func TestCreateOwnedRoomDefaults(t *testing.T) {
	srv := newTestServer(t)
	gw := client(srv, "u1@example.com")

	room, err := gw.Create(context.Background(), gateway.CreateRoomRequest{})
	require.NoError(t, err)

	assert.NotEmpty(t, room.ID)
	assert.Equal(t, domain.DefaultName, room.Name)
	assert.Equal(t, domain.DefaultLanguage, room.Language)
	assert.Equal(t, domain.DefaultTheme, room.Theme)
	assert.Equal(t, domain.VisibilityPublic, room.Visibility)
	assert.Equal(t, "u1@example.com", room.Owner)
	require.Len(t, room.Members, 1)
	assert.Equal(t, domain.RoleOwner, room.Members[0].Role)
	require.NoError(t, room.Validate())
}

func TestCreateGuestRoomHasNoOwner(t *testing.T) {
	srv := newTestServer(t)
	gw := client(srv, "")

	room, err := gw.Create(context.Background(), gateway.CreateRoomRequest{Name: "scratch"})
	require.NoError(t, err)

	assert.True(t, room.IsGuest())
	assert.Empty(t, room.Members)
	assert.Equal(t, "scratch", room.Name)
}

func TestPatchForbiddenForViewer(t *testing.T) {
	srv := newTestServer(t)
	owner := client(srv, "u1@example.com")
	viewer := client(srv, "u2@example.com")

	room, err := owner.Create(context.Background(), gateway.CreateRoomRequest{})
	require.NoError(t, err)
	_, err = owner.Share(context.Background(), room.ID, gateway.ShareRequest{
		Email: "u2@example.com", Role: string(domain.RoleViewer),
	})
	require.NoError(t, err)

	_, err = viewer.Patch(context.Background(), room.ID, domain.RoomPatch{
		Content: domain.StringPtr("nope"),
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := viewer.Get(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Content)
}

func TestPatchStampsLastEdited(t *testing.T) {
	srv := newTestServer(t)
	gw := client(srv, "u1@example.com")

	room, err := gw.Create(context.Background(), gateway.CreateRoomRequest{})
	require.NoError(t, err)

	updated, err := gw.Patch(context.Background(), room.ID, domain.RoomPatch{
		Content: domain.StringPtr("x := 1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "x := 1", updated.Content)
	assert.False(t, updated.LastEdited.Before(room.LastEdited))
}

func TestShareUpsertIsIdempotent(t *testing.T) {
	srv := newTestServer(t)
	gw := client(srv, "u1@example.com")

	room, err := gw.Create(context.Background(), gateway.CreateRoomRequest{})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		room, err = gw.Share(context.Background(), room.ID, gateway.ShareRequest{
			Email: "u2@example.com", Role: string(domain.RoleEditor),
		})
		require.NoError(t, err)
	}
	assert.Len(t, room.Members, 2)

	// role change updates the entry in place
	room, err = gw.Share(context.Background(), room.ID, gateway.ShareRequest{
		Email: "u2@example.com", Role: string(domain.RoleViewer),
	})
	require.NoError(t, err)
	assert.Len(t, room.Members, 2)
	role, ok := room.MemberRole("u2@example.com")
	require.True(t, ok)
	assert.Equal(t, domain.RoleViewer, role)
}

func TestShareRejectsOwnerRemoval(t *testing.T) {
	srv := newTestServer(t)
	gw := client(srv, "u1@example.com")

	room, err := gw.Create(context.Background(), gateway.CreateRoomRequest{})
	require.NoError(t, err)

	_, err = gw.Share(context.Background(), room.ID, gateway.ShareRequest{
		Email: "u1@example.com", Role: domain.RoleRemove,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	got, err := gw.Get(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, 1)
}

func TestShareRejectsSecondOwner(t *testing.T) {
	srv := newTestServer(t)
	gw := client(srv, "u1@example.com")

	room, err := gw.Create(context.Background(), gateway.CreateRoomRequest{})
	require.NoError(t, err)

	_, err = gw.Share(context.Background(), room.ID, gateway.ShareRequest{
		Email: "u2@example.com", Role: string(domain.RoleOwner),
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestShareIsOwnerOnly(t *testing.T) {
	srv := newTestServer(t)
	owner := client(srv, "u1@example.com")
	editor := client(srv, "u2@example.com")

	room, err := owner.Create(context.Background(), gateway.CreateRoomRequest{})
	require.NoError(t, err)
	_, err = owner.Share(context.Background(), room.ID, gateway.ShareRequest{
		Email: "u2@example.com", Role: string(domain.RoleEditor),
	})
	require.NoError(t, err)

	_, err = editor.Share(context.Background(), room.ID, gateway.ShareRequest{
		Email: "u3@example.com", Role: string(domain.RoleEditor),
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// Public room access tightens once the owner invites someone: the open
// door is for the first collaborator only.
func TestPublicRoomClosesAfterFirstInvite(t *testing.T) {
	srv := newTestServer(t)
	owner := client(srv, "u1@example.com")
	stranger := client(srv, "u2@example.com")

	room, err := owner.Create(context.Background(), gateway.CreateRoomRequest{})
	require.NoError(t, err)

	// open: anyone may write
	_, err = stranger.Patch(context.Background(), room.ID, domain.RoomPatch{
		Content: domain.StringPtr("hello"),
	})
	require.NoError(t, err)

	_, err = owner.Share(context.Background(), room.ID, gateway.ShareRequest{
		Email: "u3@example.com", Role: string(domain.RoleEditor),
	})
	require.NoError(t, err)

	// closed: u2 never got a membership
	_, err = stranger.Patch(context.Background(), room.ID, domain.RoomPatch{
		Content: domain.StringPtr("still me?"),
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestListSplitsOwnedAndShared(t *testing.T) {
	srv := newTestServer(t)
	u1 := client(srv, "u1@example.com")
	u2 := client(srv, "u2@example.com")

	mine, err := u1.Create(context.Background(), gateway.CreateRoomRequest{Name: "mine"})
	require.NoError(t, err)
	theirs, err := u2.Create(context.Background(), gateway.CreateRoomRequest{Name: "theirs"})
	require.NoError(t, err)
	_, err = u2.Share(context.Background(), theirs.ID, gateway.ShareRequest{
		Email: "u1@example.com", Role: string(domain.RoleEditor),
	})
	require.NoError(t, err)

	list, err := u1.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list.Owned, 1)
	assert.Equal(t, mine.ID, list.Owned[0].ID)
	require.Len(t, list.Shared, 1)
	assert.Equal(t, theirs.ID, list.Shared[0].ID)
}

func TestDeleteOwnerOnly(t *testing.T) {
	srv := newTestServer(t)
	owner := client(srv, "u1@example.com")
	other := client(srv, "u2@example.com")

	room, err := owner.Create(context.Background(), gateway.CreateRoomRequest{})
	require.NoError(t, err)

	err = other.Delete(context.Background(), room.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, owner.Delete(context.Background(), room.ID))
	_, err = owner.Get(context.Background(), room.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	require.NoError(t, client(srv, "").Health(context.Background()))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestRealtimeFanOutBetweenTwoChannels(t *testing.T) {
	srv := newTestServer(t)

	a := realtime.NewChannel(wsURL(srv))
	require.NoError(t, a.Connect(context.Background(), "u1@example.com"))
	defer a.Close()

	b := realtime.NewChannel(wsURL(srv))
	require.NoError(t, b.Connect(context.Background(), "u2@example.com"))
	defer b.Close()

	require.NoError(t, a.Join("room-1"))
	require.NoError(t, b.Join("room-1"))
	time.Sleep(50 * time.Millisecond) // let the server register both joins

	a.SendEdit("fmt.Println(42)")

	select {
	case edit := <-b.Edits():
		assert.Equal(t, "fmt.Println(42)", edit.Content)
		assert.Equal(t, "u1@example.com", edit.Sender)
		assert.Equal(t, uint64(1), edit.Seq)
	case <-time.After(2 * time.Second):
		t.Fatal("edit never arrived at the second channel")
	}

	// sender must not hear its own echo
	select {
	case edit := <-a.Edits():
		t.Fatalf("sender received its own edit back: %+v", edit)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRealtimeRoomsAreIsolated(t *testing.T) {
	srv := newTestServer(t)

	a := realtime.NewChannel(wsURL(srv))
	require.NoError(t, a.Connect(context.Background(), "u1@example.com"))
	defer a.Close()

	b := realtime.NewChannel(wsURL(srv))
	require.NoError(t, b.Connect(context.Background(), "u2@example.com"))
	defer b.Close()

	require.NoError(t, a.Join("room-1"))
	require.NoError(t, b.Join("room-2"))
	time.Sleep(50 * time.Millisecond)

	a.SendEdit("for another room")

	select {
	case edit := <-b.Edits():
		t.Fatalf("edit leaked across rooms: %+v", edit)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRealtimeGuestSender(t *testing.T) {
	srv := newTestServer(t)

	g := realtime.NewChannel(wsURL(srv))
	require.NoError(t, g.Connect(context.Background(), ""))
	defer g.Close()

	b := realtime.NewChannel(wsURL(srv))
	require.NoError(t, b.Connect(context.Background(), "u2@example.com"))
	defer b.Close()

	require.NoError(t, g.Join("room-1"))
	require.NoError(t, b.Join("room-1"))
	time.Sleep(50 * time.Millisecond)

	g.SendEdit("anonymous keystrokes")

	select {
	case edit := <-b.Edits():
		assert.Equal(t, realtime.GuestSender, edit.Sender)
	case <-time.After(2 * time.Second):
		t.Fatal("guest edit never arrived")
	}
}
