package board

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ViniZap4/lumi-board/domain"
	"github.com/ViniZap4/lumi-board/store"
)

func TestEnsureRoomCreatesOnFirstJoin(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory(store.NewMemory())

	room, created, err := dir.EnsureRoom(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.Room{ID: "r1", CreatorID: "u1"}, room)

	rooms, err := dir.ListRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.Room{room}, rooms)
}

func TestEnsureRoomPreservesCreator(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory(store.NewMemory())
	_, _, err := dir.EnsureRoom(ctx, "r1", "u1")
	require.NoError(t, err)

	room, created, err := dir.EnsureRoom(ctx, "r1", "u2")
	require.NoError(t, err)
	assert.False(t, created, "re-joining must not report a new room")
	assert.Equal(t, "u1", room.CreatorID)
}

func TestEnsureRoomConcurrentFirstJoins(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory(store.NewMemory())

	const joiners = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		created  int
		creators = map[string]bool{}
	)
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			room, ok, err := dir.EnsureRoom(ctx, "r1", user)
			assert.NoError(t, err)

			mu.Lock()
			defer mu.Unlock()
			if ok {
				created++
			}
			creators[room.CreatorID] = true
		}(fmt.Sprintf("u%d", i))
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, creators, 1, "every joiner sees the same creator")

	rooms, err := dir.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.True(t, creators[rooms[0].CreatorID])
}

func TestEnsureRoomPropagatesStoreError(t *testing.T) {
	dir := NewDirectory(newFlakyStore("upsert room"))

	_, created, err := dir.EnsureRoom(context.Background(), "r1", "u1")

	assert.False(t, created)
	var storeErr *store.Error
	assert.ErrorAs(t, err, &storeErr)
}

func TestRoomLookup(t *testing.T) {
	ctx := context.Background()
	dir := NewDirectory(store.NewMemory())
	_, _, err := dir.EnsureRoom(ctx, "r1", "u1")
	require.NoError(t, err)

	room, err := dir.Room(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "u1", room.CreatorID)

	_, err = dir.Room(ctx, "missing")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestDeleteRoom(t *testing.T) {
	tests := []struct {
		name        string
		roomID      string
		requester   string
		wantDeleted bool
		wantErr     error
	}{
		{name: "creator deletes", roomID: "r1", requester: "u1", wantDeleted: true},
		{name: "non-creator is refused", roomID: "r1", requester: "u2", wantErr: ErrAuthorizationDenied},
		{name: "missing room is a no-op", roomID: "ghost", requester: "u1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mem := store.NewMemory()
			dir := NewDirectory(mem)
			notes := NewRegistry(mem)
			_, _, err := dir.EnsureRoom(ctx, "r1", "u1")
			require.NoError(t, err)
			_, err = notes.AddNote(ctx, "r1", domain.Note{ID: "n1", Text: "hi"})
			require.NoError(t, err)

			deleted, err := dir.DeleteRoom(ctx, tt.roomID, tt.requester)

			assert.Equal(t, tt.wantDeleted, deleted)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}

			remaining, err := notes.ListNotes(ctx, "r1")
			require.NoError(t, err)
			rooms, err := dir.ListRooms(ctx)
			require.NoError(t, err)
			if tt.wantDeleted {
				assert.Empty(t, remaining)
				assert.Empty(t, rooms)
			} else {
				assert.Len(t, remaining, 1)
				assert.Len(t, rooms, 1)
			}
		})
	}
}

func TestDeleteRoomRemovesNotesBeforeRoom(t *testing.T) {
	ctx := context.Background()
	fs := newFlakyStore()
	dir := NewDirectory(fs)
	_, _, err := dir.EnsureRoom(ctx, "r1", "u1")
	require.NoError(t, err)
	fs.calls = nil

	deleted, err := dir.DeleteRoom(ctx, "r1", "u1")

	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, []string{"get room", "delete room notes", "delete room"}, fs.calls)
}

func TestDeleteRoomStoreFailureKeepsRoom(t *testing.T) {
	ctx := context.Background()
	fs := newFlakyStore("delete room notes")
	dir := NewDirectory(fs)
	_, _, err := dir.EnsureRoom(ctx, "r1", "u1")
	require.NoError(t, err)

	deleted, err := dir.DeleteRoom(ctx, "r1", "u1")

	assert.False(t, deleted)
	assert.ErrorIs(t, err, errBroken)
	_, err = dir.Room(ctx, "r1")
	assert.NoError(t, err)
}
