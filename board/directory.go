// board/directory.go
package board

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ViniZap4/lumi-board/domain"
	"github.com/ViniZap4/lumi-board/store"
)

// Directory is the authoritative view of all rooms. It holds no cache: every
// call goes to the store.
type Directory struct {
	store store.Store
	log   zerolog.Logger
}

func NewDirectory(s store.Store) *Directory {
	return &Directory{
		store: s,
		log:   log.With().Str("component", "rooms").Logger(),
	}
}

// ListRooms returns every room in store order.
func (d *Directory) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rooms, err := d.store.GetRooms(ctx)
	if err != nil {
		return nil, err
	}
	if rooms == nil {
		rooms = []domain.Room{}
	}
	return rooms, nil
}

// Room looks up a single room.
func (d *Directory) Room(ctx context.Context, roomID string) (domain.Room, error) {
	room, err := d.store.GetRoom(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Room{}, fmt.Errorf("%w: %q", ErrRoomNotFound, roomID)
	}
	return room, err
}

// EnsureRoom returns the room, creating it with requesterID as creator when
// it does not exist yet. created tells the caller the room list changed.
func (d *Directory) EnsureRoom(ctx context.Context, roomID, requesterID string) (room domain.Room, created bool, err error) {
	room, created, err = d.store.UpsertRoom(ctx, domain.Room{ID: roomID, CreatorID: requesterID})
	if err != nil {
		return domain.Room{}, false, err
	}
	if created {
		d.log.Info().Str("room_id", roomID).Str("creator_id", requesterID).Msg("room created")
	}
	return room, created, nil
}

// DeleteRoom removes the room and all its notes when requesterID is the
// creator. A missing room is not an error and reports deleted == false. A
// refused request reports deleted == false with ErrAuthorizationDenied.
func (d *Directory) DeleteRoom(ctx context.Context, roomID, requesterID string) (deleted bool, err error) {
	room, err := d.store.GetRoom(ctx, roomID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := Authorize(room, requesterID); err != nil {
		return false, err
	}

	if err := d.store.DeleteNotesByRoom(ctx, roomID); err != nil {
		return false, err
	}
	if err := d.store.DeleteRoomByID(ctx, roomID); err != nil {
		return false, err
	}

	d.log.Info().Str("room_id", roomID).Str("requester_id", requesterID).Msg("room deleted")
	return true, nil
}
