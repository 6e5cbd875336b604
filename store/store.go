// store/store.go
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/ViniZap4/lumi-board/domain"
)

// Store holds the durable room and note facts. Implementations return
// *Error for every failure so callers can tell persistence problems apart
// from protocol or authorization problems.
type Store interface {
	GetRooms(ctx context.Context) ([]domain.Room, error)

	// GetRoom returns an error wrapping ErrNotFound when the room is absent.
	GetRoom(ctx context.Context, id string) (domain.Room, error)

	// UpsertRoom inserts the room unless a room with the same id exists.
	// It returns the stored room, which keeps its original creator, and
	// whether this call created it.
	UpsertRoom(ctx context.Context, room domain.Room) (domain.Room, bool, error)

	GetRoomNotes(ctx context.Context, roomID string) ([]domain.Note, error)

	// InsertNote fails with ErrDuplicate when the note id is taken and with
	// ErrRoomMissing when note.RoomID does not reference a room.
	InsertNote(ctx context.Context, note domain.Note) error

	// DeleteNoteByID is a no-op when the note does not exist.
	DeleteNoteByID(ctx context.Context, id string) error
	DeleteNotesByRoom(ctx context.Context, roomID string) error
	DeleteRoomByID(ctx context.Context, id string) error

	Close()
}

var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicate   = errors.New("duplicate key")
	ErrRoomMissing = errors.New("room does not exist")
)

// Error is the StoreError of the board: a failed persistence operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
