// board/registry.go
package board

import (
	"context"
	"errors"
	"fmt"

	"github.com/ViniZap4/lumi-board/domain"
	"github.com/ViniZap4/lumi-board/store"
)

// Registry manages the notes of each room. Mutations return the complete
// note list of the room as read after the write, never a delta: a client
// that missed an update converges on the next snapshot.
type Registry struct {
	store store.Store
}

func NewRegistry(s store.Store) *Registry {
	return &Registry{store: s}
}

func (r *Registry) ListNotes(ctx context.Context, roomID string) ([]domain.Note, error) {
	notes, err := r.store.GetRoomNotes(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []domain.Note{}
	}
	return notes, nil
}

// AddNote stores note in roomID and returns the room's notes. The roomID
// argument overrides note.RoomID. Id collisions surface as store errors.
func (r *Registry) AddNote(ctx context.Context, roomID string, note domain.Note) ([]domain.Note, error) {
	note.RoomID = roomID
	if err := r.store.InsertNote(ctx, note); err != nil {
		if errors.Is(err, store.ErrRoomMissing) {
			return nil, fmt.Errorf("add note %q: %w: %q", note.ID, ErrInvalidRoom, roomID)
		}
		return nil, err
	}
	return r.ListNotes(ctx, roomID)
}

// DeleteNote removes noteID, wherever it lives, and returns the notes of
// roomID. Deleting a missing note still returns the list.
func (r *Registry) DeleteNote(ctx context.Context, roomID, noteID string) ([]domain.Note, error) {
	if err := r.store.DeleteNoteByID(ctx, noteID); err != nil {
		return nil, err
	}
	return r.ListNotes(ctx, roomID)
}
