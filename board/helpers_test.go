package board

import (
	"context"
	"errors"

	"github.com/ViniZap4/lumi-board/domain"
	"github.com/ViniZap4/lumi-board/store"
)

var errBroken = errors.New("connection reset")

// flakyStore wraps a Memory store and fails the operations named in failOn.
type flakyStore struct {
	*store.Memory
	failOn map[string]bool
	calls  []string
}

func newFlakyStore(failOn ...string) *flakyStore {
	f := &flakyStore{Memory: store.NewMemory(), failOn: map[string]bool{}}
	for _, op := range failOn {
		f.failOn[op] = true
	}
	return f
}

func (f *flakyStore) fail(op string) error {
	f.calls = append(f.calls, op)
	if f.failOn[op] {
		return &store.Error{Op: op, Err: errBroken}
	}
	return nil
}

func (f *flakyStore) GetRooms(ctx context.Context) ([]domain.Room, error) {
	if err := f.fail("get rooms"); err != nil {
		return nil, err
	}
	return f.Memory.GetRooms(ctx)
}

func (f *flakyStore) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	if err := f.fail("get room"); err != nil {
		return domain.Room{}, err
	}
	return f.Memory.GetRoom(ctx, id)
}

func (f *flakyStore) UpsertRoom(ctx context.Context, room domain.Room) (domain.Room, bool, error) {
	if err := f.fail("upsert room"); err != nil {
		return domain.Room{}, false, err
	}
	return f.Memory.UpsertRoom(ctx, room)
}

func (f *flakyStore) GetRoomNotes(ctx context.Context, roomID string) ([]domain.Note, error) {
	if err := f.fail("get room notes"); err != nil {
		return nil, err
	}
	return f.Memory.GetRoomNotes(ctx, roomID)
}

func (f *flakyStore) InsertNote(ctx context.Context, note domain.Note) error {
	if err := f.fail("insert note"); err != nil {
		return err
	}
	return f.Memory.InsertNote(ctx, note)
}

func (f *flakyStore) DeleteNoteByID(ctx context.Context, id string) error {
	if err := f.fail("delete note"); err != nil {
		return err
	}
	return f.Memory.DeleteNoteByID(ctx, id)
}

func (f *flakyStore) DeleteNotesByRoom(ctx context.Context, roomID string) error {
	if err := f.fail("delete room notes"); err != nil {
		return err
	}
	return f.Memory.DeleteNotesByRoom(ctx, roomID)
}

func (f *flakyStore) DeleteRoomByID(ctx context.Context, id string) error {
	if err := f.fail("delete room"); err != nil {
		return err
	}
	return f.Memory.DeleteRoomByID(ctx, id)
}
