// store/memory.go
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/ViniZap4/lumi-board/domain"
)

type entry[T any] struct {
	seq   uint64
	value T
}

// Memory is a process-local Store used when no database is configured and
// by tests. It mirrors the PostgreSQL schema rules: primary keys on room and
// note ids, notes must reference an existing room, and deleting a room
// cascades to its notes.
type Memory struct {
	mu    sync.RWMutex
	seq   uint64
	rooms map[string]entry[domain.Room]
	notes map[string]entry[domain.Note]
}

func NewMemory() *Memory {
	return &Memory{
		rooms: make(map[string]entry[domain.Room]),
		notes: make(map[string]entry[domain.Note]),
	}
}

func (m *Memory) GetRooms(ctx context.Context) ([]domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap("get rooms", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sorted(m.rooms, func(domain.Room) bool { return true }), nil
}

func (m *Memory) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	if err := ctx.Err(); err != nil {
		return domain.Room{}, wrap("get room", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.rooms[id]
	if !ok {
		return domain.Room{}, wrap("get room", ErrNotFound)
	}
	return e.value, nil
}

func (m *Memory) UpsertRoom(ctx context.Context, room domain.Room) (domain.Room, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Room{}, false, wrap("upsert room", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.rooms[room.ID]; ok {
		return e.value, false, nil
	}
	m.seq++
	m.rooms[room.ID] = entry[domain.Room]{seq: m.seq, value: room}
	return room, true, nil
}

func (m *Memory) GetRoomNotes(ctx context.Context, roomID string) ([]domain.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrap("get room notes", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sorted(m.notes, func(n domain.Note) bool { return n.RoomID == roomID }), nil
}

func (m *Memory) InsertNote(ctx context.Context, note domain.Note) error {
	if err := ctx.Err(); err != nil {
		return wrap("insert note", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.notes[note.ID]; ok {
		return wrap("insert note", ErrDuplicate)
	}
	if _, ok := m.rooms[note.RoomID]; !ok {
		return wrap("insert note", ErrRoomMissing)
	}
	m.seq++
	m.notes[note.ID] = entry[domain.Note]{seq: m.seq, value: note}
	return nil
}

func (m *Memory) DeleteNoteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return wrap("delete note", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.notes, id)
	return nil
}

func (m *Memory) DeleteNotesByRoom(ctx context.Context, roomID string) error {
	if err := ctx.Err(); err != nil {
		return wrap("delete room notes", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deleteNotesLocked(roomID)
	return nil
}

func (m *Memory) DeleteRoomByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return wrap("delete room", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[id]; !ok {
		return nil
	}
	m.deleteNotesLocked(id)
	delete(m.rooms, id)
	return nil
}

func (m *Memory) Close() {}

func (m *Memory) deleteNotesLocked(roomID string) {
	for id, e := range m.notes {
		if e.value.RoomID == roomID {
			delete(m.notes, id)
		}
	}
}

// sorted returns the matching values in insertion order, never nil.
func sorted[T any](entries map[string]entry[T], keep func(T) bool) []T {
	matched := make([]entry[T], 0, len(entries))
	for _, e := range entries {
		if keep(e.value) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	out := make([]T, 0, len(matched))
	for _, e := range matched {
		out = append(out, e.value)
	}
	return out
}
