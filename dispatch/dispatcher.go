// dispatch/dispatcher.go
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ViniZap4/lumi-board/board"
	"github.com/ViniZap4/lumi-board/protocol"
)

// BroadcastPort delivers outbound events. Who is in a room is the port's
// business; the dispatcher only picks the audience.
type BroadcastPort interface {
	ToConn(connID, event string, data any)
	ToRoom(roomID, event string, data any)
	ToAll(event string, data any)
}

// Membership records which rooms a connection listens to.
type Membership interface {
	Join(connID, roomID string)
	Leave(connID, roomID string)
}

// Dispatcher routes inbound events to the room directory and note registry
// and broadcasts the resulting snapshots. A failing event is logged and
// produces no broadcast; the sender gets no error reply.
type Dispatcher struct {
	rooms   *board.Directory
	notes   *board.Registry
	members Membership
	out     BroadcastPort
	log     zerolog.Logger
}

func New(rooms *board.Directory, notes *board.Registry, members Membership, out BroadcastPort) *Dispatcher {
	return &Dispatcher{
		rooms:   rooms,
		notes:   notes,
		members: members,
		out:     out,
		log:     log.With().Str("component", "dispatcher").Logger(),
	}
}

// Connected sends the current room list to a new connection.
func (d *Dispatcher) Connected(ctx context.Context, connID string) {
	rooms, err := d.rooms.ListRooms(ctx)
	if err != nil {
		d.report(connID, "connect", "", err)
		return
	}
	d.out.ToConn(connID, protocol.EventUpdateRoomList, rooms)
}

// Disconnected is a no-op beyond logging: departures are not announced.
func (d *Dispatcher) Disconnected(connID string) {
	d.log.Debug().Str("conn_id", connID).Msg("connection gone")
}

func (d *Dispatcher) HandleEvent(ctx context.Context, connID string, env protocol.Envelope) {
	var (
		roomID string
		err    error
	)
	switch env.Event {
	case protocol.EventJoinRoom:
		roomID, err = d.joinRoom(ctx, connID, env)
	case protocol.EventLeaveRoom:
		roomID, err = d.leaveRoom(connID, env)
	case protocol.EventAddNote:
		roomID, err = d.addNote(ctx, env)
	case protocol.EventDeleteNote:
		roomID, err = d.deleteNote(ctx, env)
	case protocol.EventDeleteRoom:
		roomID, err = d.deleteRoom(ctx, env)
	default:
		err = fmt.Errorf("%w: %q", protocol.ErrUnknownEvent, env.Event)
	}

	if err != nil {
		d.report(connID, env.Event, roomID, err)
	}
}

func (d *Dispatcher) joinRoom(ctx context.Context, connID string, env protocol.Envelope) (string, error) {
	var p protocol.JoinRoom
	if err := env.Decode(&p); err != nil {
		return "", err
	}

	d.members.Join(connID, p.RoomID)

	room, created, err := d.rooms.EnsureRoom(ctx, p.RoomID, p.UserID)
	if err != nil {
		return p.RoomID, err
	}
	if created {
		if err := d.broadcastRoomList(ctx); err != nil {
			d.report(connID, protocol.EventUpdateRoomList, p.RoomID, err)
		}
	}

	notes, err := d.notes.ListNotes(ctx, room.ID)
	if err != nil {
		return p.RoomID, err
	}
	d.out.ToConn(connID, protocol.EventLoadNotes, notes)
	d.out.ToConn(connID, protocol.EventRoomInfo, protocol.RoomInfo{CreatorID: room.CreatorID})
	return p.RoomID, nil
}

func (d *Dispatcher) leaveRoom(connID string, env protocol.Envelope) (string, error) {
	var p protocol.LeaveRoom
	if err := env.Decode(&p); err != nil {
		return "", err
	}
	d.members.Leave(connID, p.RoomID)
	return p.RoomID, nil
}

func (d *Dispatcher) addNote(ctx context.Context, env protocol.Envelope) (string, error) {
	var p protocol.AddNote
	if err := env.Decode(&p); err != nil {
		return "", err
	}

	notes, err := d.notes.AddNote(ctx, p.RoomID, p.ToNote())
	if err != nil {
		return p.RoomID, err
	}
	d.out.ToRoom(p.RoomID, protocol.EventLoadNotes, notes)
	return p.RoomID, nil
}

func (d *Dispatcher) deleteNote(ctx context.Context, env protocol.Envelope) (string, error) {
	var p protocol.DeleteNote
	if err := env.Decode(&p); err != nil {
		return "", err
	}

	notes, err := d.notes.DeleteNote(ctx, p.RoomID, p.NoteID)
	if err != nil {
		return p.RoomID, err
	}
	d.out.ToRoom(p.RoomID, protocol.EventLoadNotes, notes)
	return p.RoomID, nil
}

func (d *Dispatcher) deleteRoom(ctx context.Context, env protocol.Envelope) (string, error) {
	var p protocol.DeleteRoom
	if err := env.Decode(&p); err != nil {
		return "", err
	}

	deleted, err := d.rooms.DeleteRoom(ctx, p.RoomID, p.UserID)
	if err != nil || !deleted {
		return p.RoomID, err
	}

	// Members stay joined to the deleted room; a later join recreates it.
	d.out.ToRoom(p.RoomID, protocol.EventRoomDeleted, nil)
	return p.RoomID, d.broadcastRoomList(ctx)
}

func (d *Dispatcher) broadcastRoomList(ctx context.Context) error {
	rooms, err := d.rooms.ListRooms(ctx)
	if err != nil {
		return err
	}
	d.out.ToAll(protocol.EventUpdateRoomList, rooms)
	return nil
}

func (d *Dispatcher) report(connID, event, roomID string, err error) {
	level := zerolog.ErrorLevel
	if errors.Is(err, board.ErrAuthorizationDenied) ||
		errors.Is(err, board.ErrInvalidRoom) ||
		errors.Is(err, protocol.ErrMalformed) ||
		errors.Is(err, protocol.ErrUnknownEvent) {
		level = zerolog.WarnLevel
	}
	d.log.WithLevel(level).Err(err).
		Str("event", event).
		Str("conn_id", connID).
		Str("room_id", roomID).
		Msg("event dropped")
}
