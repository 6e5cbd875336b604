// protocol/events.go
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ViniZap4/lumi-board/domain"
)

// Inbound events.
const (
	EventJoinRoom   = "join_room"
	EventLeaveRoom  = "leave_room"
	EventAddNote    = "add_note"
	EventDeleteNote = "delete_note"
	EventDeleteRoom = "delete_room"
)

// Outbound events.
const (
	EventUpdateRoomList = "update_room_list"
	EventLoadNotes      = "load_notes"
	EventRoomInfo       = "room_info"
	EventRoomDeleted    = "room_deleted"
)

var (
	ErrMalformed    = errors.New("malformed event")
	ErrUnknownEvent = errors.New("unknown event")
)

// Envelope is an inbound frame: {"event": "...", "data": {...}}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Message is an outbound frame. Data is omitted for events without payload.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// ParseEnvelope decodes a raw frame.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event name", ErrMalformed)
	}
	return env, nil
}

type validator interface {
	validate() error
}

// Decode unmarshals the payload into v and checks its required fields.
func (e Envelope) Decode(v validator) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%w: %s has no data", ErrMalformed, e.Event)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformed, e.Event, err)
	}
	if err := v.validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformed, e.Event, err)
	}
	return nil
}

func required(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}

type JoinRoom struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

func (p *JoinRoom) validate() error {
	return errors.Join(required("roomId", p.RoomID), required("userId", p.UserID))
}

type LeaveRoom struct {
	RoomID string `json:"roomId"`
}

func (p *LeaveRoom) validate() error {
	return required("roomId", p.RoomID)
}

// NotePayload is the note as clients send it in add_note.
type NotePayload struct {
	ID       string  `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Text     string  `json:"text"`
	AuthorID string  `json:"authorId"`
}

type AddNote struct {
	RoomID string      `json:"roomId"`
	Note   NotePayload `json:"note"`
}

func (p *AddNote) validate() error {
	return errors.Join(required("roomId", p.RoomID), required("note.id", p.Note.ID))
}

// ToNote converts the payload into a note of the event's room.
func (p *AddNote) ToNote() domain.Note {
	return domain.Note{
		ID:       p.Note.ID,
		RoomID:   p.RoomID,
		X:        p.Note.X,
		Y:        p.Note.Y,
		Text:     p.Note.Text,
		AuthorID: p.Note.AuthorID,
	}
}

type DeleteNote struct {
	RoomID string `json:"roomId"`
	NoteID string `json:"noteId"`
}

func (p *DeleteNote) validate() error {
	return errors.Join(required("roomId", p.RoomID), required("noteId", p.NoteID))
}

type DeleteRoom struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

func (p *DeleteRoom) validate() error {
	return errors.Join(required("roomId", p.RoomID), required("userId", p.UserID))
}

// RoomInfo is the room_info payload sent to a joining connection.
type RoomInfo struct {
	CreatorID string `json:"creatorId"`
}
