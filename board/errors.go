// board/errors.go
package board

import "errors"

var (
	// ErrRoomNotFound is returned by lookups of a room that does not exist.
	ErrRoomNotFound = errors.New("room not found")

	// ErrInvalidRoom rejects a note whose room does not exist.
	ErrInvalidRoom = errors.New("note references a room that does not exist")

	// ErrAuthorizationDenied is returned when someone other than the creator
	// tries to delete a room. Clients are never told about it.
	ErrAuthorizationDenied = errors.New("only the room creator may delete the room")
)
