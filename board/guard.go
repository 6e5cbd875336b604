// board/guard.go
package board

import (
	"fmt"

	"github.com/ViniZap4/lumi-board/domain"
)

// CanDelete reports whether requesterID may delete the room. Identity is
// whatever the client asserted; the creator is the only authorized deleter.
func CanDelete(room domain.Room, requesterID string) bool {
	return room.CreatorID == requesterID
}

// Authorize wraps CanDelete into an error for callers that propagate it.
func Authorize(room domain.Room, requesterID string) error {
	if CanDelete(room, requesterID) {
		return nil
	}
	return fmt.Errorf("%w: room %q, requester %q", ErrAuthorizationDenied, room.ID, requesterID)
}
