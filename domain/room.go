// domain/room.go
package domain

// Room is a named board. CreatorID is set by the first client to join the
// room and never changes afterwards.
type Room struct {
	ID        string `json:"id" db:"id" yaml:"id"`
	CreatorID string `json:"creator_id" db:"creator_id" yaml:"creator_id"`
}
