// domain/note.go
package domain

// Note is a positioned text annotation on a room's board. Notes have no
// update operation; clients move or edit a note by deleting and re-adding it.
type Note struct {
	ID       string  `json:"id" db:"id" yaml:"id"`
	RoomID   string  `json:"room_id" db:"room_id" yaml:"room_id"`
	X        float64 `json:"x" db:"x" yaml:"x"`
	Y        float64 `json:"y" db:"y" yaml:"y"`
	Text     string  `json:"text" db:"text" yaml:"text"`
	AuthorID string  `json:"author_id" db:"author_id" yaml:"author_id"`
}
