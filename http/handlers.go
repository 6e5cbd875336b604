// http/handlers.go
package http

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"gopkg.in/yaml.v3"

	"github.com/ViniZap4/lumi-board/board"
	"github.com/ViniZap4/lumi-board/domain"
	"github.com/ViniZap4/lumi-board/ws"
)

// roomExport is the YAML document served by the export route.
type roomExport struct {
	Room  domain.Room   `yaml:"room"`
	Notes []domain.Note `yaml:"notes"`
}

func (s *Server) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "ok",
		"connections": s.hub.ConnectionCount(),
	})
}

func (s *Server) HandleRooms(c *fiber.Ctx) error {
	rooms, err := s.rooms.ListRooms(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(rooms)
}

func (s *Server) HandleRoomNotes(c *fiber.Ctx) error {
	room, err := s.room(c)
	if err != nil {
		return err
	}

	notes, err := s.notes.ListNotes(c.UserContext(), room.ID)
	if err != nil {
		return err
	}
	return c.JSON(notes)
}

func (s *Server) HandleExportRoom(c *fiber.Ctx) error {
	room, err := s.room(c)
	if err != nil {
		return err
	}

	notes, err := s.notes.ListNotes(c.UserContext(), room.ID)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(roomExport{Room: room, Notes: notes}); err != nil {
		return fmt.Errorf("export room %q: %w", room.ID, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("export room %q: %w", room.ID, err)
	}

	c.Set(fiber.HeaderContentType, "application/yaml")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", "room-"+room.ID+".yaml"))
	return c.Send(buf.Bytes())
}

// HandleWebSocket serves one upgraded connection until it closes.
func (s *Server) HandleWebSocket(conn *websocket.Conn) {
	client := ws.NewClient(conn, s.hub, s.events, conn.RemoteAddr().String(), s.opts.Client)
	client.Serve(s.baseCtx)
}

func (s *Server) room(c *fiber.Ctx) (domain.Room, error) {
	room, err := s.rooms.Room(c.UserContext(), c.Params("id"))
	if errors.Is(err, board.ErrRoomNotFound) {
		return domain.Room{}, fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return room, err
}
