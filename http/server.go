// http/server.go
package http

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ViniZap4/lumi-board/auth"
	"github.com/ViniZap4/lumi-board/board"
	"github.com/ViniZap4/lumi-board/ws"
)

type Options struct {
	AllowedOrigins []string
	// TokenHash is the bcrypt hash REST requests must present.
	TokenHash []byte
	Client    ws.ClientOptions
}

type Server struct {
	// baseCtx outlives single requests; WebSocket sessions run under it.
	baseCtx context.Context
	hub     *ws.Hub
	events  ws.Handler
	rooms   *board.Directory
	notes   *board.Registry
	opts    Options
	log     zerolog.Logger
}

func NewServer(ctx context.Context, hub *ws.Hub, events ws.Handler, rooms *board.Directory, notes *board.Registry, opts Options) *Server {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	return &Server{
		baseCtx: ctx,
		hub:     hub,
		events:  events,
		rooms:   rooms,
		notes:   notes,
		opts:    opts,
		log:     log.With().Str("component", "http").Logger(),
	}
}

// App builds the fiber application with every route mounted.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "lumi-board",
		DisableStartupMessage: true,
		UnescapePath:          true,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(s.opts.AllowedOrigins, ","),
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, " + auth.Header,
	}))

	app.Get("/health", s.HandleHealth)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(s.HandleWebSocket, websocket.Config{
		Origins:         s.opts.AllowedOrigins,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}))

	api := app.Group("/api", auth.Middleware(s.opts.TokenHash))
	api.Get("/rooms", s.HandleRooms)
	api.Get("/rooms/:id/notes", s.HandleRoomNotes)
	api.Get("/rooms/:id/export", s.HandleExportRoom)

	return app
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	msg := err.Error()
	if code == fiber.StatusInternalServerError {
		s.log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
		msg = "internal server error"
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
