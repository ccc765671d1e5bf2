// Package server exposes the council over HTTP: a JSON API for meetings and
// conversations, and a WebSocket stream of meeting events.
package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/asdersss/EZ-LLMcouncil/internal/config"
	"github.com/asdersss/EZ-LLMcouncil/internal/logging"
	"github.com/asdersss/EZ-LLMcouncil/internal/meeting"
	"github.com/asdersss/EZ-LLMcouncil/internal/storage"
)

type Server struct {
	app      *fiber.App
	coord    *meeting.Coordinator
	registry *config.Registry
	convs    *storage.Store
	logger   *logging.Logger
}

func New(coord *meeting.Coordinator, registry *config.Registry, convs *storage.Store, logger *logging.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "councild",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	s := &Server{
		app:      app,
		coord:    coord,
		registry: registry,
		convs:    convs,
		logger:   logger,
	}

	api := app.Group("/api")
	api.Get("/models", s.listModels)
	api.Post("/meetings", s.createMeeting)
	api.Get("/meetings", s.listAllMeetings)
	api.Get("/meetings/:id", s.getMeeting)
	api.Delete("/meetings/:id", s.cancelMeeting)
	api.Get("/conversations", s.listConversations)
	api.Get("/conversations/:id", s.getConversation)
	api.Delete("/conversations/:id", s.deleteConversation)
	api.Get("/conversations/:id/meetings", s.listMeetings)

	app.Get("/ws/meetings/:id", s.upgradeRequired, websocket.New(s.streamMeeting))

	return s
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Infof("server: listening addr=%s", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
