package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/asdersss/EZ-LLMcouncil/internal/meeting"
	"github.com/asdersss/EZ-LLMcouncil/internal/model"
	"github.com/asdersss/EZ-LLMcouncil/internal/storage"
)

type createMeetingRequest struct {
	ConvID      string             `json:"conv_id"`
	Content     string             `json:"content"`
	Models      []string           `json:"models"`
	Attachments []model.Attachment `json:"attachments"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type modelInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Provider    string `json:"provider"`
	Chairman    bool   `json:"chairman,omitempty"`
}

func (s *Server) listModels(c *fiber.Ctx) error {
	chairman := s.registry.Chairman()
	infos := make([]modelInfo, 0)
	for _, id := range s.registry.ModelIDs() {
		cfg, ok := s.registry.Lookup(id)
		if !ok {
			continue
		}
		infos = append(infos, modelInfo{
			ID:          cfg.ID,
			DisplayName: cfg.DisplayName,
			Provider:    cfg.Provider,
			Chairman:    cfg.ID == chairman,
		})
	}
	return c.JSON(fiber.Map{"models": infos})
}

func (s *Server) createMeeting(c *fiber.Ctx) error {
	var req createMeetingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}

	m, err := s.coord.Start(meeting.StartRequest{
		ConvID:      req.ConvID,
		Content:     req.Content,
		Models:      req.Models,
		Attachments: req.Attachments,
	})
	if err != nil {
		return s.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

func (s *Server) getMeeting(c *fiber.Ctx) error {
	m, err := s.coord.Get(c.Params("id"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(m)
}

func (s *Server) cancelMeeting(c *fiber.Ctx) error {
	if err := s.coord.Cancel(c.Params("id")); err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(fiber.Map{"status": "cancelling"})
}

func (s *Server) listConversations(c *fiber.Ctx) error {
	summaries, err := s.convs.List()
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(fiber.Map{"conversations": summaries})
}

func (s *Server) getConversation(c *fiber.Ctx) error {
	conv, err := s.convs.Get(c.Params("id"))
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(conv)
}

func (s *Server) deleteConversation(c *fiber.Ctx) error {
	if err := s.convs.Delete(c.Params("id")); err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}

func (s *Server) listMeetings(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"meetings": s.coord.ListByConversation(c.Params("id")),
	})
}

func (s *Server) listAllMeetings(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"meetings": s.coord.List()})
}

func (s *Server) writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, meeting.ErrInvalidRequest):
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: err.Error()})
	case errors.Is(err, meeting.ErrNotFound), errors.Is(err, storage.ErrConversationNotFound):
		return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: err.Error()})
	default:
		s.logger.Errorf("server: request_failed path=%s err=%q", c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: "internal error"})
	}
}
