package api

import (
	"bufio"
	"context"
	"encoding/json"

	"docai/rag"
	"docai/types"

	"github.com/gofiber/fiber/v2"
)

type ChatHandler struct {
	service *rag.Service
}

func NewChatHandler(service *rag.Service) *ChatHandler {
	return &ChatHandler{
		service: service,
	}
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var params types.ChatParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return types.NewValidationError(errors)
	}

	if params.Stream {
		return h.streamChat(c, params)
	}

	resp := h.service.Answer(c.Context(), params.Question, params.SessionID, params.TopK)
	return c.JSON(resp)
}

// streamChat writes newline-delimited JSON events. The response body is
// produced after the handler returns, so the stream runs on a background
// context rather than the request's.
func (h *ChatHandler) streamChat(c *fiber.Ctx, params types.ChatParams) error {
	c.Set(fiber.HeaderContentType, "application/x-ndjson")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	events := h.service.AnswerStream(context.Background(), params.Question, params.SessionID, params.TopK)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		enc := json.NewEncoder(w)
		for event := range events {
			if enc.Encode(event) != nil {
				return
			}
			if w.Flush() != nil {
				return
			}
		}
	})
	return nil
}

func (h *ChatHandler) HandleHistory(c *fiber.Ctx) error {
	sessionID := c.Params("session")
	if sessionID == "" {
		return ErrBadRequest()
	}

	return c.JSON(fiber.Map{
		"session_id": sessionID,
		"history":    h.service.History(sessionID),
	})
}

func (h *ChatHandler) HandleClearHistory(c *fiber.Ctx) error {
	sessionID := c.Params("session")
	if sessionID == "" {
		return ErrBadRequest()
	}

	h.service.ClearHistory(sessionID)
	return c.JSON(fiber.Map{"result": "ok", "session_id": sessionID})
}

func (h *ChatHandler) HandleStats(c *fiber.Ctx) error {
	return c.JSON(h.service.Stats(c.Context()))
}

// HandleClearDocuments removes chunks for one source when a ?source= query is
// given, removes specific chunks when the body carries ids, and otherwise
// wipes the whole collection.
func (h *ChatHandler) HandleClearDocuments(c *fiber.Ctx) error {
	if source := c.Query("source"); source != "" {
		if !h.service.DeleteDocumentsBySource(c.Context(), source) {
			return NewError(fiber.StatusInternalServerError, "failed to delete documents for source")
		}
		return c.JSON(fiber.Map{"result": "ok", "source": source})
	}

	var params struct {
		IDs []string `json:"ids"`
	}
	if len(c.Body()) > 0 {
		if c.BodyParser(&params) != nil {
			return ErrBadRequest()
		}
	}
	if len(params.IDs) > 0 {
		if !h.service.DeleteDocuments(c.Context(), params.IDs) {
			return NewError(fiber.StatusInternalServerError, "failed to delete documents")
		}
		return c.JSON(fiber.Map{"result": "ok", "deleted": len(params.IDs)})
	}

	if !h.service.ClearAllDocuments(c.Context()) {
		return NewError(fiber.StatusInternalServerError, "failed to clear document collection")
	}
	return c.JSON(fiber.Map{"result": "ok"})
}
