package handler

import (
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"collab-backend/internal/hub"
	"collab-backend/internal/service"
)

// BoardHandler REST access to whiteboard documents. The WebSocket protocol is
// the main surface; these routes exist for dashboards and board management.
type BoardHandler struct {
	boards *service.WhiteboardService
	hub    *hub.Hub
}

// NewBoardHandler creates a BoardHandler
func NewBoardHandler(boards *service.WhiteboardService, h *hub.Hub) *BoardHandler {
	return &BoardHandler{boards: boards, hub: h}
}

type titleRequest struct {
	Title string `json:"title"`
}

type thumbnailRequest struct {
	Thumbnail string `json:"thumbnail"`
}

// GetBoard returns the current document for a room, a default one when
// nothing is persisted yet.
func (h *BoardHandler) GetBoard(c *fiber.Ctx) error {
	roomName := c.Query("room")
	if roomName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "room is required"})
	}

	ref, err := service.ParseRoomKey(roomName)
	if err != nil {
		return respondError(c, err)
	}

	doc, err := h.boards.Bootstrap(orgIDOf(c), ref, userIDOf(c))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"board":   hub.BoardStateFrom(doc),
	})
}

// UpdateTitle renames a board by its key
func (h *BoardHandler) UpdateTitle(c *fiber.Ctx) error {
	key := c.Params("key")

	var req titleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.boards.UpdateTitle(orgIDOf(c), key, req.Title, userIDOf(c)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// UpdateThumbnail stores a board's preview image by its key
func (h *BoardHandler) UpdateThumbnail(c *fiber.Ctx) error {
	key := c.Params("key")

	var req thumbnailRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	if err := h.boards.UpdateThumbnail(orgIDOf(c), key, req.Thumbnail); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// DeleteBoard removes a document and discards any buffered state its live
// room still holds, so a stale snapshot cannot resurrect the board.
func (h *BoardHandler) DeleteBoard(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid board id"})
	}

	orgID := orgIDOf(c)
	ref, err := h.boards.Delete(orgID, id)
	if err != nil {
		return respondError(c, err)
	}

	h.hub.Invalidate(orgID, ref)
	log.Printf("[Board] user %d deleted board %d in org %d", userIDOf(c), id, orgID)
	return c.JSON(fiber.Map{"success": true})
}

// GetPresence lists who is currently in a room
func (h *BoardHandler) GetPresence(c *fiber.Ctx) error {
	roomName := c.Query("room")
	if roomName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "room is required"})
	}

	ref, err := service.ParseRoomKey(roomName)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"members": h.hub.ActiveUsers(orgIDOf(c), ref),
	})
}
