package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/openclass/lms-api/internal/dto"
	"github.com/openclass/lms-api/internal/service"
	"github.com/openclass/lms-api/internal/utils"
)

// ForumHandler exposes forum thread and reply endpoints.
type ForumHandler struct {
	service service.ForumService
	logger  zerolog.Logger
}

// NewForumHandler creates a forum handler instance.
func NewForumHandler(service service.ForumService, logger zerolog.Logger) *ForumHandler {
	return &ForumHandler{
		service: service,
		logger:  logger.With().Str("component", "forum_handler").Logger(),
	}
}

// Register binds forum routes under the provided router group.
func (h *ForumHandler) Register(router fiber.Router) {
	router.Get("/threads", h.listThreads)
	router.Post("/threads", h.createThread)
	router.Get("/threads/:id", h.getThread)
	router.Patch("/threads/:id/moderate", h.moderate)
	router.Get("/threads/:id/replies", h.listReplies)
	router.Post("/threads/:id/replies", h.createReply)
}

func (h *ForumHandler) createThread(c *fiber.Ctx) error {
	var payload dto.ThreadCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	thread, err := h.service.CreateThread(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "thread created", thread)
}

func (h *ForumHandler) getThread(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid thread id")
	}

	includeReplies := c.QueryBool("include_replies", false)

	thread, err := h.service.GetThread(requestContext(c), id, includeReplies)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "thread", thread)
}

func (h *ForumHandler) listThreads(c *fiber.Ctx) error {
	courseID, err := parseQueryInt(c, "course_id")
	if err != nil || courseID <= 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "course_id required")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	threads, err := h.service.ListThreads(requestContext(c), uint(courseID), limit, offset)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "threads", threads)
}

func (h *ForumHandler) moderate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid thread id")
	}

	var payload dto.ThreadModerateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	thread, err := h.service.Moderate(requestContext(c), id, actorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "thread updated", thread)
}

func (h *ForumHandler) createReply(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid thread id")
	}

	var payload dto.ReplyCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	payload.ThreadID = id

	reply, err := h.service.CreateReply(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "reply created", reply)
}

func (h *ForumHandler) listReplies(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid thread id")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	replies, err := h.service.ListReplies(requestContext(c), id, limit, offset)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "replies", replies)
}
