package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/openclass/lms-api/internal/dto"
	"github.com/openclass/lms-api/internal/service"
	"github.com/openclass/lms-api/internal/utils"
)

// TicketHandler exposes support ticket endpoints.
type TicketHandler struct {
	service service.TicketService
	logger  zerolog.Logger
}

// NewTicketHandler creates a ticket handler instance.
func NewTicketHandler(service service.TicketService, logger zerolog.Logger) *TicketHandler {
	return &TicketHandler{
		service: service,
		logger:  logger.With().Str("component", "ticket_handler").Logger(),
	}
}

// Register binds ticket routes under the provided router group.
func (h *TicketHandler) Register(router fiber.Router) {
	router.Get("/", h.listMine)
	router.Post("/", h.create)
	router.Get("/all", h.listAll)
	router.Get("/:id", h.get)
	router.Post("/:id/replies", h.reply)
	router.Patch("/:id/status", h.updateStatus)
	router.Delete("/:id", h.delete)
}

func (h *TicketHandler) create(c *fiber.Ctx) error {
	var payload dto.TicketCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	ticket, err := h.service.Create(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "ticket created", ticket)
}

func (h *TicketHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid ticket id")
	}

	ticket, err := h.service.Get(requestContext(c), id, actorFromContext(c))
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "ticket", ticket)
}

func (h *TicketHandler) listMine(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	tickets, err := h.service.ListMine(requestContext(c), actorFromContext(c), limit, offset)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "tickets", tickets)
}

func (h *TicketHandler) listAll(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	tickets, err := h.service.ListAll(requestContext(c), actorFromContext(c), limit, offset)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "tickets", tickets)
}

func (h *TicketHandler) reply(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid ticket id")
	}

	var payload dto.TicketReplyRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	ticket, err := h.service.Reply(requestContext(c), id, actorFromContext(c), payload)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Uint("ticket_id", id).Msg("ticket reply rejected")
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "reply added", ticket)
}

func (h *TicketHandler) updateStatus(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid ticket id")
	}

	var payload dto.TicketStatusUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	ticket, err := h.service.UpdateStatus(requestContext(c), id, actorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "ticket status updated", ticket)
}

func (h *TicketHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid ticket id")
	}

	if err := h.service.Delete(requestContext(c), id, actorFromContext(c)); err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "ticket deleted", nil)
}
