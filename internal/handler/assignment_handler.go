package handler

import (
	"encoding/json"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/openclass/lms-api/internal/dto"
	"github.com/openclass/lms-api/internal/service"
	"github.com/openclass/lms-api/internal/utils"
)

// AssignmentHandler exposes assignment, submission and grading endpoints.
type AssignmentHandler struct {
	service service.AssignmentService
	logger  zerolog.Logger
}

// NewAssignmentHandler creates an assignment handler instance.
func NewAssignmentHandler(service service.AssignmentService, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		service: service,
		logger:  logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register binds assignment routes under the provided router group.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Get("/", h.listByCourse)
	router.Post("/", h.create)
	router.Get("/:id", h.get)
	router.Post("/:id/submissions", h.submit)
	router.Get("/:id/submissions", h.listSubmissions)
	router.Patch("/submissions/:id/grade", h.grade)
}

// create accepts either a JSON body or a multipart form carrying an optional
// attachment file.
func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	var attachment *multipart.FileHeader

	contentType := string(c.Request().Header.ContentType())
	if strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid form payload")
		}
		if due := strings.TrimSpace(c.FormValue("due_date")); due != "" && payload.DueDate.IsZero() {
			parsed, err := time.Parse(time.RFC3339, due)
			if err != nil {
				return utils.SendError(c, fiber.StatusBadRequest, "invalid due_date")
			}
			payload.DueDate = parsed
		}
		if rubric := strings.TrimSpace(c.FormValue("rubric")); rubric != "" {
			if err := json.Unmarshal([]byte(rubric), &payload.Rubric); err != nil {
				return utils.SendError(c, fiber.StatusBadRequest, "invalid rubric json")
			}
		}
		if file, err := c.FormFile("attachment"); err == nil {
			attachment = file
		}
	} else {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}

	assignment, err := h.service.Create(requestContext(c), actorFromContext(c), payload, attachment)
	if err != nil {
		requestLogger(h.logger, c).Warn().Err(err).Msg("assignment creation rejected")
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *AssignmentHandler) listByCourse(c *fiber.Ctx) error {
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

	assignments, err := h.service.ListByCourse(requestContext(c), uint(courseID), limit, offset)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "assignments", assignments)
}

func (h *AssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid assignment id")
	}

	assignment, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "assignment", assignment)
}

func (h *AssignmentHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid assignment id")
	}

	var payload dto.SubmissionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	payload.AssignmentID = id

	submission, err := h.service.Submit(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission received", submission)
}

func (h *AssignmentHandler) listSubmissions(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid assignment id")
	}

	submissions, err := h.service.ListSubmissions(requestContext(c), id, actorFromContext(c))
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "submissions", submissions)
}

func (h *AssignmentHandler) grade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid submission id")
	}

	var payload dto.GradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	submission, err := h.service.Grade(requestContext(c), id, actorFromContext(c), payload)
	if err != nil {
		return sendServiceError(c, err)
	}

	return utils.SendSuccess(c, "submission graded", submission)
}
