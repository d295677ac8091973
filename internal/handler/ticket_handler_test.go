package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openclass/lms-api/internal/config"
	"github.com/openclass/lms-api/internal/dto"
	"github.com/openclass/lms-api/internal/handler"
	"github.com/openclass/lms-api/internal/models"
	"github.com/openclass/lms-api/internal/repository"
	"github.com/openclass/lms-api/internal/router"
	"github.com/openclass/lms-api/internal/service"
)

func setupTicketApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Course{}, &models.Enrollment{},
		&models.SupportTicket{}, &models.TicketMessage{}, &models.Notification{},
	))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	ticketRepo := repository.NewTicketRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	directory := repository.NewDirectory(db)

	access := service.NewAccessResolver(directory, logger)
	fanout := service.NewNotificationFanout(directory, notificationRepo, nil, logger)
	ticketService := service.NewTicketService(ticketRepo, access, fanout, validate, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		TicketHandler: handler.NewTicketHandler(ticketService, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			if raw := c.Get("X-Test-User"); raw != "" {
				id, err := strconv.ParseUint(raw, 10, 64)
				if err != nil {
					return fiber.ErrBadRequest
				}
				c.Locals("user_id", uint(id))
			}
			if role := c.Get("X-Test-Role"); role != "" {
				c.Locals("user_role", role)
			}
			return c.Next()
		},
	})

	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, target string, payload interface{}, userID uint, role string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Test-User", strconv.FormatUint(uint64(userID), 10))
	req.Header.Set("X-Test-Role", role)

	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestTicketHandlerCreate(t *testing.T) {
	app, db := setupTicketApp(t)

	admin := models.User{Name: "Root", Email: "root-ticket-create@example.test", Role: models.RoleAdmin}
	require.NoError(t, db.Create(&admin).Error)

	resp := doJSON(t, app, "POST", "/api/v1/tickets", dto.TicketCreateRequest{
		Subject: "Video will not play",
		Body:    "Lecture 4 stalls at 12:30.",
	}, 105, models.RoleStudent)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var createResp struct {
		Success bool               `json:"success"`
		Data    dto.TicketResponse `json:"data"`
		Message string             `json:"message"`
	}
	decodeResponse(t, resp, &createResp)
	require.True(t, createResp.Success)
	require.Equal(t, "ticket created", createResp.Message)
	require.Equal(t, uint(105), createResp.Data.OwnerID)
	require.Equal(t, "open", createResp.Data.Status)
	require.Len(t, createResp.Data.Messages, 1)

	// Admins get a persisted notification about the new ticket.
	var count int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("recipient_id = ? AND kind = ?", admin.ID, models.NotificationKindTicketCreated).
		Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestTicketHandlerGetDeniedForStranger(t *testing.T) {
	app, db := setupTicketApp(t)

	ticket := models.SupportTicket{OwnerID: 115, Subject: "Hidden", Status: models.TicketStatusOpen}
	require.NoError(t, db.Create(&ticket).Error)

	resp := doJSON(t, app, "GET", "/api/v1/tickets/"+strconv.FormatUint(uint64(ticket.ID), 10), nil, 116, models.RoleStudent)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	var errResp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	decodeResponse(t, resp, &errResp)
	require.False(t, errResp.Success)
}

func TestTicketHandlerStaffReplyMovesToInProgress(t *testing.T) {
	app, db := setupTicketApp(t)

	ticket := models.SupportTicket{OwnerID: 125, Subject: "Broken quiz", Status: models.TicketStatusOpen}
	require.NoError(t, db.Create(&ticket).Error)

	resp := doJSON(t, app, "POST", "/api/v1/tickets/"+strconv.FormatUint(uint64(ticket.ID), 10)+"/replies", dto.TicketReplyRequest{
		Body: "We are on it.",
	}, 1, models.RoleAdmin)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var replyResp struct {
		Success bool               `json:"success"`
		Data    dto.TicketResponse `json:"data"`
	}
	decodeResponse(t, resp, &replyResp)
	require.Equal(t, "in-progress", replyResp.Data.Status)

	// Owner receives the reply notification, and only that one.
	var kinds []string
	require.NoError(t, db.Model(&models.Notification{}).
		Where("recipient_id = ?", 125).
		Pluck("kind", &kinds).Error)
	require.Equal(t, []string{models.NotificationKindTicketReply}, kinds)
}

func TestTicketHandlerOwnerCannotChangeStatus(t *testing.T) {
	app, db := setupTicketApp(t)

	ticket := models.SupportTicket{OwnerID: 135, Subject: "Broken quiz", Status: models.TicketStatusOpen}
	require.NoError(t, db.Create(&ticket).Error)

	resp := doJSON(t, app, "PATCH", "/api/v1/tickets/"+strconv.FormatUint(uint64(ticket.ID), 10)+"/status", dto.TicketStatusUpdateRequest{
		Status: "closed",
	}, 135, models.RoleStudent)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestTicketHandlerListAllAdminOnly(t *testing.T) {
	app, _ := setupTicketApp(t)

	resp := doJSON(t, app, "GET", "/api/v1/tickets/all", nil, 7, models.RoleInstructor)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/v1/tickets/all", nil, 1, models.RoleAdmin)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestTicketHandlerUnknownTicketIs404(t *testing.T) {
	app, _ := setupTicketApp(t)

	resp := doJSON(t, app, "GET", "/api/v1/tickets/999999", nil, 1, models.RoleAdmin)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
