package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/openclass/lms-api/internal/config"
	"github.com/openclass/lms-api/internal/database"
	"github.com/openclass/lms-api/internal/handler"
	"github.com/openclass/lms-api/internal/middleware"
	"github.com/openclass/lms-api/internal/models"
	"github.com/openclass/lms-api/internal/repository"
	"github.com/openclass/lms-api/internal/router"
	"github.com/openclass/lms-api/internal/service"
	cloud "github.com/openclass/lms-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Enrollment{},
		&models.Assignment{},
		&models.Submission{},
		&models.ForumThread{},
		&models.ForumReply{},
		&models.SupportTicket{},
		&models.TicketMessage{},
		&models.Notification{},
		&models.ChatMessage{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, running without cache and pub/sub relay")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	natsConn, err := database.ConnectNATS(cfg.NatsURL)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, running without cross-node relay")
		natsConn = nil
	} else {
		defer natsConn.Drain()
	}

	var uploader service.FileStorage
	if cfg.CloudinaryCloudName != "" {
		cloudService, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		uploader = cloudService
	} else {
		logger.Warn().Msg("cloudinary not configured, attachment upload disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	forumRepo := repository.NewForumRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	chatRepo := repository.NewChatRepository(db)
	directory := repository.NewDirectory(db)

	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.ChannelBase, natsConn, logger)
	accessResolver := service.NewAccessResolver(directory, logger)
	fanout := service.NewNotificationFanout(directory, notificationRepo, notificationService, logger)

	courseService := service.NewCourseService(courseRepo, enrollmentRepo, validate, logger)
	assignmentService, err := service.NewAssignmentService(assignmentRepo, submissionRepo, courseRepo, enrollmentRepo, uploader, fanout, validate, cfg.UploadMaxMB, logger)
	if err != nil {
		log.Fatalf("failed to create assignment service: %v", err)
	}
	forumService := service.NewForumService(forumRepo, courseRepo, accessResolver, fanout, validate, logger)
	ticketService := service.NewTicketService(ticketRepo, accessResolver, fanout, validate, logger)
	chatService := service.NewChatService(chatRepo, redisClient, cfg.ChannelBase, natsConn, validate, logger)
	dashboardService := service.NewDashboardService(enrollmentRepo, assignmentRepo, submissionRepo, notificationRepo, ticketRepo, redisClient, cfg.DashboardCacheTTL, logger)

	courseHandler := handler.NewCourseHandler(courseService, logger)
	assignmentHandler := handler.NewAssignmentHandler(assignmentService, logger)
	forumHandler := handler.NewForumHandler(forumService, logger)
	ticketHandler := handler.NewTicketHandler(ticketService, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger, cfg.StreamKeepAlive)
	chatHandler := handler.NewChatHandler(chatService, validate, logger)
	dashboardHandler := handler.NewDashboardHandler(dashboardService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		CourseHandler:       courseHandler,
		AssignmentHandler:   assignmentHandler,
		ForumHandler:        forumHandler,
		TicketHandler:       ticketHandler,
		NotificationHandler: notificationHandler,
		ChatHandler:         chatHandler,
		DashboardHandler:    dashboardHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	serviceCtx, stopServices := context.WithCancel(context.Background())
	defer stopServices()
	notificationService.Start(serviceCtx)
	chatService.Start(serviceCtx)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopServices)
}

func waitForShutdown(app *fiber.App, stopServices context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopServices()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
