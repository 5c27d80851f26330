package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fitconnect/backend/internal/config"
	"github.com/fitconnect/backend/internal/database"
	"github.com/fitconnect/backend/internal/handlers"
	"github.com/fitconnect/backend/internal/middleware"
	"github.com/fitconnect/backend/internal/services"
	"github.com/fitconnect/backend/internal/storage"
	"github.com/fitconnect/backend/pkg/logger"
	"github.com/fitconnect/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	logger.Init()

	cfg := config.Load()
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	mediaStore, err := storage.NewMediaStore(cfg.MinIO)
	if err != nil {
		log.Fatalf("minio initialization failed: %v", err)
	}
	if err := mediaStore.EnsureBucket(context.Background()); err != nil {
		log.Fatalf("failed ensuring minio bucket: %v", err)
	}

	membershipService := services.NewMembershipService(db)
	membershipService.SetStoreTimeout(cfg.Membership.StoreTimeout)
	feedService := services.NewFeedService(db)
	auditService := services.NewAuditService(db)

	authHandler := handlers.NewAuthHandler(db, auditService)
	usersHandler := handlers.NewUsersHandler(db, membershipService)
	postsHandler := handlers.NewPostsHandler(db, feedService, membershipService, auditService)
	eventsHandler := handlers.NewEventsHandler(db, membershipService, auditService)
	chatsHandler := handlers.NewChatsHandler(db, membershipService)
	workoutsHandler := handlers.NewWorkoutsHandler(db)
	adminHandler := handlers.NewAdminHandler(db, auditService)
	uploadsHandler := handlers.NewUploadsHandler(mediaStore)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 10 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Put("/me", authMiddleware.RequireAuth, authHandler.UpdateMe)
	authRoutes.Put("/password", authMiddleware.RequireAuth, authHandler.ChangePassword)

	userRoutes := api.Group("/users", authMiddleware.RequireAuth)
	userRoutes.Get("/search", usersHandler.Search)
	userRoutes.Get("/:id", usersHandler.Get)
	userRoutes.Post("/:id/follow", usersHandler.Follow)
	userRoutes.Delete("/:id/follow", usersHandler.Unfollow)
	userRoutes.Get("/:id/followers", usersHandler.Followers)
	userRoutes.Get("/:id/following", usersHandler.Following)

	api.Get("/feed", authMiddleware.RequireAuth, postsHandler.FeedPage)

	postRoutes := api.Group("/posts", authMiddleware.RequireAuth)
	postRoutes.Post("/", postsHandler.Create)
	postRoutes.Get("/:id", postsHandler.Get)
	postRoutes.Delete("/:id", postsHandler.Delete)
	postRoutes.Post("/:id/like", postsHandler.ToggleLike)
	postRoutes.Post("/:id/comments", postsHandler.CreateComment)
	postRoutes.Delete("/:id/comments/:commentId", postsHandler.DeleteComment)

	eventRoutes := api.Group("/events", authMiddleware.RequireAuth)
	eventRoutes.Post("/", eventsHandler.Create)
	eventRoutes.Get("/", eventsHandler.List)
	eventRoutes.Get("/:id", eventsHandler.Get)
	eventRoutes.Delete("/:id", eventsHandler.Delete)
	eventRoutes.Post("/:id/join", eventsHandler.Join)
	eventRoutes.Delete("/:id/join", eventsHandler.Leave)

	chatRoutes := api.Group("/chats", authMiddleware.RequireAuth)
	chatRoutes.Post("/private", chatsHandler.CreatePrivate)
	chatRoutes.Post("/group", chatsHandler.CreateGroup)
	chatRoutes.Get("/", chatsHandler.List)
	chatRoutes.Get("/:id", chatsHandler.Get)
	chatRoutes.Post("/:id/invite", chatsHandler.Invite)
	chatRoutes.Post("/:id/accept", chatsHandler.Accept)
	chatRoutes.Post("/:id/reject", chatsHandler.Reject)
	chatRoutes.Delete("/:id/members/me", chatsHandler.Leave)
	chatRoutes.Get("/:id/messages", chatsHandler.ListMessages)
	chatRoutes.Post("/:id/messages", chatsHandler.SendMessage)

	workoutRoutes := api.Group("/workouts", authMiddleware.RequireAuth)
	workoutRoutes.Post("/", workoutsHandler.Create)
	workoutRoutes.Get("/", workoutsHandler.List)
	workoutRoutes.Get("/:id", workoutsHandler.Get)
	workoutRoutes.Put("/:id", workoutsHandler.Update)
	workoutRoutes.Delete("/:id", workoutsHandler.Delete)

	uploadRoutes := api.Group("/uploads", authMiddleware.RequireAuth)
	uploadRoutes.Post("/presign", uploadsHandler.PresignImage)
	uploadRoutes.Get("/resolve", uploadsHandler.ResolveImage)

	adminRoutes := api.Group("/admin", authMiddleware.RequireAuth, middleware.AdminOnly)
	adminRoutes.Get("/users", adminHandler.ListUsers)
	adminRoutes.Put("/users/:id/role", adminHandler.UpdateUserRole)
	adminRoutes.Delete("/users/:id", adminHandler.DeleteUser)
	adminRoutes.Get("/audit-logs", adminHandler.ListAuditLogs)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":    cfg.Server.Port,
		"address": listenAddr,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}
}
