package handlers

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fitconnect/backend/internal/middleware"
	"github.com/fitconnect/backend/internal/models"
	"github.com/fitconnect/backend/internal/services"
	"github.com/fitconnect/backend/pkg/logger"
	"github.com/fitconnect/backend/pkg/utils"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

type testEnv struct {
	app *fiber.App
	db  *gorm.DB
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		gosqlite.MustRegisterScalarFunction("NOW", 0, func(ctx *gosqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return time.Now().UTC(), nil
		})
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.PostLike{},
		&models.FollowEdge{},
		&models.Event{},
		&models.EventMembership{},
		&models.Chat{},
		&models.ChatMembership{},
		&models.Message{},
		&models.Workout{},
		&models.AuditLog{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	membershipService := services.NewMembershipService(db)
	feedService := services.NewFeedService(db)
	auditService := services.NewAuditService(db)

	authHandler := NewAuthHandler(db, auditService)
	usersHandler := NewUsersHandler(db, membershipService)
	postsHandler := NewPostsHandler(db, feedService, membershipService, auditService)
	eventsHandler := NewEventsHandler(db, membershipService, auditService)
	chatsHandler := NewChatsHandler(db, membershipService)
	workoutsHandler := NewWorkoutsHandler(db)
	adminHandler := NewAdminHandler(db, auditService)
	uploadsHandler := NewUploadsHandler(nil)
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

	return &testEnv{app: app, db: db}
}

func createTestUser(t *testing.T, db *gorm.DB, username, password string, role models.UserRole) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         role,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func createTestPost(t *testing.T, db *gorm.DB, author *models.User, body string) *models.Post {
	t.Helper()

	post := &models.Post{AuthorID: author.ID, Body: body}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("failed creating test post: %v", err)
	}
	return post
}

func createTestEvent(t *testing.T, db *gorm.DB, organizer *models.User, title string, max *int) *models.Event {
	t.Helper()

	event := &models.Event{
		OrganizerID:     organizer.ID,
		Title:           title,
		Location:        "Riverside Park",
		Date:            time.Now().Add(48 * time.Hour),
		MaxParticipants: max,
	}
	if err := db.Create(event).Error; err != nil {
		t.Fatalf("failed creating test event: %v", err)
	}
	return event
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}

func dataMap(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %+v", body)
	}
	return data
}

func eventPath(event *models.Event, suffix string) string {
	return fmt.Sprintf("/api/events/%s%s", event.ID, suffix)
}
