package handlers

import (
	"strings"
	"time"

	"github.com/fitconnect/backend/internal/middleware"
	"github.com/fitconnect/backend/internal/models"
	"github.com/fitconnect/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type WorkoutsHandler struct {
	DB *gorm.DB
}

func NewWorkoutsHandler(db *gorm.DB) *WorkoutsHandler {
	return &WorkoutsHandler{DB: db}
}

type workoutRequest struct {
	Activity    string     `json:"activity"`
	DurationMin int        `json:"durationMin"`
	DistanceKm  *float64   `json:"distanceKm"`
	Calories    *int       `json:"calories"`
	Notes       string     `json:"notes"`
	PerformedAt *time.Time `json:"performedAt"`
}

func (r *workoutRequest) validate() string {
	r.Activity = strings.TrimSpace(r.Activity)
	if r.Activity == "" {
		return "activity is required"
	}
	if r.DurationMin <= 0 {
		return "durationMin must be positive"
	}
	if r.DistanceKm != nil && *r.DistanceKm < 0 {
		return "distanceKm must not be negative"
	}
	if r.Calories != nil && *r.Calories < 0 {
		return "calories must not be negative"
	}
	return ""
}

func (h *WorkoutsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req workoutRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	performedAt := time.Now()
	if req.PerformedAt != nil {
		performedAt = *req.PerformedAt
	}

	workout := models.Workout{
		UserID:      currentUser.ID,
		Activity:    req.Activity,
		DurationMin: req.DurationMin,
		DistanceKm:  req.DistanceKm,
		Calories:    req.Calories,
		Notes:       strings.TrimSpace(req.Notes),
		PerformedAt: performedAt,
	}
	if err := h.DB.Create(&workout).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating workout")
	}

	return utils.Success(c, fiber.StatusCreated, workout)
}

func (h *WorkoutsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	p := utils.ParsePagination(c)

	query := h.DB.Model(&models.Workout{}).Where("user_id = ?", currentUser.ID)
	if activity := strings.TrimSpace(c.Query("activity")); activity != "" {
		query = query.Where("activity = ?", activity)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting workouts")
	}

	var workouts []models.Workout
	if err := utils.ApplyPagination(query.Order("performed_at DESC"), p).Find(&workouts).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing workouts")
	}

	return utils.Paginated(c, workouts, p, total)
}

func (h *WorkoutsHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	workout, status, msg := h.load(c)
	if status != 0 {
		return utils.Error(c, status, msg)
	}
	if workout.UserID != currentUser.ID && currentUser.Role != models.UserRoleAdmin {
		return utils.Error(c, fiber.StatusForbidden, "not your workout")
	}

	return utils.Success(c, fiber.StatusOK, workout)
}

func (h *WorkoutsHandler) Update(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	workout, status, msg := h.load(c)
	if status != 0 {
		return utils.Error(c, status, msg)
	}
	if workout.UserID != currentUser.ID {
		return utils.Error(c, fiber.StatusForbidden, "not your workout")
	}

	var req workoutRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return utils.Error(c, fiber.StatusBadRequest, msg)
	}

	workout.Activity = req.Activity
	workout.DurationMin = req.DurationMin
	workout.DistanceKm = req.DistanceKm
	workout.Calories = req.Calories
	workout.Notes = strings.TrimSpace(req.Notes)
	if req.PerformedAt != nil {
		workout.PerformedAt = *req.PerformedAt
	}

	if err := h.DB.Save(workout).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating workout")
	}

	return utils.Success(c, fiber.StatusOK, workout)
}

func (h *WorkoutsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	workout, status, msg := h.load(c)
	if status != 0 {
		return utils.Error(c, status, msg)
	}
	if workout.UserID != currentUser.ID && currentUser.Role != models.UserRoleAdmin {
		return utils.Error(c, fiber.StatusForbidden, "not your workout")
	}

	if err := h.DB.Delete(workout).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting workout")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "workout deleted"})
}

func (h *WorkoutsHandler) load(c *fiber.Ctx) (*models.Workout, int, string) {
	workoutID, err := parseUUID(c.Params("id"))
	if err != nil {
		return nil, fiber.StatusBadRequest, "invalid workout id"
	}

	var workout models.Workout
	if err := h.DB.First(&workout, "id = ?", workoutID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fiber.StatusNotFound, "workout not found"
		}
		return nil, fiber.StatusInternalServerError, "failed loading workout"
	}
	return &workout, 0, ""
}
