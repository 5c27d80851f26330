package handlers

import (
	"strings"
	"time"

	"github.com/fitconnect/backend/internal/middleware"
	"github.com/fitconnect/backend/internal/models"
	"github.com/fitconnect/backend/internal/services"
	"github.com/fitconnect/backend/pkg/logger"
	"github.com/fitconnect/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type EventsHandler struct {
	DB         *gorm.DB
	Membership *services.MembershipService
	Audit      *services.AuditService
}

func NewEventsHandler(db *gorm.DB, membership *services.MembershipService, audit *services.AuditService) *EventsHandler {
	return &EventsHandler{DB: db, Membership: membership, Audit: audit}
}

type createEventRequest struct {
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Location        string    `json:"location"`
	Date            time.Time `json:"date"`
	MaxParticipants *int      `json:"maxParticipants"`
}

func (h *EventsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createEventRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Location = strings.TrimSpace(req.Location)
	if req.Title == "" || req.Location == "" {
		return utils.Error(c, fiber.StatusBadRequest, "title and location are required")
	}
	if req.Date.IsZero() {
		return utils.Error(c, fiber.StatusBadRequest, "date is required")
	}
	if req.MaxParticipants != nil && *req.MaxParticipants < 1 {
		return utils.Error(c, fiber.StatusBadRequest, "maxParticipants must be positive")
	}

	event := models.Event{
		OrganizerID:     currentUser.ID,
		Title:           req.Title,
		Description:     strings.TrimSpace(req.Description),
		Location:        req.Location,
		Date:            req.Date,
		MaxParticipants: req.MaxParticipants,
	}

	// The organizer attends their own event from the start.
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&event).Error; err != nil {
			return err
		}
		membership := models.EventMembership{EventID: event.ID, UserID: currentUser.ID}
		return tx.Create(&membership).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating event")
	}

	logger.InfoWithUser(currentUser.ID.String(), "event_created", map[string]interface{}{
		"event_id":    event.ID.String(),
		"event_title": event.Title,
	})

	return utils.Success(c, fiber.StatusCreated, event)
}

func (h *EventsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	p := utils.ParsePagination(c)

	query := h.DB.Model(&models.Event{})
	if c.Query("upcoming") == "true" {
		query = query.Where("date > ?", time.Now())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting events")
	}

	var events []models.Event
	if err := utils.ApplyPagination(query.Preload("Organizer").Order("date ASC"), p).Find(&events).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing events")
	}

	if err := h.decorate(currentUser.ID, events); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading event membership")
	}

	return utils.Paginated(c, events, p, total)
}

func (h *EventsHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	eventID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid event id")
	}

	var event models.Event
	if err := h.DB.Preload("Organizer").Preload("Members.User").First(&event, "id = ?", eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "event not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading event")
	}

	events := []models.Event{event}
	if err := h.decorate(currentUser.ID, events); err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading event membership")
	}

	return utils.Success(c, fiber.StatusOK, events[0])
}

func (h *EventsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	eventID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid event id")
	}

	var event models.Event
	if err := h.DB.First(&event, "id = ?", eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "event not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading event")
	}

	if event.OrganizerID != currentUser.ID && currentUser.Role != models.UserRoleAdmin {
		return utils.Error(c, fiber.StatusForbidden, "only the organizer or an admin can delete an event")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.EventMembership{}, "event_id = ?", eventID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Event{}, "id = ?", eventID).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting event")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "event.delete",
		ResourceType: "event",
		ResourceID:   &eventID,
		Details: map[string]interface{}{
			"event_title": event.Title,
		},
		IPAddress: c.IP(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "event deleted"})
}

func (h *EventsHandler) Join(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	eventID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid event id")
	}

	membership, err := h.Membership.JoinEvent(c.UserContext(), eventID, currentUser.ID)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusCreated, membership)
}

func (h *EventsHandler) Leave(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	eventID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid event id")
	}

	if err := h.Membership.LeaveEvent(c.UserContext(), eventID, currentUser.ID); err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "left event"})
}

func (h *EventsHandler) decorate(viewerID uuid.UUID, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(events))
	for i := range events {
		ids[i] = events[i].ID
	}

	type pairCount struct {
		EventID uuid.UUID
		Count   int64
	}

	var counts []pairCount
	err := h.DB.Model(&models.EventMembership{}).
		Select("event_id, COUNT(*) as count").
		Where("event_id IN ?", ids).
		Group("event_id").
		Scan(&counts).Error
	if err != nil {
		return err
	}

	var joinedIDs []uuid.UUID
	err = h.DB.Model(&models.EventMembership{}).
		Where("user_id = ? AND event_id IN ?", viewerID, ids).
		Pluck("event_id", &joinedIDs).Error
	if err != nil {
		return err
	}

	countByID := make(map[uuid.UUID]int64, len(counts))
	for _, row := range counts {
		countByID[row.EventID] = row.Count
	}
	joined := make(map[uuid.UUID]bool, len(joinedIDs))
	for _, id := range joinedIDs {
		joined[id] = true
	}

	for i := range events {
		events[i].MemberCount = countByID[events[i].ID]
		events[i].JoinedByViewer = joined[events[i].ID]
	}

	return nil
}
