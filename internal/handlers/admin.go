package handlers

import (
	"strings"

	"github.com/fitconnect/backend/internal/middleware"
	"github.com/fitconnect/backend/internal/models"
	"github.com/fitconnect/backend/internal/services"
	"github.com/fitconnect/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AdminHandler struct {
	DB    *gorm.DB
	Audit *services.AuditService
}

func NewAdminHandler(db *gorm.DB, audit *services.AuditService) *AdminHandler {
	return &AdminHandler{DB: db, Audit: audit}
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)

	query := h.DB.Model(&models.User{})
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("username LIKE ? OR email LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting users")
	}

	var users []models.User
	if err := utils.ApplyPagination(query.Order("created_at DESC"), p).Find(&users).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing users")
	}

	return utils.Paginated(c, users, p, total)
}

type updateRoleRequest struct {
	Role models.UserRole `json:"role"`
}

func (h *AdminHandler) UpdateUserRole(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)

	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var req updateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Role != models.UserRoleAdmin && req.Role != models.UserRoleUser {
		return utils.Error(c, fiber.StatusBadRequest, "role must be admin or user")
	}

	if currentUser != nil && currentUser.ID == userID {
		return utils.Error(c, fiber.StatusBadRequest, "cannot change your own role")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	previous := user.Role
	user.Role = req.Role
	if err := h.DB.Model(&user).Update("role", req.Role).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed updating role")
	}

	if currentUser != nil {
		h.Audit.LogAsync(services.AuditEntry{
			UserID:       &currentUser.ID,
			Action:       "admin.user_role_change",
			ResourceType: "user",
			ResourceID:   &userID,
			Details: map[string]interface{}{
				"username":      user.Username,
				"previous_role": string(previous),
				"new_role":      string(req.Role),
			},
			IPAddress: c.IP(),
		})
	}

	return utils.Success(c, fiber.StatusOK, user)
}

func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)

	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	if currentUser != nil && currentUser.ID == userID {
		return utils.Error(c, fiber.StatusBadRequest, "cannot delete your own account")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	// Rows that point at the user go with them. Content in shared spaces
	// (messages, comments on other people's posts) is removed too rather
	// than left dangling with an unknown author, and chats or events the
	// user anchored are cleaned up the same way a normal leave would.
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var postIDs []string
		if err := tx.Model(&models.Post{}).Where("author_id = ?", userID).Pluck("id", &postIDs).Error; err != nil {
			return err
		}
		if len(postIDs) > 0 {
			if err := tx.Delete(&models.PostLike{}, "post_id IN ?", postIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Comment{}, "post_id IN ?", postIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Post{}, "id IN ?", postIDs).Error; err != nil {
				return err
			}
		}

		if err := tx.Delete(&models.PostLike{}, "user_id = ?", userID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Comment{}, "author_id = ?", userID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.FollowEdge{}, "user_id = ? OR following_id = ?", userID, userID).Error; err != nil {
			return err
		}

		var organizedIDs []string
		if err := tx.Model(&models.Event{}).Where("organizer_id = ?", userID).Pluck("id", &organizedIDs).Error; err != nil {
			return err
		}
		if len(organizedIDs) > 0 {
			if err := tx.Delete(&models.EventMembership{}, "event_id IN ?", organizedIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Event{}, "id IN ?", organizedIDs).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&models.EventMembership{}, "user_id = ?", userID).Error; err != nil {
			return err
		}

		var chatIDs []string
		if err := tx.Model(&models.ChatMembership{}).Where("user_id = ?", userID).Pluck("chat_id", &chatIDs).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.ChatMembership{}, "user_id = ?", userID).Error; err != nil {
			return err
		}
		if len(chatIDs) > 0 {
			// Chats where the user was the last member are garbage now,
			// messages included.
			var emptied []string
			remaining := tx.Model(&models.ChatMembership{}).Select("chat_id").Where("chat_id IN ?", chatIDs)
			if err := tx.Model(&models.Chat{}).Where("id IN ?", chatIDs).Where("id NOT IN (?)", remaining).Pluck("id", &emptied).Error; err != nil {
				return err
			}
			if len(emptied) > 0 {
				if err := tx.Delete(&models.Message{}, "chat_id IN ?", emptied).Error; err != nil {
					return err
				}
				if err := tx.Delete(&models.Chat{}, "id IN ?", emptied).Error; err != nil {
					return err
				}
			}
		}
		if err := tx.Delete(&models.Message{}, "sender_id = ?", userID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Workout{}, "user_id = ?", userID).Error; err != nil {
			return err
		}

		return tx.Delete(&models.User{}, "id = ?", userID).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting user")
	}

	if currentUser != nil {
		h.Audit.LogAsync(services.AuditEntry{
			UserID:       &currentUser.ID,
			Action:       "admin.user_delete",
			ResourceType: "user",
			ResourceID:   &userID,
			Details: map[string]interface{}{
				"username": user.Username,
			},
			IPAddress: c.IP(),
		})
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "user deleted"})
}

func (h *AdminHandler) ListAuditLogs(c *fiber.Ctx) error {
	p := utils.ParsePagination(c)

	query := h.DB.Model(&models.AuditLog{})
	if action := strings.TrimSpace(c.Query("action")); action != "" {
		query = query.Where("action = ?", action)
	}
	if rawUserID := c.Query("userID"); rawUserID != "" {
		userID, err := parseUUID(rawUserID)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
		}
		query = query.Where("user_id = ?", userID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting audit logs")
	}

	var logs []models.AuditLog
	if err := utils.ApplyPagination(query.Order("created_at DESC"), p).Find(&logs).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing audit logs")
	}

	return utils.Paginated(c, logs, p, total)
}
