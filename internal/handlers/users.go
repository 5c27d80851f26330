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

type UsersHandler struct {
	DB         *gorm.DB
	Membership *services.MembershipService
}

func NewUsersHandler(db *gorm.DB, membership *services.MembershipService) *UsersHandler {
	return &UsersHandler{DB: db, Membership: membership}
}

func (h *UsersHandler) Search(c *fiber.Ctx) error {
	search := strings.TrimSpace(c.Query("search"))
	limit := c.QueryInt("limit", 5)
	if limit > 50 {
		limit = 50
	}

	query := h.DB.Model(&models.User{})
	if search != "" {
		query = query.Where("LOWER(username) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var users []models.User
	if err := query.Order("username ASC").Limit(limit).Find(&users).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed searching users")
	}

	return utils.Success(c, fiber.StatusOK, users)
}

type profileResponse struct {
	models.User
	FollowerCount    int64 `json:"followerCount"`
	FollowingCount   int64 `json:"followingCount"`
	FollowedByViewer bool  `json:"followedByViewer"`
}

func (h *UsersHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "user not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading user")
	}

	profile := profileResponse{User: user}

	if err := h.DB.Model(&models.FollowEdge{}).Where("following_id = ?", userID).Count(&profile.FollowerCount).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting followers")
	}
	if err := h.DB.Model(&models.FollowEdge{}).Where("user_id = ?", userID).Count(&profile.FollowingCount).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting following")
	}

	var viewerEdge int64
	if err := h.DB.Model(&models.FollowEdge{}).
		Where("user_id = ? AND following_id = ?", currentUser.ID, userID).
		Count(&viewerEdge).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading follow state")
	}
	profile.FollowedByViewer = viewerEdge > 0

	return utils.Success(c, fiber.StatusOK, profile)
}

func (h *UsersHandler) Follow(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	targetID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	edge, err := h.Membership.Follow(c.UserContext(), currentUser.ID, targetID)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusCreated, fiber.Map{"action": "followed", "edge": edge})
}

func (h *UsersHandler) Unfollow(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	targetID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	if err := h.Membership.Unfollow(c.UserContext(), currentUser.ID, targetID); err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"action": "unfollowed"})
}

func (h *UsersHandler) Followers(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var users []models.User
	err = h.DB.
		Joins("JOIN user_followers ON user_followers.user_id = users.id").
		Where("user_followers.following_id = ?", userID).
		Order("users.username ASC").
		Find(&users).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing followers")
	}

	return utils.Success(c, fiber.StatusOK, users)
}

func (h *UsersHandler) Following(c *fiber.Ctx) error {
	userID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	var users []models.User
	err = h.DB.
		Joins("JOIN user_followers ON user_followers.following_id = users.id").
		Where("user_followers.user_id = ?", userID).
		Order("users.username ASC").
		Find(&users).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing following")
	}

	return utils.Success(c, fiber.StatusOK, users)
}
