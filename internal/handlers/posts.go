package handlers

import (
	"strings"

	"github.com/fitconnect/backend/internal/middleware"
	"github.com/fitconnect/backend/internal/models"
	"github.com/fitconnect/backend/internal/services"
	"github.com/fitconnect/backend/pkg/logger"
	"github.com/fitconnect/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type PostsHandler struct {
	DB         *gorm.DB
	Feed       *services.FeedService
	Membership *services.MembershipService
	Audit      *services.AuditService
}

func NewPostsHandler(db *gorm.DB, feed *services.FeedService, membership *services.MembershipService, audit *services.AuditService) *PostsHandler {
	return &PostsHandler{DB: db, Feed: feed, Membership: membership, Audit: audit}
}

func (h *PostsHandler) FeedPage(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	p := utils.ParsePagination(c)
	posts, total, err := h.Feed.Page(c.UserContext(), currentUser.ID, p)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Paginated(c, posts, p, total)
}

type createPostRequest struct {
	Body      string  `json:"body"`
	ImagePath *string `json:"imagePath"`
}

func (h *PostsHandler) Create(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" {
		return utils.Error(c, fiber.StatusBadRequest, "body is required")
	}

	post := models.Post{
		AuthorID:  currentUser.ID,
		Body:      req.Body,
		ImagePath: req.ImagePath,
	}

	if err := h.DB.Create(&post).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating post")
	}

	logger.InfoWithUser(currentUser.ID.String(), "post_created", map[string]interface{}{
		"post_id": post.ID.String(),
	})

	return utils.Success(c, fiber.StatusCreated, post)
}

func (h *PostsHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	postID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid post id")
	}

	post, err := h.Feed.Post(c.UserContext(), currentUser.ID, postID)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, post)
}

func (h *PostsHandler) Delete(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	postID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid post id")
	}

	var post models.Post
	if err := h.DB.First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "post not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading post")
	}

	if post.AuthorID != currentUser.ID && currentUser.Role != models.UserRoleAdmin {
		return utils.Error(c, fiber.StatusForbidden, "only the author or an admin can delete a post")
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Comment{}, "post_id = ?", postID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.PostLike{}, "post_id = ?", postID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, "id = ?", postID).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting post")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "post.delete",
		ResourceType: "post",
		ResourceID:   &postID,
		Details: map[string]interface{}{
			"author_id": post.AuthorID.String(),
		},
		IPAddress: c.IP(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "post deleted"})
}

func (h *PostsHandler) ToggleLike(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	postID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid post id")
	}

	action, err := h.Membership.ToggleLike(c.UserContext(), postID, currentUser.ID)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"action": action})
}

type createCommentRequest struct {
	Body string `json:"body"`
}

func (h *PostsHandler) CreateComment(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	postID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid post id")
	}

	var req createCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" {
		return utils.Error(c, fiber.StatusBadRequest, "body is required")
	}

	var post models.Post
	if err := h.DB.First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "post not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading post")
	}

	comment := models.Comment{
		PostID:   postID,
		AuthorID: currentUser.ID,
		Body:     req.Body,
	}
	if err := h.DB.Create(&comment).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating comment")
	}

	return utils.Success(c, fiber.StatusCreated, comment)
}

func (h *PostsHandler) DeleteComment(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	commentID, err := parseUUID(c.Params("commentId"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid comment id")
	}

	var comment models.Comment
	if err := h.DB.First(&comment, "id = ?", commentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "comment not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading comment")
	}

	if comment.AuthorID != currentUser.ID && currentUser.Role != models.UserRoleAdmin {
		return utils.Error(c, fiber.StatusForbidden, "only the author or an admin can delete a comment")
	}

	if err := h.DB.Delete(&models.Comment{}, "id = ?", commentID).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed deleting comment")
	}

	h.Audit.LogAsync(services.AuditEntry{
		UserID:       &currentUser.ID,
		Action:       "comment.delete",
		ResourceType: "comment",
		ResourceID:   &commentID,
		IPAddress:    c.IP(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "comment deleted"})
}
