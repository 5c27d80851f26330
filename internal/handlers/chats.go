package handlers

import (
	"strings"

	"github.com/fitconnect/backend/internal/middleware"
	"github.com/fitconnect/backend/internal/models"
	"github.com/fitconnect/backend/internal/services"
	"github.com/fitconnect/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatsHandler struct {
	DB         *gorm.DB
	Membership *services.MembershipService
}

func NewChatsHandler(db *gorm.DB, membership *services.MembershipService) *ChatsHandler {
	return &ChatsHandler{DB: db, Membership: membership}
}

type createPrivateChatRequest struct {
	UserID string `json:"userID"`
}

func (h *ChatsHandler) CreatePrivate(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createPrivateChatRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	otherID, err := parseUUID(req.UserID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	chat, err := h.Membership.CreatePrivateChat(c.UserContext(), currentUser.ID, otherID)
	if err != nil {
		return serviceError(c, err)
	}

	h.resolveDisplayName(currentUser.ID, chat)
	return utils.Success(c, fiber.StatusCreated, chat)
}

type createGroupChatRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"memberIDs"`
}

func (h *ChatsHandler) CreateGroup(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req createGroupChatRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	memberIDs := make([]uuid.UUID, 0, len(req.MemberIDs))
	for _, raw := range req.MemberIDs {
		id, err := parseUUID(raw)
		if err != nil {
			return utils.Error(c, fiber.StatusBadRequest, "invalid member id")
		}
		memberIDs = append(memberIDs, id)
	}

	chat, err := h.Membership.CreateGroupChat(c.UserContext(), currentUser.ID, req.Name, memberIDs)
	if err != nil {
		return serviceError(c, err)
	}

	h.resolveDisplayName(currentUser.ID, chat)
	return utils.Success(c, fiber.StatusCreated, chat)
}

func (h *ChatsHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var chats []models.Chat
	err := h.DB.
		Joins("JOIN chat_members ON chat_members.chat_id = chats.id").
		Where("chat_members.user_id = ?", currentUser.ID).
		Preload("Members.User").
		Order("chats.updated_at DESC").
		Find(&chats).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing chats")
	}

	for i := range chats {
		h.resolveDisplayName(currentUser.ID, &chats[i])
	}

	return utils.Success(c, fiber.StatusOK, chats)
}

func (h *ChatsHandler) Get(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	chatID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid chat id")
	}

	var chat models.Chat
	if err := h.DB.Preload("Members.User").First(&chat, "id = ?", chatID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.Error(c, fiber.StatusNotFound, "chat not found")
		}
		return utils.Error(c, fiber.StatusInternalServerError, "failed loading chat")
	}

	if !h.isMember(&chat, currentUser.ID) {
		return utils.Error(c, fiber.StatusForbidden, "not a member of this chat")
	}

	h.resolveDisplayName(currentUser.ID, &chat)
	return utils.Success(c, fiber.StatusOK, chat)
}

type inviteRequest struct {
	UserID string `json:"userID"`
}

func (h *ChatsHandler) Invite(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	chatID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid chat id")
	}

	var req inviteRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	inviteeID, err := parseUUID(req.UserID)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid user id")
	}

	membership, err := h.Membership.InviteToGroup(c.UserContext(), chatID, currentUser.ID, inviteeID)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusCreated, membership)
}

func (h *ChatsHandler) Accept(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	chatID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid chat id")
	}

	chat, err := h.Membership.AcceptInvitation(c.UserContext(), chatID, currentUser.ID)
	if err != nil {
		return serviceError(c, err)
	}

	h.resolveDisplayName(currentUser.ID, chat)
	return utils.Success(c, fiber.StatusOK, chat)
}

func (h *ChatsHandler) Reject(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	chatID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid chat id")
	}

	if err := h.Membership.RejectInvitation(c.UserContext(), chatID, currentUser.ID); err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "invitation rejected"})
}

func (h *ChatsHandler) Leave(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	chatID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid chat id")
	}

	if err := h.Membership.LeaveGroup(c.UserContext(), chatID, currentUser.ID); err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "left chat"})
}

func (h *ChatsHandler) ListMessages(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	chatID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid chat id")
	}

	if status, msg := h.requireActiveMember(chatID, currentUser.ID); status != 0 {
		return utils.Error(c, status, msg)
	}

	p := utils.ParsePagination(c)

	var total int64
	if err := h.DB.Model(&models.Message{}).Where("chat_id = ?", chatID).Count(&total).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed counting messages")
	}

	var messages []models.Message
	err = utils.ApplyPagination(
		h.DB.Where("chat_id = ?", chatID).Preload("Sender").Order("created_at DESC"), p,
	).Find(&messages).Error
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed listing messages")
	}

	return utils.Paginated(c, messages, p, total)
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

func (h *ChatsHandler) SendMessage(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	chatID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid chat id")
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Body = strings.TrimSpace(req.Body)
	if req.Body == "" {
		return utils.Error(c, fiber.StatusBadRequest, "message body is required")
	}

	if status, msg := h.requireActiveMember(chatID, currentUser.ID); status != 0 {
		return utils.Error(c, status, msg)
	}

	message := models.Message{
		ChatID:   chatID,
		SenderID: currentUser.ID,
		Body:     req.Body,
	}
	if err := h.DB.Create(&message).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed sending message")
	}

	// Bump the chat so the member list sorts it first.
	h.DB.Model(&models.Chat{}).Where("id = ?", chatID).Update("updated_at", gorm.Expr("CURRENT_TIMESTAMP"))

	message.Sender = *currentUser
	return utils.Success(c, fiber.StatusCreated, message)
}

// requireActiveMember returns a zero status when the user may read and
// write in the chat. Pending invitees are shut out until they accept.
func (h *ChatsHandler) requireActiveMember(chatID, userID uuid.UUID) (int, string) {
	var membership models.ChatMembership
	err := h.DB.First(&membership, "chat_id = ? AND user_id = ?", chatID, userID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			var count int64
			h.DB.Model(&models.Chat{}).Where("id = ?", chatID).Count(&count)
			if count == 0 {
				return fiber.StatusNotFound, "chat not found"
			}
			return fiber.StatusForbidden, "not a member of this chat"
		}
		return fiber.StatusInternalServerError, "failed loading chat membership"
	}
	if !membership.IsActive() {
		return fiber.StatusForbidden, "invitation has not been accepted"
	}
	return 0, ""
}

func (h *ChatsHandler) isMember(chat *models.Chat, userID uuid.UUID) bool {
	for i := range chat.Members {
		if chat.Members[i].UserID == userID {
			return true
		}
	}
	return false
}

func (h *ChatsHandler) resolveDisplayName(viewerID uuid.UUID, chat *models.Chat) {
	if chat.IsGroup {
		chat.DisplayName = chat.Name
		return
	}
	if len(chat.Members) == 0 {
		h.DB.Preload("Members.User").First(chat, "id = ?", chat.ID)
	}
	for i := range chat.Members {
		if chat.Members[i].UserID != viewerID {
			chat.DisplayName = chat.Members[i].User.Username
			return
		}
	}
	chat.DisplayName = chat.Name
}
