package handlers

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/fitconnect/backend/internal/middleware"
	"github.com/fitconnect/backend/internal/storage"
	"github.com/fitconnect/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const presignExpiry = 15 * time.Minute

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

type UploadsHandler struct {
	Media *storage.MediaStore
}

func NewUploadsHandler(media *storage.MediaStore) *UploadsHandler {
	return &UploadsHandler{Media: media}
}

type presignRequest struct {
	Filename string `json:"filename"`
}

// PresignImage hands the client a short-lived PUT URL plus the object path
// to store on the post or profile. The media store may be absent in
// deployments without object storage; uploads are then unavailable.
func (h *UploadsHandler) PresignImage(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if h.Media == nil {
		return utils.Error(c, fiber.StatusServiceUnavailable, "media storage is not configured")
	}

	var req presignRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	ext := strings.ToLower(path.Ext(strings.TrimSpace(req.Filename)))
	if !allowedImageExtensions[ext] {
		return utils.Error(c, fiber.StatusBadRequest, "unsupported image type")
	}

	objectName := fmt.Sprintf("images/%s/%s%s", currentUser.ID, uuid.New(), ext)

	uploadURL, err := h.Media.PresignedPutURL(c.UserContext(), objectName, presignExpiry)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating upload url")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"uploadURL":  uploadURL,
		"objectPath": objectName,
		"expiresIn":  int(presignExpiry.Seconds()),
	})
}

// ResolveImage turns a stored object path back into a temporary GET URL.
func (h *UploadsHandler) ResolveImage(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if h.Media == nil {
		return utils.Error(c, fiber.StatusServiceUnavailable, "media storage is not configured")
	}

	objectPath := strings.TrimSpace(c.Query("path"))
	if objectPath == "" || strings.Contains(objectPath, "..") {
		return utils.Error(c, fiber.StatusBadRequest, "invalid object path")
	}

	url, err := h.Media.PresignedGetURL(c.UserContext(), objectPath, presignExpiry)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating download url")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"url":       url,
		"expiresIn": int(presignExpiry.Seconds()),
	})
}
