package handlers

import (
	"errors"
	"strings"

	"github.com/fitconnect/backend/internal/services"
	"github.com/fitconnect/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// serviceError maps the membership error taxonomy onto HTTP statuses:
// missing entities are 404, conflicts 409, failed preconditions 400, store
// trouble 500/503. Store internals never leak into the response body.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return utils.Error(c, fiber.StatusNotFound, "not found")
	case errors.Is(err, services.ErrCapacityExceeded),
		errors.Is(err, services.ErrAlreadyMember),
		errors.Is(err, services.ErrAlreadyInvitedOrMember),
		errors.Is(err, services.ErrAlreadyFollowing),
		errors.Is(err, services.ErrNotFollowing),
		errors.Is(err, services.ErrSelfFollowForbidden):
		return utils.Error(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, services.ErrNotAGroupChat),
		errors.Is(err, services.ErrInviterNotMember),
		errors.Is(err, services.ErrNoPendingInvitation),
		errors.Is(err, services.ErrInvalidInput):
		return utils.Error(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrTimeout):
		return utils.Error(c, fiber.StatusServiceUnavailable, "store timeout")
	default:
		return utils.Error(c, fiber.StatusInternalServerError, "store unavailable")
	}
}
