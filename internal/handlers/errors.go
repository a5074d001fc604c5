package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/padelhub/padelhub/internal/lifecycle"
	"github.com/padelhub/padelhub/internal/models"
	"github.com/padelhub/padelhub/internal/service"
	"github.com/padelhub/padelhub/internal/store"
)

// statusFor maps domain errors to HTTP status codes. Anything unknown is a 500.
var statusFor = []struct {
	err    error
	status int
}{
	{store.ErrNotFound, fiber.StatusNotFound},
	{service.ErrForbidden, fiber.StatusForbidden},

	// The request was fine but the match is in the wrong state for it.
	{lifecycle.ErrMatchClosed, fiber.StatusConflict},
	{lifecycle.ErrSlotAlreadyFilled, fiber.StatusConflict},
	{lifecycle.ErrPlayerAlreadyInMatch, fiber.StatusConflict},
	{lifecycle.ErrMatchNotReady, fiber.StatusConflict},
	{lifecycle.ErrResultAlreadyFinalized, fiber.StatusConflict},
	{store.ErrStaleWrite, fiber.StatusConflict},

	// The request itself is invalid.
	{lifecycle.ErrDuplicatePlayerInSlots, fiber.StatusUnprocessableEntity},
	{lifecycle.ErrNoSelectionMade, fiber.StatusUnprocessableEntity},
	{lifecycle.ErrInvalidWinnerSelection, fiber.StatusUnprocessableEntity},
	{lifecycle.ErrInvalidMatchID, fiber.StatusUnprocessableEntity},
	{lifecycle.ErrMissingField, fiber.StatusUnprocessableEntity},
	{lifecycle.ErrUnknownPlayer, fiber.StatusUnprocessableEntity},
	{lifecycle.ErrInvalidSlot, fiber.StatusUnprocessableEntity},
	{lifecycle.ErrInvalidStatusTag, fiber.StatusUnprocessableEntity},
	{models.ErrInvalidPosition, fiber.StatusUnprocessableEntity},
	{service.ErrUnknownClub, fiber.StatusUnprocessableEntity},
}

// writeError sends err as {"error": "..."} with the matching status.
func writeError(c *fiber.Ctx, err error) error {
	for _, m := range statusFor {
		if errors.Is(err, m.err) {
			return c.Status(m.status).JSON(fiber.Map{"error": err.Error()})
		}
	}

	logrus.WithError(err).WithFields(logrus.Fields{
		"method": c.Method(),
		"path":   c.Path(),
	}).Error("request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// idParam reads a positive integer route parameter.
func idParam(c *fiber.Ctx, name string) (int, bool) {
	id, err := c.ParamsInt(name)
	return id, err == nil && id > 0
}
