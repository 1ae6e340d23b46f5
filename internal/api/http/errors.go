package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/heat-stress-dashboard/internal/choropleth"
	"github.com/i474232898/heat-stress-dashboard/internal/geocode"
)

// ErrorHandler renders every error as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

// serviceError maps service sentinels to HTTP errors with a user-facing message.
func serviceError(err error) error {
	switch {
	case errors.Is(err, choropleth.ErrUnknownVariable):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, choropleth.ErrOutOfRange):
		return fiber.NewError(fiber.StatusBadRequest, choropleth.MsgDayOutOfRange)
	case errors.Is(err, choropleth.ErrEmptySelection):
		return fiber.NewError(fiber.StatusBadRequest, choropleth.MsgEmptySelection)
	case errors.Is(err, choropleth.ErrNoData), errors.Is(err, geocode.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, geocode.ErrEmptyPlace):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, choropleth.ErrNoGeocoder):
		return fiber.NewError(fiber.StatusNotImplemented, err.Error())
	case errors.Is(err, choropleth.ErrNotLoaded):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to build response")
}
