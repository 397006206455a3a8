package waypoint

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/FaRaZ-32729/mushabaBackend/internal/apperr"
	"github.com/FaRaZ-32729/mushabaBackend/internal/auth"
)

var validate = validator.New()

type markRequest struct {
	Type      string   `json:"type" validate:"required,oneof=bus_station hotel"`
	Scope     string   `json:"scope" validate:"required,oneof=personal group"`
	Name      string   `json:"name" validate:"required"`
	Latitude  *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" validate:"required,min=-180,max=180"`
	Comment   string   `json:"comment"`
	Images    []string `json:"images"`
}

type transferChoices struct {
	BusStation string `json:"bus_station" validate:"required,oneof=use_personal_as_group keep_previous_as_group"`
	Hotel      string `json:"hotel" validate:"required,oneof=use_personal_as_group keep_previous_as_group"`
}

type transferRequest struct {
	NewOwnerID string          `json:"new_owner_id" validate:"required"`
	Choices    transferChoices `json:"choices" validate:"required"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/connections/:id/waypoints", authMiddleware, func(c *fiber.Ctx) error {
		var req markRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		mark, err := svc.MarkWaypoint(c.Context(), c.Params("id"), auth.UserID(c), MarkInput{
			Type:      req.Type,
			Scope:     req.Scope,
			Name:      req.Name,
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
			Comment:   req.Comment,
			Images:    req.Images,
		})
		if err != nil {
			return fiber.NewError(apperr.StatusCode(err), err.Error())
		}
		return c.Status(fiber.StatusCreated).JSON(mark)
	})

	r.Get("/connections/:id/waypoints", authMiddleware, func(c *fiber.Ctx) error {
		marks, err := svc.Marks(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(apperr.StatusCode(err), err.Error())
		}
		return c.JSON(fiber.Map{
			"connection_id": c.Params("id"),
			"waypoints":     marks,
		})
	})

	r.Get("/connections/:id/waypoints/active", authMiddleware, func(c *fiber.Ctx) error {
		resolved, err := svc.ActiveWaypoints(c.Context(), c.Params("id"), auth.UserID(c))
		if err != nil {
			return fiber.NewError(apperr.StatusCode(err), err.Error())
		}
		return c.JSON(fiber.Map{
			"connection_id": c.Params("id"),
			"waypoints":     resolved,
		})
	})

	r.Post("/connections/:id/transfer", authMiddleware, func(c *fiber.Ctx) error {
		var req transferRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		choice := PolicyChoice{BusStation: req.Choices.BusStation, Hotel: req.Choices.Hotel}
		if err := svc.TransferOwnership(c.Context(), c.Params("id"), auth.UserID(c), req.NewOwnerID, choice); err != nil {
			return fiber.NewError(apperr.StatusCode(err), err.Error())
		}
		return c.JSON(fiber.Map{
			"connection_id": c.Params("id"),
			"new_owner_id":  req.NewOwnerID,
			"choices":       choice,
		})
	})
}
