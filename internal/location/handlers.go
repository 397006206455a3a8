package location

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/FaRaZ-32729/mushabaBackend/internal/apperr"
	"github.com/FaRaZ-32729/mushabaBackend/internal/auth"
)

var validate = validator.New()

type pingRequest struct {
	ConnectionID string   `json:"connection_id" validate:"required"`
	Latitude     *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude    *float64 `json:"longitude" validate:"required,min=-180,max=180"`
	Floor        int      `json:"floor"`
	Accuracy     float64  `json:"accuracy" validate:"omitempty,gte=0"`
	Speed        float64  `json:"speed" validate:"omitempty,gte=0"`
	Heading      float64  `json:"heading" validate:"omitempty,gte=0,lt=360"`
}

func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware fiber.Handler) {
	r.Post("/ping", authMiddleware, func(c *fiber.Ctx) error {
		var req pingRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res, err := svc.UpdateLocation(c.Context(), req.ConnectionID, auth.UserID(c), PositionSample{
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
			Floor:     req.Floor,
			Accuracy:  req.Accuracy,
			Speed:     req.Speed,
			Heading:   req.Heading,
		})
		if err != nil {
			return fiber.NewError(apperr.StatusCode(err), err.Error())
		}
		return c.JSON(res)
	})

	r.Get("/users/:id", authMiddleware, func(c *fiber.Ctx) error {
		res, err := svc.GetUserLocation(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(apperr.StatusCode(err), err.Error())
		}
		return c.JSON(res)
	})

	r.Get("/connections/:id", authMiddleware, func(c *fiber.Ctx) error {
		resolved, err := svc.GetGroupLocations(c.Context(), c.Params("id"))
		if err != nil {
			return fiber.NewError(apperr.StatusCode(err), err.Error())
		}
		return c.JSON(fiber.Map{
			"connection_id": c.Params("id"),
			"locations":     resolved,
		})
	})

	r.Get("/connections/:id/history", authMiddleware, func(c *fiber.Ctx) error {
		hours, _ := strconv.Atoi(c.Query("hours", "24"))
		includeHistory := c.QueryBool("include_history")
		hist, err := svc.History(c.Context(), c.Params("id"), hours, includeHistory)
		if err != nil {
			return fiber.NewError(apperr.StatusCode(err), err.Error())
		}
		return c.JSON(hist)
	})

	r.Post("/offline", authMiddleware, func(c *fiber.Ctx) error {
		res, err := svc.MarkOffline(c.Context(), auth.UserID(c))
		if err != nil {
			return fiber.NewError(apperr.StatusCode(err), err.Error())
		}
		return c.JSON(res)
	})

	r.Get("/memory", authMiddleware, func(c *fiber.Ctx) error {
		return c.JSON(svc.MemoryStatus())
	})
}
