package controller

import (
	"errors"

	"gym-saas-be/internal/dto"
	"gym-saas-be/internal/pkg/serverutils"
	"gym-saas-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ITrainerController interface {
	RegisterRoutes(r fiber.Router, accessGate fiber.Handler)
	List(ctx *fiber.Ctx) error
	Create(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type trainerController struct {
	service service.ITrainerService
}

func NewTrainerController(service service.ITrainerService) ITrainerController {
	return &trainerController{service: service}
}

// RegisterRoutes mounts the tenant's staff routes behind the subscription
// access gate.
func (c *trainerController) RegisterRoutes(r fiber.Router, accessGate fiber.Handler) {
	h := r.Group("/gym/trainers", serverutils.JwtMiddleware, accessGate)
	h.Get("/", c.List)
	h.Post("/", serverutils.AdminOnly, c.Create)
	h.Delete("/:id", serverutils.AdminOnly, c.Delete)
}

func (c *trainerController) List(ctx *fiber.Ctx) error {
	principal, _ := serverutils.GetPrincipal(ctx)
	res, err := c.service.List(ctx.UserContext(), principal.TenantId())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Trainers", res))
}

func (c *trainerController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateTrainerRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	principal, _ := serverutils.GetPrincipal(ctx)
	res, err := c.service.Create(ctx.UserContext(), principal.TenantId(), &req)
	if errors.Is(err, service.ErrEmailTaken) {
		return ctx.Status(fiber.StatusConflict).JSON(serverutils.ErrorResponse(fiber.StatusConflict, err.Error()))
	}
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Trainer created", res))
}

func (c *trainerController) Delete(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, "invalid trainer id"))
	}

	principal, _ := serverutils.GetPrincipal(ctx)
	err = c.service.Delete(ctx.UserContext(), principal.TenantId(), id)
	if errors.Is(err, service.ErrTrainerNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(fiber.StatusNotFound, err.Error()))
	}
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Trainer deleted", nil))
}
