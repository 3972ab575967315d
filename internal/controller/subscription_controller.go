// FILE: internal/controller/subscription_controller.go
package controller

import (
	"errors"

	"gym-saas-be/internal/dto"
	"gym-saas-be/internal/pkg/serverutils"
	"gym-saas-be/internal/service"
	"gym-saas-be/pkg/gateway"

	"github.com/gofiber/fiber/v2"
)

type ISubscriptionController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Verify(ctx *fiber.Ctx) error
	Cancel(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
}

type subscriptionController struct {
	service service.ISubscriptionService
}

func NewSubscriptionController(service service.ISubscriptionService) ISubscriptionController {
	return &subscriptionController{service: service}
}

// RegisterRoutes keeps billing outside the access gate: a tenant in grace or
// expired must still be able to pay.
func (c *subscriptionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/subscription", serverutils.JwtMiddleware)
	h.Get("/status", c.Status)
	h.Get("/history", c.History)

	h.Post("/create", serverutils.AdminOnly, c.Create)
	h.Post("/verify", serverutils.AdminOnly, c.Verify)
	h.Post("/cancel", serverutils.AdminOnly, c.Cancel)
}

func (c *subscriptionController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateSubscriptionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	principal, _ := serverutils.GetPrincipal(ctx)
	res, err := c.service.CreateSubscription(ctx.UserContext(), principal.TenantId(), req)
	if err != nil {
		return subscriptionError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription created", res))
}

func (c *subscriptionController) Verify(ctx *fiber.Ctx) error {
	var req dto.VerifySubscriptionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	principal, _ := serverutils.GetPrincipal(ctx)
	res, err := c.service.VerifySubscription(ctx.UserContext(), principal.TenantId(), req)
	if err != nil {
		return subscriptionError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription verified", res))
}

func (c *subscriptionController) Cancel(ctx *fiber.Ctx) error {
	principal, _ := serverutils.GetPrincipal(ctx)
	res, err := c.service.CancelSubscription(ctx.UserContext(), principal.TenantId())
	if err != nil {
		return subscriptionError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription will be cancelled at the end of the billing cycle", res))
}

func (c *subscriptionController) History(ctx *fiber.Ctx) error {
	principal, _ := serverutils.GetPrincipal(ctx)
	res, err := c.service.GetPaymentHistory(ctx.UserContext(), principal.TenantId())
	if err != nil {
		return subscriptionError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Payment history", res))
}

func (c *subscriptionController) Status(ctx *fiber.Ctx) error {
	principal, _ := serverutils.GetPrincipal(ctx)
	res, err := c.service.GetStatus(ctx.UserContext(), principal.TenantId())
	if err != nil {
		return subscriptionError(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription status", res))
}

func subscriptionError(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrAdminNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, service.ErrInvalidPaymentSignature):
		code = fiber.StatusBadRequest
	case errors.Is(err, service.ErrSubscriptionMismatch):
		code = fiber.StatusForbidden
	case errors.Is(err, service.ErrNoGatewaySubscription),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrPlanNotConfigured):
		code = fiber.StatusConflict
	case errors.Is(err, gateway.ErrSubscriptionCreationFailed),
		errors.Is(err, gateway.ErrSubscriptionCancelFailed),
		errors.Is(err, gateway.ErrSubscriptionFetchFailed):
		code = fiber.StatusBadGateway
	case errors.Is(err, service.ErrTransitionConflict):
		code = fiber.StatusConflict
	default:
		return err
	}
	return ctx.Status(code).JSON(serverutils.ErrorResponse(code, err.Error()))
}
