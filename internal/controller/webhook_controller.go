// FILE: internal/controller/webhook_controller.go
package controller

import (
	"crypto/subtle"
	"errors"

	"gym-saas-be/internal/dto"
	"gym-saas-be/internal/pkg/serverutils"
	"gym-saas-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const SignatureHeader = "X-Razorpay-Signature"

type IWebhookController interface {
	RegisterRoutes(r fiber.Router)
	Razorpay(ctx *fiber.Ctx) error
	ListEvents(ctx *fiber.Ctx) error
	Replay(ctx *fiber.Ctx) error
}

type webhookController struct {
	service  service.IWebhookService
	opsToken string
}

func NewWebhookController(service service.IWebhookService, opsToken string) IWebhookController {
	return &webhookController{service: service, opsToken: opsToken}
}

func (c *webhookController) RegisterRoutes(r fiber.Router) {
	r.Post("/webhooks/razorpay", c.Razorpay)

	ops := r.Group("/ops/webhooks", c.opsMiddleware)
	ops.Get("/", c.ListEvents)
	ops.Post("/:id/replay", c.Replay)
}

// Razorpay answers 200 for every body that passes signature verification,
// whatever happens downstream, so the gateway never retries on our bugs.
func (c *webhookController) Razorpay(ctx *fiber.Ctx) error {
	// Fiber reuses the request buffer, the signature is checked on a copy.
	raw := append([]byte(nil), ctx.BodyRaw()...)

	ack, err := c.service.Ingest(ctx.UserContext(), raw, ctx.Get(SignatureHeader), dto.IngestOptions{
		TestMode: ctx.QueryBool("test_mode", false),
	})
	switch {
	case errors.Is(err, service.ErrInvalidSignature):
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, "invalid signature"))
	case errors.Is(err, service.ErrWebhookSecretMissing):
		return ctx.Status(fiber.StatusInternalServerError).JSON(serverutils.ErrorResponse(fiber.StatusInternalServerError, "webhook secret not configured"))
	case err != nil:
		// Signature was valid, so this is ours to fix, not the gateway's to retry.
		return ctx.Status(fiber.StatusOK).JSON(serverutils.SuccessResponse("Webhook received", &dto.WebhookAck{
			Received:  true,
			IssueFlag: true,
			Message:   "stored for manual follow-up",
		}))
	}
	return ctx.JSON(serverutils.SuccessResponse("Webhook received", ack))
}

func (c *webhookController) ListEvents(ctx *fiber.Ctx) error {
	res, err := c.service.ListEvents(ctx.UserContext(), dto.ListWebhookEventsRequest{
		IssueOnly:       ctx.QueryBool("issue", false),
		UnprocessedOnly: ctx.QueryBool("unprocessed", false),
		Event:           ctx.Query("event"),
		Limit:           ctx.QueryInt("limit", 50),
		Offset:          ctx.QueryInt("offset", 0),
	})
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Webhook events", res))
}

func (c *webhookController) Replay(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse(fiber.StatusBadRequest, "invalid event id"))
	}

	ack, err := c.service.Replay(ctx.UserContext(), id)
	if errors.Is(err, service.ErrWebhookEventNotFound) {
		return ctx.Status(fiber.StatusNotFound).JSON(serverutils.ErrorResponse(fiber.StatusNotFound, err.Error()))
	}
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Webhook replayed", ack))
}

// opsMiddleware guards the replay tooling. An empty configured token disables it.
func (c *webhookController) opsMiddleware(ctx *fiber.Ctx) error {
	token := ctx.Get("X-Ops-Token")
	if c.opsToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(c.opsToken)) != 1 {
		return ctx.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse(fiber.StatusUnauthorized, "Unauthorized"))
	}
	return ctx.Next()
}
