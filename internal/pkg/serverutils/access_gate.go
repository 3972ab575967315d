package serverutils

import (
	"context"
	"time"

	"gym-saas-be/internal/entity"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// SubscriptionGuard returns the tenant's current subscription state, applying
// any date-triggered transition that is already due.
type SubscriptionGuard interface {
	CurrentState(ctx context.Context, adminId uuid.UUID, now time.Time) (*entity.Admin, error)
}

type SubscriptionDenial struct {
	SubscriptionStatus entity.SubscriptionStatus `json:"subscription_status"`
	BoundaryDate       *time.Time                `json:"boundary_date"`
}

// AccessGate enforces one policy for every protected route: reads are always
// allowed, writes only while the tenant is in trial or active.
func AccessGate(guard SubscriptionGuard, clock func() time.Time) fiber.Handler {
	if clock == nil {
		clock = time.Now
	}
	return func(ctx *fiber.Ctx) error {
		if isReadOnly(ctx.Method()) {
			return ctx.Next()
		}

		principal, ok := GetPrincipal(ctx)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Unauthorized"))
		}

		admin, err := guard.CurrentState(ctx.UserContext(), principal.TenantId(), clock())
		if err != nil {
			return err
		}
		if admin == nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Tenant not found"))
		}

		if AllowsWrites(admin.SubscriptionStatus) {
			return ctx.Next()
		}

		return ctx.Status(fiber.StatusForbidden).JSON(&BaseResponse[SubscriptionDenial]{
			Success: false,
			Code:    fiber.StatusForbidden,
			Message: denialMessage(admin.SubscriptionStatus),
			Data: SubscriptionDenial{
				SubscriptionStatus: admin.SubscriptionStatus,
				BoundaryDate:       admin.BoundaryDate(),
			},
		})
	}
}

func AllowsWrites(status entity.SubscriptionStatus) bool {
	return status == entity.SubscriptionStatusTrial || status == entity.SubscriptionStatusActive
}

func isReadOnly(method string) bool {
	switch method {
	case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
		return true
	}
	return false
}

func denialMessage(status entity.SubscriptionStatus) string {
	switch status {
	case entity.SubscriptionStatusGrace:
		return "Subscription payment is overdue. Renew before the grace period ends to restore full access"
	case entity.SubscriptionStatusExpired:
		return "Subscription has expired. Renew to restore full access"
	case entity.SubscriptionStatusCancelled:
		return "Subscription was cancelled. Subscribe again to restore full access"
	}
	return "Subscription does not allow this action"
}
