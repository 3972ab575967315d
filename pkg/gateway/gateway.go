// Package gateway wraps the payment gateway used for recurring billing.
package gateway

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSubscriptionCreationFailed = errors.New("failed to create gateway subscription")
	ErrSubscriptionFetchFailed    = errors.New("failed to fetch gateway subscription")
	ErrSubscriptionCancelFailed   = errors.New("failed to cancel gateway subscription")
	ErrPlanFetchFailed            = errors.New("failed to fetch gateway plan")
)

// Subscription is the subset of the gateway subscription entity the
// lifecycle cares about. Amounts are in minor units.
type Subscription struct {
	Id         string
	PlanId     string
	Status     string
	CustomerId string
	ShortURL   string
	PaidCount  int
	// NextDueOn is the gateway's own view of the next billing boundary. It is
	// advisory only and compared against locally computed dates.
	NextDueOn    *time.Time
	CurrentStart *time.Time
	CurrentEnd   *time.Time
	Notes        map[string]string
}

type Plan struct {
	Id       string
	Name     string
	Amount   int64
	Currency string
	Period   string
}

type CreateSubscriptionParams struct {
	PlanId         string
	TotalCount     int
	CustomerNotify bool
	// StartAt defers the first charge, used to start billing after the trial.
	StartAt *time.Time
	Notes   map[string]string
}

type Client interface {
	CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*Subscription, error)
	FetchSubscription(ctx context.Context, subscriptionId string) (*Subscription, error)
	CancelSubscription(ctx context.Context, subscriptionId string, cancelAtCycleEnd bool) (*Subscription, error)
	FetchPlan(ctx context.Context, planId string) (*Plan, error)
}
