package gateway

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/razorpay/razorpay-go"
)

type Config struct {
	KeyID     string
	KeySecret string
}

type razorpayClient struct {
	client *razorpay.Client
}

func NewRazorpayClient(config Config) Client {
	if config.KeyID == "" || config.KeySecret == "" {
		log.Println("WARNING: Razorpay credentials are empty, gateway calls will fail")
	}
	return &razorpayClient{
		client: razorpay.NewClient(config.KeyID, config.KeySecret),
	}
}

func (c *razorpayClient) CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*Subscription, error) {
	notify := 0
	if params.CustomerNotify {
		notify = 1
	}

	data := map[string]interface{}{
		"plan_id":         params.PlanId,
		"total_count":     params.TotalCount,
		"customer_notify": notify,
	}
	if params.StartAt != nil {
		data["start_at"] = params.StartAt.Unix()
	}
	if len(params.Notes) > 0 {
		notes := make(map[string]interface{}, len(params.Notes))
		for k, v := range params.Notes {
			notes[k] = v
		}
		data["notes"] = notes
	}

	body, err := c.client.Subscription.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubscriptionCreationFailed, err)
	}
	return SubscriptionFromMap(body), nil
}

func (c *razorpayClient) FetchSubscription(ctx context.Context, subscriptionId string) (*Subscription, error) {
	body, err := c.client.Subscription.Fetch(subscriptionId, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubscriptionFetchFailed, err)
	}
	return SubscriptionFromMap(body), nil
}

func (c *razorpayClient) CancelSubscription(ctx context.Context, subscriptionId string, cancelAtCycleEnd bool) (*Subscription, error) {
	atCycleEnd := 0
	if cancelAtCycleEnd {
		atCycleEnd = 1
	}
	body, err := c.client.Subscription.Cancel(subscriptionId, map[string]interface{}{
		"cancel_at_cycle_end": atCycleEnd,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSubscriptionCancelFailed, err)
	}
	return SubscriptionFromMap(body), nil
}

func (c *razorpayClient) FetchPlan(ctx context.Context, planId string) (*Plan, error) {
	body, err := c.client.Plan.Fetch(planId, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPlanFetchFailed, err)
	}

	plan := &Plan{
		Id:     stringField(body, "id"),
		Period: stringField(body, "period"),
	}
	if item, ok := body["item"].(map[string]interface{}); ok {
		plan.Name = stringField(item, "name")
		plan.Amount = int64Field(item, "amount")
		plan.Currency = stringField(item, "currency")
	}
	return plan, nil
}

// SubscriptionFromMap reads a subscription entity as decoded from JSON, both
// from API responses and from webhook payloads.
func SubscriptionFromMap(body map[string]interface{}) *Subscription {
	s := &Subscription{
		Id:           stringField(body, "id"),
		PlanId:       stringField(body, "plan_id"),
		Status:       stringField(body, "status"),
		CustomerId:   stringField(body, "customer_id"),
		ShortURL:     stringField(body, "short_url"),
		PaidCount:    int(int64Field(body, "paid_count")),
		CurrentStart: epochField(body, "current_start"),
		CurrentEnd:   epochField(body, "current_end"),
	}

	s.NextDueOn = epochField(body, "charge_at")
	if s.NextDueOn == nil {
		s.NextDueOn = s.CurrentEnd
	}

	if notes, ok := body["notes"].(map[string]interface{}); ok {
		s.Notes = make(map[string]string, len(notes))
		for k, v := range notes {
			if str, ok := v.(string); ok {
				s.Notes[k] = str
			}
		}
	}
	return s
}

func stringField(body map[string]interface{}, key string) string {
	if v, ok := body[key].(string); ok {
		return v
	}
	return ""
}

func int64Field(body map[string]interface{}, key string) int64 {
	switch v := body[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

func epochField(body map[string]interface{}, key string) *time.Time {
	secs := int64Field(body, key)
	if secs <= 0 {
		return nil
	}
	t := time.Unix(secs, 0).UTC()
	return &t
}
