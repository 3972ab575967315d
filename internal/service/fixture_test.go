package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"gym-saas-be/internal/dto"
	"gym-saas-be/internal/entity"
	"gym-saas-be/internal/pkg/logger"
	"gym-saas-be/internal/repository/contract"
	"gym-saas-be/internal/repository/memory"
	"gym-saas-be/internal/repository/specification"
	"gym-saas-be/pkg/events"
	"gym-saas-be/pkg/gateway"
	"gym-saas-be/pkg/subscription"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test"

// MockGatewayClient is a mock implementation of gateway.Client
type MockGatewayClient struct {
	mock.Mock
}

func (m *MockGatewayClient) CreateSubscription(ctx context.Context, params gateway.CreateSubscriptionParams) (*gateway.Subscription, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Subscription), args.Error(1)
}

func (m *MockGatewayClient) FetchSubscription(ctx context.Context, subscriptionId string) (*gateway.Subscription, error) {
	args := m.Called(ctx, subscriptionId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Subscription), args.Error(1)
}

func (m *MockGatewayClient) CancelSubscription(ctx context.Context, subscriptionId string, cancelAtCycleEnd bool) (*gateway.Subscription, error) {
	args := m.Called(ctx, subscriptionId, cancelAtCycleEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Subscription), args.Error(1)
}

func (m *MockGatewayClient) FetchPlan(ctx context.Context, planId string) (*gateway.Plan, error) {
	args := m.Called(ctx, planId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Plan), args.Error(1)
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []dto.NotificationRequest
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, req dto.NotificationRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, req)
	return nil
}

func (d *recordingDispatcher) kinds() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.sent))
	for _, r := range d.sent {
		out = append(out, r.Kind)
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type memoryProcessedCache struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (c *memoryProcessedCache) IsProcessed(ctx context.Context, paymentId, event string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keys[paymentId+"|"+event], nil
}

func (c *memoryProcessedCache) MarkProcessed(ctx context.Context, paymentId, event string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keys == nil {
		c.keys = map[string]bool{}
	}
	c.keys[paymentId+"|"+event] = true
	return nil
}

type fixture struct {
	store      *memory.Store
	uow        *memory.RepositoryFactory
	cache      *memory.StatusCache
	dispatcher *recordingDispatcher
	publisher  *recordingPublisher
	log        logger.ILogger
	lifecycle  ILifecycleService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	f := &fixture{
		store:      store,
		uow:        memory.NewRepositoryFactory(store),
		cache:      memory.NewStatusCache(time.Minute),
		dispatcher: &recordingDispatcher{},
		publisher:  &recordingPublisher{},
		log:        logger.NewNopLogger(),
	}
	f.lifecycle = NewLifecycleService(f.uow, subscription.DefaultPolicy(), f.cache, f.publisher, f.log)
	return f
}

func (f *fixture) reconciler() IReconciliationService {
	return NewReconciliationService(f.uow, f.lifecycle, f.dispatcher, "monthly", f.log)
}

func (f *fixture) webhookService(now time.Time, cache *memoryProcessedCache) IWebhookService {
	var processed contract.ProcessedEventCache
	if cache != nil {
		processed = cache
	}
	return NewWebhookService(f.uow, f.reconciler(), processed, f.publisher, testWebhookSecret, func() time.Time { return now }, f.log)
}

// seedAdmin stores a tenant. mutate runs before the insert.
func (f *fixture) seedAdmin(t *testing.T, status entity.SubscriptionStatus, mutate func(a *entity.Admin)) *entity.Admin {
	t.Helper()
	admin := &entity.Admin{
		Id:                 uuid.New(),
		Email:              uuid.NewString() + "@gym.test",
		FullName:           "Gym Owner",
		GymName:            "Iron Temple",
		PasswordHash:       "x",
		SubscriptionStatus: status,
		TrialEndDate:       time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
	if mutate != nil {
		mutate(admin)
	}
	require.NoError(t, f.uow.NewUnitOfWork(context.Background()).AdminRepository().Create(context.Background(), admin))
	return admin
}

func (f *fixture) admin(t *testing.T, id uuid.UUID) *entity.Admin {
	t.Helper()
	a, err := f.uow.NewUnitOfWork(context.Background()).AdminRepository().FindOne(context.Background(), specification.ByID{ID: id})
	require.NoError(t, err)
	require.NotNil(t, a)
	return a
}

func (f *fixture) webhookEvents(t *testing.T) []*entity.WebhookEvent {
	t.Helper()
	rows, err := f.uow.NewUnitOfWork(context.Background()).WebhookEventRepository().FindAll(context.Background())
	require.NoError(t, err)
	return rows
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}

// signedBody marshals a webhook and signs it the way the gateway does.
func signedBody(t *testing.T, hook dto.GatewayWebhook) ([]byte, string) {
	t.Helper()
	body, err := json.Marshal(hook)
	require.NoError(t, err)
	return body, gateway.Sign(body, testWebhookSecret)
}

func paymentHook(event, adminId, paymentId string, amount int64) dto.GatewayWebhook {
	notes := dto.Notes{}
	if adminId != "" {
		notes["adminId"] = adminId
	}
	return dto.GatewayWebhook{
		Entity:   "event",
		Event:    event,
		Contains: []string{"payment"},
		Payload: dto.WebhookPayload{
			Payment: &dto.PaymentWrapper{Entity: dto.PaymentEntity{
				Id:       paymentId,
				Amount:   amount,
				Currency: "INR",
				Status:   "captured",
				Method:   "upi",
				Notes:    notes,
			}},
		},
	}
}

func subscriptionHook(event, subscriptionId string, currentEnd time.Time, paidCount int) dto.GatewayWebhook {
	return dto.GatewayWebhook{
		Entity:   "event",
		Event:    event,
		Contains: []string{"subscription"},
		Payload: dto.WebhookPayload{
			Subscription: &dto.SubscriptionWrapper{Entity: dto.SubscriptionEntity{
				Id:         subscriptionId,
				PlanId:     "plan_monthly",
				Status:     "active",
				CurrentEnd: currentEnd.Unix(),
				PaidCount:  paidCount,
				Notes:      dto.Notes{},
			}},
		},
	}
}
