package bootstrap

import (
	"context"
	"log"

	"gym-saas-be/internal/config"
	"gym-saas-be/internal/controller"
	"gym-saas-be/internal/pkg/logger"
	"gym-saas-be/internal/pkg/mailer"
	"gym-saas-be/internal/pkg/serverutils"
	"gym-saas-be/internal/repository/contract"
	"gym-saas-be/internal/repository/memory"
	"gym-saas-be/internal/repository/rediscache"
	"gym-saas-be/internal/repository/unitofwork"
	"gym-saas-be/internal/service"
	"gym-saas-be/pkg/events"
	"gym-saas-be/pkg/gateway"
	"gym-saas-be/pkg/subscription"

	pktNats "gym-saas-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController         controller.IAuthController
	SubscriptionController controller.ISubscriptionController
	WebhookController      controller.IWebhookController
	TrainerController      controller.ITrainerController

	// Middleware
	AccessGate fiber.Handler

	// Background Services (Exposed for main.go to run)
	CronService          service.ICronService
	NotificationConsumer service.INotificationConsumer
	AuditService         service.IAuditService

	Logger logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	return NewContainerWithFactory(unitofwork.NewRepositoryFactory(db), cfg)
}

// NewContainerWithFactory wires everything on top of an arbitrary repository
// factory. Tests pass the in-process one.
func NewContainerWithFactory(uowFactory unitofwork.RepositoryFactory, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	auditLogger := logger.NewIsolatedLogger(cfg.App.AuditLogFilePath)

	notifier := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	gatewayClient := gateway.NewRazorpayClient(gateway.Config{
		KeyID:     cfg.Gateway.KeyID,
		KeySecret: cfg.Gateway.KeySecret,
	})

	c := &Container{Logger: sysLogger}

	// 2. Event Bus
	// In-process bus decouples notification delivery from webhook responses.
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// NATS carries lifecycle events to the audit consumer.
	var eventPublisher events.Publisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		eventPublisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}

	var eventSubscriber service.EventSubscriber
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	} else {
		eventSubscriber = natsSub
		c.closers = append(c.closers, natsSub.Close)
	}

	// Redis
	var processedCache contract.ProcessedEventCache
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v (webhook dedupe uses the database only)", err)
		_ = rdb.Close()
	} else {
		processedCache = rediscache.NewProcessedEventCache(rdb, cfg.Subscription.ProcessedTTL)
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	statusCache := memory.NewStatusCache(cfg.Subscription.StatusCacheTTL)

	// 3. Services
	policy := subscription.Policy{
		TrialDays:      cfg.Subscription.TrialDays,
		GraceDays:      cfg.Subscription.GraceDays,
		TrialGraceDays: cfg.Subscription.TrialGraceDays,
	}
	lifecycleService := service.NewLifecycleService(uowFactory, policy, statusCache, eventPublisher, sysLogger)
	dispatcher := service.NewNotificationDispatcher(pubSub, service.NotificationTopic, sysLogger)

	reconciliationService := service.NewReconciliationService(
		uowFactory,
		lifecycleService,
		dispatcher,
		cfg.Gateway.PlanName,
		sysLogger,
	)
	webhookService := service.NewWebhookService(
		uowFactory,
		reconciliationService,
		processedCache,
		eventPublisher,
		cfg.Gateway.WebhookSecret,
		nil,
		sysLogger,
	)
	subscriptionService := service.NewSubscriptionService(
		uowFactory,
		lifecycleService,
		gatewayClient,
		dispatcher,
		service.SubscriptionSettings{
			KeyID:      cfg.Gateway.KeyID,
			KeySecret:  cfg.Gateway.KeySecret,
			PlanID:     cfg.Gateway.PlanID,
			PlanName:   cfg.Gateway.PlanName,
			TotalCount: cfg.Gateway.TotalCount,
		},
		nil,
		sysLogger,
	)
	authService := service.NewAuthService(uowFactory, lifecycleService, eventPublisher, nil, sysLogger)
	trainerService := service.NewTrainerService(uowFactory)

	c.CronService = service.NewCronService(
		uowFactory,
		lifecycleService,
		dispatcher,
		service.CronSettings{
			Interval:         cfg.Subscription.SweepInterval,
			TrialWarningDays: cfg.Subscription.WarningDays,
		},
		nil,
		sysLogger,
	)
	c.NotificationConsumer = service.NewNotificationConsumer(pubSub, service.NotificationTopic, notifier, sysLogger)
	c.AuditService = service.NewAuditService(eventSubscriber, auditLogger)

	// 4. Controllers
	c.AuthController = controller.NewAuthController(authService)
	c.SubscriptionController = controller.NewSubscriptionController(subscriptionService)
	c.WebhookController = controller.NewWebhookController(webhookService, cfg.App.OpsToken)
	c.TrainerController = controller.NewTrainerController(trainerService)

	c.AccessGate = serverutils.AccessGate(lifecycleService, nil)

	return c
}

// Close releases broker and cache connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
