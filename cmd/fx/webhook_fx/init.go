package webhook_fx

import (
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"nexora/internal/api/controllers"
	"nexora/internal/repositories"
	"nexora/internal/services"
)

var Module = fx.Provide(
	provideWebhookConfig,
	provideVerifier,
	provideRateLimitStore,
	provideEventLedger,
	provideAnalyticsSink,
	provideProviderClient,
	provideWebhookHandlers,
	provideDispatcher,
	provideWebhookService,
	provideWebhookController,
)

func provideWebhookConfig() services.WebhookConfig {
	return services.WebhookConfig{
		Secret:          os.Getenv("STRIPE_WEBHOOK_SECRET"),
		FreshnessWindow: envDuration("WEBHOOK_FRESHNESS_WINDOW", 5*time.Minute),
		HandlerTimeout:  envDuration("HANDLER_TIMEOUT", 25*time.Second),
		Retry: services.RetryPolicy{
			MaxAttempts: envInt("DISPATCH_MAX_ATTEMPTS", 3),
			BaseDelay:   envDuration("DISPATCH_BACKOFF_BASE", time.Second),
			Multiplier:  1.5,
			MaxDelay:    envDuration("DISPATCH_BACKOFF_CAP", 10*time.Second),
		},
		RateLimitMax:    envInt("RATE_LIMIT_MAX", 100),
		RateLimitWindow: envDuration("RATE_LIMIT_WINDOW", time.Minute),
	}
}

func provideVerifier(cfg services.WebhookConfig) services.SignatureVerifier {
	return services.NewStripeVerifier(cfg.Secret, cfg.FreshnessWindow)
}

func provideRateLimitStore(cfg services.WebhookConfig, client *redis.Client) services.RateLimitStore {
	if client != nil {
		return services.NewRedisRateLimit(client, cfg.RateLimitMax, cfg.RateLimitWindow)
	}
	return services.NewMemoryRateLimit(cfg.RateLimitMax, cfg.RateLimitWindow)
}

func provideEventLedger(db *gorm.DB) repositories.IEventLedgerRepository {
	return repositories.NewEventLedgerRepository(db)
}

func provideAnalyticsSink() services.AnalyticsSink {
	return services.NewLogAnalyticsSink()
}

func provideProviderClient() services.ProviderClient {
	return services.NewStripeProviderClient(os.Getenv("STRIPE_SECRET_KEY"))
}

func provideWebhookHandlers(
	billing services.BillingService,
	accountRepo repositories.IAccountRepository,
	provider services.ProviderClient,
	analytics services.AnalyticsSink,
	notifier services.Notifier,
) *services.WebhookHandlers {
	return services.NewWebhookHandlers(billing, accountRepo, provider, analytics, notifier)
}

func provideDispatcher(cfg services.WebhookConfig, handlers *services.WebhookHandlers) services.EventDispatcher {
	dispatcher := services.NewEventDispatcher(cfg.Retry, cfg.HandlerTimeout)
	handlers.Register(dispatcher)
	return dispatcher
}

func provideWebhookService(
	verifier services.SignatureVerifier,
	ledger repositories.IEventLedgerRepository,
	dispatcher services.EventDispatcher,
	analytics services.AnalyticsSink,
) services.WebhookService {
	return services.NewWebhookService(verifier, ledger, dispatcher, analytics)
}

func provideWebhookController(webhookService services.WebhookService) *controllers.WebhookController {
	return controllers.NewWebhookController(webhookService)
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
