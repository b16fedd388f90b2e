package ops_fx

import (
	"go.uber.org/fx"
	"nexora/internal/api/controllers"
	"nexora/internal/repositories"
	"nexora/internal/services"
)

var Module = fx.Provide(
	provideOpsService,
	provideOpsController,
)

func provideOpsService(
	ledger repositories.IEventLedgerRepository,
	webhooks services.WebhookService,
	accountRepo repositories.IAccountRepository,
	paymentRepo repositories.IPaymentRepository,
	subRepo repositories.ISubscriptionRepository,
	planRepo repositories.IPlanRepository,
) services.OpsService {
	return services.NewOpsService(ledger, webhooks, accountRepo, paymentRepo, subRepo, planRepo)
}

func provideOpsController(opsService services.OpsService) *controllers.OpsController {
	return controllers.NewOpsController(opsService)
}
