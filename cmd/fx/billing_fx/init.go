package billing_fx

import (
	"go.uber.org/fx"
	"gorm.io/gorm"
	"nexora/internal/repositories"
	"nexora/internal/services"
)

var Module = fx.Provide(
	provideAccountRepository,
	providePaymentRepository,
	provideSubscriptionRepository,
	providePlanRepository,
	provideBillingService,
)

func provideAccountRepository(db *gorm.DB) repositories.IAccountRepository {
	return repositories.NewAccountRepository(db)
}

func providePaymentRepository(db *gorm.DB) repositories.IPaymentRepository {
	return repositories.NewPaymentRepository(db)
}

func provideSubscriptionRepository(db *gorm.DB) repositories.ISubscriptionRepository {
	return repositories.NewSubscriptionRepository(db)
}

func providePlanRepository(db *gorm.DB) repositories.IPlanRepository {
	return repositories.NewPlanRepository(db)
}

func provideBillingService(
	accountRepo repositories.IAccountRepository,
	paymentRepo repositories.IPaymentRepository,
	subRepo repositories.ISubscriptionRepository,
	planRepo repositories.IPlanRepository,
) services.BillingService {
	return services.NewBillingService(accountRepo, paymentRepo, subRepo, planRepo)
}
