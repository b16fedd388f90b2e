package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nexora/internal/models/db_models"
	"nexora/internal/repositories"
	"nexora/pkg/utils"
)

type opsTestDeps struct {
	ledger   *repositories.MemoryEventLedger
	accounts *mockAccountRepo
	payments *mockPaymentRepo
	subs     *mockSubRepo
	plans    *mockPlanRepo
}

func opsFixture() (OpsService, *opsTestDeps) {
	deps := &opsTestDeps{
		ledger:   repositories.NewMemoryEventLedger(),
		accounts: &mockAccountRepo{},
		payments: &mockPaymentRepo{},
		subs:     &mockSubRepo{},
		plans:    &mockPlanRepo{},
	}
	svc := NewOpsService(deps.ledger, nil, deps.accounts, deps.payments, deps.subs, deps.plans)
	return svc, deps
}

func TestListEventsValidatesPage(t *testing.T) {
	svc, _ := opsFixture()

	_, err := svc.ListEvents(context.Background(), 0, 50)
	assert.ErrorIs(t, err, utils.ErrInvalidPage)
}

func TestListEventsMapsLedgerRows(t *testing.T) {
	svc, deps := opsFixture()
	ctx := context.Background()

	require.NoError(t, deps.ledger.RecordReceived(ctx, "evt_1", "checkout.session.completed", nil))
	require.NoError(t, deps.ledger.MarkProcessed(ctx, "evt_1", db_models.EventStatusProcessed, []string{"payment_updated"}, 12, nil))

	entries, err := svc.ListEvents(ctx, 1, 50)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "evt_1", entries[0].EventID)
	assert.Equal(t, "processed", entries[0].Status)
	assert.Equal(t, []string{"payment_updated"}, entries[0].Actions)
	assert.Equal(t, int64(12), entries[0].ProcessingTimeMs)
	assert.NotEmpty(t, entries[0].ProcessedAt)
}

func TestGetEventNotFound(t *testing.T) {
	svc, _ := opsFixture()

	_, err := svc.GetEvent(context.Background(), "evt_missing")
	assert.ErrorIs(t, err, utils.ErrRecordNotFound)
}

func TestAccountBillingAssemblesSummary(t *testing.T) {
	svc, deps := opsFixture()
	accountID := uuid.New()

	deps.accounts.findByID = func(context.Context, uuid.UUID) (*db_models.Account, error) {
		account := &db_models.Account{Email: "u1@example.com", Plan: "pro"}
		account.ID = accountID
		return account, nil
	}
	deps.subs.findCurrentByAccount = func(context.Context, uuid.UUID) (*db_models.Subscription, error) {
		return &db_models.Subscription{
			Status:             db_models.SubStatusActive,
			Plan:               "pro",
			CurrentPeriodStart: 1700000000,
			CurrentPeriodEnd:   1702592000,
			BillingCycle:       db_models.CycleMonthly,
		}, nil
	}
	paidAt := int64(1700000100)
	deps.payments.listByAccount = func(context.Context, uuid.UUID) ([]db_models.Payment, error) {
		return []db_models.Payment{{
			ProviderPaymentID: "pi_1",
			AmountMinor:       1500,
			Currency:          "usd",
			Status:            db_models.PaymentStatusSucceeded,
			Plan:              "pro",
			Provider:          "stripe",
			PaidAt:            &paidAt,
		}}, nil
	}

	billing, err := svc.AccountBilling(context.Background(), accountID)
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", billing.Email)
	assert.Equal(t, "pro", billing.Plan)
	require.NotNil(t, billing.Subscription)
	assert.Equal(t, "active", billing.Subscription.Status)
	require.Len(t, billing.Payments, 1)
	assert.Equal(t, "pi_1", billing.Payments[0].ID)
	assert.Equal(t, int64(1500), billing.Payments[0].Amount)
	assert.NotEmpty(t, billing.Payments[0].PaidAt)
}

func TestListPlansMapsCatalog(t *testing.T) {
	svc, deps := opsFixture()
	deps.plans.getAllPlans = func(context.Context) ([]db_models.Plan, error) {
		return []db_models.Plan{
			{Code: "free", Name: "Free", Cycle: db_models.CycleMonthly, IsActive: true},
			{Code: "pro", Name: "Pro", Cycle: db_models.CycleMonthly, PriceMinor: 1500, Currency: "usd", Credits: 100, IsActive: true},
		}, nil
	}

	plans, err := svc.ListPlans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "pro", plans[1].Code)
	assert.Equal(t, int64(1500), plans[1].PriceMinor)
	assert.Equal(t, int32(100), plans[1].Credits)
}

func TestAccountBillingUnknownAccount(t *testing.T) {
	svc, _ := opsFixture()

	_, err := svc.AccountBilling(context.Background(), uuid.New())
	assert.ErrorIs(t, err, utils.ErrRecordNotFound)
}
