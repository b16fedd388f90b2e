package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"nexora/internal/models/db_models"
	"nexora/internal/repositories"
	"nexora/pkg/utils"
)

const FreePlan = "free"

// BillingService is the authoritative mutator of payment and subscription
// state. Every status change goes through the transition tables on the
// status enums; illegal transitions are logged and left unapplied so
// out-of-order deliveries cannot corrupt final state.
type BillingService interface {
	// ResolveAccount locates the account a webhook refers to, by user id
	// from payload metadata first, then by customer email.
	ResolveAccount(ctx context.Context, userID, email string) (*db_models.Account, error)

	// RecordPayment upserts a payment keyed by its provider payment ID.
	// Returns false when the implied status change is illegal.
	RecordPayment(ctx context.Context, payment *db_models.Payment) (bool, error)

	// TransitionPayment moves an existing payment to next. The payment may
	// be nil when no row matches (non-fatal for the caller).
	TransitionPayment(ctx context.Context, providerPaymentID string, next db_models.PaymentStatus) (*db_models.Payment, bool, error)

	// SyncSubscription upserts the account's subscription from full provider
	// state. Returns false when the status change is illegal.
	SyncSubscription(ctx context.Context, incoming *db_models.Subscription) (bool, error)

	// ApplySubscriptionUpdate patches an existing subscription found by the
	// provider's subscription ID. A missing row is non-fatal: the update may
	// have raced ahead of the created event.
	ApplySubscriptionUpdate(ctx context.Context, providerSubID string, update *db_models.Subscription) (*db_models.Subscription, bool, error)

	CancelSubscription(ctx context.Context, providerSubID string) (*db_models.Subscription, bool, error)

	// SettleInvoice marks the matching subscription active and records the
	// payment time; FailInvoice moves it to past_due.
	SettleInvoice(ctx context.Context, providerCustomerID, providerSubID string, paidAt int64) (*db_models.Subscription, bool, error)
	FailInvoice(ctx context.Context, providerCustomerID, providerSubID string) (*db_models.Subscription, bool, error)

	UpdateEntitlement(ctx context.Context, accountID uuid.UUID, plan string) error

	// ResolvePlan maps payload metadata or a provider price ID to a local
	// plan code, defaulting to the free tier.
	ResolvePlan(ctx context.Context, metadataPlan, providerPriceID string) string
}

type billingService struct {
	accountRepo repositories.IAccountRepository
	paymentRepo repositories.IPaymentRepository
	subRepo     repositories.ISubscriptionRepository
	planRepo    repositories.IPlanRepository
}

func NewBillingService(
	accountRepo repositories.IAccountRepository,
	paymentRepo repositories.IPaymentRepository,
	subRepo repositories.ISubscriptionRepository,
	planRepo repositories.IPlanRepository,
) BillingService {
	return &billingService{
		accountRepo: accountRepo,
		paymentRepo: paymentRepo,
		subRepo:     subRepo,
		planRepo:    planRepo,
	}
}

func (b *billingService) ResolveAccount(ctx context.Context, userID, email string) (*db_models.Account, error) {
	if userID != "" {
		id, err := uuid.Parse(userID)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed user id %q", utils.ErrHandlerValidation, userID)
		}
		account, err := b.accountRepo.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("find account by id: %w", err)
		}
		if account != nil {
			return account, nil
		}
	}

	if email != "" {
		account, err := b.accountRepo.FindByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("find account by email: %w", err)
		}
		if account != nil {
			return account, nil
		}
	}

	return nil, fmt.Errorf("%w: no account for user id %q or email %q", utils.ErrHandlerValidation, userID, email)
}

func (b *billingService) RecordPayment(ctx context.Context, payment *db_models.Payment) (bool, error) {
	existing, err := b.paymentRepo.FindByProviderPaymentID(ctx, payment.ProviderPaymentID)
	if err != nil {
		return false, err
	}
	if existing != nil && !existing.Status.CanTransitionTo(payment.Status) {
		log.Printf("billing: rejecting payment %s transition %s -> %s",
			payment.ProviderPaymentID, existing.Status, payment.Status)
		return false, nil
	}

	if err := b.paymentRepo.UpsertByProviderPaymentID(ctx, payment); err != nil {
		return false, err
	}
	return true, nil
}

func (b *billingService) TransitionPayment(ctx context.Context, providerPaymentID string, next db_models.PaymentStatus) (*db_models.Payment, bool, error) {
	payment, err := b.paymentRepo.FindByProviderPaymentID(ctx, providerPaymentID)
	if err != nil {
		return nil, false, err
	}
	if payment == nil {
		return nil, false, nil
	}
	if !payment.Status.CanTransitionTo(next) {
		log.Printf("billing: rejecting payment %s transition %s -> %s", providerPaymentID, payment.Status, next)
		return payment, false, nil
	}
	if payment.Status == next {
		return payment, true, nil
	}

	payment.Status = next
	now := utils.NowUnixSeconds()
	switch next {
	case db_models.PaymentStatusSucceeded:
		payment.PaidAt = &now
	case db_models.PaymentStatusRefunded:
		payment.RefundedAt = &now
	}
	if err := b.paymentRepo.Save(ctx, payment); err != nil {
		return nil, false, err
	}
	return payment, true, nil
}

func (b *billingService) SyncSubscription(ctx context.Context, incoming *db_models.Subscription) (bool, error) {
	current, err := b.subRepo.FindCurrentByAccount(ctx, incoming.AccountID)
	if err != nil {
		return false, err
	}
	if current != nil && !current.Status.CanTransitionTo(incoming.Status) {
		log.Printf("billing: rejecting subscription %s transition %s -> %s",
			incoming.ProviderSubID, current.Status, incoming.Status)
		return false, nil
	}

	if err := b.subRepo.UpsertByAccount(ctx, incoming); err != nil {
		return false, err
	}

	if incoming.Status == db_models.SubStatusActive || incoming.Status == db_models.SubStatusTrialing {
		if err := b.UpdateEntitlement(ctx, incoming.AccountID, incoming.Plan); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (b *billingService) ApplySubscriptionUpdate(ctx context.Context, providerSubID string, update *db_models.Subscription) (*db_models.Subscription, bool, error) {
	sub, err := b.subRepo.FindByProviderSubID(ctx, providerSubID)
	if err != nil {
		return nil, false, err
	}
	if sub == nil {
		return nil, false, nil
	}
	if !sub.Status.CanTransitionTo(update.Status) {
		log.Printf("billing: rejecting subscription %s transition %s -> %s", providerSubID, sub.Status, update.Status)
		return sub, false, nil
	}

	sub.Status = update.Status
	sub.Plan = update.Plan
	sub.CurrentPeriodStart = update.CurrentPeriodStart
	sub.CurrentPeriodEnd = update.CurrentPeriodEnd
	sub.CancelAtPeriodEnd = update.CancelAtPeriodEnd
	sub.BillingCycle = update.BillingCycle
	if update.TrialEndsAt != nil {
		sub.TrialEndsAt = update.TrialEndsAt
	}

	if err := b.subRepo.Save(ctx, sub); err != nil {
		return nil, false, err
	}

	if sub.Status == db_models.SubStatusActive || sub.Status == db_models.SubStatusTrialing {
		if err := b.UpdateEntitlement(ctx, sub.AccountID, sub.Plan); err != nil {
			return sub, true, err
		}
	}
	return sub, true, nil
}

func (b *billingService) CancelSubscription(ctx context.Context, providerSubID string) (*db_models.Subscription, bool, error) {
	sub, err := b.subRepo.FindByProviderSubID(ctx, providerSubID)
	if err != nil {
		return nil, false, err
	}
	if sub == nil {
		return nil, false, nil
	}
	if !sub.Status.CanTransitionTo(db_models.SubStatusCanceled) {
		log.Printf("billing: rejecting subscription %s transition %s -> canceled", providerSubID, sub.Status)
		return sub, false, nil
	}

	if sub.Status != db_models.SubStatusCanceled {
		sub.Status = db_models.SubStatusCanceled
		now := utils.NowUnixSeconds()
		sub.CanceledAt = &now
		if err := b.subRepo.Save(ctx, sub); err != nil {
			return nil, false, err
		}
	}

	// Losing the subscription drops the account back to the free tier.
	if err := b.UpdateEntitlement(ctx, sub.AccountID, FreePlan); err != nil {
		return sub, true, err
	}
	return sub, true, nil
}

func (b *billingService) findSubscription(ctx context.Context, providerCustomerID, providerSubID string) (*db_models.Subscription, error) {
	if providerSubID != "" {
		sub, err := b.subRepo.FindByProviderSubID(ctx, providerSubID)
		if err != nil || sub != nil {
			return sub, err
		}
	}
	if providerCustomerID != "" {
		return b.subRepo.FindByProviderCustomerID(ctx, providerCustomerID)
	}
	return nil, nil
}

func (b *billingService) SettleInvoice(ctx context.Context, providerCustomerID, providerSubID string, paidAt int64) (*db_models.Subscription, bool, error) {
	sub, err := b.findSubscription(ctx, providerCustomerID, providerSubID)
	if err != nil {
		return nil, false, err
	}
	if sub == nil {
		return nil, false, nil
	}
	if !sub.Status.CanTransitionTo(db_models.SubStatusActive) {
		log.Printf("billing: rejecting subscription %s transition %s -> active", sub.ProviderSubID, sub.Status)
		return sub, false, nil
	}

	sub.Status = db_models.SubStatusActive
	sub.LastPaymentAt = &paidAt
	if err := b.subRepo.Save(ctx, sub); err != nil {
		return nil, false, err
	}
	if err := b.UpdateEntitlement(ctx, sub.AccountID, sub.Plan); err != nil {
		return sub, true, err
	}
	return sub, true, nil
}

func (b *billingService) FailInvoice(ctx context.Context, providerCustomerID, providerSubID string) (*db_models.Subscription, bool, error) {
	sub, err := b.findSubscription(ctx, providerCustomerID, providerSubID)
	if err != nil {
		return nil, false, err
	}
	if sub == nil {
		return nil, false, nil
	}
	if !sub.Status.CanTransitionTo(db_models.SubStatusPastDue) {
		log.Printf("billing: rejecting subscription %s transition %s -> past_due", sub.ProviderSubID, sub.Status)
		return sub, false, nil
	}

	sub.Status = db_models.SubStatusPastDue
	if err := b.subRepo.Save(ctx, sub); err != nil {
		return nil, false, err
	}
	return sub, true, nil
}

func (b *billingService) UpdateEntitlement(ctx context.Context, accountID uuid.UUID, plan string) error {
	if plan == "" {
		plan = FreePlan
	}
	return b.accountRepo.UpdatePlan(ctx, accountID, plan)
}

func (b *billingService) ResolvePlan(ctx context.Context, metadataPlan, providerPriceID string) string {
	if metadataPlan != "" {
		return metadataPlan
	}
	if providerPriceID != "" {
		plan, err := b.planRepo.GetPlanByProviderPriceID(ctx, providerPriceID)
		if err != nil {
			log.Printf("billing: plan lookup for price %s failed: %v", providerPriceID, err)
		} else if plan != nil {
			return plan.Code
		}
	}
	return FreePlan
}
