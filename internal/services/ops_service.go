package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"nexora/internal/models/db_models"
	"nexora/internal/models/response_models"
	"nexora/internal/repositories"
	"nexora/pkg/utils"
)

// OpsService backs the admin API: ledger inspection, failed-event replay,
// and per-account billing lookups.
type OpsService interface {
	ListEvents(ctx context.Context, page, pageSize int) ([]response_models.LedgerEntry, error)
	GetEvent(ctx context.Context, eventID string) (*response_models.LedgerEntry, error)
	ReplayEvent(ctx context.Context, eventID string) (*response_models.WebhookResult, error)
	AccountBilling(ctx context.Context, accountID uuid.UUID) (*response_models.AccountBilling, error)
	ListPlans(ctx context.Context) ([]response_models.PlanInfo, error)
}

type opsService struct {
	ledger      repositories.IEventLedgerRepository
	webhooks    WebhookService
	accountRepo repositories.IAccountRepository
	paymentRepo repositories.IPaymentRepository
	subRepo     repositories.ISubscriptionRepository
	planRepo    repositories.IPlanRepository
}

func NewOpsService(
	ledger repositories.IEventLedgerRepository,
	webhooks WebhookService,
	accountRepo repositories.IAccountRepository,
	paymentRepo repositories.IPaymentRepository,
	subRepo repositories.ISubscriptionRepository,
	planRepo repositories.IPlanRepository,
) OpsService {
	return &opsService{
		ledger:      ledger,
		webhooks:    webhooks,
		accountRepo: accountRepo,
		paymentRepo: paymentRepo,
		subRepo:     subRepo,
		planRepo:    planRepo,
	}
}

func (o *opsService) ListEvents(ctx context.Context, page, pageSize int) ([]response_models.LedgerEntry, error) {
	if page < 1 {
		return nil, utils.ErrInvalidPage
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	rows, err := o.ledger.ListRecent(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}

	entries := make([]response_models.LedgerEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, toLedgerEntry(&rows[i]))
	}
	return entries, nil
}

func (o *opsService) GetEvent(ctx context.Context, eventID string) (*response_models.LedgerEntry, error) {
	row, err := o.ledger.FindByEventID(ctx, eventID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if row == nil {
		return nil, utils.ErrRecordNotFound
	}
	entry := toLedgerEntry(row)
	return &entry, nil
}

func (o *opsService) ReplayEvent(ctx context.Context, eventID string) (*response_models.WebhookResult, error) {
	return o.webhooks.ReplayEvent(ctx, eventID)
}

func (o *opsService) AccountBilling(ctx context.Context, accountID uuid.UUID) (*response_models.AccountBilling, error) {
	account, err := o.accountRepo.FindByID(ctx, accountID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	if account == nil {
		return nil, utils.ErrRecordNotFound
	}

	result := &response_models.AccountBilling{
		AccountID: account.ID.String(),
		Email:     account.Email,
		Plan:      account.Plan,
		Payments:  []response_models.PaymentSummary{},
	}

	if sub, err := o.subRepo.FindCurrentByAccount(ctx, accountID); err == nil && sub != nil {
		result.Subscription = &response_models.SubscriptionSummary{
			Status:             string(sub.Status),
			Plan:               sub.Plan,
			CurrentPeriodStart: utils.FormatRFC3339(utils.FromUnixSeconds(sub.CurrentPeriodStart)),
			CurrentPeriodEnd:   utils.FormatRFC3339(utils.FromUnixSeconds(sub.CurrentPeriodEnd)),
			CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
			BillingCycle:       string(sub.BillingCycle),
		}
	}

	payments, err := o.paymentRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}
	for i := range payments {
		p := &payments[i]
		summary := response_models.PaymentSummary{
			ID:       p.ProviderPaymentID,
			Amount:   p.AmountMinor,
			Currency: p.Currency,
			Status:   string(p.Status),
			Plan:     p.Plan,
			Provider: p.Provider,
		}
		if p.PaidAt != nil {
			summary.PaidAt = utils.FormatRFC3339(utils.FromUnixSeconds(*p.PaidAt))
		}
		result.Payments = append(result.Payments, summary)
	}
	return result, nil
}

func (o *opsService) ListPlans(ctx context.Context) ([]response_models.PlanInfo, error) {
	plans, err := o.planRepo.GetAllPlans(ctx)
	if err != nil {
		return nil, utils.ErrDatabaseError
	}

	infos := make([]response_models.PlanInfo, 0, len(plans))
	for i := range plans {
		p := &plans[i]
		infos = append(infos, response_models.PlanInfo{
			Code:       p.Code,
			Name:       p.Name,
			Cycle:      string(p.Cycle),
			PriceMinor: p.PriceMinor,
			Currency:   p.Currency,
			Credits:    p.Credits,
			IsActive:   p.IsActive,
		})
	}
	return infos, nil
}

func toLedgerEntry(row *db_models.ProcessedEvent) response_models.LedgerEntry {
	entry := response_models.LedgerEntry{
		EventID:          row.EventID,
		EventType:        row.EventType,
		Status:           string(row.Status),
		Attempts:         row.Attempts,
		Actions:          []string{},
		ProcessingTimeMs: row.ProcessingTimeMs,
		Error:            row.Error,
		ReceivedAt:       utils.FormatRFC3339(utils.FromUnixSeconds(row.CreatedAt)),
	}
	if len(row.Actions) > 0 {
		_ = json.Unmarshal(row.Actions, &entry.Actions)
	}
	if row.ProcessedAt != nil {
		entry.ProcessedAt = utils.FormatRFC3339(utils.FromUnixSeconds(*row.ProcessedAt))
	}
	return entry
}
