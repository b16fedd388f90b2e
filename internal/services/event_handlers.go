package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"nexora/internal/models/db_models"
	"nexora/internal/repositories"
	"nexora/pkg/utils"
)

const providerStripe = "stripe"

// WebhookHandlers holds the per-event-type handlers. Each handler maps one
// provider event to domain state transitions and returns the ordered list of
// side effects it performed.
type WebhookHandlers struct {
	billing     BillingService
	accountRepo repositories.IAccountRepository
	provider    ProviderClient
	analytics   AnalyticsSink
	notifier    Notifier
}

func NewWebhookHandlers(
	billing BillingService,
	accountRepo repositories.IAccountRepository,
	provider ProviderClient,
	analytics AnalyticsSink,
	notifier Notifier,
) *WebhookHandlers {
	return &WebhookHandlers{
		billing:     billing,
		accountRepo: accountRepo,
		provider:    provider,
		analytics:   analytics,
		notifier:    notifier,
	}
}

// Register wires every handled event type into the dispatcher. Adding a new
// event type means adding a method and a line here.
func (h *WebhookHandlers) Register(d EventDispatcher) {
	d.Register(stripe.EventTypeCheckoutSessionCompleted, h.HandleCheckoutCompleted)
	d.Register(stripe.EventTypeCustomerSubscriptionCreated, h.HandleSubscriptionCreated)
	d.Register(stripe.EventTypeCustomerSubscriptionUpdated, h.HandleSubscriptionUpdated)
	d.Register(stripe.EventTypeCustomerSubscriptionDeleted, h.HandleSubscriptionDeleted)
	d.Register(stripe.EventTypeCustomerSubscriptionTrialWillEnd, h.HandleTrialWillEnd)
	d.Register(stripe.EventTypeInvoicePaymentSucceeded, h.HandleInvoicePaymentSucceeded)
	d.Register(stripe.EventTypeInvoicePaymentFailed, h.HandleInvoicePaymentFailed)
	d.Register(stripe.EventTypePaymentIntentSucceeded, h.HandlePaymentIntentSucceeded)
	d.Register(stripe.EventTypePaymentIntentPaymentFailed, h.HandlePaymentIntentFailed)
	d.Register(stripe.EventTypePaymentIntentCanceled, h.HandlePaymentIntentCanceled)
	d.Register(stripe.EventTypeChargeRefunded, h.HandleChargeRefunded)
	d.Register(stripe.EventTypeChargeDisputeCreated, h.HandleDisputeCreated)
}

func parsePayload(event *stripe.Event, v interface{}) error {
	if err := json.Unmarshal(event.Data.Raw, v); err != nil {
		return fmt.Errorf("%w: parse %s payload: %v", utils.ErrHandlerValidation, event.Type, err)
	}
	return nil
}

func (h *WebhookHandlers) HandleCheckoutCompleted(ctx context.Context, event *stripe.Event) (*HandlerResult, error) {
	var session stripe.CheckoutSession
	if err := parsePayload(event, &session); err != nil {
		return nil, err
	}

	userID := session.Metadata["userId"]
	if userID == "" {
		userID = session.ClientReferenceID
	}
	email := session.CustomerEmail
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		email = session.CustomerDetails.Email
	}
	if userID == "" && email == "" {
		return nil, fmt.Errorf("%w: checkout session %s carries no user id or email", utils.ErrHandlerValidation, session.ID)
	}

	account, err := h.billing.ResolveAccount(ctx, userID, email)
	if err != nil {
		return nil, err
	}

	plan := h.billing.ResolvePlan(ctx, session.Metadata["plan"], "")
	actions := make([]string, 0, 4)

	providerPaymentID := session.ID
	if session.PaymentIntent != nil {
		providerPaymentID = session.PaymentIntent.ID
	}
	customerID := ""
	if session.Customer != nil {
		customerID = session.Customer.ID
	}

	now := utils.NowUnixSeconds()
	payment := &db_models.Payment{
		AccountID:          account.ID,
		AmountMinor:        session.AmountTotal,
		Currency:           string(session.Currency),
		Status:             db_models.PaymentStatusSucceeded,
		Plan:               plan,
		BillingCycle:       billingCycleFromMetadata(session.Metadata),
		Provider:           providerStripe,
		ProviderPaymentID:  providerPaymentID,
		ProviderCustomerID: customerID,
		PaidAt:             &now,
	}
	applied, err := h.billing.RecordPayment(ctx, payment)
	if err != nil {
		return nil, err
	}
	if applied {
		actions = append(actions, "payment_updated")
	}

	if customerID != "" {
		if err := h.accountRepo.UpdateProviderCustomer(ctx, account.ID, providerStripe, customerID); err != nil {
			return nil, err
		}
		actions = append(actions, "customer_linked")
	}

	// Subscription checkouts carry only the subscription ID; fetch the full
	// object and run it through the same sync path subscription.created uses.
	if session.Subscription != nil && session.Subscription.ID != "" {
		full, err := h.provider.GetSubscription(ctx, session.Subscription.ID)
		if err != nil {
			return nil, fmt.Errorf("fetch subscription %s: %w", session.Subscription.ID, err)
		}
		sub := h.subscriptionFromProvider(ctx, account.ID, full)
		if _, err := h.billing.SyncSubscription(ctx, sub); err != nil {
			return nil, err
		}
		actions = append(actions, "subscription_synced")
	}

	if err := h.billing.UpdateEntitlement(ctx, account.ID, plan); err != nil {
		return nil, err
	}
	actions = append(actions, "plan_entitlement_updated")

	h.analytics.Track(ctx, "checkout_completed", map[string]interface{}{
		"account_id": account.ID.String(),
		"amount":     session.AmountTotal,
		"currency":   string(session.Currency),
		"plan":       plan,
	})

	return &HandlerResult{Actions: actions}, nil
}

func (h *WebhookHandlers) HandleSubscriptionCreated(ctx context.Context, event *stripe.Event) (*HandlerResult, error) {
	var sub stripe.Subscription
	if err := parsePayload(event, &sub); err != nil {
		return nil, err
	}

	account, err := h.resolveSubscriptionAccount(ctx, &sub)
	if err != nil {
		return nil, err
	}

	incoming := h.subscriptionFromProvider(ctx, account.ID, &sub)
	applied, err := h.billing.SyncSubscription(ctx, incoming)
	if err != nil {
		return nil, err
	}

	actions := []string{"subscription_synced"}
	if applied {
		actions = append(actions, "plan_entitlement_updated")
	}
	h.analytics.Track(ctx, "subscription_created", map[string]interface{}{
		"account_id":      account.ID.String(),
		"subscription_id": sub.ID,
		"plan":            incoming.Plan,
	})
	return &HandlerResult{Actions: actions}, nil
}

func (h *WebhookHandlers) HandleSubscriptionUpdated(ctx context.Context, event *stripe.Event) (*HandlerResult, error) {
	var sub stripe.Subscription
	if err := parsePayload(event, &sub); err != nil {
		return nil, err
	}

	update := h.subscriptionFromProvider(ctx, uuid.Nil, &sub)
	existing, applied, err := h.billing.ApplySubscriptionUpdate(ctx, sub.ID, update)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		// The created event may not be durably committed yet; the next
		// update or the created event itself will converge the row.
		log.Printf("webhook: subscription %s not found for update, ignoring", sub.ID)
		return &HandlerResult{Actions: []string{"subscription_not_found_ignored"}}, nil
	}

	actions := []string{"subscription_updated"}
	if !applied {
		actions = []string{"transition_rejected"}
	}
	return &HandlerResult{Actions: actions}, nil
}

func (h *WebhookHandlers) HandleSubscriptionDeleted(ctx context.Context, event *stripe.Event) (*HandlerResult, error) {
	var sub stripe.Subscription
	if err := parsePayload(event, &sub); err != nil {
		return nil, err
	}

	existing, applied, err := h.billing.CancelSubscription(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		log.Printf("webhook: subscription %s not found for delete, ignoring", sub.ID)
		return &HandlerResult{Actions: []string{"subscription_not_found_ignored"}}, nil
	}

	actions := []string{"subscription_canceled", "plan_entitlement_downgraded"}
	if !applied {
		actions = []string{"transition_rejected"}
	}
	return &HandlerResult{Actions: actions}, nil
}

func (h *WebhookHandlers) HandleTrialWillEnd(ctx context.Context, event *stripe.Event) (*HandlerResult, error) {
	var sub stripe.Subscription
	if err := parsePayload(event, &sub); err != nil {
		return nil, err
	}

	account, err := h.resolveSubscriptionAccount(ctx, &sub)
	if err != nil {
		return nil, err
	}

	// Best-effort notification only; no state transition.
	if err := h.notifier.NotifyTrialEnding(ctx, account.Email, account.Name, utils.FromUnixSeconds(sub.TrialEnd)); err != nil {
		log.Printf("webhook: trial-ending notification for %s failed: %v", account.Email, err)
	}
	return &HandlerResult{Actions: []string{"trial_ending_notified"}}, nil
}

func (h *WebhookHandlers) HandleInvoicePaymentSucceeded(ctx context.Context, event *stripe.Event) (*HandlerResult, error) {
	var invoice stripe.Invoice
	if err := parsePayload(event, &invoice); err != nil {
		return nil, err
	}

	customerID, subID := invoiceRefs(&invoice)
	sub, applied, err := h.billing.SettleInvoice(ctx, customerID, subID, utils.NowUnixSeconds())
	if err != nil {
		return nil, err
	}
	if sub == nil {
		log.Printf("webhook: no subscription for invoice %s (customer %s), ignoring", invoice.ID, customerID)
		return &HandlerResult{Actions: []string{"subscription_not_found_ignored"}}, nil
	}

	actions := []string{"subscription_activated"}
	if !applied {
		actions = []string{"transition_rejected"}
	}

	h.analytics.Track(ctx, "revenue", map[string]interface{}{
		"account_id": sub.AccountID.String(),
		"invoice_id": invoice.ID,
		"amount":     invoice.AmountPaid,
		"currency":   string(invoice.Currency),
		"plan":       sub.Plan,
	})
	return &HandlerResult{Actions: append(actions, "revenue_tracked")}, nil
}

func (h *WebhookHandlers) HandleInvoicePaymentFailed(ctx context.Context, event *stripe.Event) (*HandlerResult, error) {
	var invoice stripe.Invoice
	if err := parsePayload(event, &invoice); err != nil {
		return nil, err
	}

	customerID, subID := invoiceRefs(&invoice)
	sub, applied, err := h.billing.FailInvoice(ctx, customerID, subID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		log.Printf("webhook: no subscription for failed invoice %s (customer %s), ignoring", invoice.ID, customerID)
		return &HandlerResult{Actions: []string{"subscription_not_found_ignored"}}, nil
	}

	actions := []string{"subscription_past_due"}
	if !applied {
		actions = []string{"transition_rejected"}
	}

	if account, lookupErr := h.accountRepo.FindByID(ctx, sub.AccountID); lookupErr == nil && account != nil {
		if err := h.notifier.NotifyPaymentFailed(ctx, account.Email, account.Name, sub.Plan); err != nil {
			log.Printf("webhook: payment-failed notification for %s failed: %v", account.Email, err)
		} else {
			actions = append(actions, "customer_notified")
		}
	}
	return &HandlerResult{Actions: actions}, nil
}

func (h *WebhookHandlers) HandlePaymentIntentSucceeded(ctx context.Context, event *stripe.Event) (*HandlerResult, error) {
	var intent stripe.PaymentIntent
	if err := parsePayload(event, &intent); err != nil {
		return nil, err
	}

	payment, applied, err := h.billing.TransitionPayment(ctx, intent.ID, db_models.PaymentStatusSucceeded)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		// One-off intents without a prior checkout row: record it fresh.
		return h.recordIntentPayment(ctx, &intent)
	}
	if !applied {
		return &HandlerResult{Actions: []string{"transition_rejected"}}, nil
	}

	if err := h.billing.UpdateEntitlement(ctx, payment.AccountID, payment.Plan); err != nil {
		return nil, err
	}
	h.analytics.Track(ctx, "payment_succeeded", map[string]interface{}{
		"account_id": payment.AccountID.String(),
		"amount":     payment.AmountMinor,
		"plan":       payment.Plan,
	})
	return &HandlerResult{Actions: []string{"payment_updated", "plan_entitlement_updated"}}, nil
}

func (h *WebhookHandlers) recordIntentPayment(ctx context.Context, intent *stripe.PaymentIntent) (*HandlerResult, error) {
	userID := intent.Metadata["userId"]
	if userID == "" {
		return nil, fmt.Errorf("%w: payment intent %s has no matching payment and no userId metadata", utils.ErrHandlerValidation, intent.ID)
	}
	account, err := h.billing.ResolveAccount(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	plan := h.billing.ResolvePlan(ctx, intent.Metadata["plan"], "")
	customerID := ""
	if intent.Customer != nil {
		customerID = intent.Customer.ID
	}
	now := utils.NowUnixSeconds()
	payment := &db_models.Payment{
		AccountID:          account.ID,
		AmountMinor:        intent.Amount,
		Currency:           string(intent.Currency),
		Status:             db_models.PaymentStatusSucceeded,
		Plan:               plan,
		BillingCycle:       db_models.CycleOneTime,
		Provider:           providerStripe,
		ProviderPaymentID:  intent.ID,
		ProviderCustomerID: customerID,
		PaidAt:             &now,
	}
	if _, err := h.billing.RecordPayment(ctx, payment); err != nil {
		return nil, err
	}
	if err := h.billing.UpdateEntitlement(ctx, account.ID, plan); err != nil {
		return nil, err
	}
	return &HandlerResult{Actions: []string{"payment_updated", "plan_entitlement_updated"}}, nil
}

func (h *WebhookHandlers) HandlePaymentIntentFailed(ctx context.Context, event *stripe.Event) (*HandlerResult, error) {
	return h.transitionIntent(ctx, event, db_models.PaymentStatusFailed)
}

func (h *WebhookHandlers) HandlePaymentIntentCanceled(ctx context.Context, event *stripe.Event) (*HandlerResult, error) {
	return h.transitionIntent(ctx, event, db_models.PaymentStatusCanceled)
}

func (h *WebhookHandlers) transitionIntent(ctx context.Context, event *stripe.Event, next db_models.PaymentStatus) (*HandlerResult, error) {
	var intent stripe.PaymentIntent
	if err := parsePayload(event, &intent); err != nil {
		return nil, err
	}

	payment, applied, err := h.billing.TransitionPayment(ctx, intent.ID, next)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		log.Printf("webhook: no payment for intent %s, ignoring", intent.ID)
		return &HandlerResult{Actions: []string{"payment_not_found_ignored"}}, nil
	}
	if !applied {
		return &HandlerResult{Actions: []string{"transition_rejected"}}, nil
	}
	return &HandlerResult{Actions: []string{"payment_updated"}}, nil
}

func (h *WebhookHandlers) HandleChargeRefunded(ctx context.Context, event *stripe.Event) (*HandlerResult, error) {
	var charge stripe.Charge
	if err := parsePayload(event, &charge); err != nil {
		return nil, err
	}
	if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
		log.Printf("webhook: refunded charge %s has no payment intent, ignoring", charge.ID)
		return &HandlerResult{Actions: []string{"payment_not_found_ignored"}}, nil
	}

	payment, applied, err := h.billing.TransitionPayment(ctx, charge.PaymentIntent.ID, db_models.PaymentStatusRefunded)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		log.Printf("webhook: no payment for refunded charge %s, ignoring", charge.ID)
		return &HandlerResult{Actions: []string{"payment_not_found_ignored"}}, nil
	}
	if !applied {
		return &HandlerResult{Actions: []string{"transition_rejected"}}, nil
	}

	h.analytics.Track(ctx, "payment_refunded", map[string]interface{}{
		"account_id": payment.AccountID.String(),
		"amount":     charge.AmountRefunded,
	})
	return &HandlerResult{Actions: []string{"payment_updated", "refund_tracked"}}, nil
}

func (h *WebhookHandlers) HandleDisputeCreated(ctx context.Context, event *stripe.Event) (*HandlerResult, error) {
	var dispute stripe.Dispute
	if err := parsePayload(event, &dispute); err != nil {
		return nil, err
	}

	chargeID := ""
	if dispute.Charge != nil {
		chargeID = dispute.Charge.ID
	}
	// No automated state transition: disputes go to manual review.
	log.Printf("webhook: dispute %s opened on charge %s (%s), flagging for review", dispute.ID, chargeID, dispute.Reason)
	h.analytics.Track(ctx, "dispute_created", map[string]interface{}{
		"dispute_id": dispute.ID,
		"charge_id":  chargeID,
		"amount":     dispute.Amount,
		"reason":     string(dispute.Reason),
	})
	return &HandlerResult{Actions: []string{"dispute_flagged_for_review"}}, nil
}

func (h *WebhookHandlers) resolveSubscriptionAccount(ctx context.Context, sub *stripe.Subscription) (*db_models.Account, error) {
	if userID := sub.Metadata["userId"]; userID != "" {
		return h.billing.ResolveAccount(ctx, userID, "")
	}
	if sub.Customer != nil && sub.Customer.ID != "" {
		account, err := h.accountRepo.FindByProviderCustomerID(ctx, sub.Customer.ID)
		if err != nil {
			return nil, err
		}
		if account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w: subscription %s resolves to no account", utils.ErrHandlerValidation, sub.ID)
}

// subscriptionFromProvider maps the provider object onto the local model.
func (h *WebhookHandlers) subscriptionFromProvider(ctx context.Context, accountID uuid.UUID, sub *stripe.Subscription) *db_models.Subscription {
	priceID := ""
	cycle := db_models.CycleMonthly
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		price := sub.Items.Data[0].Price
		priceID = price.ID
		if price.Recurring != nil && price.Recurring.Interval == stripe.PriceRecurringIntervalYear {
			cycle = db_models.CycleYearly
		}
	}

	customerID := ""
	if sub.Customer != nil {
		customerID = sub.Customer.ID
	}

	local := &db_models.Subscription{
		AccountID:          accountID,
		Status:             mapSubscriptionStatus(sub),
		Plan:               h.billing.ResolvePlan(ctx, sub.Metadata["plan"], priceID),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		BillingCycle:       cycle,
		Provider:           providerStripe,
		ProviderCustomerID: customerID,
		ProviderSubID:      sub.ID,
	}
	if sub.TrialEnd > 0 {
		trialEnd := sub.TrialEnd
		local.TrialEndsAt = &trialEnd
	}
	if sub.CanceledAt > 0 {
		canceledAt := sub.CanceledAt
		local.CanceledAt = &canceledAt
	}
	return local
}

func mapSubscriptionStatus(sub *stripe.Subscription) db_models.SubscriptionStatus {
	if sub.CancelAtPeriodEnd && sub.Status == stripe.SubscriptionStatusActive {
		return db_models.SubStatusCancelAtPeriodEnd
	}
	switch sub.Status {
	case stripe.SubscriptionStatusTrialing:
		return db_models.SubStatusTrialing
	case stripe.SubscriptionStatusActive:
		return db_models.SubStatusActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return db_models.SubStatusPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return db_models.SubStatusCanceled
	default:
		return db_models.SubStatusTrialing
	}
}

func invoiceRefs(invoice *stripe.Invoice) (customerID, subID string) {
	if invoice.Customer != nil {
		customerID = invoice.Customer.ID
	}
	if invoice.Subscription != nil {
		subID = invoice.Subscription.ID
	}
	return customerID, subID
}

func billingCycleFromMetadata(metadata map[string]string) db_models.BillingCycle {
	switch metadata["billingCycle"] {
	case "yearly":
		return db_models.CycleYearly
	case "monthly":
		return db_models.CycleMonthly
	default:
		return db_models.CycleOneTime
	}
}
