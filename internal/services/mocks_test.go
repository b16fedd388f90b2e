package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"nexora/internal/models/db_models"
)

// Function-field mocks: a nil field means "not expected to be called" and
// returns zero values so unrelated paths stay quiet.

type mockAccountRepo struct {
	findByID                 func(ctx context.Context, id uuid.UUID) (*db_models.Account, error)
	findByEmail              func(ctx context.Context, email string) (*db_models.Account, error)
	findByProviderCustomerID func(ctx context.Context, providerCustomerID string) (*db_models.Account, error)
	updatePlan               func(ctx context.Context, accountID uuid.UUID, plan string) error
	updateProviderCustomer   func(ctx context.Context, accountID uuid.UUID, provider, providerCustomerID string) error
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id uuid.UUID) (*db_models.Account, error) {
	if m.findByID == nil {
		return nil, nil
	}
	return m.findByID(ctx, id)
}

func (m *mockAccountRepo) FindByEmail(ctx context.Context, email string) (*db_models.Account, error) {
	if m.findByEmail == nil {
		return nil, nil
	}
	return m.findByEmail(ctx, email)
}

func (m *mockAccountRepo) FindByProviderCustomerID(ctx context.Context, providerCustomerID string) (*db_models.Account, error) {
	if m.findByProviderCustomerID == nil {
		return nil, nil
	}
	return m.findByProviderCustomerID(ctx, providerCustomerID)
}

func (m *mockAccountRepo) UpdatePlan(ctx context.Context, accountID uuid.UUID, plan string) error {
	if m.updatePlan == nil {
		return nil
	}
	return m.updatePlan(ctx, accountID, plan)
}

func (m *mockAccountRepo) UpdateProviderCustomer(ctx context.Context, accountID uuid.UUID, provider, providerCustomerID string) error {
	if m.updateProviderCustomer == nil {
		return nil
	}
	return m.updateProviderCustomer(ctx, accountID, provider, providerCustomerID)
}

type mockPaymentRepo struct {
	findByProviderPaymentID   func(ctx context.Context, providerPaymentID string) (*db_models.Payment, error)
	upsertByProviderPaymentID func(ctx context.Context, payment *db_models.Payment) error
	save                      func(ctx context.Context, payment *db_models.Payment) error
	listByAccount             func(ctx context.Context, accountID uuid.UUID) ([]db_models.Payment, error)
}

func (m *mockPaymentRepo) FindByProviderPaymentID(ctx context.Context, providerPaymentID string) (*db_models.Payment, error) {
	if m.findByProviderPaymentID == nil {
		return nil, nil
	}
	return m.findByProviderPaymentID(ctx, providerPaymentID)
}

func (m *mockPaymentRepo) UpsertByProviderPaymentID(ctx context.Context, payment *db_models.Payment) error {
	if m.upsertByProviderPaymentID == nil {
		return nil
	}
	return m.upsertByProviderPaymentID(ctx, payment)
}

func (m *mockPaymentRepo) Save(ctx context.Context, payment *db_models.Payment) error {
	if m.save == nil {
		return nil
	}
	return m.save(ctx, payment)
}

func (m *mockPaymentRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]db_models.Payment, error) {
	if m.listByAccount == nil {
		return nil, nil
	}
	return m.listByAccount(ctx, accountID)
}

type mockSubRepo struct {
	findByProviderSubID      func(ctx context.Context, providerSubID string) (*db_models.Subscription, error)
	findByProviderCustomerID func(ctx context.Context, providerCustomerID string) (*db_models.Subscription, error)
	findCurrentByAccount     func(ctx context.Context, accountID uuid.UUID) (*db_models.Subscription, error)
	upsertByAccount          func(ctx context.Context, sub *db_models.Subscription) error
	save                     func(ctx context.Context, sub *db_models.Subscription) error
}

func (m *mockSubRepo) FindByProviderSubID(ctx context.Context, providerSubID string) (*db_models.Subscription, error) {
	if m.findByProviderSubID == nil {
		return nil, nil
	}
	return m.findByProviderSubID(ctx, providerSubID)
}

func (m *mockSubRepo) FindByProviderCustomerID(ctx context.Context, providerCustomerID string) (*db_models.Subscription, error) {
	if m.findByProviderCustomerID == nil {
		return nil, nil
	}
	return m.findByProviderCustomerID(ctx, providerCustomerID)
}

func (m *mockSubRepo) FindCurrentByAccount(ctx context.Context, accountID uuid.UUID) (*db_models.Subscription, error) {
	if m.findCurrentByAccount == nil {
		return nil, nil
	}
	return m.findCurrentByAccount(ctx, accountID)
}

func (m *mockSubRepo) UpsertByAccount(ctx context.Context, sub *db_models.Subscription) error {
	if m.upsertByAccount == nil {
		return nil
	}
	return m.upsertByAccount(ctx, sub)
}

func (m *mockSubRepo) Save(ctx context.Context, sub *db_models.Subscription) error {
	if m.save == nil {
		return nil
	}
	return m.save(ctx, sub)
}

type mockPlanRepo struct {
	getPlanByCode            func(ctx context.Context, code string) (*db_models.Plan, error)
	getPlanByProviderPriceID func(ctx context.Context, priceID string) (*db_models.Plan, error)
	getAllPlans              func(ctx context.Context) ([]db_models.Plan, error)
}

func (m *mockPlanRepo) GetPlanByCode(ctx context.Context, code string) (*db_models.Plan, error) {
	if m.getPlanByCode == nil {
		return nil, nil
	}
	return m.getPlanByCode(ctx, code)
}

func (m *mockPlanRepo) GetPlanByProviderPriceID(ctx context.Context, priceID string) (*db_models.Plan, error) {
	if m.getPlanByProviderPriceID == nil {
		return nil, nil
	}
	return m.getPlanByProviderPriceID(ctx, priceID)
}

func (m *mockPlanRepo) GetAllPlans(ctx context.Context) ([]db_models.Plan, error) {
	if m.getAllPlans == nil {
		return nil, nil
	}
	return m.getAllPlans(ctx)
}

type mockBilling struct {
	resolveAccount          func(ctx context.Context, userID, email string) (*db_models.Account, error)
	recordPayment           func(ctx context.Context, payment *db_models.Payment) (bool, error)
	transitionPayment       func(ctx context.Context, providerPaymentID string, next db_models.PaymentStatus) (*db_models.Payment, bool, error)
	syncSubscription        func(ctx context.Context, incoming *db_models.Subscription) (bool, error)
	applySubscriptionUpdate func(ctx context.Context, providerSubID string, update *db_models.Subscription) (*db_models.Subscription, bool, error)
	cancelSubscription      func(ctx context.Context, providerSubID string) (*db_models.Subscription, bool, error)
	settleInvoice           func(ctx context.Context, providerCustomerID, providerSubID string, paidAt int64) (*db_models.Subscription, bool, error)
	failInvoice             func(ctx context.Context, providerCustomerID, providerSubID string) (*db_models.Subscription, bool, error)
	updateEntitlement       func(ctx context.Context, accountID uuid.UUID, plan string) error
	resolvePlan             func(ctx context.Context, metadataPlan, providerPriceID string) string
}

func (m *mockBilling) ResolveAccount(ctx context.Context, userID, email string) (*db_models.Account, error) {
	if m.resolveAccount == nil {
		return nil, nil
	}
	return m.resolveAccount(ctx, userID, email)
}

func (m *mockBilling) RecordPayment(ctx context.Context, payment *db_models.Payment) (bool, error) {
	if m.recordPayment == nil {
		return true, nil
	}
	return m.recordPayment(ctx, payment)
}

func (m *mockBilling) TransitionPayment(ctx context.Context, providerPaymentID string, next db_models.PaymentStatus) (*db_models.Payment, bool, error) {
	if m.transitionPayment == nil {
		return nil, false, nil
	}
	return m.transitionPayment(ctx, providerPaymentID, next)
}

func (m *mockBilling) SyncSubscription(ctx context.Context, incoming *db_models.Subscription) (bool, error) {
	if m.syncSubscription == nil {
		return true, nil
	}
	return m.syncSubscription(ctx, incoming)
}

func (m *mockBilling) ApplySubscriptionUpdate(ctx context.Context, providerSubID string, update *db_models.Subscription) (*db_models.Subscription, bool, error) {
	if m.applySubscriptionUpdate == nil {
		return nil, false, nil
	}
	return m.applySubscriptionUpdate(ctx, providerSubID, update)
}

func (m *mockBilling) CancelSubscription(ctx context.Context, providerSubID string) (*db_models.Subscription, bool, error) {
	if m.cancelSubscription == nil {
		return nil, false, nil
	}
	return m.cancelSubscription(ctx, providerSubID)
}

func (m *mockBilling) SettleInvoice(ctx context.Context, providerCustomerID, providerSubID string, paidAt int64) (*db_models.Subscription, bool, error) {
	if m.settleInvoice == nil {
		return nil, false, nil
	}
	return m.settleInvoice(ctx, providerCustomerID, providerSubID, paidAt)
}

func (m *mockBilling) FailInvoice(ctx context.Context, providerCustomerID, providerSubID string) (*db_models.Subscription, bool, error) {
	if m.failInvoice == nil {
		return nil, false, nil
	}
	return m.failInvoice(ctx, providerCustomerID, providerSubID)
}

func (m *mockBilling) UpdateEntitlement(ctx context.Context, accountID uuid.UUID, plan string) error {
	if m.updateEntitlement == nil {
		return nil
	}
	return m.updateEntitlement(ctx, accountID, plan)
}

func (m *mockBilling) ResolvePlan(ctx context.Context, metadataPlan, providerPriceID string) string {
	if m.resolvePlan == nil {
		if metadataPlan != "" {
			return metadataPlan
		}
		return FreePlan
	}
	return m.resolvePlan(ctx, metadataPlan, providerPriceID)
}

type mockProvider struct {
	getSubscription func(ctx context.Context, providerSubID string) (*stripe.Subscription, error)
}

func (m *mockProvider) GetSubscription(ctx context.Context, providerSubID string) (*stripe.Subscription, error) {
	if m.getSubscription == nil {
		return nil, nil
	}
	return m.getSubscription(ctx, providerSubID)
}

type notifierCall struct {
	kind  string
	email string
}

type mockNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
	err   error
}

func (m *mockNotifier) NotifyPaymentFailed(_ context.Context, email, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, notifierCall{kind: "payment_failed", email: email})
	return m.err
}

func (m *mockNotifier) NotifyTrialEnding(_ context.Context, email, _ string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, notifierCall{kind: "trial_ending", email: email})
	return m.err
}

type trackedEvent struct {
	name  string
	props map[string]interface{}
}

type mockAnalytics struct {
	mu     sync.Mutex
	events []trackedEvent
}

func (m *mockAnalytics) Track(_ context.Context, event string, props map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, trackedEvent{name: event, props: props})
}

func (m *mockAnalytics) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.name)
	}
	return out
}

type stubVerifier struct {
	verify func(payload []byte, sigHeader string) (*stripe.Event, error)
}

func (s *stubVerifier) Verify(payload []byte, sigHeader string) (*stripe.Event, error) {
	return s.verify(payload, sigHeader)
}

type stubDispatcher struct {
	mu       sync.Mutex
	calls    int
	dispatch func(ctx context.Context, event *stripe.Event) (*HandlerResult, error)
}

func (s *stubDispatcher) Register(stripe.EventType, EventHandler) {}

func (s *stubDispatcher) Dispatch(ctx context.Context, event *stripe.Event) (*HandlerResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.dispatch(ctx, event)
}

// newTestEvent wraps an object payload in a provider event envelope the way
// deliveries arrive on the wire.
func newTestEvent(t *testing.T, eventType stripe.EventType, objectJSON string) *stripe.Event {
	t.Helper()
	require.True(t, json.Valid([]byte(objectJSON)), "test payload must be valid JSON")
	return &stripe.Event{
		ID:      "evt_" + uuid.NewString()[:8],
		Type:    eventType,
		Created: time.Now().Unix(),
		Data:    &stripe.EventData{Raw: json.RawMessage(objectJSON)},
	}
}
