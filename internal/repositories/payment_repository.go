package repositories

import (
	"context"
	"errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"nexora/internal/models/db_models"
)

type IPaymentRepository interface {
	FindByProviderPaymentID(ctx context.Context, providerPaymentID string) (*db_models.Payment, error)

	// UpsertByProviderPaymentID inserts or updates keyed on the provider's
	// payment ID, so redelivered and cross-type events converge on one row.
	UpsertByProviderPaymentID(ctx context.Context, payment *db_models.Payment) error

	Save(ctx context.Context, payment *db_models.Payment) error
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]db_models.Payment, error)
}

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) IPaymentRepository {
	return &PaymentRepository{db: db}
}

func (p PaymentRepository) FindByProviderPaymentID(ctx context.Context, providerPaymentID string) (*db_models.Payment, error) {
	var payment db_models.Payment
	err := p.db.WithContext(ctx).First(&payment, "provider_payment_id = ?", providerPaymentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (p PaymentRepository) UpsertByProviderPaymentID(ctx context.Context, payment *db_models.Payment) error {
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider_payment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "amount_minor", "currency", "plan", "billing_cycle",
			"provider_customer_id", "paid_at", "refunded_at", "metadata", "updated_at",
		}),
	}).Create(payment).Error
}

func (p PaymentRepository) Save(ctx context.Context, payment *db_models.Payment) error {
	return p.db.WithContext(ctx).Save(payment).Error
}

func (p PaymentRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]db_models.Payment, error) {
	var payments []db_models.Payment
	err := p.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}
