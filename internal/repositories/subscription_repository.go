package repositories

import (
	"context"
	"errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"nexora/internal/models/db_models"
)

type ISubscriptionRepository interface {
	FindByProviderSubID(ctx context.Context, providerSubID string) (*db_models.Subscription, error)
	FindByProviderCustomerID(ctx context.Context, providerCustomerID string) (*db_models.Subscription, error)
	FindCurrentByAccount(ctx context.Context, accountID uuid.UUID) (*db_models.Subscription, error)

	// UpsertByAccount enforces at most one non-canceled subscription per
	// account: an existing live row is updated in place, otherwise a new row
	// is created.
	UpsertByAccount(ctx context.Context, sub *db_models.Subscription) error

	Save(ctx context.Context, sub *db_models.Subscription) error
}

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) ISubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (s SubscriptionRepository) FindByProviderSubID(ctx context.Context, providerSubID string) (*db_models.Subscription, error) {
	var sub db_models.Subscription
	err := s.db.WithContext(ctx).First(&sub, "provider_sub_id = ?", providerSubID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (s SubscriptionRepository) FindByProviderCustomerID(ctx context.Context, providerCustomerID string) (*db_models.Subscription, error) {
	var sub db_models.Subscription
	err := s.db.WithContext(ctx).
		Where("provider_customer_id = ? AND status <> ?", providerCustomerID, db_models.SubStatusCanceled).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (s SubscriptionRepository) FindCurrentByAccount(ctx context.Context, accountID uuid.UUID) (*db_models.Subscription, error) {
	var sub db_models.Subscription
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND status <> ?", accountID, db_models.SubStatusCanceled).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (s SubscriptionRepository) UpsertByAccount(ctx context.Context, sub *db_models.Subscription) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing db_models.Subscription
		err := tx.
			Where("account_id = ? AND status <> ?", sub.AccountID, db_models.SubStatusCanceled).
			Order("created_at DESC").
			First(&existing).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return tx.Create(sub).Error
			}
			return err
		}

		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
		return tx.Save(sub).Error
	})
}

func (s SubscriptionRepository) Save(ctx context.Context, sub *db_models.Subscription) error {
	return s.db.WithContext(ctx).Save(sub).Error
}
