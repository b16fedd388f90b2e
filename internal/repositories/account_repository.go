package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"nexora/internal/models/db_models"
)

type IAccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*db_models.Account, error)
	FindByEmail(ctx context.Context, email string) (*db_models.Account, error)
	FindByProviderCustomerID(ctx context.Context, providerCustomerID string) (*db_models.Account, error)
	UpdatePlan(ctx context.Context, accountID uuid.UUID, plan string) error
	UpdateProviderCustomer(ctx context.Context, accountID uuid.UUID, provider, providerCustomerID string) error
}

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) IAccountRepository {
	return &AccountRepository{db: db}
}

func (a AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*db_models.Account, error) {
	var account db_models.Account
	err := a.db.WithContext(ctx).First(&account, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (a AccountRepository) FindByEmail(ctx context.Context, email string) (*db_models.Account, error) {
	var account db_models.Account
	err := a.db.WithContext(ctx).First(&account, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (a AccountRepository) FindByProviderCustomerID(ctx context.Context, providerCustomerID string) (*db_models.Account, error) {
	var account db_models.Account
	err := a.db.WithContext(ctx).First(&account, "provider_customer_id = ?", providerCustomerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (a AccountRepository) UpdatePlan(ctx context.Context, accountID uuid.UUID, plan string) error {
	return a.db.WithContext(ctx).Model(&db_models.Account{}).
		Where("id = ?", accountID).
		Update("plan", plan).Error
}

func (a AccountRepository) UpdateProviderCustomer(ctx context.Context, accountID uuid.UUID, provider, providerCustomerID string) error {
	return a.db.WithContext(ctx).Model(&db_models.Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"provider":             provider,
			"provider_customer_id": providerCustomerID,
		}).Error
}
