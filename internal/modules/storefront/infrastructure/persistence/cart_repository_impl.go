package persistence

import (
	"context"
	"errors"

	"StoreSupport/internal/modules/storefront/domain/entity"
	"StoreSupport/internal/modules/storefront/domain/repository"

	"gorm.io/gorm"
)

type cartRepositoryImpl struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) repository.CartRepository {
	return &cartRepositoryImpl{db: db}
}

func (r *cartRepositoryImpl) GetActiveByCustomer(ctx context.Context, orgID, customerID string) (*entity.Cart, error) {
	var cart entity.Cart
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Items.Product").
		Where("org_id = ? AND customer_id = ? AND status = ?", orgID, customerID, entity.CartStatusActive).
		Order("updated_at DESC").
		First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}
