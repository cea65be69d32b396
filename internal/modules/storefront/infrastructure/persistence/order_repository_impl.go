package persistence

import (
	"context"
	"errors"
	"strings"

	"StoreSupport/internal/modules/storefront/domain/entity"
	"StoreSupport/internal/modules/storefront/domain/repository"

	"gorm.io/gorm"
)

type orderRepositoryImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) repository.OrderRepository {
	return &orderRepositoryImpl{db: db}
}

func (r *orderRepositoryImpl) ListRecentByCustomer(ctx context.Context, orgID, customerID string, limit int) ([]entity.Order, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []entity.Order
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("org_id = ? AND customer_id = ?", orgID, customerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetByNumber 单号同时匹配带 # 与不带 # 的写法
func (r *orderRepositoryImpl) GetByNumber(ctx context.Context, orgID, orderNumber string) (*entity.Order, error) {
	bare := strings.TrimPrefix(strings.TrimSpace(orderNumber), "#")
	if bare == "" {
		return nil, nil
	}
	var o entity.Order
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("org_id = ? AND order_number IN ?", orgID, []string{bare, "#" + bare}).
		Take(&o).Error
	if err == nil {
		return &o, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *orderRepositoryImpl) GetLatestByEmail(ctx context.Context, orgID, email string) (*entity.Order, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	var o entity.Order
	err := r.db.WithContext(ctx).
		Preload("LineItems").
		Where("org_id = ? AND LOWER(email) = ?", orgID, email).
		Order("created_at DESC").
		First(&o).Error
	if err == nil {
		return &o, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}
