package repository

import (
	"context"

	"StoreSupport/internal/modules/storefront/domain/entity"
)

type CartRepository interface {
	// GetActiveByCustomer 最近更新的活跃购物车（含商品），没有则返回 nil
	GetActiveByCustomer(ctx context.Context, orgID, customerID string) (*entity.Cart, error)
}
