package repository

import (
	"context"

	"StoreSupport/internal/modules/storefront/domain/entity"
)

type OrderRepository interface {
	// ListRecentByCustomer 按创建时间倒序，附带行项目
	ListRecentByCustomer(ctx context.Context, orgID, customerID string, limit int) ([]entity.Order, error)
	GetByNumber(ctx context.Context, orgID, orderNumber string) (*entity.Order, error)
	GetLatestByEmail(ctx context.Context, orgID, email string) (*entity.Order, error)
}
