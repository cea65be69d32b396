package repository

import (
	"context"

	"StoreSupport/internal/modules/storefront/domain/entity"
)

type CustomerRepository interface {
	GetByID(ctx context.Context, orgID, customerID string) (*entity.Customer, error)
	GetByEmail(ctx context.Context, orgID, email string) (*entity.Customer, error)
	GetByExternalContact(ctx context.Context, orgID, contactID string) (*entity.Customer, error)
	// LinkExternalContact 仅在 external_contact_id 为空时写入
	LinkExternalContact(ctx context.Context, orgID, customerID, contactID string) error
	UpdateCachedAttributes(ctx context.Context, orgID, customerID string, attrs entity.CustomerAttributes) error
}
