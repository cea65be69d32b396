package repository

import (
	"context"

	"StoreSupport/internal/modules/storefront/domain/entity"
)

type OrganizationRepository interface {
	GetByID(ctx context.Context, orgID string) (*entity.Organization, error)
	ListPolicies(ctx context.Context, orgID string) ([]entity.StorePolicy, error)
	GetPolicy(ctx context.Context, orgID, policyType string) (*entity.StorePolicy, error)
}
