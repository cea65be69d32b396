package persistence

import (
	"context"
	"errors"

	"StoreSupport/internal/modules/storefront/domain/entity"
	"StoreSupport/internal/modules/storefront/domain/repository"

	"gorm.io/gorm"
)

type organizationRepositoryImpl struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) repository.OrganizationRepository {
	return &organizationRepositoryImpl{db: db}
}

func (r *organizationRepositoryImpl) GetByID(ctx context.Context, orgID string) (*entity.Organization, error) {
	var org entity.Organization
	err := r.db.WithContext(ctx).Where("id = ?", orgID).Take(&org).Error
	if err == nil {
		return &org, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *organizationRepositoryImpl) ListPolicies(ctx context.Context, orgID string) ([]entity.StorePolicy, error) {
	var out []entity.StorePolicy
	err := r.db.WithContext(ctx).Where("org_id = ?", orgID).Order("policy_type ASC").Find(&out).Error
	return out, err
}

func (r *organizationRepositoryImpl) GetPolicy(ctx context.Context, orgID, policyType string) (*entity.StorePolicy, error) {
	var p entity.StorePolicy
	err := r.db.WithContext(ctx).Where("org_id = ? AND policy_type = ?", orgID, policyType).Take(&p).Error
	if err == nil {
		return &p, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}
