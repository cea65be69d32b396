package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"StoreSupport/internal/modules/storefront/domain/entity"
	"StoreSupport/internal/modules/storefront/domain/repository"

	"gorm.io/gorm"
)

type customerRepositoryImpl struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) repository.CustomerRepository {
	return &customerRepositoryImpl{db: db}
}

func (r *customerRepositoryImpl) take(q *gorm.DB) (*entity.Customer, error) {
	var c entity.Customer
	err := q.Take(&c).Error
	if err == nil {
		return &c, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *customerRepositoryImpl) GetByID(ctx context.Context, orgID, customerID string) (*entity.Customer, error) {
	return r.take(r.db.WithContext(ctx).Where("org_id = ? AND id = ?", orgID, customerID))
}

func (r *customerRepositoryImpl) GetByEmail(ctx context.Context, orgID, email string) (*entity.Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	return r.take(r.db.WithContext(ctx).Where("org_id = ? AND LOWER(email) = ?", orgID, email))
}

func (r *customerRepositoryImpl) GetByExternalContact(ctx context.Context, orgID, contactID string) (*entity.Customer, error) {
	contactID = strings.TrimSpace(contactID)
	if contactID == "" {
		return nil, nil
	}
	return r.take(r.db.WithContext(ctx).Where("org_id = ? AND external_contact_id = ?", orgID, contactID))
}

func (r *customerRepositoryImpl) LinkExternalContact(ctx context.Context, orgID, customerID, contactID string) error {
	return r.db.WithContext(ctx).Model(&entity.Customer{}).
		Where("org_id = ? AND id = ? AND (external_contact_id IS NULL OR external_contact_id = '')", orgID, customerID).
		Updates(map[string]any{"external_contact_id": contactID, "updated_at": time.Now()}).Error
}

func (r *customerRepositoryImpl) UpdateCachedAttributes(ctx context.Context, orgID, customerID string, attrs entity.CustomerAttributes) error {
	return r.db.WithContext(ctx).Model(&entity.Customer{}).
		Where("org_id = ? AND id = ?", orgID, customerID).
		Updates(map[string]any{"cached_attributes": attrs, "updated_at": time.Now()}).Error
}
