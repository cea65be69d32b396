package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"StoreSupport/internal/modules/helpdesk/domain/entity"
	"StoreSupport/internal/modules/helpdesk/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type accountMappingRepositoryImpl struct {
	db *gorm.DB
}

func NewAccountMappingRepository(db *gorm.DB) repository.AccountMappingRepository {
	return &accountMappingRepositoryImpl{db: db}
}

func (r *accountMappingRepositoryImpl) GetByExternalID(ctx context.Context, externalAccountID string) (*entity.AccountMapping, error) {
	var m entity.AccountMapping
	err := r.db.WithContext(ctx).Where("external_account_id = ?", strings.TrimSpace(externalAccountID)).Take(&m).Error
	if err == nil {
		return &m, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *accountMappingRepositoryImpl) GetByOrgID(ctx context.Context, orgID string) (*entity.AccountMapping, error) {
	var m entity.AccountMapping
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND active = ?", strings.TrimSpace(orgID), true).
		Order("id ASC").
		Take(&m).Error
	if err == nil {
		return &m, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *accountMappingRepositoryImpl) Save(ctx context.Context, m *entity.AccountMapping) error {
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"org_id", "account_name", "active", "updated_at"}),
	}).Create(m).Error
}
