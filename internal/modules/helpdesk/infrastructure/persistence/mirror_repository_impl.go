package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"StoreSupport/internal/modules/helpdesk/domain/entity"
	"StoreSupport/internal/modules/helpdesk/domain/repository"
	storefrontPersistence "StoreSupport/internal/modules/storefront/infrastructure/persistence"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type mirrorRepositoryImpl struct {
	db *gorm.DB
}

func NewMirrorRepository(db *gorm.DB) repository.MirrorRepository {
	return &mirrorRepositoryImpl{db: db}
}

func (r *mirrorRepositoryImpl) LockOrCreate(ctx context.Context, seed *entity.ConversationMirror) (*entity.ConversationMirror, bool, error) {
	if seed == nil || seed.OrgId == "" || seed.ExternalConversationId == "" {
		return nil, false, errors.New("mirror key is required")
	}
	now := time.Now()
	if seed.CreatedAt.IsZero() {
		seed.CreatedAt = now
	}
	if seed.UpdatedAt.IsZero() {
		seed.UpdatedAt = now
	}

	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "org_id"}, {Name: "external_conversation_id"}},
		DoNothing: true,
	}).Create(seed)
	if res.Error != nil {
		return nil, false, res.Error
	}
	created := res.RowsAffected > 0

	var m entity.ConversationMirror
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("org_id = ? AND external_conversation_id = ?", seed.OrgId, seed.ExternalConversationId).
		Take(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, fmt.Errorf("mirror %s/%s vanished after upsert", seed.OrgId, seed.ExternalConversationId)
		}
		return nil, false, err
	}
	return &m, created, nil
}

func (r *mirrorRepositoryImpl) Save(ctx context.Context, m *entity.ConversationMirror) error {
	m.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Model(&entity.ConversationMirror{}).Where("id = ?", m.Id).Updates(map[string]any{
		"external_account_id":    m.ExternalAccountId,
		"external_contact_id":    m.ExternalContactId,
		"contact_email":          m.ContactEmail,
		"contact_name":           m.ContactName,
		"inbox_id":               m.InboxId,
		"customer_id":            m.CustomerId,
		"session_token":          m.SessionToken,
		"status":                 m.Status,
		"priority":               m.Priority,
		"assignee_id":            m.AssigneeId,
		"assignee_name":          m.AssigneeName,
		"message_count":          m.MessageCount,
		"last_activity_at":       m.LastActivityAt,
		"started_at":             m.StartedAt,
		"first_response_at":      m.FirstResponseAt,
		"first_response_seconds": m.FirstResponseSeconds,
		"resolved_at":            m.ResolvedAt,
		"resolution_seconds":     m.ResolutionSeconds,
		"created_seen":           m.CreatedSeen,
		"raw_payload":            m.RawPayload,
		"updated_at":             m.UpdatedAt,
	}).Error
}

func (r *mirrorRepositoryImpl) GetByExternalID(ctx context.Context, orgID, externalConversationID string) (*entity.ConversationMirror, error) {
	var m entity.ConversationMirror
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND external_conversation_id = ?", orgID, externalConversationID).
		Take(&m).Error
	if err == nil {
		return &m, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

func (r *mirrorRepositoryImpl) GetBySessionToken(ctx context.Context, orgID, sessionToken string) (*entity.ConversationMirror, error) {
	var m entity.ConversationMirror
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND session_token = ?", orgID, sessionToken).
		Order("id DESC").
		Take(&m).Error
	if err == nil {
		return &m, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, err
}

type receiptRepositoryImpl struct {
	db *gorm.DB
}

func NewReceiptRepository(db *gorm.DB) repository.ReceiptRepository {
	return &receiptRepositoryImpl{db: db}
}

func (r *receiptRepositoryImpl) Insert(ctx context.Context, rc *entity.MessageReceipt) (bool, error) {
	if rc.CreatedAt.IsZero() {
		rc.CreatedAt = time.Now()
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "org_id"}, {Name: "external_message_id"}},
		DoNothing: true,
	}).Create(rc)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

type assignmentRuleRepositoryImpl struct {
	db *gorm.DB
}

func NewAssignmentRuleRepository(db *gorm.DB) repository.AssignmentRuleRepository {
	return &assignmentRuleRepositoryImpl{db: db}
}

func (r *assignmentRuleRepositoryImpl) ListActive(ctx context.Context, orgID string) ([]entity.AssignmentRule, error) {
	var rules []entity.AssignmentRule
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND active = ?", orgID, true).
		Order("priority ASC, id ASC").
		Find(&rules).Error
	return rules, err
}

type helpdeskUnitOfWorkImpl struct {
	db *gorm.DB
}

func NewHelpdeskUnitOfWork(db *gorm.DB) repository.HelpdeskUnitOfWork {
	return &helpdeskUnitOfWorkImpl{db: db}
}

func (u *helpdeskUnitOfWorkImpl) Transaction(ctx context.Context, fn func(tx repository.TxRepos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(repository.TxRepos{
			Mirrors:   NewMirrorRepository(tx),
			Receipts:  NewReceiptRepository(tx),
			Outbox:    NewOutboxRepository(tx),
			Rules:     NewAssignmentRuleRepository(tx),
			Customers: storefrontPersistence.NewCustomerRepository(tx),
		})
	})
}
