package repository

import (
	"context"
	"time"

	"StoreSupport/internal/modules/helpdesk/domain/entity"
	storefrontRepo "StoreSupport/internal/modules/storefront/domain/repository"
)

type MirrorRepository interface {
	// LockOrCreate 不存在则插入，然后对该行加写锁；须在事务内调用
	LockOrCreate(ctx context.Context, seed *entity.ConversationMirror) (m *entity.ConversationMirror, created bool, err error)
	Save(ctx context.Context, m *entity.ConversationMirror) error
	GetByExternalID(ctx context.Context, orgID, externalConversationID string) (*entity.ConversationMirror, error)
	GetBySessionToken(ctx context.Context, orgID, sessionToken string) (*entity.ConversationMirror, error)
}

type ReceiptRepository interface {
	// Insert 已存在返回 false
	Insert(ctx context.Context, r *entity.MessageReceipt) (bool, error)
}

type AssignmentRuleRepository interface {
	ListActive(ctx context.Context, orgID string) ([]entity.AssignmentRule, error)
}

type OutboxRepository interface {
	// Enqueue 以 dedup_key 去重，重复返回 false
	Enqueue(ctx context.Context, ev *entity.OutboxEvent) (bool, error)
	ClaimForPublish(ctx context.Context, now time.Time, limit int) ([]entity.OutboxEvent, error)
	MarkPublished(ctx context.Context, id int64, topic string, partition int, offset int64, publishedAt time.Time) error
	MarkPublishFailed(ctx context.Context, id int64, nextRetryAt time.Time, errMsg string) error
	GetByID(ctx context.Context, id int64) (*entity.OutboxEvent, error)
	TryMarkProcessing(ctx context.Context, id int64, now time.Time) (bool, error)
	MarkSucceeded(ctx context.Context, id int64) error
	// MarkFailed retryAt 非空时重新投递
	MarkFailed(ctx context.Context, id int64, errMsg string, retryAt *time.Time) error
}

type SurveyRepository interface {
	// Schedule 每个会话只保留第一条
	Schedule(ctx context.Context, s *entity.SatisfactionSurvey) (bool, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]entity.SatisfactionSurvey, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, errMsg string, maxAttempts int) error
}

// TxRepos 绑定在同一事务上的仓储
type TxRepos struct {
	Mirrors   MirrorRepository
	Receipts  ReceiptRepository
	Outbox    OutboxRepository
	Rules     AssignmentRuleRepository
	Customers storefrontRepo.CustomerRepository
}

// HelpdeskUnitOfWork 镜像、回执与 outbox 在同一事务内写入
type HelpdeskUnitOfWork interface {
	Transaction(ctx context.Context, fn func(tx TxRepos) error) error
}
