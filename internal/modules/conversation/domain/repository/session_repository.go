package repository

import (
	"context"
	"time"

	"StoreSupport/internal/modules/conversation/domain/entity"
)

// StatusChange 一次状态迁移请求
type StatusChange struct {
	Target string
	Reason string
	Actor  string
	At     time.Time
}

// TurnRecord 一个完整回合，需在同一事务中落库
type TurnRecord struct {
	SessionId         int64
	CustomerContent   string
	AssistantContent  string
	AssistantMetadata entity.MessageMetadata
	Escalate          bool
	EscalationReason  string
	UpdateContext     func(*entity.SessionContext)
	At                time.Time
}

type TurnResult struct {
	Session          *entity.ChatSession
	CustomerMessage  *entity.ConversationMessage
	AssistantMessage *entity.ConversationMessage
	Escalated        bool
	Reopened         bool
}

type SessionRepository interface {
	// GetOrCreate 按 session_token 幂等创建，created 表示本次是否插入
	GetOrCreate(ctx context.Context, s *entity.ChatSession) (sess *entity.ChatSession, created bool, err error)
	GetByToken(ctx context.Context, token string) (*entity.ChatSession, error)
	GetByID(ctx context.Context, id int64) (*entity.ChatSession, error)
	AttachCustomer(ctx context.Context, sessionID int64, customerID string) error

	Append(ctx context.Context, sessionID int64, msg *entity.ConversationMessage) (*entity.ConversationMessage, error)
	// AppendExternal 在会话内以 external_message_id 去重，重复投递返回 appended=false
	AppendExternal(ctx context.Context, sessionID int64, msg *entity.ConversationMessage) (appended bool, err error)
	UpdateStatus(ctx context.Context, sessionID int64, change StatusChange) (*entity.ChatSession, bool, error)
	UpdateContext(ctx context.Context, sessionID int64, fn func(*entity.SessionContext)) error
	RecordTurn(ctx context.Context, rec TurnRecord) (*TurnResult, error)

	// ListRecentMessages 最近 limit 条，按 seq 升序返回
	ListRecentMessages(ctx context.Context, sessionID int64, limit int) ([]entity.ConversationMessage, error)
	ListMessages(ctx context.Context, sessionID int64, limit, offset int) ([]entity.ConversationMessage, int64, error)
}
