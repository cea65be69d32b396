package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	SessionStatusActive    = "active"
	SessionStatusEscalated = "escalated"
	SessionStatusResolved  = "resolved"
)

const (
	ActorAssistant = "assistant"
	ActorCustomer  = "customer"
	ActorHuman     = "human"
)

// SessionContext 会话级的结构化上下文；Vendor 保留外部系统原样透传的字段
type SessionContext struct {
	Channel                string          `json:"channel,omitempty"`
	TurnCount              int             `json:"turn_count,omitempty"`
	LastModelTier          string          `json:"last_model_tier,omitempty"`
	LastConfidence         float64         `json:"last_confidence,omitempty"`
	ExternalConversationId string          `json:"external_conversation_id,omitempty"`
	AssigneeName           string          `json:"assignee_name,omitempty"`
	Vendor                 json.RawMessage `json:"vendor,omitempty"`
}

func (c SessionContext) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *SessionContext) Scan(src any) error {
	return scanJSON(src, c)
}

// ChatSession 客服会话，按 session_token 唯一；不做物理删除
type ChatSession struct {
	Id               int64          `gorm:"column:id;primaryKey;autoIncrement"`
	SessionToken     string         `gorm:"column:session_token;type:varchar(128);not null;uniqueIndex:uniq_support_session_token"`
	OrgId            string         `gorm:"column:org_id;type:char(20);not null;index:idx_support_session_org_status,priority:1"`
	CustomerId       *string        `gorm:"column:customer_id;type:char(20);index:idx_support_session_customer"`
	Status           string         `gorm:"column:status;type:varchar(20);not null;index:idx_support_session_org_status,priority:2"`
	EscalationReason string         `gorm:"column:escalation_reason;type:varchar(255)"`
	LastSeq          int64          `gorm:"column:last_seq;type:bigint;not null;default:0"`
	Context          SessionContext `gorm:"column:context;type:json"`
	EscalatedAt      *time.Time     `gorm:"column:escalated_at;type:datetime"`
	ResolvedAt       *time.Time     `gorm:"column:resolved_at;type:datetime"`
	CreatedAt        time.Time      `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt        time.Time      `gorm:"column:updated_at;type:datetime;not null"`
}

func (ChatSession) TableName() string { return "support_chat_session" }

func (s *ChatSession) IsEscalated() bool { return s.Status == SessionStatusEscalated }

func scanJSON(src any, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported json column type %T", src)
	}
}
