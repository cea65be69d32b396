package entity

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

const (
	RoleCustomer   = "customer"
	RoleAssistant  = "assistant"
	RoleHumanAgent = "human-agent"
	RoleSystem     = "system"
)

// MessageMetadata 助手消息的结构化元数据
type MessageMetadata struct {
	ModelTier        string          `json:"model_tier,omitempty"`
	Model            string          `json:"model,omitempty"`
	Confidence       *float64        `json:"confidence,omitempty"`
	ToolInvoked      string          `json:"tool_invoked,omitempty"`
	ToolFound        *bool           `json:"tool_found,omitempty"`
	ToolRounds       int             `json:"tool_rounds,omitempty"`
	EscalationReason string          `json:"escalation_reason,omitempty"`
	LatencyMs        int64           `json:"latency_ms,omitempty"`
	AuthorName       string          `json:"author_name,omitempty"`
	Vendor           json.RawMessage `json:"vendor,omitempty"`
}

func (m MessageMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *MessageMetadata) Scan(src any) error {
	return scanJSON(src, m)
}

// ConversationMessage 追加写的对话记录，同一会话内以 seq 排序
type ConversationMessage struct {
	Id                int64           `gorm:"column:id;primaryKey;autoIncrement"`
	SessionId         int64           `gorm:"column:session_id;not null;uniqueIndex:uniq_support_message_seq,priority:1;uniqueIndex:uniq_support_message_external,priority:1"`
	Seq               int64           `gorm:"column:seq;not null;uniqueIndex:uniq_support_message_seq,priority:2"`
	Role              string          `gorm:"column:role;type:varchar(20);not null"`
	Content           string          `gorm:"column:content;type:text;not null"`
	Metadata          MessageMetadata `gorm:"column:metadata;type:json"`
	ExternalMessageId *string         `gorm:"column:external_message_id;type:varchar(64);uniqueIndex:uniq_support_message_external,priority:2"`
	CreatedAt         time.Time       `gorm:"column:created_at;type:datetime;not null"`
}

func (ConversationMessage) TableName() string { return "support_chat_message" }
