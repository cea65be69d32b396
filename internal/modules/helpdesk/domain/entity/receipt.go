package entity

import "time"

const (
	SenderContact = "contact"
	SenderAgent   = "agent"
	SenderBot     = "bot"
)

// MessageReceipt 已计数的外部消息，保证消息计数幂等
type MessageReceipt struct {
	Id                     int64     `gorm:"column:id;primaryKey;autoIncrement"`
	OrgId                  string    `gorm:"column:org_id;type:char(20);not null;uniqueIndex:uniq_helpdesk_receipt,priority:1"`
	ExternalMessageId      string    `gorm:"column:external_message_id;type:varchar(64);not null;uniqueIndex:uniq_helpdesk_receipt,priority:2"`
	ExternalConversationId string    `gorm:"column:external_conversation_id;type:varchar(64);not null;index:idx_helpdesk_receipt_conv"`
	SenderType             string    `gorm:"column:sender_type;type:varchar(20)"`
	Private                bool      `gorm:"column:private;not null"`
	SentAt                 time.Time `gorm:"column:sent_at;type:datetime;not null"`
	CreatedAt              time.Time `gorm:"column:created_at;type:datetime;not null"`
}

func (MessageReceipt) TableName() string { return "helpdesk_message_receipt" }
