package entity

import "time"

const (
	MirrorStatusOpen     = "open"
	MirrorStatusPending  = "pending"
	MirrorStatusSnoozed  = "snoozed"
	MirrorStatusResolved = "resolved"
)

// ConversationMirror 外部客服平台会话在本地的镜像，按 (org_id, external_conversation_id) 唯一
type ConversationMirror struct {
	Id                     int64      `gorm:"column:id;primaryKey;autoIncrement"`
	OrgId                  string     `gorm:"column:org_id;type:char(20);not null;uniqueIndex:uniq_helpdesk_mirror_conv,priority:1"`
	ExternalConversationId string     `gorm:"column:external_conversation_id;type:varchar(64);not null;uniqueIndex:uniq_helpdesk_mirror_conv,priority:2"`
	ExternalAccountId      string     `gorm:"column:external_account_id;type:varchar(64);not null"`
	ExternalContactId      string     `gorm:"column:external_contact_id;type:varchar(64)"`
	ContactEmail           string     `gorm:"column:contact_email;type:varchar(190)"`
	ContactName            string     `gorm:"column:contact_name;type:varchar(120)"`
	InboxId                string     `gorm:"column:inbox_id;type:varchar(64)"`
	CustomerId             *string    `gorm:"column:customer_id;type:char(20);index:idx_helpdesk_mirror_customer"`
	SessionToken           string     `gorm:"column:session_token;type:varchar(128);index:idx_helpdesk_mirror_session"`
	Status                 string     `gorm:"column:status;type:varchar(20)"`
	Priority               string     `gorm:"column:priority;type:varchar(20)"`
	AssigneeId             string     `gorm:"column:assignee_id;type:varchar(64)"`
	AssigneeName           string     `gorm:"column:assignee_name;type:varchar(120)"`
	MessageCount           int        `gorm:"column:message_count;type:int;not null;default:0"`
	LastActivityAt         *time.Time `gorm:"column:last_activity_at;type:datetime"`
	StartedAt              *time.Time `gorm:"column:started_at;type:datetime"`
	FirstResponseAt        *time.Time `gorm:"column:first_response_at;type:datetime"`
	FirstResponseSeconds   *int64     `gorm:"column:first_response_seconds;type:bigint"`
	ResolvedAt             *time.Time `gorm:"column:resolved_at;type:datetime"`
	ResolutionSeconds      *int64     `gorm:"column:resolution_seconds;type:bigint"`
	CreatedSeen            bool       `gorm:"column:created_seen;not null"`
	RawPayload             RawJSON    `gorm:"column:raw_payload;type:json"`
	CreatedAt              time.Time  `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt              time.Time  `gorm:"column:updated_at;type:datetime;not null"`
}

func (ConversationMirror) TableName() string { return "helpdesk_conversation_mirror" }

// RecomputeDerived 两端时间都已知且派生字段为空时才计算
func (m *ConversationMirror) RecomputeDerived() {
	if m.StartedAt == nil {
		return
	}
	if m.FirstResponseAt != nil && m.FirstResponseSeconds == nil {
		d := secondsBetween(*m.StartedAt, *m.FirstResponseAt)
		m.FirstResponseSeconds = &d
	}
	if m.ResolvedAt != nil && m.ResolutionSeconds == nil {
		d := secondsBetween(*m.StartedAt, *m.ResolvedAt)
		m.ResolutionSeconds = &d
	}
}

func secondsBetween(from, to time.Time) int64 {
	d := int64(to.Sub(from) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}
