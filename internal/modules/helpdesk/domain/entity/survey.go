package entity

import "time"

const (
	SurveyStatusPending = "pending"
	SurveyStatusSent    = "sent"
	SurveyStatusFailed  = "failed"
)

// SatisfactionSurvey 会话解决后的满意度调查，每个会话最多一条
type SatisfactionSurvey struct {
	Id                     int64      `gorm:"column:id;primaryKey;autoIncrement"`
	OrgId                  string     `gorm:"column:org_id;type:char(20);not null;uniqueIndex:uniq_helpdesk_survey_conv,priority:1"`
	ExternalConversationId string     `gorm:"column:external_conversation_id;type:varchar(64);not null;uniqueIndex:uniq_helpdesk_survey_conv,priority:2"`
	ContactEmail           string     `gorm:"column:contact_email;type:varchar(190)"`
	CustomerId             *string    `gorm:"column:customer_id;type:char(20)"`
	Status                 string     `gorm:"column:status;type:varchar(20);not null;index:idx_helpdesk_survey_due,priority:1"`
	DueAt                  time.Time  `gorm:"column:due_at;type:datetime;not null;index:idx_helpdesk_survey_due,priority:2"`
	SentAt                 *time.Time `gorm:"column:sent_at;type:datetime"`
	Attempts               int        `gorm:"column:attempts;type:int;not null;default:0"`
	LastError              string     `gorm:"column:last_error;type:varchar(255)"`
	CreatedAt              time.Time  `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt              time.Time  `gorm:"column:updated_at;type:datetime;not null"`
}

func (SatisfactionSurvey) TableName() string { return "helpdesk_satisfaction_survey" }
