package entity

import (
	"database/sql"
	"time"
)

const (
	EventCustomerEnrich    = "customer.enrich"
	EventStakeholderNotify = "stakeholder.notify"
	EventFollowupTriggered = "followup.triggered"
	EventSurveySchedule    = "survey.schedule"
	EventAssignmentApply   = "assignment.apply"
	EventEscalationHandoff = "escalation.handoff"
)

const (
	PublishStatusPending    int8 = 0
	PublishStatusPublishing int8 = 1
	PublishStatusPublished  int8 = 2
	PublishStatusFailed     int8 = 3
)

const (
	ProcessStatusPending    int8 = 0
	ProcessStatusProcessing int8 = 1
	ProcessStatusSucceeded  int8 = 2
	ProcessStatusFailed     int8 = 3
)

// ClaimLease publishing / processing 状态超过该时长视为进程崩溃遗留，可被重新认领
const ClaimLease = 10 * time.Minute

// OutboxEvent 副作用事件，与业务写入同事务落库后异步投递
type OutboxEvent struct {
	Id             int64        `gorm:"column:id;primaryKey;autoIncrement"`
	OrgId          string       `gorm:"column:org_id;type:char(20);not null;index:idx_helpdesk_outbox_org"`
	EventType      string       `gorm:"column:event_type;type:varchar(40);not null"`
	DedupKey       string       `gorm:"column:dedup_key;type:varchar(190);not null;uniqueIndex:uniq_helpdesk_outbox_dedup"`
	PayloadJson    string       `gorm:"column:payload_json;type:json"`
	PublishStatus  int8         `gorm:"column:publish_status;type:tinyint;not null;default:0;index:idx_helpdesk_outbox_publish"`
	Status         int8         `gorm:"column:status;type:tinyint;not null;default:0"`
	RetryCount     int          `gorm:"column:retry_count;type:int;not null;default:0"`
	NextRetryAt    sql.NullTime `gorm:"column:next_retry_at;type:datetime;index:idx_helpdesk_outbox_next_retry"`
	KafkaTopic     string       `gorm:"column:kafka_topic;type:varchar(120)"`
	KafkaPartition int          `gorm:"column:kafka_partition;type:int;not null;default:0"`
	KafkaOffset    int64        `gorm:"column:kafka_offset;type:bigint;not null;default:0"`
	PublishedAt    sql.NullTime `gorm:"column:published_at;type:datetime"`
	LastError      string       `gorm:"column:last_error;type:varchar(255)"`
	CreatedAt      time.Time    `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt      time.Time    `gorm:"column:updated_at;type:datetime;not null"`
}

func (OutboxEvent) TableName() string { return "helpdesk_outbox_event" }
