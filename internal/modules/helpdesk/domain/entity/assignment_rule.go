package entity

import (
	"strings"
	"time"
)

// AssignmentRule 组织级自动分配规则，Priority 小的先匹配；空条件视为通配
type AssignmentRule struct {
	Id                int64     `gorm:"column:id;primaryKey;autoIncrement"`
	OrgId             string    `gorm:"column:org_id;type:char(20);not null;index:idx_helpdesk_rule_org"`
	Name              string    `gorm:"column:name;type:varchar(120);not null"`
	Priority          int       `gorm:"column:priority;type:int;not null;default:100"`
	MatchTier         string    `gorm:"column:match_tier;type:varchar(20)"`
	MatchHighPriority bool      `gorm:"column:match_high_priority;not null"`
	MatchInboxId      string    `gorm:"column:match_inbox_id;type:varchar(64)"`
	MatchKeyword      string    `gorm:"column:match_keyword;type:varchar(120)"`
	AssigneeId        string    `gorm:"column:assignee_id;type:varchar(64);not null"`
	AssigneeName      string    `gorm:"column:assignee_name;type:varchar(120)"`
	Active            bool      `gorm:"column:active;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt         time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (AssignmentRule) TableName() string { return "helpdesk_assignment_rule" }

type RuleSubject struct {
	Tier         string
	HighPriority bool
	InboxId      string
	Text         string
}

func (r *AssignmentRule) Matches(s RuleSubject) bool {
	if !r.Active {
		return false
	}
	if r.MatchTier != "" && !strings.EqualFold(r.MatchTier, s.Tier) {
		return false
	}
	if r.MatchHighPriority && !s.HighPriority {
		return false
	}
	if r.MatchInboxId != "" && r.MatchInboxId != s.InboxId {
		return false
	}
	if kw := strings.TrimSpace(r.MatchKeyword); kw != "" && !strings.Contains(strings.ToLower(s.Text), strings.ToLower(kw)) {
		return false
	}
	return true
}
