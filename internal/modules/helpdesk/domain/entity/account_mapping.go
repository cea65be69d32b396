package entity

import "time"

// AccountMapping 外部账号到组织的映射
type AccountMapping struct {
	Id                int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ExternalAccountId string    `gorm:"column:external_account_id;type:varchar(64);not null;uniqueIndex:uniq_helpdesk_account"`
	OrgId             string    `gorm:"column:org_id;type:char(20);not null;index:idx_helpdesk_account_org"`
	AccountName       string    `gorm:"column:account_name;type:varchar(120)"`
	Active            bool      `gorm:"column:active;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt         time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (AccountMapping) TableName() string { return "helpdesk_account_mapping" }
