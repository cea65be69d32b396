package entity

import "time"

// Organization 店铺（租户）基础信息，由后台维护，本服务只读
type Organization struct {
	Id            string    `gorm:"column:id;type:char(20);primaryKey"`
	Name          string    `gorm:"column:name;type:varchar(120);not null"`
	Domain        string    `gorm:"column:domain;type:varchar(190)"`
	Currency      string    `gorm:"column:currency;type:char(3);not null;default:'USD'"`
	Timezone      string    `gorm:"column:timezone;type:varchar(64);not null;default:'UTC'"`
	BusinessHours string    `gorm:"column:business_hours;type:varchar(255)"`
	SupportEmail  string    `gorm:"column:support_email;type:varchar(190)"`
	CreatedAt     time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (Organization) TableName() string { return "store_organization" }

const (
	PolicyReturns   = "returns"
	PolicyShipping  = "shipping"
	PolicyExchanges = "exchanges"
	PolicyPrivacy   = "privacy"
)

// StorePolicy 店铺自定义政策文本，覆盖内置默认文案
type StorePolicy struct {
	Id         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	OrgId      string    `gorm:"column:org_id;type:char(20);not null;uniqueIndex:uniq_store_policy_type,priority:1"`
	PolicyType string    `gorm:"column:policy_type;type:varchar(30);not null;uniqueIndex:uniq_store_policy_type,priority:2"`
	Title      string    `gorm:"column:title;type:varchar(120)"`
	Body       string    `gorm:"column:body;type:text"`
	CreatedAt  time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (StorePolicy) TableName() string { return "store_policy" }
