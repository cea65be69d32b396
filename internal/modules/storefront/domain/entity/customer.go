package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CustomerAttributes 异步富化写回的缓存字段
type CustomerAttributes struct {
	Tier          string    `json:"tier,omitempty"`
	LifetimeSpend float64   `json:"lifetime_spend,omitempty"`
	OrderCount    int       `json:"order_count,omitempty"`
	AvgOrderValue float64   `json:"avg_order_value,omitempty"`
	LastOrderAt   time.Time `json:"last_order_at,omitempty"`
	RefreshedAt   time.Time `json:"refreshed_at,omitempty"`
}

func (a CustomerAttributes) Value() (driver.Value, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *CustomerAttributes) Scan(src any) error {
	return scanJSON(src, a)
}

type Customer struct {
	Id                string             `gorm:"column:id;type:char(20);primaryKey"`
	OrgId             string             `gorm:"column:org_id;type:char(20);not null;index:idx_store_customer_org_email,priority:1;index:idx_store_customer_org_contact,priority:1"`
	Email             string             `gorm:"column:email;type:varchar(190);index:idx_store_customer_org_email,priority:2"`
	FirstName         string             `gorm:"column:first_name;type:varchar(80)"`
	LastName          string             `gorm:"column:last_name;type:varchar(80)"`
	Phone             string             `gorm:"column:phone;type:varchar(40)"`
	TotalSpent        float64            `gorm:"column:total_spent;type:decimal(12,2);not null;default:0"`
	OrdersCount       int                `gorm:"column:orders_count;type:int;not null;default:0"`
	HighPriority      bool               `gorm:"column:high_priority;not null"`
	ExternalContactId string             `gorm:"column:external_contact_id;type:varchar(64);index:idx_store_customer_org_contact,priority:2"`
	CachedAttributes  CustomerAttributes `gorm:"column:cached_attributes;type:json"`
	CreatedAt         time.Time          `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;type:datetime;not null"`
}

func (Customer) TableName() string { return "store_customer" }

func (c *Customer) DisplayName() string {
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	default:
		return c.Email
	}
}

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
