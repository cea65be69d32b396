package entity

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
	"time"
)

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

type Address struct {
	Name     string `json:"name,omitempty"`
	Line1    string `json:"line1,omitempty"`
	Line2    string `json:"line2,omitempty"`
	City     string `json:"city,omitempty"`
	Province string `json:"province,omitempty"`
	Zip      string `json:"zip,omitempty"`
	Country  string `json:"country,omitempty"`
}

func (a Address) Value() (driver.Value, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *Address) Scan(src any) error {
	return scanJSON(src, a)
}

// OneLine 地址单行展示
func (a Address) OneLine() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{a.Line1, a.Line2, a.City, a.Province, a.Zip, a.Country} {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

type Order struct {
	Id              string          `gorm:"column:id;type:char(20);primaryKey"`
	OrgId           string          `gorm:"column:org_id;type:char(20);not null;uniqueIndex:uniq_store_order_number,priority:1;index:idx_store_order_customer,priority:1"`
	CustomerId      string          `gorm:"column:customer_id;type:char(20);index:idx_store_order_customer,priority:2"`
	OrderNumber     string          `gorm:"column:order_number;type:varchar(40);not null;uniqueIndex:uniq_store_order_number,priority:2"`
	Email           string          `gorm:"column:email;type:varchar(190);index:idx_store_order_email"`
	Status          string          `gorm:"column:status;type:varchar(20);not null"`
	FinancialStatus string          `gorm:"column:financial_status;type:varchar(20)"`
	TotalPrice      float64         `gorm:"column:total_price;type:decimal(12,2);not null;default:0"`
	Currency        string          `gorm:"column:currency;type:char(3)"`
	ShippingAddress Address         `gorm:"column:shipping_address;type:json"`
	TrackingNumber  string          `gorm:"column:tracking_number;type:varchar(80)"`
	TrackingCarrier string          `gorm:"column:tracking_carrier;type:varchar(60)"`
	TrackingURL     string          `gorm:"column:tracking_url;type:varchar(255)"`
	ShippedAt       *time.Time      `gorm:"column:shipped_at;type:datetime"`
	DeliveredAt     *time.Time      `gorm:"column:delivered_at;type:datetime"`
	CancelledAt     *time.Time      `gorm:"column:cancelled_at;type:datetime"`
	CreatedAt       time.Time       `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;type:datetime;not null"`
	LineItems       []OrderLineItem `gorm:"foreignKey:OrderId;references:Id"`
}

func (Order) TableName() string { return "store_order" }

type OrderLineItem struct {
	Id        int64   `gorm:"column:id;primaryKey;autoIncrement"`
	OrderId   string  `gorm:"column:order_id;type:char(20);not null;index:idx_store_line_item_order"`
	ProductId string  `gorm:"column:product_id;type:char(20)"`
	Title     string  `gorm:"column:title;type:varchar(255);not null"`
	Category  string  `gorm:"column:category;type:varchar(80)"`
	Quantity  int     `gorm:"column:quantity;type:int;not null;default:1"`
	Price     float64 `gorm:"column:price;type:decimal(12,2);not null;default:0"`
}

func (OrderLineItem) TableName() string { return "store_order_line_item" }
