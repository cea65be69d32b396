package entity

import "time"

const (
	CartStatusActive    = "active"
	CartStatusConverted = "converted"
	CartStatusAbandoned = "abandoned"
)

type Cart struct {
	Id         string     `gorm:"column:id;type:char(20);primaryKey"`
	OrgId      string     `gorm:"column:org_id;type:char(20);not null;index:idx_store_cart_customer,priority:1"`
	CustomerId string     `gorm:"column:customer_id;type:char(20);not null;index:idx_store_cart_customer,priority:2"`
	Status     string     `gorm:"column:status;type:varchar(20);not null"`
	CreatedAt  time.Time  `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;type:datetime;not null"`
	Items      []CartItem `gorm:"foreignKey:CartId;references:Id"`
}

func (Cart) TableName() string { return "store_cart" }

type CartItem struct {
	Id        int64    `gorm:"column:id;primaryKey;autoIncrement"`
	CartId    string   `gorm:"column:cart_id;type:char(20);not null;index:idx_store_cart_item_cart"`
	ProductId string   `gorm:"column:product_id;type:char(20);not null"`
	Quantity  int      `gorm:"column:quantity;type:int;not null;default:1"`
	Price     float64  `gorm:"column:price;type:decimal(12,2);not null;default:0"`
	Product   *Product `gorm:"foreignKey:ProductId;references:Id"`
}

func (CartItem) TableName() string { return "store_cart_item" }
