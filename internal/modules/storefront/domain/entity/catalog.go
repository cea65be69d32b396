package entity

import "time"

const (
	ProductStatusActive   = "active"
	ProductStatusDraft    = "draft"
	ProductStatusArchived = "archived"
)

type Product struct {
	Id             string    `gorm:"column:id;type:char(20);primaryKey"`
	OrgId          string    `gorm:"column:org_id;type:char(20);not null;index:idx_store_product_org_status,priority:1"`
	Title          string    `gorm:"column:title;type:varchar(255);not null"`
	Description    string    `gorm:"column:description;type:text"`
	Category       string    `gorm:"column:category;type:varchar(80);index:idx_store_product_category"`
	Tags           string    `gorm:"column:tags;type:varchar(255)"`
	Handle         string    `gorm:"column:handle;type:varchar(190)"`
	Price          float64   `gorm:"column:price;type:decimal(12,2);not null;default:0"`
	CompareAtPrice float64   `gorm:"column:compare_at_price;type:decimal(12,2);not null;default:0"`
	Inventory      int       `gorm:"column:inventory;type:int;not null;default:0"`
	Status         string    `gorm:"column:status;type:varchar(20);not null;index:idx_store_product_org_status,priority:2"`
	CreatedAt      time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt      time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (Product) TableName() string { return "store_product" }

type Collection struct {
	Id          string    `gorm:"column:id;type:char(20);primaryKey"`
	OrgId       string    `gorm:"column:org_id;type:char(20);not null;index:idx_store_collection_org"`
	Title       string    `gorm:"column:title;type:varchar(190);not null"`
	Handle      string    `gorm:"column:handle;type:varchar(190)"`
	Description string    `gorm:"column:description;type:text"`
	Published   bool      `gorm:"column:published;not null"`
	SortOrder   int       `gorm:"column:sort_order;type:int;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (Collection) TableName() string { return "store_collection" }

// KnowledgeEntry FAQ 条目，按 effectiveness_score 排序选取
type KnowledgeEntry struct {
	Id                 int64     `gorm:"column:id;primaryKey;autoIncrement"`
	OrgId              string    `gorm:"column:org_id;type:char(20);not null;index:idx_store_knowledge_org"`
	Question           string    `gorm:"column:question;type:varchar(255);not null"`
	Answer             string    `gorm:"column:answer;type:text;not null"`
	Category           string    `gorm:"column:category;type:varchar(60)"`
	EffectivenessScore float64   `gorm:"column:effectiveness_score;type:double;not null;default:0"`
	Active             bool      `gorm:"column:active;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;type:datetime;not null"`
	UpdatedAt          time.Time `gorm:"column:updated_at;type:datetime;not null"`
}

func (KnowledgeEntry) TableName() string { return "store_knowledge_entry" }
