// Package bundle 描述一次对话回合所需的只读客户与店铺快照。
package bundle

import (
	"strings"
	"time"
)

type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

type StoreProfile struct {
	OrgId         string `json:"org_id"`
	Name          string `json:"name"`
	Domain        string `json:"domain,omitempty"`
	Currency      string `json:"currency"`
	Timezone      string `json:"timezone"`
	BusinessHours string `json:"business_hours,omitempty"`
	SupportEmail  string `json:"support_email,omitempty"`
}

type PolicyDoc struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type FAQ struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Score    float64 `json:"score"`
}

type ProductSummary struct {
	Id             string  `json:"id"`
	Title          string  `json:"title"`
	Category       string  `json:"category,omitempty"`
	Handle         string  `json:"handle,omitempty"`
	Price          float64 `json:"price"`
	CompareAtPrice float64 `json:"compare_at_price,omitempty"`
	InStock        bool    `json:"in_stock"`
}

type CollectionSummary struct {
	Title  string `json:"title"`
	Handle string `json:"handle,omitempty"`
}

type CustomerProfile struct {
	Id                string  `json:"id"`
	Email             string  `json:"email"`
	Name              string  `json:"name"`
	Tier              Tier    `json:"tier"`
	LifetimeSpend     float64 `json:"lifetime_spend"`
	OrderCount        int     `json:"order_count"`
	HighPriority      bool    `json:"high_priority"`
	ExternalContactId string  `json:"external_contact_id,omitempty"`
}

type LineSummary struct {
	ProductId string  `json:"product_id,omitempty"`
	Title     string  `json:"title"`
	Category  string  `json:"category,omitempty"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type OrderSummary struct {
	Id             string        `json:"id"`
	OrderNumber    string        `json:"order_number"`
	Status         string        `json:"status"`
	Total          float64       `json:"total"`
	Currency       string        `json:"currency"`
	TrackingNumber string        `json:"tracking_number,omitempty"`
	Carrier        string        `json:"carrier,omitempty"`
	TrackingURL    string        `json:"tracking_url,omitempty"`
	ShipTo         string        `json:"ship_to,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	ShippedAt      *time.Time    `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time    `json:"delivered_at,omitempty"`
	CancelledAt    *time.Time    `json:"cancelled_at,omitempty"`
	Items          []LineSummary `json:"items"`
}

type CartLine struct {
	ProductId string  `json:"product_id"`
	Title     string  `json:"title"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type CartSummary struct {
	Id        string     `json:"id"`
	Items     []CartLine `json:"items"`
	Subtotal  float64    `json:"subtotal"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ContextBundle 单回合上下文快照；Customer 为空即匿名访客
type ContextBundle struct {
	Store       StoreProfile        `json:"store"`
	Policies    []PolicyDoc         `json:"policies"`
	FAQs        []FAQ               `json:"faqs"`
	Catalog     []ProductSummary    `json:"catalog"`
	Collections []CollectionSummary `json:"collections"`
	Customer    *CustomerProfile    `json:"customer,omitempty"`
	Orders      []OrderSummary      `json:"orders"`
	Cart        *CartSummary        `json:"cart,omitempty"`
	Degraded    []string            `json:"degraded,omitempty"`
	BuiltAt     time.Time           `json:"built_at"`
	// StaffView 坐席工具链构建的上下文，订单查询不按访客归属过滤
	StaffView bool `json:"-"`
}

func (b *ContextBundle) IsAnonymous() bool {
	return b == nil || b.Customer == nil
}

func (b *ContextBundle) IsStaff() bool {
	return b != nil && b.StaffView
}

func (b *ContextBundle) HasOrders() bool {
	return b != nil && len(b.Orders) > 0
}

func (b *ContextBundle) Policy(policyType string) *PolicyDoc {
	if b == nil {
		return nil
	}
	for i := range b.Policies {
		if strings.EqualFold(b.Policies[i].Type, policyType) {
			return &b.Policies[i]
		}
	}
	return nil
}

// KnowledgeTexts FAQ 答案与政策正文，供置信度计算做词项重叠
func (b *ContextBundle) KnowledgeTexts() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.FAQs)+len(b.Policies))
	for _, f := range b.FAQs {
		out = append(out, f.Answer)
	}
	for _, p := range b.Policies {
		out = append(out, p.Body)
	}
	return out
}

// FindOrder 在已加载的最近订单中按单号查找，单号比较忽略大小写与前导 #
func (b *ContextBundle) FindOrder(number string) *OrderSummary {
	if b == nil {
		return nil
	}
	want := NormalizeOrderNumber(number)
	for i := range b.Orders {
		if NormalizeOrderNumber(b.Orders[i].OrderNumber) == want {
			return &b.Orders[i]
		}
	}
	return nil
}

func NormalizeOrderNumber(s string) string {
	return strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(s), "#"))
}
