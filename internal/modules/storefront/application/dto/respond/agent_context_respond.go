package respond

import "StoreSupport/internal/modules/storefront/domain/bundle"

// AgentContextRespond 坐席侧边栏 action=context 的完整视图
type AgentContextRespond struct {
	Store    bundle.StoreProfile     `json:"store"`
	Customer *bundle.CustomerProfile `json:"customer"`
	Orders   []bundle.OrderSummary   `json:"orders"`
	Cart     *bundle.CartSummary     `json:"cart,omitempty"`
	Insights *CustomerInsights       `json:"insights"`
}

type AgentOrdersRespond struct {
	Orders []bundle.OrderSummary `json:"orders"`
}

type AgentCartRespond struct {
	Cart *bundle.CartSummary `json:"cart"`
}

type CustomerInsights struct {
	Tier               bundle.Tier `json:"tier"`
	LifetimeSpend      float64     `json:"lifetime_spend"`
	OrderCount         int         `json:"order_count"`
	AverageOrderValue  float64     `json:"average_order_value"`
	DaysSinceLastOrder *int        `json:"days_since_last_order,omitempty"`
	FavoriteCategories []string    `json:"favorite_categories"`
	OpenCartValue      float64     `json:"open_cart_value"`
	HighPriority       bool        `json:"high_priority"`
}

type AgentRecommendationsRespond struct {
	Products []bundle.ProductSummary `json:"products"`
}
