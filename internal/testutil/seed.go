package testutil

import (
	"testing"
	"time"

	helpdeskEntity "StoreSupport/internal/modules/helpdesk/domain/entity"
	storefrontEntity "StoreSupport/internal/modules/storefront/domain/entity"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	OrgID      = "org_demo"
	CustomerID = "cus_alice"
	AccountID  = "acct_1"
)

// BaseTime 种子数据的固定时间
var BaseTime = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func SeedOrg(t testing.TB, db *gorm.DB, id string) *storefrontEntity.Organization {
	t.Helper()
	org := &storefrontEntity.Organization{
		Id:            id,
		Name:          "Demo Outfitters",
		Domain:        "demo.example.com",
		Currency:      "USD",
		Timezone:      "UTC",
		BusinessHours: "Mon-Fri 9:00-17:00",
		SupportEmail:  "help@demo.example.com",
		CreatedAt:     BaseTime,
		UpdatedAt:     BaseTime,
	}
	require.NoError(t, db.Create(org).Error)
	return org
}

func SeedCustomer(t testing.TB, db *gorm.DB, orgID, id, email string, spent float64, orders int) *storefrontEntity.Customer {
	t.Helper()
	c := &storefrontEntity.Customer{
		Id:          id,
		OrgId:       orgID,
		Email:       email,
		FirstName:   "Alice",
		LastName:    "Nguyen",
		TotalSpent:  spent,
		OrdersCount: orders,
		CreatedAt:   BaseTime,
		UpdatedAt:   BaseTime,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func SeedOrder(t testing.TB, db *gorm.DB, orgID, customerID, id, number, status string, total float64, createdAt time.Time) *storefrontEntity.Order {
	t.Helper()
	o := &storefrontEntity.Order{
		Id:              id,
		OrgId:           orgID,
		CustomerId:      customerID,
		OrderNumber:     number,
		Email:           "alice@example.com",
		Status:          status,
		FinancialStatus: "paid",
		TotalPrice:      total,
		Currency:        "USD",
		ShippingAddress: storefrontEntity.Address{Name: "Alice", Line1: "1 Main St", City: "Springfield", Country: "US"},
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
		LineItems: []storefrontEntity.OrderLineItem{
			{ProductId: "prd_tee", Title: "Organic Tee", Category: "apparel", Quantity: 1, Price: total},
		},
	}
	if status == storefrontEntity.OrderStatusShipped || status == storefrontEntity.OrderStatusDelivered {
		shipped := createdAt.Add(24 * time.Hour)
		o.ShippedAt = &shipped
		o.TrackingNumber = "1Z999"
		o.TrackingCarrier = "UPS"
		o.TrackingURL = "https://track.example.com/1Z999"
	}
	require.NoError(t, db.Create(o).Error)
	return o
}

func SeedProduct(t testing.TB, db *gorm.DB, orgID, id, title, category string, price float64, inventory int) *storefrontEntity.Product {
	t.Helper()
	p := &storefrontEntity.Product{
		Id:          id,
		OrgId:       orgID,
		Title:       title,
		Description: title + " made from recycled materials",
		Category:    category,
		Price:       price,
		Inventory:   inventory,
		Status:      storefrontEntity.ProductStatusActive,
		CreatedAt:   BaseTime,
		UpdatedAt:   BaseTime,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func SeedFAQ(t testing.TB, db *gorm.DB, orgID, question, answer string, score float64) {
	t.Helper()
	require.NoError(t, db.Create(&storefrontEntity.KnowledgeEntry{
		OrgId:              orgID,
		Question:           question,
		Answer:             answer,
		Category:           "general",
		EffectivenessScore: score,
		Active:             true,
		CreatedAt:          BaseTime,
		UpdatedAt:          BaseTime,
	}).Error)
}

func SeedAccountMapping(t testing.TB, db *gorm.DB, accountID, orgID string) {
	t.Helper()
	require.NoError(t, db.Create(&helpdeskEntity.AccountMapping{
		ExternalAccountId: accountID,
		OrgId:             orgID,
		AccountName:       "Demo",
		Active:            true,
		CreatedAt:         BaseTime,
		UpdatedAt:         BaseTime,
	}).Error)
}

func SeedAssignmentRule(t testing.TB, db *gorm.DB, orgID string, rule helpdeskEntity.AssignmentRule) {
	t.Helper()
	rule.OrgId = orgID
	rule.Active = true
	if rule.Priority == 0 {
		rule.Priority = 100
	}
	rule.CreatedAt = BaseTime
	rule.UpdatedAt = BaseTime
	require.NoError(t, db.Create(&rule).Error)
}
