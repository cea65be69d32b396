package tools_test

import (
	"context"
	"testing"
	"time"

	"StoreSupport/internal/modules/storefront/domain/bundle"
	"StoreSupport/internal/modules/storefront/domain/entity"
	"StoreSupport/internal/modules/storefront/infrastructure/persistence"
	"StoreSupport/internal/modules/storefront/infrastructure/tools"
	"StoreSupport/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newRegistry(t *testing.T) (*tools.Registry, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t)
	testutil.SeedOrg(t, db, testutil.OrgID)
	return tools.NewRegistry(tools.Deps{
		Orders:  persistence.NewOrderRepository(db),
		Orgs:    persistence.NewOrganizationRepository(db),
		Catalog: persistence.NewCatalogRepository(db),
	}), db
}

func alice() *bundle.ContextBundle {
	return &bundle.ContextBundle{Customer: &bundle.CustomerProfile{Id: testutil.CustomerID, Email: "alice@example.com"}}
}

func run(t *testing.T, r *tools.Registry, name, args string, b *bundle.ContextBundle) *tools.Outcome {
	t.Helper()
	inv, err := r.Execute(context.Background(), testutil.OrgID, name, args, b)
	require.NoError(t, err)
	require.NotNil(t, inv.Outcome)
	assert.Equal(t, name, inv.Name)
	return inv.Outcome
}

func TestRegistry_ToolsSortedAndDescribed(t *testing.T) {
	r, _ := newRegistry(t)
	var names []string
	for _, tl := range r.Tools() {
		names = append(names, tl.Name())
	}
	assert.Equal(t, []string{
		tools.NameShippingStatus, tools.NameEscalate, tools.NameStorePolicies, tools.NameOrderLookup, tools.NameProductSearch,
	}, names)
	assert.Len(t, r.Infos(context.Background()), 5)
}

func TestRegistry_UnknownTool(t *testing.T) {
	r, _ := newRegistry(t)
	out := run(t, r, "refund_order", `{}`, nil)
	assert.True(t, out.InvalidArgs)
	assert.False(t, out.Found)
}

func TestOrderLookup(t *testing.T) {
	r, db := newRegistry(t)
	testutil.SeedOrder(t, db, testutil.OrgID, testutil.CustomerID, "ord_1", "1001", entity.OrderStatusShipped, 58, testutil.BaseTime)
	other := testutil.SeedOrder(t, db, testutil.OrgID, "cus_bob", "ord_2", "1002", entity.OrderStatusPending, 20, testutil.BaseTime)
	require.NoError(t, db.Model(other).Update("email", "bob@example.com").Error)

	out := run(t, r, tools.NameOrderLookup, `{"order_number":"#1001"}`, alice())
	require.True(t, out.Found)
	assert.Contains(t, out.Content, "Order #1001 is shipped.")
	assert.Contains(t, out.Content, "Tracking number: 1Z999 (UPS).")
	assert.Contains(t, out.Content, "Organic Tee x1")

	out = run(t, r, tools.NameOrderLookup, `{"order_number":"1002"}`, alice())
	assert.False(t, out.Found)
	assert.Contains(t, out.Content, "#1002")

	out = run(t, r, tools.NameOrderLookup, `{"order_number":"1002","customer_email":"alice@example.com"}`, nil)
	assert.False(t, out.Found)

	out = run(t, r, tools.NameOrderLookup, `{"order_number":"1002","customer_email":"Bob@Example.com"}`, nil)
	require.True(t, out.Found)
	assert.Contains(t, out.Content, "Order #1002 is pending.")

	out = run(t, r, tools.NameOrderLookup, `{"customer_email":"nobody@example.com"}`, alice())
	assert.False(t, out.Found)
	assert.Contains(t, out.Content, "nobody@example.com")

	assert.True(t, run(t, r, tools.NameOrderLookup, `{}`, nil).InvalidArgs)
	assert.True(t, run(t, r, tools.NameOrderLookup, `{"order_number":`, nil).InvalidArgs)
}

func TestOrderLookup_AnonymousNeedsNumberAndEmail(t *testing.T) {
	r, db := newRegistry(t)
	bob := testutil.SeedOrder(t, db, testutil.OrgID, "cus_bob", "ord_2", "1002", entity.OrderStatusShipped, 20, testutil.BaseTime)
	require.NoError(t, db.Model(bob).Update("email", "bob@example.com").Error)

	for _, args := range []string{
		`{"order_number":"1002"}`,
		`{"customer_email":"bob@example.com"}`,
	} {
		out := run(t, r, tools.NameOrderLookup, args, nil)
		assert.False(t, out.Found, args)
		assert.False(t, out.InvalidArgs, args)
		assert.Contains(t, out.Content, "order number and the email address", args)
		assert.NotContains(t, out.Content, "Organic Tee", args)
	}

	out := run(t, r, tools.NameOrderLookup, `{"order_number":"1002","customer_email":"eve@example.com"}`, nil)
	assert.False(t, out.Found)
	assert.NotContains(t, out.Content, "Organic Tee")

	out = run(t, r, tools.NameShippingStatus, `{"order_number":"1002"}`, nil)
	assert.False(t, out.Found)
	assert.NotContains(t, out.Content, "Main St")

	out = run(t, r, tools.NameShippingStatus, `{"order_number":"1002","customer_email":"eve@example.com"}`, nil)
	assert.False(t, out.Found)
	assert.NotContains(t, out.Content, "Main St")

	out = run(t, r, tools.NameShippingStatus, `{"order_number":"1002","customer_email":"BOB@example.com"}`, nil)
	require.True(t, out.Found)
	assert.Contains(t, out.Content, "Order #1002 has shipped")
}

func TestOrderLookup_StaffViewSeesAnyOrder(t *testing.T) {
	r, db := newRegistry(t)
	testutil.SeedOrder(t, db, testutil.OrgID, "cus_bob", "ord_2", "1002", entity.OrderStatusPending, 20, testutil.BaseTime)

	out := run(t, r, tools.NameOrderLookup, `{"order_number":"1002"}`, &bundle.ContextBundle{StaffView: true})
	require.True(t, out.Found)
	assert.Contains(t, out.Content, "Order #1002 is pending.")
}

func TestOrderLookup_PrefersLoadedOrders(t *testing.T) {
	r, _ := newRegistry(t)
	b := alice()
	b.Orders = []bundle.OrderSummary{{OrderNumber: "#2001", Status: entity.OrderStatusDelivered, Total: 12, Currency: "USD", CreatedAt: testutil.BaseTime}}

	out := run(t, r, tools.NameOrderLookup, `{"order_number":"2001"}`, b)
	require.True(t, out.Found)
	assert.Contains(t, out.Content, "Order #2001 is delivered.")
	assert.Contains(t, out.Content, "12.00 USD")
}

func TestProductSearch(t *testing.T) {
	r, db := newRegistry(t)
	testutil.SeedProduct(t, db, testutil.OrgID, "prd_tee", "Organic Tee", "apparel", 25, 4)
	testutil.SeedProduct(t, db, testutil.OrgID, "prd_mug", "Enamel Mug", "home", 14, 0)

	out := run(t, r, tools.NameProductSearch, `{"query":"organic tee"}`, nil)
	require.True(t, out.Found)
	assert.Contains(t, out.Content, "Organic Tee: 25.00 USD (in stock)")

	out = run(t, r, tools.NameProductSearch, `{"query":"mug","max_price":"$20"}`, nil)
	require.True(t, out.Found)
	assert.Contains(t, out.Content, "Enamel Mug: 14.00 USD (out of stock)")

	out = run(t, r, tools.NameProductSearch, `{"query":"mug","max_price":10}`, nil)
	assert.False(t, out.Found)

	assert.True(t, run(t, r, tools.NameProductSearch, `{"query":"a the"}`, nil).InvalidArgs)
}

func TestProductSearch_FallsBackToLoadedCatalog(t *testing.T) {
	r, _ := newRegistry(t)
	b := &bundle.ContextBundle{
		Store: bundle.StoreProfile{Currency: "EUR"},
		Catalog: []bundle.ProductSummary{
			{Id: "p1", Title: "Recycled Hoodie", Category: "apparel", Price: 60, InStock: true},
			{Id: "p2", Title: "Canvas Tote", Category: "bags", Price: 18, InStock: true},
		},
	}
	out := run(t, r, tools.NameProductSearch, `{"query":"hoodies"}`, b)
	require.True(t, out.Found)
	assert.Contains(t, out.Content, "Recycled Hoodie: 60.00 EUR")
	assert.NotContains(t, out.Content, "Canvas Tote")
}

func TestKeywords(t *testing.T) {
	assert.Equal(t, []string{"blue", "running", "shoes"}, tools.Keywords("I'm looking for BLUE running shoes, blue!"))
	assert.Empty(t, tools.Keywords("a to the"))
}

func TestShippingStatus(t *testing.T) {
	r, db := newRegistry(t)
	testutil.SeedOrder(t, db, testutil.OrgID, testutil.CustomerID, "ord_1", "1001", entity.OrderStatusShipped, 58, testutil.BaseTime)

	out := run(t, r, tools.NameShippingStatus, `{"order_number":"1001"}`, alice())
	require.True(t, out.Found)
	assert.Contains(t, out.Content, "Order #1001 has shipped on Mar 3, 2026 via UPS.")
	assert.Contains(t, out.Content, "Tracking number: 1Z999.")

	out = run(t, r, tools.NameShippingStatus, `{"order_number":"4040"}`, alice())
	assert.False(t, out.Found)
	assert.True(t, run(t, r, tools.NameShippingStatus, `{}`, alice()).InvalidArgs)
}

func TestShippingSentence(t *testing.T) {
	delivered := testutil.BaseTime.Add(72 * time.Hour)
	cases := []struct {
		order bundle.OrderSummary
		want  string
	}{
		{bundle.OrderSummary{OrderNumber: "1", Status: entity.OrderStatusPending}, "Order #1 has been received and is waiting to be processed."},
		{bundle.OrderSummary{OrderNumber: "2", Status: entity.OrderStatusProcessing}, "Order #2 is being prepared for shipment and hasn't shipped yet."},
		{bundle.OrderSummary{OrderNumber: "3", Status: entity.OrderStatusDelivered, DeliveredAt: &delivered, ShipTo: "Springfield"}, "Order #3 was delivered on Mar 5, 2026 to Springfield."},
		{bundle.OrderSummary{OrderNumber: "4", Status: entity.OrderStatusCancelled}, "Order #4 was cancelled."},
		{bundle.OrderSummary{OrderNumber: "5", Status: "on_hold"}, "Order #5 is currently on_hold."},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tools.ShippingSentence(&tc.order))
	}
}

func TestStorePolicies(t *testing.T) {
	r, db := newRegistry(t)

	out := run(t, r, tools.NameStorePolicies, `{"policy_type":"Returns"}`, nil)
	require.True(t, out.Found)
	assert.Contains(t, out.Content, "30 days")

	require.NoError(t, db.Create(&entity.StorePolicy{
		OrgId: testutil.OrgID, PolicyType: entity.PolicyShipping, Title: "Shipping", Body: "We ship worldwide within 48 hours.",
		CreatedAt: testutil.BaseTime, UpdatedAt: testutil.BaseTime,
	}).Error)
	out = run(t, r, tools.NameStorePolicies, `{"policy_type":"shipping"}`, nil)
	assert.Equal(t, "We ship worldwide within 48 hours.", out.Content)

	b := &bundle.ContextBundle{Policies: []bundle.PolicyDoc{{Type: entity.PolicyExchanges, Body: "Exchanges within 14 days."}}}
	out = run(t, r, tools.NameStorePolicies, `{"policy_type":"exchanges"}`, b)
	assert.Equal(t, "Exchanges within 14 days.", out.Content)

	out = run(t, r, tools.NameStorePolicies, `{"policy_type":"warranty"}`, nil)
	assert.True(t, out.InvalidArgs)
}

func TestEscalateTool(t *testing.T) {
	r, _ := newRegistry(t)
	out := run(t, r, tools.NameEscalate, `{"reason":"billing dispute","priority":"URGENT"}`, nil)
	assert.True(t, out.Escalate)
	assert.Equal(t, tools.PriorityUrgent, out.Priority)
	assert.Equal(t, "billing dispute", out.Reason)

	out = run(t, r, tools.NameEscalate, `not json`, nil)
	assert.True(t, out.Escalate)
	assert.Equal(t, tools.PriorityNormal, out.Priority)
	assert.Equal(t, "assistant requested a human agent", out.Reason)
}
