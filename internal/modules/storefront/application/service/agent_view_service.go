package service

import (
	"context"
	"math"
	"sort"
	"strings"

	"StoreSupport/internal/modules/storefront/application/dto/respond"
	"StoreSupport/internal/modules/storefront/domain/bundle"
	"StoreSupport/internal/modules/storefront/domain/repository"
	"StoreSupport/pkg/util"
	"StoreSupport/pkg/xerr"
)

const (
	AgentActionContext         = "context"
	AgentActionOrders          = "orders"
	AgentActionCart            = "cart"
	AgentActionInsights        = "insights"
	AgentActionRecommendations = "recommendations"
)

var ErrContactNotLinked = xerr.New(xerr.NotFound, "helpdesk contact is not linked to a customer")

// AgentViewService 坐席侧边栏：按外部联系人读取客户视图
type AgentViewService interface {
	View(ctx context.Context, orgID, contactID, action string) (any, error)
}

type agentViewServiceImpl struct {
	contextSvc ContextService
	customers  repository.CustomerRepository
	catalog    repository.CatalogRepository
	clock      util.Clock
}

func NewAgentViewService(contextSvc ContextService, customers repository.CustomerRepository, catalog repository.CatalogRepository, clock util.Clock) AgentViewService {
	if clock == nil {
		clock = util.SystemClock()
	}
	return &agentViewServiceImpl{contextSvc: contextSvc, customers: customers, catalog: catalog, clock: clock}
}

func (s *agentViewServiceImpl) View(ctx context.Context, orgID, contactID, action string) (any, error) {
	action = strings.ToLower(strings.TrimSpace(action))
	if action == "" {
		action = AgentActionContext
	}
	switch action {
	case AgentActionContext, AgentActionOrders, AgentActionCart, AgentActionInsights, AgentActionRecommendations:
	default:
		return nil, xerr.New(xerr.BadRequest, "unknown action: "+action)
	}

	c, err := s.customers.GetByExternalContact(ctx, orgID, contactID)
	if err != nil {
		return nil, xerr.Wrap(xerr.ErrContextDown.Code, xerr.ErrContextDown.Message, err)
	}
	if c == nil {
		return nil, ErrContactNotLinked
	}

	b, err := s.contextSvc.Build(ctx, orgID, &c.Id)
	if err != nil {
		return nil, err
	}

	switch action {
	case AgentActionOrders:
		return &respond.AgentOrdersRespond{Orders: b.Orders}, nil
	case AgentActionCart:
		return &respond.AgentCartRespond{Cart: b.Cart}, nil
	case AgentActionInsights:
		return s.Insights(b), nil
	case AgentActionRecommendations:
		products, err := s.recommend(ctx, b, 5)
		if err != nil {
			return nil, err
		}
		return &respond.AgentRecommendationsRespond{Products: products}, nil
	default:
		return &respond.AgentContextRespond{
			Store:    b.Store,
			Customer: b.Customer,
			Orders:   b.Orders,
			Cart:     b.Cart,
			Insights: s.Insights(b),
		}, nil
	}
}

// Insights 由上下文快照派生的客户画像指标
func (s *agentViewServiceImpl) Insights(b *bundle.ContextBundle) *respond.CustomerInsights {
	out := &respond.CustomerInsights{FavoriteCategories: []string{}}
	if b == nil || b.Customer == nil {
		return out
	}
	out.Tier = b.Customer.Tier
	out.LifetimeSpend = b.Customer.LifetimeSpend
	out.OrderCount = b.Customer.OrderCount
	out.HighPriority = b.Customer.HighPriority
	if out.OrderCount > 0 {
		out.AverageOrderValue = math.Round(out.LifetimeSpend/float64(out.OrderCount)*100) / 100
	}
	if len(b.Orders) > 0 {
		days := int(s.clock.Now().Sub(b.Orders[0].CreatedAt).Hours() / 24)
		if days < 0 {
			days = 0
		}
		out.DaysSinceLastOrder = &days
	}
	out.FavoriteCategories = favoriteCategories(b.Orders, 3)
	if b.Cart != nil {
		out.OpenCartValue = b.Cart.Subtotal
	}
	return out
}

func (s *agentViewServiceImpl) recommend(ctx context.Context, b *bundle.ContextBundle, limit int) ([]bundle.ProductSummary, error) {
	purchased := make(map[string]struct{})
	for _, o := range b.Orders {
		for _, li := range o.Items {
			if li.ProductId != "" {
				purchased[li.ProductId] = struct{}{}
			}
		}
	}

	out := make([]bundle.ProductSummary, 0, limit)
	seen := make(map[string]struct{})
	pick := func(ps []bundle.ProductSummary) {
		for _, p := range ps {
			if len(out) >= limit {
				return
			}
			if _, ok := purchased[p.Id]; ok {
				continue
			}
			if _, ok := seen[p.Id]; ok {
				continue
			}
			if !p.InStock {
				continue
			}
			seen[p.Id] = struct{}{}
			out = append(out, p)
		}
	}

	if cats := favoriteCategories(b.Orders, 3); len(cats) > 0 {
		products, err := s.catalog.ListByCategories(ctx, b.Store.OrgId, cats, limit*3)
		if err != nil {
			return nil, xerr.Wrap(xerr.ErrContextDown.Code, xerr.ErrContextDown.Message, err)
		}
		pick(ToProductSummaries(products))
	}
	pick(b.Catalog)
	return out, nil
}

func favoriteCategories(orders []bundle.OrderSummary, n int) []string {
	counts := make(map[string]int)
	for _, o := range orders {
		for _, li := range o.Items {
			if c := strings.TrimSpace(li.Category); c != "" {
				counts[c] += li.Quantity
			}
		}
	}
	cats := make([]string, 0, len(counts))
	for c := range counts {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if counts[cats[i]] != counts[cats[j]] {
			return counts[cats[i]] > counts[cats[j]]
		}
		return cats[i] < cats[j]
	})
	if len(cats) > n {
		cats = cats[:n]
	}
	return cats
}
