package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"StoreSupport/internal/config"
	"StoreSupport/internal/modules/storefront/domain/bundle"
	"StoreSupport/internal/modules/storefront/domain/entity"
	"StoreSupport/internal/modules/storefront/domain/repository"
	"StoreSupport/pkg/metrics"
	"StoreSupport/pkg/util"
	"StoreSupport/pkg/xerr"
	"StoreSupport/pkg/zlog"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ContextService 聚合单回合所需的店铺与客户上下文
type ContextService interface {
	Build(ctx context.Context, orgID string, customerID *string) (*bundle.ContextBundle, error)
}

type ContextRepos struct {
	Orgs      repository.OrganizationRepository
	Customers repository.CustomerRepository
	Orders    repository.OrderRepository
	Carts     repository.CartRepository
	Catalog   repository.CatalogRepository
	Knowledge repository.KnowledgeRepository
}

type contextServiceImpl struct {
	repos ContextRepos
	conf  config.ContextConfig
	tiers TierThresholds
	clock util.Clock
}

func NewContextService(repos ContextRepos, conf config.ContextConfig, clock util.Clock) ContextService {
	if clock == nil {
		clock = util.SystemClock()
	}
	return &contextServiceImpl{
		repos: repos,
		conf:  conf,
		tiers: ThresholdsFromConfig(conf),
		clock: clock,
	}
}

// Build 并行读取；店铺资料失败则整体失败，其余读取失败降级为空并记录
func (s *contextServiceImpl) Build(ctx context.Context, orgID string, customerID *string) (*bundle.ContextBundle, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, xerr.ErrParam
	}

	timeout := time.Duration(s.conf.FetchTimeoutMillis) * time.Millisecond
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		org         *entity.Organization
		policies    []entity.StorePolicy
		faqs        []entity.KnowledgeEntry
		products    []entity.Product
		collections []entity.Collection
		customer    *entity.Customer
		orders      []entity.Order
		cart        *entity.Cart
		degraded    = newDegradedSet()
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		o, err := s.repos.Orgs.GetByID(gctx, orgID)
		if err != nil {
			return xerr.Wrap(xerr.ErrContextDown.Code, xerr.ErrContextDown.Message, err)
		}
		if o == nil {
			return xerr.ErrOrgNotFound
		}
		org = o
		return nil
	})
	g.Go(func() error {
		p, err := s.repos.Orgs.ListPolicies(gctx, orgID)
		if err != nil {
			return xerr.Wrap(xerr.ErrContextDown.Code, xerr.ErrContextDown.Message, err)
		}
		policies = p
		return nil
	})
	g.Go(func() error {
		f, err := s.repos.Knowledge.TopFAQs(gctx, orgID, s.conf.FAQLimit)
		if err != nil {
			degraded.add(gctx, "faqs", err)
			return nil
		}
		faqs = f
		return nil
	})
	g.Go(func() error {
		p, err := s.repos.Catalog.ListActiveProducts(gctx, orgID, s.conf.CatalogLimit)
		if err != nil {
			degraded.add(gctx, "catalog", err)
			return nil
		}
		products = p
		return nil
	})
	g.Go(func() error {
		c, err := s.repos.Catalog.ListCollections(gctx, orgID, s.conf.CollectionLimit)
		if err != nil {
			degraded.add(gctx, "collections", err)
			return nil
		}
		collections = c
		return nil
	})

	if cid := util.Deref(customerID); strings.TrimSpace(cid) != "" {
		cid = strings.TrimSpace(cid)
		g.Go(func() error {
			c, err := s.repos.Customers.GetByID(gctx, orgID, cid)
			if err != nil {
				degraded.add(gctx, "customer", err)
				return nil
			}
			customer = c
			return nil
		})
		g.Go(func() error {
			o, err := s.repos.Orders.ListRecentByCustomer(gctx, orgID, cid, s.conf.RecentOrderLimit)
			if err != nil {
				degraded.add(gctx, "orders", err)
				return nil
			}
			orders = o
			return nil
		})
		g.Go(func() error {
			c, err := s.repos.Carts.GetActiveByCustomer(gctx, orgID, cid)
			if err != nil {
				degraded.add(gctx, "cart", err)
				return nil
			}
			cart = c
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		zlog.Warn("context build aborted", zap.String("org_id", orgID), zap.Error(err))
		return nil, err
	}

	b := &bundle.ContextBundle{
		Store:       toStoreProfile(org),
		Policies:    toPolicies(policies),
		FAQs:        toFAQs(faqs),
		Catalog:     ToProductSummaries(products),
		Collections: toCollections(collections),
		Orders:      []bundle.OrderSummary{},
		Degraded:    degraded.list(),
		BuiltAt:     s.clock.Now(),
	}

	// 未知客户按匿名访客处理，同时丢弃以其 ID 读到的订单和购物车
	if customer != nil {
		b.Orders = ToOrderSummaries(orders, org.Currency)
		b.Customer = s.toCustomerProfile(customer, b.Orders)
		b.Cart = toCartSummary(cart)
	}

	zlog.Info("context build done",
		zap.String("org_id", orgID),
		zap.Bool("anonymous", b.IsAnonymous()),
		zap.Int("faqs", len(b.FAQs)),
		zap.Int("catalog", len(b.Catalog)),
		zap.Int("orders", len(b.Orders)),
		zap.Strings("degraded", b.Degraded))

	return b, nil
}

func (s *contextServiceImpl) toCustomerProfile(c *entity.Customer, orders []bundle.OrderSummary) *bundle.CustomerProfile {
	count := c.OrdersCount
	if len(orders) > count {
		count = len(orders)
	}
	spend := c.TotalSpent
	if spend == 0 {
		for _, o := range orders {
			if o.Status != entity.OrderStatusCancelled {
				spend += o.Total
			}
		}
	}
	return &bundle.CustomerProfile{
		Id:                c.Id,
		Email:             c.Email,
		Name:              c.DisplayName(),
		Tier:              s.tiers.TierFor(spend, count),
		LifetimeSpend:     spend,
		OrderCount:        count,
		HighPriority:      c.HighPriority,
		ExternalContactId: c.ExternalContactId,
	}
}

type degradedSet struct {
	mu      sync.Mutex
	sources []string
}

func newDegradedSet() *degradedSet {
	return &degradedSet{}
}

func (d *degradedSet) add(ctx context.Context, source string, err error) {
	// 必需读取失败时 errgroup 已取消其余读取，本回合已中止，不算降级
	if errors.Is(ctx.Err(), context.Canceled) {
		return
	}
	zlog.Warn("context fetch degraded", zap.String("source", source), zap.Error(err))
	metrics.ContextFetchFailures.WithLabelValues(source).Inc()
	d.mu.Lock()
	d.sources = append(d.sources, source)
	d.mu.Unlock()
}

func (d *degradedSet) list() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := append([]string(nil), d.sources...)
	sort.Strings(out)
	return out
}
