package service

import (
	"context"
	"fmt"

	"StoreSupport/internal/config"
	"StoreSupport/internal/modules/storefront/domain/entity"
	"StoreSupport/internal/modules/storefront/domain/repository"
	"StoreSupport/pkg/util"
	"StoreSupport/pkg/zlog"

	"go.uber.org/zap"
)

// EnrichService 重新计算客户的缓存属性（等级、消费额）并写回
type EnrichService interface {
	Enrich(ctx context.Context, orgID, customerID string) (*entity.CustomerAttributes, error)
}

type enrichServiceImpl struct {
	customers repository.CustomerRepository
	orders    repository.OrderRepository
	tiers     TierThresholds
	limit     int
	clock     util.Clock
}

func NewEnrichService(customers repository.CustomerRepository, orders repository.OrderRepository, conf config.ContextConfig, clock util.Clock) EnrichService {
	if clock == nil {
		clock = util.SystemClock()
	}
	limit := conf.RecentOrderLimit
	if limit <= 0 {
		limit = 10
	}
	return &enrichServiceImpl{
		customers: customers,
		orders:    orders,
		tiers:     ThresholdsFromConfig(conf),
		limit:     limit,
		clock:     clock,
	}
}

func (s *enrichServiceImpl) Enrich(ctx context.Context, orgID, customerID string) (*entity.CustomerAttributes, error) {
	c, err := s.customers.GetByID(ctx, orgID, customerID)
	if err != nil {
		return nil, fmt.Errorf("load customer: %w", err)
	}
	if c == nil {
		return nil, nil
	}
	orders, err := s.orders.ListRecentByCustomer(ctx, orgID, customerID, s.limit)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}

	spend := c.TotalSpent
	count := c.OrdersCount
	var recentSpend float64
	var recentCount int
	attrs := entity.CustomerAttributes{RefreshedAt: s.clock.Now()}
	for _, o := range orders {
		if o.Status == entity.OrderStatusCancelled {
			continue
		}
		recentSpend += o.TotalPrice
		recentCount++
		if o.CreatedAt.After(attrs.LastOrderAt) {
			attrs.LastOrderAt = o.CreatedAt
		}
	}
	// 店铺侧汇总字段缺失时用最近订单兜底
	if spend == 0 {
		spend = recentSpend
	}
	if recentCount > count {
		count = recentCount
	}

	attrs.Tier = string(s.tiers.TierFor(spend, count))
	attrs.LifetimeSpend = spend
	attrs.OrderCount = count
	if count > 0 {
		attrs.AvgOrderValue = spend / float64(count)
	}

	if err := s.customers.UpdateCachedAttributes(ctx, orgID, customerID, attrs); err != nil {
		return nil, fmt.Errorf("save cached attributes: %w", err)
	}
	zlog.Info("customer enriched",
		zap.String("org_id", orgID),
		zap.String("customer_id", customerID),
		zap.String("tier", attrs.Tier),
		zap.Float64("lifetime_spend", attrs.LifetimeSpend))
	return &attrs, nil
}
