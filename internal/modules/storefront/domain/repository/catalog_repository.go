package repository

import (
	"context"

	"StoreSupport/internal/modules/storefront/domain/entity"
)

// ProductQuery 商品检索条件，价格为 0 表示不限
type ProductQuery struct {
	Keywords []string
	Category string
	MinPrice float64
	MaxPrice float64
	Limit    int
}

type CatalogRepository interface {
	ListActiveProducts(ctx context.Context, orgID string, limit int) ([]entity.Product, error)
	SearchProducts(ctx context.Context, orgID string, q ProductQuery) ([]entity.Product, error)
	ListByCategories(ctx context.Context, orgID string, categories []string, limit int) ([]entity.Product, error)
	ListCollections(ctx context.Context, orgID string, limit int) ([]entity.Collection, error)
}

type KnowledgeRepository interface {
	TopFAQs(ctx context.Context, orgID string, limit int) ([]entity.KnowledgeEntry, error)
}
