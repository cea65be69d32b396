package persistence

import (
	"context"
	"sort"
	"strings"

	"StoreSupport/internal/modules/storefront/domain/entity"
	"StoreSupport/internal/modules/storefront/domain/repository"

	"gorm.io/gorm"
)

type catalogRepositoryImpl struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) repository.CatalogRepository {
	return &catalogRepositoryImpl{db: db}
}

func (r *catalogRepositoryImpl) ListActiveProducts(ctx context.Context, orgID string, limit int) ([]entity.Product, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []entity.Product
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND status = ?", orgID, entity.ProductStatusActive).
		Order("updated_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// SearchProducts 关键词 OR 匹配标题/描述/标签，再按标题命中数排序
func (r *catalogRepositoryImpl) SearchProducts(ctx context.Context, orgID string, q repository.ProductQuery) ([]entity.Product, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 5
	}

	tx := r.db.WithContext(ctx).Where("org_id = ? AND status = ?", orgID, entity.ProductStatusActive)

	if len(q.Keywords) > 0 {
		cond := r.db.Where("1 = 0")
		for _, kw := range q.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			like := "%" + kw + "%"
			cond = cond.Or("LOWER(title) LIKE ?", like).
				Or("LOWER(description) LIKE ?", like).
				Or("LOWER(tags) LIKE ?", like)
		}
		tx = tx.Where(cond)
	}
	if c := strings.TrimSpace(q.Category); c != "" {
		tx = tx.Where("LOWER(category) = ?", strings.ToLower(c))
	}
	if q.MinPrice > 0 {
		tx = tx.Where("price >= ?", q.MinPrice)
	}
	if q.MaxPrice > 0 {
		tx = tx.Where("price <= ?", q.MaxPrice)
	}

	var candidates []entity.Product
	if err := tx.Order("updated_at DESC").Limit(limit * 4).Find(&candidates).Error; err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := titleHits(candidates[i].Title, q.Keywords), titleHits(candidates[j].Title, q.Keywords)
		if si != sj {
			return si > sj
		}
		return (candidates[i].Inventory > 0) && !(candidates[j].Inventory > 0)
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (r *catalogRepositoryImpl) ListByCategories(ctx context.Context, orgID string, categories []string, limit int) ([]entity.Product, error) {
	if len(categories) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	var out []entity.Product
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND status = ? AND category IN ?", orgID, entity.ProductStatusActive, categories).
		Order("updated_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *catalogRepositoryImpl) ListCollections(ctx context.Context, orgID string, limit int) ([]entity.Collection, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []entity.Collection
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND published = ?", orgID, true).
		Order("sort_order ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func titleHits(title string, keywords []string) int {
	t := strings.ToLower(title)
	n := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(t, kw) {
			n++
		}
	}
	return n
}

type knowledgeRepositoryImpl struct {
	db *gorm.DB
}

func NewKnowledgeRepository(db *gorm.DB) repository.KnowledgeRepository {
	return &knowledgeRepositoryImpl{db: db}
}

func (r *knowledgeRepositoryImpl) TopFAQs(ctx context.Context, orgID string, limit int) ([]entity.KnowledgeEntry, error) {
	if limit <= 0 {
		limit = 5
	}
	var out []entity.KnowledgeEntry
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND active = ?", orgID, true).
		Order("effectiveness_score DESC").
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
