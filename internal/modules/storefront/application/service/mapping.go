package service

import (
	"strings"

	"StoreSupport/internal/modules/storefront/domain/bundle"
	"StoreSupport/internal/modules/storefront/domain/entity"
)

func toStoreProfile(o *entity.Organization) bundle.StoreProfile {
	if o == nil {
		return bundle.StoreProfile{}
	}
	return bundle.StoreProfile{
		OrgId:         o.Id,
		Name:          o.Name,
		Domain:        o.Domain,
		Currency:      o.Currency,
		Timezone:      o.Timezone,
		BusinessHours: o.BusinessHours,
		SupportEmail:  o.SupportEmail,
	}
}

func toPolicies(in []entity.StorePolicy) []bundle.PolicyDoc {
	out := make([]bundle.PolicyDoc, 0, len(in))
	for _, p := range in {
		if strings.TrimSpace(p.Body) == "" {
			continue
		}
		out = append(out, bundle.PolicyDoc{Type: p.PolicyType, Title: p.Title, Body: p.Body})
	}
	return out
}

func toFAQs(in []entity.KnowledgeEntry) []bundle.FAQ {
	out := make([]bundle.FAQ, 0, len(in))
	for _, f := range in {
		out = append(out, bundle.FAQ{Question: f.Question, Answer: f.Answer, Score: f.EffectivenessScore})
	}
	return out
}

func ToProductSummaries(in []entity.Product) []bundle.ProductSummary {
	out := make([]bundle.ProductSummary, 0, len(in))
	for _, p := range in {
		out = append(out, bundle.ProductSummary{
			Id:             p.Id,
			Title:          p.Title,
			Category:       p.Category,
			Handle:         p.Handle,
			Price:          p.Price,
			CompareAtPrice: p.CompareAtPrice,
			InStock:        p.Inventory > 0,
		})
	}
	return out
}

func toCollections(in []entity.Collection) []bundle.CollectionSummary {
	out := make([]bundle.CollectionSummary, 0, len(in))
	for _, c := range in {
		out = append(out, bundle.CollectionSummary{Title: c.Title, Handle: c.Handle})
	}
	return out
}

func ToOrderSummaries(in []entity.Order, fallbackCurrency string) []bundle.OrderSummary {
	out := make([]bundle.OrderSummary, 0, len(in))
	for i := range in {
		out = append(out, bundle.SummarizeOrder(&in[i], fallbackCurrency))
	}
	return out
}

func toCartSummary(c *entity.Cart) *bundle.CartSummary {
	if c == nil {
		return nil
	}
	cs := &bundle.CartSummary{Id: c.Id, UpdatedAt: c.UpdatedAt, Items: make([]bundle.CartLine, 0, len(c.Items))}
	for _, it := range c.Items {
		title := it.ProductId
		price := it.Price
		if it.Product != nil {
			title = it.Product.Title
			if price == 0 {
				price = it.Product.Price
			}
		}
		cs.Items = append(cs.Items, bundle.CartLine{
			ProductId: it.ProductId,
			Title:     title,
			Quantity:  it.Quantity,
			Price:     price,
		})
		cs.Subtotal += price * float64(it.Quantity)
	}
	return cs
}
