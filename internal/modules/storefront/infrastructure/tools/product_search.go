package tools

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"StoreSupport/internal/modules/storefront/domain/bundle"
	"StoreSupport/internal/modules/storefront/domain/repository"

	"github.com/cloudwego/eino/schema"
)

const productSearchLimit = 5

type productSearchTool struct {
	catalog repository.CatalogRepository
}

type productSearchArgs struct {
	Query    string    `json:"query"`
	Category string    `json:"category"`
	MinPrice flexFloat `json:"min_price"`
	MaxPrice flexFloat `json:"max_price"`
}

func (t *productSearchTool) Name() string { return NameProductSearch }

func (t *productSearchTool) Description() string {
	return "Search the store's active products by keywords, optionally filtered by category and price range. Returns at most 5 products."
}

func (t *productSearchTool) Params() map[string]*schema.ParameterInfo {
	return map[string]*schema.ParameterInfo{
		"query":     {Type: schema.String, Desc: "What the customer is looking for", Required: true},
		"category":  {Type: schema.String, Desc: "Product category filter"},
		"min_price": {Type: schema.Number, Desc: "Minimum price"},
		"max_price": {Type: schema.Number, Desc: "Maximum price"},
	}
}

func (t *productSearchTool) Info(_ context.Context) (*schema.ToolInfo, error) { return buildInfo(t), nil }

func (t *productSearchTool) Invoke(ctx context.Context, orgID string, args string, b *bundle.ContextBundle) (*Outcome, error) {
	var a productSearchArgs
	if !decodeArgs(args, &a) {
		return invalid("The product search request was malformed."), nil
	}
	keywords := Keywords(a.Query)
	if len(keywords) == 0 && strings.TrimSpace(a.Category) == "" {
		return invalid("Tell me what kind of product you're looking for and I'll search the catalog."), nil
	}

	products, err := t.catalog.SearchProducts(ctx, orgID, repository.ProductQuery{
		Keywords: keywords,
		Category: a.Category,
		MinPrice: float64(a.MinPrice),
		MaxPrice: float64(a.MaxPrice),
		Limit:    productSearchLimit,
	})
	if err != nil {
		return nil, err
	}

	var results []bundle.ProductSummary
	for _, p := range products {
		results = append(results, bundle.ProductSummary{
			Id:             p.Id,
			Title:          p.Title,
			Category:       p.Category,
			Handle:         p.Handle,
			Price:          p.Price,
			CompareAtPrice: p.CompareAtPrice,
			InStock:        p.Inventory > 0,
		})
	}
	if len(results) == 0 && b != nil {
		results = looseMatch(b.Catalog, keywords, float64(a.MinPrice), float64(a.MaxPrice), productSearchLimit)
	}

	if len(results) == 0 {
		return &Outcome{Found: false, Content: fmt.Sprintf(
			"I couldn't find any products matching \"%s\" right now. Could you describe it differently?", strings.TrimSpace(a.Query))}, nil
	}

	currency := ""
	if b != nil {
		currency = b.Store.Currency
	}
	var sb strings.Builder
	sb.WriteString("Here are some products that match:")
	for _, p := range results {
		stock := "in stock"
		if !p.InStock {
			stock = "out of stock"
		}
		fmt.Fprintf(&sb, "\n- %s: %s (%s)", p.Title, formatMoney(p.Price, currency), stock)
	}
	return &Outcome{Found: true, Content: sb.String(), Data: results}, nil
}

// looseMatch 数据库无结果时，在上下文商品摘录中做宽松的词项匹配
func looseMatch(catalog []bundle.ProductSummary, keywords []string, minPrice, maxPrice float64, limit int) []bundle.ProductSummary {
	if len(keywords) == 0 {
		return nil
	}
	type scored struct {
		p     bundle.ProductSummary
		score int
	}
	var hits []scored
	for _, p := range catalog {
		if minPrice > 0 && p.Price < minPrice {
			continue
		}
		if maxPrice > 0 && p.Price > maxPrice {
			continue
		}
		words := Keywords(p.Title + " " + p.Category)
		score := 0
		for _, kw := range keywords {
			for _, w := range words {
				if strings.HasPrefix(w, kw) || strings.HasPrefix(kw, w) {
					score++
					break
				}
			}
		}
		if score > 0 {
			hits = append(hits, scored{p: p, score: score})
		}
	}
	// 稳定插入排序，命中数高者在前
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].score > hits[j-1].score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	out := make([]bundle.ProductSummary, 0, limit)
	for _, h := range hits {
		if len(out) >= limit {
			break
		}
		out = append(out, h.p)
	}
	return out
}

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "for": {}, "with": {}, "of": {}, "to": {},
	"in": {}, "on": {}, "me": {}, "my": {}, "i": {}, "you": {}, "do": {}, "have": {}, "any": {},
	"some": {}, "is": {}, "are": {}, "looking": {}, "want": {}, "need": {}, "show": {}, "find": {},
}

// Keywords 小写分词并去掉停用词与单字符
func Keywords(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, ok := stopWords[f]; ok {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
