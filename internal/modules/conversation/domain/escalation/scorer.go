// Package escalation 计算回复置信度并按固定顺序评估转人工规则。
package escalation

import (
	"strings"
	"unicode"

	"StoreSupport/internal/config"
	"StoreSupport/internal/modules/storefront/domain/bundle"
	"StoreSupport/internal/modules/storefront/infrastructure/tools"
)

// Signals 一次回复可观测到的信号
type Signals struct {
	Customer      *bundle.CustomerProfile
	HasOrders     bool
	Reply         string
	Knowledge     []string
	ToolName      string
	ToolFound     bool
	PriorMessages int
}

// Breakdown 各项得分，写日志用
type Breakdown struct {
	Base       float64 `json:"base"`
	Customer   float64 `json:"customer"`
	Tier       float64 `json:"tier"`
	Knowledge  float64 `json:"knowledge"`
	Detail     float64 `json:"detail"`
	Tool       float64 `json:"tool"`
	Continuity float64 `json:"continuity"`
	Total      float64 `json:"total"`
}

type Scorer struct {
	w config.ConfidenceConfig
}

func NewScorer(w config.ConfidenceConfig) *Scorer {
	return &Scorer{w: w}
}

func (s *Scorer) Threshold() float64 { return s.w.Threshold }

func (s *Scorer) Score(sig Signals) float64 {
	return s.Explain(sig).Total
}

// Explain 每项信号独立计算并各自封顶，总分截断到 [0,1]
func (s *Scorer) Explain(sig Signals) Breakdown {
	var b Breakdown
	b.Base = clamp(s.w.Base, 0, 1)

	if sig.Customer != nil && (sig.HasOrders || sig.Customer.OrderCount > 0) {
		b.Customer = capAt(s.w.KnownCustomer)
	}
	if sig.Customer != nil {
		switch sig.Customer.Tier {
		case bundle.TierPlatinum:
			b.Tier = capAt(s.w.TierPlatinum)
		case bundle.TierGold:
			b.Tier = capAt(s.w.TierGold)
		case bundle.TierSilver:
			b.Tier = capAt(s.w.TierSilver)
		}
	}
	if overlaps(sig.Reply, sig.Knowledge, 2) {
		b.Knowledge = capAt(s.w.KnowledgeOverlap)
	}
	if s.w.DetailedChars > 0 && len([]rune(strings.TrimSpace(sig.Reply))) >= s.w.DetailedChars {
		b.Detail = capAt(s.w.DetailedReply)
	}
	if sig.ToolName != "" && sig.ToolFound {
		if IsDataTool(sig.ToolName) {
			b.Tool = capAt(s.w.DataToolSuccess)
		} else {
			b.Tool = capAt(s.w.ToolSuccess)
		}
	}
	if sig.PriorMessages >= 2 {
		b.Continuity = capAt(s.w.Continuity)
	}

	b.Total = clamp(b.Base+b.Customer+b.Tier+b.Knowledge+b.Detail+b.Tool+b.Continuity, 0, 1)
	return b
}

// IsDataTool 订单与商品类工具，命中时给更高加分
func IsDataTool(name string) bool {
	switch name {
	case tools.NameOrderLookup, tools.NameProductSearch, tools.NameShippingStatus:
		return true
	}
	return false
}

// 单项加分上限
const signalCap = 0.25

func capAt(v float64) float64 {
	return clamp(v, 0, signalCap)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

var stopwords = map[string]struct{}{
	"about": {}, "after": {}, "also": {}, "been": {}, "before": {}, "but": {}, "can": {},
	"could": {}, "does": {}, "from": {}, "have": {}, "here": {}, "into": {}, "just": {},
	"more": {}, "once": {}, "only": {}, "other": {}, "please": {}, "should": {}, "some": {},
	"than": {}, "that": {}, "their": {}, "them": {}, "then": {}, "there": {}, "these": {},
	"they": {}, "this": {}, "those": {}, "very": {}, "were": {}, "what": {}, "when": {},
	"where": {}, "which": {}, "while": {}, "will": {}, "with": {}, "within": {}, "would": {},
	"your": {}, "yours": {},
}

// terms 取长度 >= 4 的非停用词
func terms(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(f)) < 4 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out[f] = struct{}{}
	}
	return out
}

func overlaps(reply string, knowledge []string, min int) bool {
	if strings.TrimSpace(reply) == "" || len(knowledge) == 0 {
		return false
	}
	rt := terms(reply)
	if len(rt) < min {
		return false
	}
	for _, k := range knowledge {
		shared := 0
		for t := range terms(k) {
			if _, ok := rt[t]; ok {
				shared++
				if shared >= min {
					return true
				}
			}
		}
	}
	return false
}
