package pipeline

import (
	"strings"

	"StoreSupport/internal/config"
	"StoreSupport/internal/modules/conversation/domain/escalation"
	"StoreSupport/internal/modules/conversation/infrastructure/llm"
)

// Complexity 模型档位选择结果，只影响成本与延迟
type Complexity struct {
	Score   int
	Signals []string
	Tier    string
}

type ComplexityClassifier struct {
	conf     config.DialogueConfig
	keywords escalation.Rule
}

func NewComplexityClassifier(conf config.DialogueConfig) *ComplexityClassifier {
	return &ComplexityClassifier{
		conf:     conf,
		keywords: escalation.NewKeywordRule("complex_keyword", conf.ComplexKeywords),
	}
}

// Classify 关键词、长消息、多问句与历史订单分别计分，达到阈值用主力模型
func (c *ComplexityClassifier) Classify(message string, hasOrders bool) Complexity {
	var out Complexity
	if ok, _ := c.keywords.Match(escalation.Input{Message: message}); ok {
		out.Score += c.conf.ComplexKeywordWeight
		out.Signals = append(out.Signals, "keyword")
	}
	if len([]rune(message)) > c.conf.LongMessageChars {
		out.Score++
		out.Signals = append(out.Signals, "long_message")
	}
	if strings.Count(message, "?") >= 2 {
		out.Score++
		out.Signals = append(out.Signals, "multi_question")
	}
	if hasOrders {
		out.Score++
		out.Signals = append(out.Signals, "order_history")
	}

	out.Tier = llm.TierFast
	if out.Score >= c.conf.ComplexityThreshold {
		out.Tier = llm.TierCapable
	}
	return out
}
