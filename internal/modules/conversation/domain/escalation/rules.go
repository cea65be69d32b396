package escalation

import (
	"fmt"
	"regexp"
	"strings"

	"StoreSupport/internal/config"
)

const (
	RuleAgentRequested = "agent_requested"
	RuleLowConfidence  = "low_confidence"
	RuleHumanRequested = "human_requested"
	RuleFrustration    = "frustration"
	RuleUnresolved     = "unresolved_issue"
	RuleRepeatContact  = "repeat_contact"
	RuleUrgency        = "urgency"
)

var (
	DefaultHumanPhrases = []string{
		"human", "real person", "speak to someone", "talk to someone", "speak to a person",
		"talk to a person", "agent", "representative", "manager", "customer service",
		"live chat", "operator", "supervisor",
	}
	DefaultFrustrationWords = []string{
		"frustrated", "frustrating", "angry", "furious", "upset", "annoyed", "ridiculous",
		"unacceptable", "terrible", "horrible", "awful", "worst", "disappointed", "useless",
		"fed up", "outraged", "complaint",
	}
	DefaultUnresolvedPhrases = []string{
		"never arrived", "never received", "not received", "didn't receive", "didn't arrive",
		"hasn't arrived", "still hasn't", "missing", "lost", "wrong item", "damaged", "broken",
		"not working", "doesn't work", "charged twice", "refund",
	}
	DefaultRepeatPhrases = []string{
		"still", "again", "already said", "already asked", "already told", "already contacted",
		"second time", "third time", "multiple times", "many times", "contacted you before", "last time",
	}
	DefaultUrgencyWords = []string{
		"urgent", "urgently", "asap", "immediately", "right now", "emergency", "as soon as possible",
	}
)

// Input 规则的判定输入
type Input struct {
	Message        string
	Confidence     float64
	AgentRequested bool
	AgentReason    string
}

// Rule 纯谓词，命中时返回说明
type Rule interface {
	Name() string
	Match(in Input) (bool, string)
}

type agentRequestedRule struct{}

func (agentRequestedRule) Name() string { return RuleAgentRequested }

func (agentRequestedRule) Match(in Input) (bool, string) {
	if !in.AgentRequested {
		return false, ""
	}
	if r := strings.TrimSpace(in.AgentReason); r != "" {
		return true, r
	}
	return true, "assistant requested a human agent"
}

type lowConfidenceRule struct {
	threshold float64
}

func (lowConfidenceRule) Name() string { return RuleLowConfidence }

func (r lowConfidenceRule) Match(in Input) (bool, string) {
	if in.Confidence < r.threshold {
		return true, fmt.Sprintf("confidence %.2f below %.2f", in.Confidence, r.threshold)
	}
	return false, ""
}

// KeywordMatcher 按词边界、忽略大小写匹配短语表
type KeywordMatcher struct {
	re *regexp.Regexp
}

func NewKeywordMatcher(phrases []string) *KeywordMatcher {
	return &KeywordMatcher{re: compilePhrases(phrases)}
}

// First 第一个命中的短语（小写），未命中返回空串
func (m *KeywordMatcher) First(text string) string {
	if m == nil || m.re == nil {
		return ""
	}
	return strings.ToLower(m.re.FindString(text))
}

// All 全部命中短语，去重后按出现顺序返回
func (m *KeywordMatcher) All(text string) []string {
	if m == nil || m.re == nil {
		return nil
	}
	var out []string
	seen := make(map[string]struct{})
	for _, hit := range m.re.FindAllString(text, -1) {
		hit = strings.ToLower(strings.Join(strings.Fields(hit), " "))
		if _, ok := seen[hit]; ok {
			continue
		}
		seen[hit] = struct{}{}
		out = append(out, hit)
	}
	return out
}

type keywordRule struct {
	name string
	m    *KeywordMatcher
}

func NewKeywordRule(name string, phrases []string) Rule {
	return &keywordRule{name: name, m: NewKeywordMatcher(phrases)}
}

func (r *keywordRule) Name() string { return r.name }

func (r *keywordRule) Match(in Input) (bool, string) {
	hit := r.m.First(in.Message)
	if hit == "" {
		return false, ""
	}
	return true, fmt.Sprintf("matched %q", hit)
}

func compilePhrases(phrases []string) *regexp.Regexp {
	parts := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		words := strings.Fields(p)
		for i, w := range words {
			// 兼容弯引号
			words[i] = strings.ReplaceAll(regexp.QuoteMeta(w), "'", "['’]")
		}
		parts = append(parts, strings.Join(words, `\s+`))
	}
	if len(parts) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(parts, "|") + `)\b`)
}

// DefaultRules 固定顺序：工具请求、低置信度、然后是各类关键词
func DefaultRules(threshold float64, vocab config.EscalationConfig) []Rule {
	return []Rule{
		agentRequestedRule{},
		lowConfidenceRule{threshold: threshold},
		NewKeywordRule(RuleHumanRequested, orDefault(vocab.HumanPhrases, DefaultHumanPhrases)),
		NewKeywordRule(RuleFrustration, orDefault(vocab.FrustrationWords, DefaultFrustrationWords)),
		NewKeywordRule(RuleUnresolved, orDefault(vocab.UnresolvedPhrases, DefaultUnresolvedPhrases)),
		NewKeywordRule(RuleRepeatContact, orDefault(vocab.RepeatPhrases, DefaultRepeatPhrases)),
		NewKeywordRule(RuleUrgency, orDefault(vocab.UrgencyWords, DefaultUrgencyWords)),
	}
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
