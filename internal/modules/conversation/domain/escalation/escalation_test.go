package escalation

import (
	"strings"
	"testing"

	"StoreSupport/internal/config"
	"StoreSupport/internal/modules/storefront/domain/bundle"
	"StoreSupport/internal/modules/storefront/infrastructure/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultWeights() config.ConfidenceConfig {
	conf := &config.Config{}
	config.ApplyDefaults(conf)
	return conf.ConfidenceConfig
}

func newEvaluator() *Evaluator {
	w := defaultWeights()
	return NewEvaluator(DefaultRules(w.Threshold, config.EscalationConfig{})...)
}

func TestScorer_BaseOnly(t *testing.T) {
	s := NewScorer(defaultWeights())
	assert.InDelta(t, 0.5, s.Score(Signals{}), 1e-9)
}

func TestScorer_AllSignals(t *testing.T) {
	s := NewScorer(defaultWeights())
	b := s.Explain(Signals{
		Customer:      &bundle.CustomerProfile{Id: "c1", Tier: bundle.TierPlatinum, OrderCount: 25},
		HasOrders:     true,
		Reply:         strings.Repeat("Your order shipped with tracking number 1Z999 and will arrive soon. ", 4),
		Knowledge:     []string{"Orders ship with a tracking number by email."},
		ToolName:      tools.NameOrderLookup,
		ToolFound:     true,
		PriorMessages: 4,
	})
	assert.Equal(t, 0.15, b.Customer)
	assert.Equal(t, 0.1, b.Tier)
	assert.Equal(t, 0.15, b.Knowledge)
	assert.Equal(t, 0.1, b.Detail)
	assert.Equal(t, 0.2, b.Tool)
	assert.Equal(t, 0.05, b.Continuity)
	assert.Equal(t, 1.0, b.Total)
}

func TestScorer_ToolFailureGivesNoBonus(t *testing.T) {
	s := NewScorer(defaultWeights())
	b := s.Explain(Signals{ToolName: tools.NameOrderLookup, ToolFound: false})
	assert.Zero(t, b.Tool)
}

func TestScorer_NonDataToolSmallerBonus(t *testing.T) {
	s := NewScorer(defaultWeights())
	b := s.Explain(Signals{ToolName: tools.NameStorePolicies, ToolFound: true})
	assert.Equal(t, 0.1, b.Tool)
}

func TestScorer_AnonymousGetsNoCustomerBonus(t *testing.T) {
	s := NewScorer(defaultWeights())
	b := s.Explain(Signals{HasOrders: true})
	assert.Zero(t, b.Customer)
	assert.Zero(t, b.Tier)
}

func TestScorer_AlwaysWithinBounds(t *testing.T) {
	weights := []config.ConfidenceConfig{
		{Base: 5, KnownCustomer: 5, TierPlatinum: 5, KnowledgeOverlap: 5, DetailedReply: 5, DetailedChars: 1, DataToolSuccess: 5, Continuity: 5},
		{Base: -3, KnownCustomer: -1, TierPlatinum: -1, KnowledgeOverlap: -1, DetailedReply: -1, DetailedChars: 1, DataToolSuccess: -1, Continuity: -1},
		defaultWeights(),
	}
	signals := []Signals{
		{},
		{Customer: &bundle.CustomerProfile{Tier: bundle.TierPlatinum, OrderCount: 50}, HasOrders: true, Reply: "tracking number shipped order", Knowledge: []string{"tracking number shipped"}, ToolName: tools.NameProductSearch, ToolFound: true, PriorMessages: 10},
		{Customer: &bundle.CustomerProfile{Tier: bundle.TierBronze}, Reply: "ok"},
	}
	for _, w := range weights {
		s := NewScorer(w)
		for _, sig := range signals {
			score := s.Score(sig)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	}
}

func TestScorer_SingleSignalIsCapped(t *testing.T) {
	s := NewScorer(config.ConfidenceConfig{DataToolSuccess: 0.9})
	b := s.Explain(Signals{ToolName: tools.NameOrderLookup, ToolFound: true})
	assert.Equal(t, signalCap, b.Tool)
}

func TestOverlaps_NeedsTwoSignificantTerms(t *testing.T) {
	assert.False(t, overlaps("You can return it", []string{"Returns accepted within 30 days"}, 2))
	assert.True(t, overlaps("Returns are accepted within 30 days of delivery", []string{"Returns accepted within 30 days of delivery"}, 2))
	assert.False(t, overlaps("anything", nil, 2))
}

func TestEvaluator_NoRuleFires(t *testing.T) {
	d := newEvaluator().Evaluate(Input{Message: "What's your return policy?", Confidence: 0.8})
	assert.False(t, d.Escalate)
	assert.Empty(t, d.Reason())
}

func TestEvaluator_AgentRequestWinsOverEverything(t *testing.T) {
	d := newEvaluator().Evaluate(Input{
		Message:        "I am furious, this is urgent",
		Confidence:     0.1,
		AgentRequested: true,
		AgentReason:    "billing dispute",
	})
	require.True(t, d.Escalate)
	assert.Equal(t, RuleAgentRequested, d.Rule)
	assert.Equal(t, "agent_requested: billing dispute", d.Reason())
}

func TestEvaluator_LowConfidenceBeforeKeywords(t *testing.T) {
	d := newEvaluator().Evaluate(Input{Message: "let me talk to a manager", Confidence: 0.49})
	require.True(t, d.Escalate)
	assert.Equal(t, RuleLowConfidence, d.Rule)
}

func TestEvaluator_FrustrationFiresDespiteHighConfidence(t *testing.T) {
	d := newEvaluator().Evaluate(Input{Message: "I am furious, my order #1001 never arrived!", Confidence: 0.95})
	require.True(t, d.Escalate)
	assert.Equal(t, RuleFrustration, d.Rule)
	assert.Contains(t, d.Reason(), "furious")
}

func TestEvaluator_KeywordRuleOrder(t *testing.T) {
	cases := []struct {
		msg  string
		rule string
	}{
		{"Can I speak to a real person?", RuleHumanRequested},
		{"This is ridiculous", RuleFrustration},
		{"The lamp arrived damaged", RuleUnresolved},
		{"I didn’t receive my parcel", RuleUnresolved},
		{"I already said my address twice", RuleRepeatContact},
		{"I need this urgently", RuleUrgency},
		{"Manager please, this is terrible", RuleHumanRequested},
	}
	e := newEvaluator()
	for _, c := range cases {
		d := e.Evaluate(Input{Message: c.msg, Confidence: 0.9})
		assert.True(t, d.Escalate, c.msg)
		assert.Equal(t, c.rule, d.Rule, c.msg)
	}
}

func TestKeywordRule_WordBoundaries(t *testing.T) {
	r := NewKeywordRule(RuleUrgency, []string{"asap"})
	ok, _ := r.Match(Input{Message: "wasapp is not a word"})
	assert.False(t, ok)
	ok, _ = r.Match(Input{Message: "Ship it ASAP."})
	assert.True(t, ok)
}

func TestDefaultRules_ConfigOverridesVocabulary(t *testing.T) {
	e := NewEvaluator(DefaultRules(0.5, config.EscalationConfig{UrgencyWords: []string{"pronto"}})...)
	d := e.Evaluate(Input{Message: "send it pronto", Confidence: 0.9})
	require.True(t, d.Escalate)
	assert.Equal(t, RuleUrgency, d.Rule)

	d = e.Evaluate(Input{Message: "this is an emergency", Confidence: 0.9})
	assert.False(t, d.Escalate)
}

func TestKeywordMatcher_AllDedupes(t *testing.T) {
	m := NewKeywordMatcher([]string{"order", "tracking number", "refund"})
	hits := m.All("Order 1001: no tracking   number yet, and the ORDER page is blank")
	assert.Equal(t, []string{"order", "tracking number"}, hits)
	assert.Equal(t, "", m.First("reorder later"))
	assert.Nil(t, (*KeywordMatcher)(nil).All("order"))
}
