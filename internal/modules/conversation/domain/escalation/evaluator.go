package escalation

import "fmt"

// Decision 规则评估结果
type Decision struct {
	Escalate bool   `json:"escalate"`
	Rule     string `json:"rule,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Reason 记录到会话上的升级原因
func (d Decision) Reason() string {
	if !d.Escalate {
		return ""
	}
	if d.Detail == "" {
		return d.Rule
	}
	return fmt.Sprintf("%s: %s", d.Rule, d.Detail)
}

type Evaluator struct {
	rules []Rule
}

func NewEvaluator(rules ...Rule) *Evaluator {
	return &Evaluator{rules: rules}
}

// Evaluate 按顺序执行，第一个命中的规则生效
func (e *Evaluator) Evaluate(in Input) Decision {
	for _, r := range e.rules {
		if ok, detail := r.Match(in); ok {
			return Decision{Escalate: true, Rule: r.Name(), Detail: detail}
		}
	}
	return Decision{}
}

func (e *Evaluator) Rules() []string {
	out := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, r.Name())
	}
	return out
}
