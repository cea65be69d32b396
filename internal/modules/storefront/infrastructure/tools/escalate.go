package tools

import (
	"context"
	"strings"

	"StoreSupport/internal/modules/storefront/domain/bundle"

	"github.com/cloudwego/eino/schema"
)

const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

type escalateTool struct{}

type escalateArgs struct {
	Reason   string `json:"reason"`
	Priority string `json:"priority"`
}

func (t *escalateTool) Name() string { return NameEscalate }

func (t *escalateTool) Description() string {
	return "Hand the conversation to a human support agent when you cannot resolve the request or the customer asks for a person."
}

func (t *escalateTool) Params() map[string]*schema.ParameterInfo {
	return map[string]*schema.ParameterInfo{
		"reason": {Type: schema.String, Desc: "Short reason for the hand-off", Required: true},
		"priority": {
			Type: schema.String,
			Desc: "How urgent the hand-off is",
			Enum: []string{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent},
		},
	}
}

func (t *escalateTool) Info(_ context.Context) (*schema.ToolInfo, error) { return buildInfo(t), nil }

// Invoke 不访问存储，只产生升级信号
func (t *escalateTool) Invoke(_ context.Context, _ string, args string, _ *bundle.ContextBundle) (*Outcome, error) {
	var a escalateArgs
	_ = decodeArgs(args, &a)

	priority := strings.ToLower(strings.TrimSpace(a.Priority))
	switch priority {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
	default:
		priority = PriorityNormal
	}
	reason := strings.TrimSpace(a.Reason)
	if reason == "" {
		reason = "assistant requested a human agent"
	}
	return &Outcome{
		Found:    true,
		Escalate: true,
		Priority: priority,
		Reason:   reason,
		Content:  "I'm connecting you with a member of our support team who can help further.",
	}, nil
}
