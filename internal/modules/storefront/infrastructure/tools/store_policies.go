package tools

import (
	"context"
	"fmt"
	"strings"

	"StoreSupport/internal/modules/storefront/domain/bundle"
	"StoreSupport/internal/modules/storefront/domain/entity"
	"StoreSupport/internal/modules/storefront/domain/repository"

	"github.com/cloudwego/eino/schema"
)

var defaultPolicies = map[string]string{
	entity.PolicyReturns:   "Items can be returned within 30 days of delivery in their original condition. Once we receive the return, refunds are issued to the original payment method within 5-7 business days.",
	entity.PolicyShipping:  "Orders are processed within 1-2 business days. Standard shipping usually arrives in 3-7 business days, and you'll receive a tracking number by email as soon as your order ships.",
	entity.PolicyExchanges: "Exchanges for a different size or colour are accepted within 30 days of delivery, subject to availability. Start an exchange by contacting us with your order number.",
}

type storePoliciesTool struct {
	orgs repository.OrganizationRepository
}

type storePoliciesArgs struct {
	PolicyType string `json:"policy_type"`
}

func (t *storePoliciesTool) Name() string { return NameStorePolicies }

func (t *storePoliciesTool) Description() string {
	return "Get the store's returns, shipping or exchanges policy."
}

func (t *storePoliciesTool) Params() map[string]*schema.ParameterInfo {
	return map[string]*schema.ParameterInfo{
		"policy_type": {
			Type:     schema.String,
			Desc:     "Which policy to fetch",
			Enum:     []string{entity.PolicyReturns, entity.PolicyShipping, entity.PolicyExchanges},
			Required: true,
		},
	}
}

func (t *storePoliciesTool) Info(_ context.Context) (*schema.ToolInfo, error) { return buildInfo(t), nil }

// Invoke 优先使用店铺自定义政策，否则返回内置文案；上下文里已有政策时不再查库
func (t *storePoliciesTool) Invoke(ctx context.Context, orgID string, args string, b *bundle.ContextBundle) (*Outcome, error) {
	var a storePoliciesArgs
	if !decodeArgs(args, &a) {
		return invalid("The policy request was malformed."), nil
	}
	pt := strings.ToLower(strings.TrimSpace(a.PolicyType))
	fallback, ok := defaultPolicies[pt]
	if !ok {
		return invalid(fmt.Sprintf("I can share our returns, shipping or exchanges policy. %q isn't one of them.", a.PolicyType)), nil
	}

	if b != nil {
		if p := b.Policy(pt); p != nil {
			return &Outcome{Found: true, Content: p.Body, Data: p}, nil
		}
	}
	if b == nil && t.orgs != nil {
		p, err := t.orgs.GetPolicy(ctx, orgID, pt)
		if err != nil {
			return nil, err
		}
		if p != nil && strings.TrimSpace(p.Body) != "" {
			return &Outcome{Found: true, Content: p.Body, Data: bundle.PolicyDoc{Type: pt, Title: p.Title, Body: p.Body}}, nil
		}
	}
	return &Outcome{Found: true, Content: fallback, Data: bundle.PolicyDoc{Type: pt, Body: fallback}}, nil
}
