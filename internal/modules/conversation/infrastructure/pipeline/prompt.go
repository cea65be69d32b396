package pipeline

import (
	"fmt"
	"strings"
	"time"

	"StoreSupport/internal/modules/conversation/domain/entity"
	"StoreSupport/internal/modules/storefront/domain/bundle"
	"StoreSupport/pkg/util"

	"github.com/cloudwego/eino/schema"
)

const personaPrompt = `You are the customer support assistant for %s.
Answer only from the store information below and the results of the tools you call.
Use order_lookup or check_shipping_status for anything about a specific order, product_search for product questions and get_store_policies for returns, shipping or exchanges.
If the customer is not signed in, ask for both the order number and the checkout email before looking up an order.
Call escalate_to_agent when the customer asks for a person or when you cannot help.
Never invent order details, prices or policies. Keep replies short and friendly.`

// buildSystemPrompt 由上下文快照拼出系统提示词
func buildSystemPrompt(b *bundle.ContextBundle, now time.Time) string {
	var sb strings.Builder
	storeName := "our store"
	if b != nil && strings.TrimSpace(b.Store.Name) != "" {
		storeName = b.Store.Name
	}
	sb.WriteString(fmt.Sprintf(personaPrompt, storeName))
	if b == nil {
		return sb.String()
	}

	sb.WriteString("\n\n## Store\n")
	sb.WriteString(fmt.Sprintf("- Name: %s\n", storeName))
	if b.Store.Domain != "" {
		sb.WriteString(fmt.Sprintf("- Website: %s\n", b.Store.Domain))
	}
	sb.WriteString(fmt.Sprintf("- Currency: %s\n", b.Store.Currency))
	if b.Store.BusinessHours != "" {
		sb.WriteString(fmt.Sprintf("- Business hours: %s (%s)\n", b.Store.BusinessHours, b.Store.Timezone))
	}
	if b.Store.SupportEmail != "" {
		sb.WriteString(fmt.Sprintf("- Support email: %s\n", b.Store.SupportEmail))
	}
	sb.WriteString(fmt.Sprintf("- Today: %s\n", now.Format("2006-01-02")))

	sb.WriteString("\n## Customer\n")
	if b.IsAnonymous() {
		sb.WriteString("Anonymous visitor. Ask for an order number or email before sharing order details.\n")
	} else {
		c := b.Customer
		sb.WriteString(fmt.Sprintf("- Name: %s\n- Email: %s\n- Loyalty tier: %s\n- Orders: %d, lifetime spend %.2f %s\n",
			c.Name, c.Email, c.Tier, c.OrderCount, c.LifetimeSpend, b.Store.Currency))
		for i, o := range b.Orders {
			if i >= 5 {
				break
			}
			sb.WriteString(fmt.Sprintf("- Order %s: %s, %.2f %s, placed %s\n",
				o.OrderNumber, o.Status, o.Total, o.Currency, o.CreatedAt.Format("2006-01-02")))
		}
		if b.Cart != nil && len(b.Cart.Items) > 0 {
			sb.WriteString(fmt.Sprintf("- Open cart: %d items, subtotal %.2f\n", len(b.Cart.Items), b.Cart.Subtotal))
		}
	}

	if len(b.Policies) > 0 {
		sb.WriteString("\n## Policies\n")
		for _, p := range b.Policies {
			sb.WriteString(fmt.Sprintf("### %s\n%s\n", p.Type, util.Truncate(p.Body, 600)))
		}
	}

	if len(b.FAQs) > 0 {
		sb.WriteString("\n## FAQ\n")
		for _, f := range b.FAQs {
			sb.WriteString(fmt.Sprintf("Q: %s\nA: %s\n", f.Question, util.Truncate(f.Answer, 400)))
		}
	}

	if len(b.Catalog) > 0 {
		sb.WriteString("\n## Catalog excerpt\n")
		for _, p := range b.Catalog {
			stock := "in stock"
			if !p.InStock {
				stock = "out of stock"
			}
			sb.WriteString(fmt.Sprintf("- %s (%s): %.2f, %s\n", p.Title, p.Category, p.Price, stock))
		}
	}
	if len(b.Collections) > 0 {
		titles := make([]string, 0, len(b.Collections))
		for _, c := range b.Collections {
			titles = append(titles, c.Title)
		}
		sb.WriteString(fmt.Sprintf("\nCollections: %s\n", strings.Join(titles, ", ")))
	}
	return sb.String()
}

// historyMessages 转为模型消息，人工客服回复以 assistant 身份带前缀
func historyMessages(history []entity.ConversationMessage) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case entity.RoleCustomer:
			out = append(out, schema.UserMessage(m.Content))
		case entity.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		case entity.RoleHumanAgent:
			out = append(out, schema.AssistantMessage("[Support agent] "+m.Content, nil))
		case entity.RoleSystem:
			out = append(out, schema.SystemMessage(m.Content))
		}
	}
	return out
}

// foldToolResult 把工具结果并入回复，避免重复拼接
func foldToolResult(draft, result string) string {
	draft = strings.TrimSpace(draft)
	result = strings.TrimSpace(result)
	switch {
	case draft == "":
		return result
	case result == "" || strings.Contains(draft, result):
		return draft
	default:
		return draft + "\n\n" + result
	}
}
