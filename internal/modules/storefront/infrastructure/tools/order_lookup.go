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

type orderLookupTool struct {
	orders repository.OrderRepository
}

type orderLookupArgs struct {
	OrderNumber   string `json:"order_number"`
	CustomerEmail string `json:"customer_email"`
}

func (t *orderLookupTool) Name() string { return NameOrderLookup }

func (t *orderLookupTool) Description() string {
	return "Look up an order by its order number or by the email used at checkout. Returns status, items, totals and tracking."
}

func (t *orderLookupTool) Params() map[string]*schema.ParameterInfo {
	return map[string]*schema.ParameterInfo{
		"order_number":   {Type: schema.String, Desc: "Order number, e.g. #1001"},
		"customer_email": {Type: schema.String, Desc: "Email address used for the order"},
	}
}

func (t *orderLookupTool) Info(_ context.Context) (*schema.ToolInfo, error) { return buildInfo(t), nil }

func (t *orderLookupTool) Invoke(ctx context.Context, orgID string, args string, b *bundle.ContextBundle) (*Outcome, error) {
	var a orderLookupArgs
	if !decodeArgs(args, &a) {
		return invalid("The order lookup request was malformed."), nil
	}
	number := strings.TrimSpace(a.OrderNumber)
	email := strings.ToLower(strings.TrimSpace(a.CustomerEmail))
	if number == "" && email == "" {
		return invalid("I need an order number or the email address used at checkout to look up an order."), nil
	}

	if number != "" {
		if o := b.FindOrder(number); o != nil {
			return orderFound(o), nil
		}
	}
	if needsVerification(b) && (number == "" || email == "") {
		return verificationRequired(), nil
	}

	var (
		o   *entity.Order
		err error
	)
	if number != "" {
		o, err = t.orders.GetByNumber(ctx, orgID, number)
	} else {
		o, err = t.orders.GetLatestByEmail(ctx, orgID, email)
	}
	if err != nil {
		return nil, err
	}
	if o == nil || !visibleTo(o, b, email) {
		return orderNotFound(number, email), nil
	}

	currency := ""
	if b != nil {
		currency = b.Store.Currency
	}
	sum := bundle.SummarizeOrder(o, currency)
	return orderFound(&sum), nil
}

// visibleTo 订单只对其所属客户可见；匿名访客须同时给出订单号与下单邮箱
func visibleTo(o *entity.Order, b *bundle.ContextBundle, email string) bool {
	if b.IsStaff() {
		return true
	}
	if b.IsAnonymous() {
		return email != "" && strings.EqualFold(strings.TrimSpace(o.Email), email)
	}
	if o.CustomerId != "" && o.CustomerId == b.Customer.Id {
		return true
	}
	return strings.EqualFold(o.Email, b.Customer.Email) || (email != "" && strings.EqualFold(o.Email, email))
}

func needsVerification(b *bundle.ContextBundle) bool {
	return b.IsAnonymous() && !b.IsStaff()
}

func verificationRequired() *Outcome {
	return &Outcome{Found: false, Content: "To protect your privacy I need both the order number and the email address used at checkout before I can share order details."}
}

func orderFound(o *bundle.OrderSummary) *Outcome {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Order %s is %s. It was placed on %s with a total of %s.",
		displayNumber(o.OrderNumber), o.Status, formatDate(o.CreatedAt), formatMoney(o.Total, o.Currency))
	if len(o.Items) > 0 {
		parts := make([]string, 0, len(o.Items))
		for _, it := range o.Items {
			parts = append(parts, fmt.Sprintf("%s x%d", it.Title, it.Quantity))
		}
		fmt.Fprintf(&sb, " Items: %s.", strings.Join(parts, ", "))
	}
	if o.TrackingNumber != "" {
		fmt.Fprintf(&sb, " Tracking number: %s", o.TrackingNumber)
		if o.Carrier != "" {
			fmt.Fprintf(&sb, " (%s)", o.Carrier)
		}
		sb.WriteString(".")
	}
	return &Outcome{Found: true, Content: sb.String(), Data: o}
}

func orderNotFound(number, email string) *Outcome {
	if number != "" {
		return &Outcome{Found: false, Content: fmt.Sprintf(
			"I couldn't find an order matching %s. Please double-check the order number, or share the email address used at checkout.",
			displayNumber(number))}
	}
	return &Outcome{Found: false, Content: fmt.Sprintf(
		"I couldn't find any orders for %s. Please check the email address or share your order number.", email)}
}

func displayNumber(n string) string {
	n = strings.TrimSpace(n)
	if strings.HasPrefix(n, "#") {
		return n
	}
	return "#" + n
}
