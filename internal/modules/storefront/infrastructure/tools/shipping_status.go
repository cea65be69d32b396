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

type shippingStatusTool struct {
	orders repository.OrderRepository
}

type shippingStatusArgs struct {
	OrderNumber   string `json:"order_number"`
	CustomerEmail string `json:"customer_email"`
}

func (t *shippingStatusTool) Name() string { return NameShippingStatus }

func (t *shippingStatusTool) Description() string {
	return "Check where an order is in fulfilment (pending, processing, shipped, delivered, cancelled) including carrier and tracking number."
}

func (t *shippingStatusTool) Params() map[string]*schema.ParameterInfo {
	return map[string]*schema.ParameterInfo{
		"order_number":   {Type: schema.String, Desc: "Order number, e.g. #1001", Required: true},
		"customer_email": {Type: schema.String, Desc: "Email address used for the order, required when the visitor is not signed in"},
	}
}

func (t *shippingStatusTool) Info(_ context.Context) (*schema.ToolInfo, error) { return buildInfo(t), nil }

func (t *shippingStatusTool) Invoke(ctx context.Context, orgID string, args string, b *bundle.ContextBundle) (*Outcome, error) {
	var a shippingStatusArgs
	if !decodeArgs(args, &a) {
		return invalid("The shipping status request was malformed."), nil
	}
	number := strings.TrimSpace(a.OrderNumber)
	if number == "" {
		return invalid("Please share your order number so I can check its shipping status."), nil
	}

	email := strings.ToLower(strings.TrimSpace(a.CustomerEmail))

	sum := b.FindOrder(number)
	if sum == nil {
		if needsVerification(b) && email == "" {
			return verificationRequired(), nil
		}
		o, err := t.orders.GetByNumber(ctx, orgID, number)
		if err != nil {
			return nil, err
		}
		if o == nil || !visibleTo(o, b, email) {
			return &Outcome{Found: false, Content: fmt.Sprintf(
				"I couldn't find shipping details for order %s. Please double-check the order number.", displayNumber(number))}, nil
		}
		currency := ""
		if b != nil {
			currency = b.Store.Currency
		}
		s := bundle.SummarizeOrder(o, currency)
		sum = &s
	}

	return &Outcome{Found: true, Content: ShippingSentence(sum), Data: sum}, nil
}

// ShippingSentence 按订单生命周期生成一句状态描述
func ShippingSentence(o *bundle.OrderSummary) string {
	num := displayNumber(o.OrderNumber)
	switch o.Status {
	case entity.OrderStatusPending:
		return fmt.Sprintf("Order %s has been received and is waiting to be processed.", num)
	case entity.OrderStatusProcessing:
		return fmt.Sprintf("Order %s is being prepared for shipment and hasn't shipped yet.", num)
	case entity.OrderStatusShipped:
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Order %s has shipped", num))
		if o.ShippedAt != nil {
			sb.WriteString(" on " + formatDate(*o.ShippedAt))
		}
		if o.Carrier != "" {
			sb.WriteString(" via " + o.Carrier)
		}
		sb.WriteString(".")
		if o.TrackingNumber != "" {
			sb.WriteString(" Tracking number: " + o.TrackingNumber + ".")
		}
		if o.TrackingURL != "" {
			sb.WriteString(" You can follow it here: " + o.TrackingURL)
		}
		if o.ShipTo != "" {
			sb.WriteString(" It's on its way to " + o.ShipTo + ".")
		}
		return strings.TrimSpace(sb.String())
	case entity.OrderStatusDelivered:
		s := fmt.Sprintf("Order %s was delivered", num)
		if o.DeliveredAt != nil {
			s += " on " + formatDate(*o.DeliveredAt)
		}
		if o.ShipTo != "" {
			s += " to " + o.ShipTo
		}
		return s + "."
	case entity.OrderStatusCancelled:
		if o.CancelledAt != nil {
			return fmt.Sprintf("Order %s was cancelled on %s.", num, formatDate(*o.CancelledAt))
		}
		return fmt.Sprintf("Order %s was cancelled.", num)
	default:
		return fmt.Sprintf("Order %s is currently %s.", num, o.Status)
	}
}
