package bundle

import "StoreSupport/internal/modules/storefront/domain/entity"

// SummarizeOrder 订单实体转快照，订单未记录币种时使用店铺币种
func SummarizeOrder(o *entity.Order, fallbackCurrency string) OrderSummary {
	currency := o.Currency
	if currency == "" {
		currency = fallbackCurrency
	}
	items := make([]LineSummary, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		items = append(items, LineSummary{
			ProductId: li.ProductId,
			Title:     li.Title,
			Category:  li.Category,
			Quantity:  li.Quantity,
			Price:     li.Price,
		})
	}
	return OrderSummary{
		Id:             o.Id,
		OrderNumber:    o.OrderNumber,
		Status:         o.Status,
		Total:          o.TotalPrice,
		Currency:       currency,
		TrackingNumber: o.TrackingNumber,
		Carrier:        o.TrackingCarrier,
		TrackingURL:    o.TrackingURL,
		ShipTo:         o.ShippingAddress.OneLine(),
		CreatedAt:      o.CreatedAt,
		ShippedAt:      o.ShippedAt,
		DeliveredAt:    o.DeliveredAt,
		CancelledAt:    o.CancelledAt,
		Items:          items,
	}
}
