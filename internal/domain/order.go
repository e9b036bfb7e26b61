package domain

import "github.com/shopspring/decimal"

// orderTransitions lists the allowed status moves. Terminal states have no
// outgoing edges.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusDraft:      {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:       {OrderStatusProcessing, OrderStatusRefunded},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {OrderStatusRefunded},
	OrderStatusCancelled:  {},
	OrderStatusRefunded:   {},
}

// CanTransitionTo reports whether the order status graph allows moving from
// the current status to the target.
func (o Order) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range orderTransitions[o.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsCancelable reports whether stock may still be restored for this order.
func (o Order) IsCancelable() bool {
	return o.Status != OrderStatusDelivered && o.Status != OrderStatusCancelled
}

// CalculateTotals recomputes Subtotal and Total from the lines and the
// header-level tax, shipping, and discount. Total never goes below zero.
func (o *Order) CalculateTotals() {
	subtotal := decimal.Zero
	for _, line := range o.Lines {
		subtotal = subtotal.Add(line.Subtotal())
	}
	o.Subtotal = subtotal

	total := subtotal.Add(o.Tax).Add(o.Shipping).Sub(o.Discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	o.Total = total
}
