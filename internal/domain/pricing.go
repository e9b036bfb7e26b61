package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// FinalPrice returns the effective selling price: the list price unless the
// product is flagged on sale, then the percentage discount followed by the
// fixed discount, floored at zero. Stale discount columns on a row that is
// no longer on sale must not leak into the price.
func (p Product) FinalPrice() decimal.Decimal {
	if !p.OnSale {
		return p.UnitCost
	}
	price := p.UnitCost
	if p.DiscountPercent != nil && p.DiscountPercent.IsPositive() {
		price = price.Sub(p.UnitCost.Mul(*p.DiscountPercent).Div(oneHundred))
	}
	if p.DiscountAmount != nil && p.DiscountAmount.IsPositive() {
		price = price.Sub(*p.DiscountAmount)
	}
	if price.IsNegative() {
		return decimal.Zero
	}
	return price
}

// ReferencePrice returns the price savings are measured against: the
// original price when recorded, otherwise the list price.
func (p Product) ReferencePrice() decimal.Decimal {
	if p.OriginalPrice != nil && p.OriginalPrice.IsPositive() {
		return *p.OriginalPrice
	}
	return p.UnitCost
}

// SavingsAmount returns how much the customer saves versus the reference
// price, floored at zero.
func (p Product) SavingsAmount() decimal.Decimal {
	savings := p.ReferencePrice().Sub(p.FinalPrice())
	if savings.IsNegative() {
		return decimal.Zero
	}
	return savings
}

// SavingsPercent returns the saving as a percentage of the reference
// price, rounded to one decimal place. Zero when there is no reference.
func (p Product) SavingsPercent() decimal.Decimal {
	reference := p.ReferencePrice()
	if !reference.IsPositive() {
		return decimal.Zero
	}
	return p.SavingsAmount().Mul(oneHundred).Div(reference).Round(1)
}

// HasActivePromotion reports whether the product is flagged on sale and the
// promotion window, when present, has not lapsed at the given instant.
func (p Product) HasActivePromotion(now time.Time) bool {
	if !p.OnSale {
		return false
	}
	if p.PromotionValidUntil == nil {
		return true
	}
	return !now.After(*p.PromotionValidUntil)
}
