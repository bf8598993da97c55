package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// PromoQuote is the discount a code would give on a subtotal.
type PromoQuote struct {
	Code     string          `json:"code"`
	Type     DiscountType    `json:"discountType"`
	Value    decimal.Decimal `json:"discountValue"`
	Discount decimal.Decimal `json:"discountAmount"`
}

// Discount applies the code's eligibility rules to subtotal at now and returns the amount off.
// The result is rounded to cents, capped by MaxDiscount and never exceeds subtotal.
func (p *PromoCode) Discount(subtotal decimal.Decimal, now time.Time) (decimal.Decimal, error) {
	if !p.Active || now.Before(p.StartsAt) || now.After(p.EndsAt) {
		return decimal.Zero, ErrPromoInvalid
	}
	if p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit {
		return decimal.Zero, ErrPromoUsageLimit
	}
	if p.MinOrder != nil && subtotal.LessThan(*p.MinOrder) {
		return decimal.Zero, ErrPromoMinimum
	}

	var d decimal.Decimal
	switch p.Type {
	case DiscountPercentage:
		d = subtotal.Mul(p.Value).Div(hundred)
	case DiscountFixedAmount:
		d = p.Value
	default:
		return decimal.Zero, ErrPromoInvalid
	}
	if p.MaxDiscount != nil && d.GreaterThan(*p.MaxDiscount) {
		d = *p.MaxDiscount
	}
	if d.GreaterThan(subtotal) {
		d = subtotal
	}
	return d.Round(2), nil
}
