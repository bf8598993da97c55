package orders

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestShippingCost(t *testing.T) {
	tests := []struct {
		subtotal string
		option   string
		want     string
	}{
		{"10.00", ShippingStandard, "3.99"},
		{"10.00", ShippingExpress, "5.99"},
		{"10.00", ShippingNextDay, "9.99"},
		{"10.00", "carrier-pigeon", "3.99"},
		{"10.00", "", "3.99"},
		{"49.99", ShippingNextDay, "9.99"},
		{"50.00", ShippingNextDay, "0.00"},
		{"120.00", ShippingExpress, "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.subtotal+"/"+tt.option, func(t *testing.T) {
			assert.Equal(t, tt.want, ShippingCost(d(tt.subtotal), tt.option).StringFixed(2))
		})
	}
}

func TestComputeTotals(t *testing.T) {
	got := ComputeTotals(d("40.00"), ShippingStandard, d("4.00"))
	assert.Equal(t, "40.00", got.Subtotal.StringFixed(2))
	assert.Equal(t, "3.99", got.Shipping.StringFixed(2))
	assert.True(t, got.Tax.IsZero())
	assert.Equal(t, "39.99", got.Total.StringFixed(2))
}

func TestSubtotal(t *testing.T) {
	items := []CheckoutItem{
		{ProductID: 1, SizeID: 1, Quantity: 3, Price: d("19.99")},
		{ProductID: 2, SizeID: 1, Quantity: 1, Price: d("0.01")},
	}
	assert.Equal(t, "59.98", Subtotal(items).StringFixed(2))
}

func TestWithinTolerance(t *testing.T) {
	assert.True(t, WithinTolerance(d("100.00"), d("100.01")))
	assert.True(t, WithinTolerance(d("100.00"), d("99.99")))
	assert.False(t, WithinTolerance(d("100.00"), d("100.02")))
	assert.False(t, WithinTolerance(d("100.00"), d("0")))
}

func TestQuantitiesSumsDuplicatesInKeyOrder(t *testing.T) {
	keys, qty := quantities([]CheckoutItem{
		{ProductID: 2, SizeID: 1, Quantity: 1},
		{ProductID: 1, SizeID: 1, Quantity: 2},
		{ProductID: 2, SizeID: 1, Quantity: 4},
	})
	assert.Equal(t, []StockKey{{ProductID: 1, SizeID: 1}, {ProductID: 2, SizeID: 1}}, keys, "sorted by product then size")
	assert.Equal(t, 5, qty[StockKey{ProductID: 2, SizeID: 1}])
	assert.Equal(t, 2, qty[StockKey{ProductID: 1, SizeID: 1}])
}

func TestPromoDiscount(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	cap10 := d("10")
	min40 := d("40")
	limit := 5
	base := PromoCode{
		Code:     "X",
		StartsAt: now.Add(-time.Hour),
		EndsAt:   now.Add(time.Hour),
		Active:   true,
	}
	with := func(f func(p *PromoCode)) PromoCode {
		p := base
		f(&p)
		return p
	}

	tests := []struct {
		name     string
		promo    PromoCode
		subtotal string
		want     string
		err      error
	}{
		{"percentage", with(func(p *PromoCode) { p.Type, p.Value = DiscountPercentage, d("10") }), "40.00", "4.00", nil},
		{"percentage rounds to cents", with(func(p *PromoCode) { p.Type, p.Value = DiscountPercentage, d("15") }), "33.33", "5.00", nil},
		{"fixed", with(func(p *PromoCode) { p.Type, p.Value = DiscountFixedAmount, d("7.50") }), "30.00", "7.50", nil},
		{"fixed capped", with(func(p *PromoCode) { p.Type, p.Value, p.MaxDiscount = DiscountFixedAmount, d("20"), &cap10 }), "30.00", "10.00", nil},
		{"never above subtotal", with(func(p *PromoCode) { p.Type, p.Value = DiscountFixedAmount, d("20") }), "12.00", "12.00", nil},
		{"minimum not met", with(func(p *PromoCode) { p.Type, p.Value, p.MinOrder = DiscountFixedAmount, d("5"), &min40 }), "39.99", "", ErrPromoMinimum},
		{"minimum met exactly", with(func(p *PromoCode) { p.Type, p.Value, p.MinOrder = DiscountFixedAmount, d("5"), &min40 }), "40.00", "5.00", nil},
		{"inactive", with(func(p *PromoCode) { p.Type, p.Value, p.Active = DiscountFixedAmount, d("5"), false }), "40.00", "", ErrPromoInvalid},
		{"not started", with(func(p *PromoCode) { p.Type, p.Value, p.StartsAt = DiscountFixedAmount, d("5"), now.Add(time.Minute) }), "40.00", "", ErrPromoInvalid},
		{"expired", with(func(p *PromoCode) { p.Type, p.Value, p.EndsAt = DiscountFixedAmount, d("5"), now.Add(-time.Minute) }), "40.00", "", ErrPromoInvalid},
		{"usage exhausted", with(func(p *PromoCode) { p.Type, p.Value, p.UsageLimit, p.UsageCount = DiscountFixedAmount, d("5"), &limit, 5 }), "40.00", "", ErrPromoUsageLimit},
		{"unknown type", with(func(p *PromoCode) { p.Type, p.Value = "BuyOneGetOne", d("5") }), "40.00", "", ErrPromoInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.promo.Discount(d(tt.subtotal), now)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}
