package orders

import (
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	ShippingStandard = "standard"
	ShippingExpress  = "express"
	ShippingNextDay  = "next"
)

var (
	FreeShippingThreshold = decimal.NewFromInt(50)
	TotalTolerance        = decimal.New(1, -2)

	shippingFees = map[string]decimal.Decimal{
		ShippingStandard: decimal.RequireFromString("3.99"),
		ShippingExpress:  decimal.RequireFromString("5.99"),
		ShippingNextDay:  decimal.RequireFromString("9.99"),
	}
)

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// Subtotal sums the client-quoted unit prices.
func Subtotal(items []CheckoutItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum.Round(2)
}

// ShippingCost is free at or above the threshold; unknown options are charged as standard.
func ShippingCost(subtotal decimal.Decimal, option string) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		return decimal.Zero
	}
	if fee, ok := shippingFees[option]; ok {
		return fee
	}
	return shippingFees[ShippingStandard]
}

// Tax is zero until jurisdiction rules exist.
func Tax(decimal.Decimal) decimal.Decimal { return decimal.Zero }

func ComputeTotals(subtotal decimal.Decimal, option string, discount decimal.Decimal) Totals {
	t := Totals{
		Subtotal: subtotal,
		Shipping: ShippingCost(subtotal, option),
		Tax:      Tax(subtotal),
		Discount: discount,
	}
	t.Total = t.Subtotal.Add(t.Shipping).Sub(t.Discount).Add(t.Tax).Round(2)
	return t
}

// WithinTolerance reports whether two totals differ by at most one cent.
func WithinTolerance(server, client decimal.Decimal) bool {
	return server.Sub(client).Abs().LessThanOrEqual(TotalTolerance)
}

func itoa(i int) string { return strconv.Itoa(i) }
