package orders

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxItemQuantity bounds the quantity requested for one product and size across all lines.
const MaxItemQuantity = 10000

type Customer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

type CheckoutItem struct {
	ProductID int64           `json:"productId"`
	SizeID    int64           `json:"sizeId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"` // unit price as quoted to the client
}

// CheckoutRequest is the body of POST /orders.
type CheckoutRequest struct {
	Customer              Customer        `json:"customerInfo"`
	BillingAddress        Address         `json:"billingAddress"`
	ShippingAddress       Address         `json:"shippingAddress"`
	BillingSameAsShipping bool            `json:"billingSameAsShipping"`
	Items                 []CheckoutItem  `json:"items"`
	ShippingOption        string          `json:"shippingOption"`
	PromoCode             string          `json:"promoCode,omitempty"`
	Total                 decimal.Decimal `json:"total"`
	CreateAccount         bool            `json:"createAccount"`
	Newsletter            bool            `json:"newsletter"`
	Notes                 string          `json:"notes,omitempty"`
}

func (r *CheckoutRequest) normalize() {
	r.Customer.Email = strings.ToLower(strings.TrimSpace(r.Customer.Email))
	r.Customer.FirstName = strings.TrimSpace(r.Customer.FirstName)
	r.Customer.LastName = strings.TrimSpace(r.Customer.LastName)
	r.ShippingOption = strings.ToLower(strings.TrimSpace(r.ShippingOption))
	r.PromoCode = strings.TrimSpace(r.PromoCode)
	if r.BillingSameAsShipping {
		r.BillingAddress = r.ShippingAddress
	}
}

// Validate reports every malformed field at once.
func (r *CheckoutRequest) Validate() error {
	ve := &ValidationError{}

	if r.Customer.FirstName == "" {
		ve.add("customerInfo.firstName", "is required")
	}
	if r.Customer.LastName == "" {
		ve.add("customerInfo.lastName", "is required")
	}
	if r.Customer.Email == "" {
		ve.add("customerInfo.email", "is required")
	} else if !strings.Contains(r.Customer.Email, "@") {
		ve.add("customerInfo.email", "is not a valid email address")
	}
	validateAddress(ve, "shippingAddress", r.ShippingAddress)
	if !r.BillingSameAsShipping {
		validateAddress(ve, "billingAddress", r.BillingAddress)
	}

	if len(r.Items) == 0 {
		ve.add("items", "at least one item is required")
	}
	perEntry := make(map[StockKey]int, len(r.Items))
	for i, it := range r.Items {
		prefix := "items[" + itoa(i) + "]"
		if it.ProductID <= 0 {
			ve.add(prefix+".productId", "is required")
		}
		if it.SizeID <= 0 {
			ve.add(prefix+".sizeId", "is required")
		}
		switch {
		case it.Quantity <= 0:
			ve.add(prefix+".quantity", "must be greater than zero")
		case it.Quantity > MaxItemQuantity:
			ve.add(prefix+".quantity", "must be at most "+itoa(MaxItemQuantity))
		default:
			k := StockKey{ProductID: it.ProductID, SizeID: it.SizeID}
			perEntry[k] += it.Quantity
			if perEntry[k] > MaxItemQuantity {
				ve.add(prefix+".quantity", "total for this product and size must be at most "+itoa(MaxItemQuantity))
			}
		}
		switch {
		case it.Price.IsNegative():
			ve.add(prefix+".price", "must not be negative")
		case !it.Price.Equal(it.Price.Round(2)):
			ve.add(prefix+".price", "must have at most 2 decimal places")
		}
	}
	if r.Total.IsNegative() {
		ve.add("total", "must not be negative")
	}
	if len(r.Notes) > 1000 {
		ve.add("notes", "must be at most 1000 characters")
	}

	if ve.empty() {
		return nil
	}
	return ve
}

func validateAddress(ve *ValidationError, prefix string, a Address) {
	if strings.TrimSpace(a.Line1) == "" {
		ve.add(prefix+".address1", "is required")
	}
	if strings.TrimSpace(a.City) == "" {
		ve.add(prefix+".city", "is required")
	}
	if strings.TrimSpace(a.Postcode) == "" {
		ve.add(prefix+".postcode", "is required")
	}
	if strings.TrimSpace(a.Country) == "" {
		ve.add(prefix+".country", "is required")
	}
}

// quantities sums requested quantities per stock entry. Keys are sorted by product then size
// so that concurrent checkouts lock stock rows in the same order. Items must have passed Validate.
func quantities(items []CheckoutItem) ([]StockKey, map[StockKey]int) {
	keys := make([]StockKey, 0, len(items))
	qty := make(map[StockKey]int, len(items))
	for _, it := range items {
		k := StockKey{ProductID: it.ProductID, SizeID: it.SizeID}
		if _, seen := qty[k]; !seen {
			keys = append(keys, k)
		}
		qty[k] += it.Quantity
	}
	slices.SortFunc(keys, func(a, b StockKey) int {
		if c := cmp.Compare(a.ProductID, b.ProductID); c != 0 {
			return c
		}
		return cmp.Compare(a.SizeID, b.SizeID)
	})
	return keys, qty
}
