package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Address is copied into the order at checkout; later address-book edits never touch it.
type Address struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Company   string `json:"company,omitempty"`
	Line1     string `json:"address1"`
	Line2     string `json:"address2,omitempty"`
	City      string `json:"city"`
	County    string `json:"county,omitempty"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Phone     string `json:"phone,omitempty"`
}

type Order struct {
	ID              int64
	OrderNumber     string
	UserID          int64
	Status          Status
	PaymentStatus   PaymentStatus
	Subtotal        decimal.Decimal
	Shipping        decimal.Decimal
	Tax             decimal.Decimal
	Discount        decimal.Decimal
	Total           decimal.Decimal
	ShippingOption  string
	PromoCode       string
	ShippingAddress Address
	BillingAddress  Address
	TrackingNumber  *string
	Notes           string
	CreatedAt       time.Time
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	Lines           []OrderLine
}

// OrderLine keeps product name, color, size name and price as they were when the order was placed.
type OrderLine struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	SizeID      int64
	ProductName string
	Color       string
	SizeName    string
	UnitPrice   decimal.Decimal
	Quantity    int
	LineTotal   decimal.Decimal
	ImageURL    string // filled on read from the current catalog, not stored
}

type StockKey struct {
	ProductID int64
	SizeID    int64
}

type StockEntry struct {
	ProductID int64
	SizeID    int64
	Quantity  int
	InStock   bool
}

type DiscountType string

const (
	DiscountPercentage  DiscountType = "Percentage"
	DiscountFixedAmount DiscountType = "FixedAmount"
)

type PromoCode struct {
	ID          int64
	Code        string
	Type        DiscountType
	Value       decimal.Decimal
	MinOrder    *decimal.Decimal
	MaxDiscount *decimal.Decimal
	StartsAt    time.Time
	EndsAt      time.Time
	Active      bool
	UsageLimit  *int
	UsageCount  int
}

// NewUser is what checkout knows about a customer that may not have an account yet.
type NewUser struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// LineSnapshot is the catalog data copied onto an order line.
type LineSnapshot struct {
	ProductName string
	Color       string
	SizeName    string
}

const (
	UnknownProduct = "Unknown Product"
	UnknownSize    = "Unknown Size"
)
