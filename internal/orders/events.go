package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderPlaced = "OrderPlaced"
	EventStockLow    = "StockLow"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // one of the consts above
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g. "storefront-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order number
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope wraps an encoded payload in a version 1 envelope with a fresh event id.
func NewEnvelope(eventType, producer, traceID, correlationID string, payload json.RawMessage) Envelope {
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: correlationID,
		Payload:       payload,
	}
}

type ItemQty struct {
	ProductID int64 `json:"product_id"`
	SizeID    int64 `json:"size_id"`
	Qty       int   `json:"qty"`
}

type OrderPlacedPayload struct {
	OrderID     int64     `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	UserID      int64     `json:"user_id"`
	Email       string    `json:"email"`
	Items       []ItemQty `json:"items"`
	Total       string    `json:"total"`
	PromoCode   string    `json:"promo_code,omitempty"`
}

type StockLowPayload struct {
	ProductID   int64  `json:"product_id"`
	SizeID      int64  `json:"size_id"`
	Quantity    int    `json:"quantity"`
	Threshold   int    `json:"threshold"`
	OrderNumber string `json:"order_number"`
}

// PlacedPayload builds the event body for a confirmed checkout.
func PlacedPayload(c Confirmation, email string) OrderPlacedPayload {
	items := make([]ItemQty, 0, len(c.Lines))
	for _, l := range c.Lines {
		items = append(items, ItemQty{ProductID: l.ProductID, SizeID: l.SizeID, Qty: l.Quantity})
	}
	return OrderPlacedPayload{
		OrderID:     c.OrderID,
		OrderNumber: c.OrderNumber,
		UserID:      c.UserID,
		Email:       email,
		Items:       items,
		Total:       c.Totals.Total.StringFixed(2),
		PromoCode:   c.PromoCode,
	}
}
