package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/hlog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const maxBodyBytes = 1 << 20

// OrdersHandler serves checkout, order lookup and promo validation.
// Producer, Redis and Limiter are optional.
type OrdersHandler struct {
	Service  *orders.Service
	Producer kafkax.Publisher
	Redis    *redis.Client
	Limiter  *RateLimiter
	Name     string
}

type CreateOrderResp struct {
	OrderID           string          `json:"orderId"`
	Message           string          `json:"message"`
	EstimatedDelivery string          `json:"estimatedDelivery"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Shipping          decimal.Decimal `json:"shipping"`
	Tax               decimal.Decimal `json:"tax"`
	Discount          decimal.Decimal `json:"discount"`
	Total             decimal.Decimal `json:"total"`
}

type ValidatePromoReq struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type errorResp struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	create := http.Handler(http.HandlerFunc(h.createOrder))
	if h.Limiter != nil {
		create = h.Limiter.Middleware(create)
	}
	r.Method(http.MethodPost, "/orders", create)
	r.Post("/orders/validate-promo", h.validatePromo)
	r.Get("/orders/{orderNumber}", h.getOrder)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Message: "invalid json"})
		return false
	}
	return true
}

// writeError maps workflow errors to status codes. notFound is the status used for ErrNotFound,
// which differs between lookups (404) and submissions that reference unknown rows (400).
func writeError(w http.ResponseWriter, err error, notFound int) {
	var ve *orders.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResp{Message: "validation failed", Errors: ve.Fields})
	case errors.Is(err, orders.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResp{Message: err.Error()})
	case errors.Is(err, orders.ErrInsufficientStock),
		errors.Is(err, orders.ErrTotalMismatch),
		errors.Is(err, orders.ErrPromoInvalid),
		errors.Is(err, orders.ErrPromoUsageLimit),
		errors.Is(err, orders.ErrPromoMinimum):
		writeJSON(w, http.StatusBadRequest, errorResp{Message: err.Error()})
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, notFound, errorResp{Message: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, errorResp{Message: "request timed out"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp{Message: "an error occurred while processing the request"})
	}
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orders.CheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	conf, err := h.Service.PlaceOrder(ctx, req)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	if h.Producer != nil {
		payload := orders.PlacedPayload(conf, req.Customer.Email)
		ev := orders.NewEnvelope(orders.EventOrderPlaced, h.Name, middleware.GetReqID(r.Context()),
			conf.OrderNumber, kafkax.MustMarshal(payload))
		h.Producer.Publish(
			orders.PartitionKey(conf.OrderNumber),
			kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderPlaced)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}

	writeJSON(w, http.StatusOK, CreateOrderResp{
		OrderID:           conf.OrderNumber,
		Message:           conf.Message,
		EstimatedDelivery: conf.EstimatedDelivery.Format("2006-01-02"),
		Subtotal:          conf.Totals.Subtotal,
		Shipping:          conf.Totals.Shipping,
		Tax:               conf.Totals.Tax,
		Discount:          conf.Totals.Discount,
		Total:             conf.Totals.Total,
	})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	number := orders.NormalizeOrderNumber(chi.URLParam(r, "orderNumber"))

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) cache
	key := orderCacheKey(number)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			writeJSON(w, http.StatusOK, json.RawMessage(s))
			return
		}
	}

	// 2) database
	o, err := h.Service.GetOrder(ctx, number)
	if err != nil {
		writeError(w, err, http.StatusNotFound)
		return
	}
	b, err := json.Marshal(newOrderView(o))
	if err != nil {
		writeError(w, err, http.StatusNotFound)
		return
	}
	if h.Redis != nil {
		if err := h.Redis.Set(ctx, key, b, redisx.TTLOrderDetail).Err(); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Str("order_number", number).Msg("cache order detail")
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func orderCacheKey(number string) string {
	return fmt.Sprintf(redisx.KeyOrderDetail, orders.NormalizeOrderNumber(number))
}

func (h *OrdersHandler) validatePromo(w http.ResponseWriter, r *http.Request) {
	var req ValidatePromoReq
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	q, err := h.Service.ValidatePromo(ctx, req.Code, req.Subtotal)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type orderLineView struct {
	ProductID   int64           `json:"productId"`
	SizeID      int64           `json:"sizeId"`
	ProductName string          `json:"productName"`
	Color       string          `json:"color"`
	SizeName    string          `json:"size"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
	ImageURL    string          `json:"imageUrl,omitempty"`
}

type orderView struct {
	OrderNumber     string               `json:"orderNumber"`
	Status          orders.Status        `json:"status"`
	PaymentStatus   orders.PaymentStatus `json:"paymentStatus"`
	Subtotal        decimal.Decimal      `json:"subtotal"`
	Shipping        decimal.Decimal      `json:"shippingCost"`
	Tax             decimal.Decimal      `json:"taxAmount"`
	Discount        decimal.Decimal      `json:"discountAmount"`
	Total           decimal.Decimal      `json:"totalAmount"`
	ShippingOption  string               `json:"shippingOption"`
	PromoCode       string               `json:"promoCode,omitempty"`
	ShippingAddress orders.Address       `json:"shippingAddress"`
	BillingAddress  orders.Address       `json:"billingAddress"`
	TrackingNumber  *string              `json:"trackingNumber,omitempty"`
	Notes           string               `json:"notes,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	ShippedAt       *time.Time           `json:"shippedAt,omitempty"`
	DeliveredAt     *time.Time           `json:"deliveredAt,omitempty"`
	Items           []orderLineView      `json:"items"`
}

func newOrderView(o *orders.Order) orderView {
	v := orderView{
		OrderNumber:     o.OrderNumber,
		Status:          o.Status,
		PaymentStatus:   o.PaymentStatus,
		Subtotal:        o.Subtotal,
		Shipping:        o.Shipping,
		Tax:             o.Tax,
		Discount:        o.Discount,
		Total:           o.Total,
		ShippingOption:  o.ShippingOption,
		PromoCode:       o.PromoCode,
		ShippingAddress: o.ShippingAddress,
		BillingAddress:  o.BillingAddress,
		TrackingNumber:  o.TrackingNumber,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
		Items:           make([]orderLineView, 0, len(o.Lines)),
	}
	for _, l := range o.Lines {
		v.Items = append(v.Items, orderLineView{
			ProductID:   l.ProductID,
			SizeID:      l.SizeID,
			ProductName: l.ProductName,
			Color:       l.Color,
			SizeName:    l.SizeName,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			LineTotal:   l.LineTotal,
			ImageURL:    l.ImageURL,
		})
	}
	return v
}
