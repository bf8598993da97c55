package httpx

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/orders/orderstest"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []kafkago.Message
}

func (p *recordingPublisher) Publish(key, value []byte, headers ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, kafkago.Message{Key: key, Value: value, Headers: headers})
}

func newOrdersServer(t *testing.T) (*chi.Mux, *orderstest.Store, *recordingPublisher) {
	t.Helper()
	st := orderstest.NewStore()
	st.AddProduct(1, "Linen Shirt", "Sand", "")
	st.AddSize(10, "M")
	st.SetStock(1, 10, 2)
	st.AddPromo(orders.PromoCode{
		Code:     "WELCOME10",
		Type:     orders.DiscountPercentage,
		Value:    decimal.NewFromInt(10),
		StartsAt: time.Now().Add(-time.Hour),
		EndsAt:   time.Now().Add(time.Hour),
		Active:   true,
	})
	pub := &recordingPublisher{}
	h := &OrdersHandler{
		Service:  &orders.Service{Store: st, Log: zerolog.Nop()},
		Producer: pub,
		Name:     "storefront-api",
	}
	r := NewRouter(zerolog.Nop())
	h.Register(r)
	return r, st, pub
}

func checkoutBody(qty int, total string) map[string]any {
	addr := map[string]any{
		"firstName": "Ada",
		"lastName":  "Lovelace",
		"address1":  "12 St James's Square",
		"city":      "London",
		"postcode":  "SW1Y 4JH",
		"country":   "GB",
	}
	return map[string]any{
		"customerInfo":          map[string]any{"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com"},
		"shippingAddress":       addr,
		"billingSameAsShipping": true,
		"items":                 []map[string]any{{"productId": 1, "sizeId": 10, "quantity": qty, "price": "20.00"}},
		"shippingOption":        "standard",
		"total":                 total,
	}
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateOrder(t *testing.T) {
	r, st, pub := newOrdersServer(t)

	rec := do(t, r, http.MethodPost, "/orders", checkoutBody(1, "23.99"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp CreateOrderResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, orders.ValidOrderNumber(resp.OrderID), resp.OrderID)
	assert.Equal(t, "Order placed successfully", resp.Message)
	_, err := time.Parse("2006-01-02", resp.EstimatedDelivery)
	assert.NoError(t, err)
	assert.Equal(t, "23.99", resp.Total.StringFixed(2))
	assert.Equal(t, "3.99", resp.Shipping.StringFixed(2))
	assert.Equal(t, 1, st.Stock(1, 10))

	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	assert.Equal(t, resp.OrderID, string(msg.Key))
	var env orders.Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, orders.EventOrderPlaced, env.EventType)
	assert.Equal(t, resp.OrderID, env.CorrelationID)
	assert.NotEmpty(t, env.EventID)
	assert.NotEmpty(t, env.TraceID, "request id is carried as trace id")

	var p orders.OrderPlacedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "ada@example.com", p.Email)
	assert.Equal(t, []orders.ItemQty{{ProductID: 1, SizeID: 10, Qty: 1}}, p.Items)
	assert.Equal(t, "23.99", p.Total)
}

func TestCreateOrder_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		setup  func(st *orderstest.Store)
		status int
	}{
		{"malformed json", `{"items": [`, nil, http.StatusBadRequest},
		{"validation", map[string]any{"items": []any{}}, nil, http.StatusBadRequest},
		{"insufficient stock", checkoutBody(3, "60.00"), nil, http.StatusBadRequest},
		{"total mismatch", checkoutBody(1, "20.00"), nil, http.StatusBadRequest},
		{"out of stock", checkoutBody(1, "23.99"), func(st *orderstest.Store) { st.SetStock(1, 10, 0) }, http.StatusBadRequest},
		{"sold out during checkout", checkoutBody(1, "23.99"), func(st *orderstest.Store) {
			st.BeforeTx = func(s *orderstest.Store) { s.SetStock(1, 10, 0) }
		}, http.StatusConflict},
		{"store failure", checkoutBody(1, "23.99"), func(st *orderstest.Store) {
			st.Fail["InsertLine"] = assert.AnError
		}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, st, pub := newOrdersServer(t)
			if tt.setup != nil {
				tt.setup(st)
			}
			rec := do(t, r, http.MethodPost, "/orders", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			var e errorResp
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
			assert.NotEmpty(t, e.Message)
			assert.Empty(t, pub.msgs)
			assert.Zero(t, st.OrderCount())
		})
	}
}

func TestCreateOrder_ValidationFields(t *testing.T) {
	r, _, _ := newOrdersServer(t)
	body := checkoutBody(0, "0")
	body["customerInfo"] = map[string]any{"firstName": "Ada", "lastName": "Lovelace", "email": "nope"}

	rec := do(t, r, http.MethodPost, "/orders", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var e errorResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, "validation failed", e.Message)
	assert.Contains(t, e.Errors, "customerInfo.email")
	assert.Contains(t, e.Errors, "items[0].quantity")
}

func TestCreateOrder_RateLimited(t *testing.T) {
	st := orderstest.NewStore()
	h := &OrdersHandler{
		Service: &orders.Service{Store: st, Log: zerolog.Nop()},
		Limiter: NewRateLimiter(0.001, 1, time.Minute),
	}
	r := NewRouter(zerolog.Nop())
	h.Register(r)

	first := do(t, r, http.MethodPost, "/orders", `{}`)
	assert.Equal(t, http.StatusBadRequest, first.Code)
	second := do(t, r, http.MethodPost, "/orders", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// other routes are not limited
	promo := do(t, r, http.MethodPost, "/orders/validate-promo", map[string]any{"code": "X", "subtotal": "10"})
	assert.Equal(t, http.StatusBadRequest, promo.Code)
}

func TestGetOrder(t *testing.T) {
	r, _, _ := newOrdersServer(t)
	rec := do(t, r, http.MethodPost, "/orders", checkoutBody(2, "43.99"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created CreateOrderResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(t, r, http.MethodGet, "/orders/"+created.OrderID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var v orderView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, created.OrderID, v.OrderNumber)
	assert.Equal(t, orders.StatusPending, v.Status)
	assert.Equal(t, "43.99", v.Total.StringFixed(2))
	assert.Equal(t, "London", v.ShippingAddress.City)
	require.Len(t, v.Items, 1)
	assert.Equal(t, "Linen Shirt", v.Items[0].ProductName)
	assert.Equal(t, "M", v.Items[0].SizeName)
	assert.Equal(t, 2, v.Items[0].Quantity)
	assert.Equal(t, "40.00", v.Items[0].LineTotal.StringFixed(2))

	rec = do(t, r, http.MethodGet, "/orders/ORD202601019999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidatePromo(t *testing.T) {
	r, st, _ := newOrdersServer(t)

	rec := do(t, r, http.MethodPost, "/orders/validate-promo", map[string]any{"code": "welcome10", "subtotal": "40.00"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var q orders.PromoQuote
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &q))
	assert.Equal(t, "WELCOME10", q.Code)
	assert.Equal(t, orders.DiscountPercentage, q.Type)
	assert.Equal(t, "4.00", q.Discount.StringFixed(2))
	assert.Zero(t, st.Promo("WELCOME10").UsageCount)

	rec = do(t, r, http.MethodPost, "/orders/validate-promo", map[string]any{"code": "BOGUS", "subtotal": "40.00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/orders/validate-promo", map[string]any{"code": "", "subtotal": "40.00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	rec := do(t, NewRouter(zerolog.Nop()), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestOrderCacheKeyIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, "order:ORD202603041234", orderCacheKey("ORD202603041234"))
	assert.Equal(t, orderCacheKey("ORD202603041234"), orderCacheKey(" ord202603041234 "))
}

func TestGetOrder_LowerCaseNumber(t *testing.T) {
	r, _, _ := newOrdersServer(t)
	rec := do(t, r, http.MethodPost, "/orders", checkoutBody(1, "23.99"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created CreateOrderResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(t, r, http.MethodGet, "/orders/"+strings.ToLower(created.OrderID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var v orderView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, created.OrderID, v.OrderNumber)
}
