package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultNumberAttempts = 5
	confirmationMessage   = "Order placed successfully"
)

type Service struct {
	Store Store
	Log   zerolog.Logger

	// Optional overrides, used by tests.
	Now            func() time.Time
	NewNumber      func(time.Time) string
	NumberAttempts int
}

// Confirmation is what a successful checkout returns.
type Confirmation struct {
	OrderID           int64
	OrderNumber       string
	UserID            int64
	UserCreated       bool
	PromoCode         string
	Message           string
	EstimatedDelivery time.Time
	Totals            Totals
	Lines             []OrderLine
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newNumber(t time.Time) string {
	if s.NewNumber != nil {
		return s.NewNumber(t)
	}
	return NewOrderNumber(t)
}

// PlaceOrder validates stock and totals, then writes the order, its lines, the stock
// decrements, promo usage and newsletter subscription in one transaction.
func (s *Service) PlaceOrder(ctx context.Context, req CheckoutRequest) (Confirmation, error) {
	req.normalize()
	if err := req.Validate(); err != nil {
		return Confirmation{}, err
	}
	log := s.Log.With().Str("email", req.Customer.Email).Logger()
	now := s.now()

	keys, want := quantities(req.Items)
	if err := s.checkStock(ctx, keys, want); err != nil {
		log.Warn().Err(err).Msg("checkout rejected by stock check")
		return Confirmation{}, err
	}

	subtotal := Subtotal(req.Items)
	promo, discount, err := s.applicablePromo(ctx, req.PromoCode, subtotal, now)
	if err != nil {
		log.Error().Err(err).Str("promo", req.PromoCode).Msg("promo lookup failed")
		return Confirmation{}, err
	}
	totals := ComputeTotals(subtotal, req.ShippingOption, discount)
	if !WithinTolerance(totals.Total, req.Total) {
		err := &MismatchError{Server: totals.Total, Client: req.Total}
		log.Warn().Err(err).Msg("checkout rejected")
		return Confirmation{}, err
	}

	order := newOrder(req, totals, promo)
	var userCreated bool
	err = s.Store.InTx(ctx, func(tx Tx) error {
		var err error
		order.UserID, userCreated, err = tx.EnsureUser(ctx, NewUser{
			FirstName: req.Customer.FirstName,
			LastName:  req.Customer.LastName,
			Email:     req.Customer.Email,
			Phone:     req.Customer.Phone,
		})
		if err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}
		if err := s.insertOrder(ctx, tx, order, now); err != nil {
			return err
		}
		for i := range order.Lines {
			l := &order.Lines[i]
			snap, err := tx.Snapshot(ctx, l.ProductID, l.SizeID)
			if err != nil {
				return fmt.Errorf("snapshot product %d: %w", l.ProductID, err)
			}
			l.OrderID = order.ID
			l.ProductName, l.Color, l.SizeName = snap.ProductName, snap.Color, snap.SizeName
			if l.ProductName == "" {
				l.ProductName = UnknownProduct
			}
			if l.SizeName == "" {
				l.SizeName = UnknownSize
			}
			if err := tx.InsertLine(ctx, l); err != nil {
				return fmt.Errorf("insert line: %w", err)
			}
		}
		for _, k := range keys {
			ok, err := tx.DecrementStock(ctx, k.ProductID, k.SizeID, want[k])
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
			if !ok {
				return fmt.Errorf("%w: product %d size %d sold out concurrently: %w",
					ErrConflict, k.ProductID, k.SizeID, ErrInsufficientStock)
			}
		}
		if promo != nil {
			ok, err := tx.IncrementPromoUsage(ctx, promo.ID)
			if err != nil {
				return fmt.Errorf("promo usage: %w", err)
			}
			if !ok {
				return fmt.Errorf("%w: %s", ErrPromoUsageLimit, promo.Code)
			}
		}
		if req.Newsletter {
			if _, err := tx.SubscribeNewsletter(ctx, req.Customer.Email); err != nil {
				return fmt.Errorf("newsletter: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if !isWorkflowError(err) {
			err = fmt.Errorf("%w: %w", ErrTransaction, err)
		}
		log.Error().Err(err).Str("order_number", order.OrderNumber).Msg("order transaction rolled back")
		return Confirmation{}, err
	}

	log.Info().
		Str("order_number", order.OrderNumber).
		Int64("user_id", order.UserID).
		Bool("user_created", userCreated).
		Bool("create_account", req.CreateAccount).
		Str("total", totals.Total.StringFixed(2)).
		Msg("order placed")

	return Confirmation{
		OrderID:           order.ID,
		OrderNumber:       order.OrderNumber,
		UserID:            order.UserID,
		UserCreated:       userCreated,
		PromoCode:         order.PromoCode,
		Message:           confirmationMessage,
		EstimatedDelivery: EstimateDelivery(now, req.ShippingOption),
		Totals:            totals,
		Lines:             order.Lines,
	}, nil
}

func (s *Service) checkStock(ctx context.Context, keys []StockKey, want map[StockKey]int) error {
	entries, err := s.Store.StockEntries(ctx, keys)
	if err != nil {
		return fmt.Errorf("load stock: %w", err)
	}
	var errs []error
	for _, k := range keys {
		e, ok := entries[k]
		if !ok {
			errs = append(errs, fmt.Errorf("product %d size %d: %w", k.ProductID, k.SizeID, ErrNotFound))
			continue
		}
		if !e.InStock || e.Quantity < want[k] {
			errs = append(errs, &StockError{ProductID: k.ProductID, SizeID: k.SizeID, Requested: want[k], Available: e.Quantity})
		}
	}
	return errors.Join(errs...)
}

// applicablePromo returns the promo and its discount, or no promo when the code is absent
// or not eligible. Only store failures are returned as errors.
func (s *Service) applicablePromo(ctx context.Context, code string, subtotal decimal.Decimal, now time.Time) (*PromoCode, decimal.Decimal, error) {
	if code == "" {
		return nil, decimal.Zero, nil
	}
	p, err := s.Store.PromoByCode(ctx, code)
	if errors.Is(err, ErrNotFound) {
		s.Log.Info().Str("promo", code).Msg("unknown promo code ignored")
		return nil, decimal.Zero, nil
	}
	if err != nil {
		return nil, decimal.Zero, err
	}
	d, err := p.Discount(subtotal, now)
	if err != nil {
		s.Log.Info().Err(err).Str("promo", code).Msg("promo code not applied")
		return nil, decimal.Zero, nil
	}
	return p, d, nil
}

// insertOrder regenerates the order number on collision.
func (s *Service) insertOrder(ctx context.Context, tx Tx, o *Order, now time.Time) error {
	attempts := s.NumberAttempts
	if attempts <= 0 {
		attempts = defaultNumberAttempts
	}
	for i := 0; i < attempts; i++ {
		o.OrderNumber = s.newNumber(now)
		ok, err := tx.InsertOrder(ctx, o)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if ok {
			return nil
		}
		s.Log.Warn().Str("order_number", o.OrderNumber).Int("attempt", i+1).Msg("order number collision")
	}
	return fmt.Errorf("%w: no free order number after %d attempts", ErrConflict, attempts)
}

func newOrder(req CheckoutRequest, t Totals, promo *PromoCode) *Order {
	o := &Order{
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		Subtotal:        t.Subtotal,
		Shipping:        t.Shipping,
		Tax:             t.Tax,
		Discount:        t.Discount,
		Total:           t.Total,
		ShippingOption:  req.ShippingOption,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		Notes:           req.Notes,
		Lines:           make([]OrderLine, 0, len(req.Items)),
	}
	if o.ShippingOption == "" {
		o.ShippingOption = ShippingStandard
	}
	if promo != nil {
		o.PromoCode = promo.Code
	}
	for _, it := range req.Items {
		o.Lines = append(o.Lines, OrderLine{
			ProductID: it.ProductID,
			SizeID:    it.SizeID,
			UnitPrice: it.Price,
			Quantity:  it.Quantity,
			LineTotal: it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2),
		})
	}
	return o
}

func isWorkflowError(err error) bool {
	for _, target := range []error{ErrConflict, ErrInsufficientStock, ErrPromoUsageLimit, ErrNotFound} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// GetOrder returns the stored order with its lines.
func (s *Service) GetOrder(ctx context.Context, number string) (*Order, error) {
	number = NormalizeOrderNumber(number)
	if number == "" {
		return nil, &ValidationError{Fields: map[string]string{"orderNumber": "is required"}}
	}
	o, err := s.Store.OrderByNumber(ctx, number)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.Log.Error().Err(err).Str("order_number", number).Msg("load order")
		}
		return nil, err
	}
	return o, nil
}

// ValidatePromo quotes a code against a subtotal without touching any state.
func (s *Service) ValidatePromo(ctx context.Context, code string, subtotal decimal.Decimal) (PromoQuote, error) {
	code = strings.TrimSpace(code)
	ve := &ValidationError{}
	if code == "" {
		ve.add("code", "is required")
	}
	if subtotal.IsNegative() {
		ve.add("subtotal", "must not be negative")
	}
	if !ve.empty() {
		return PromoQuote{}, ve
	}

	p, err := s.Store.PromoByCode(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return PromoQuote{}, fmt.Errorf("%w: %w", ErrPromoInvalid, ErrNotFound)
	}
	if err != nil {
		s.Log.Error().Err(err).Str("promo", code).Msg("load promo")
		return PromoQuote{}, err
	}
	d, err := p.Discount(subtotal, s.now())
	if err != nil {
		return PromoQuote{}, err
	}
	return PromoQuote{Code: p.Code, Type: p.Type, Value: p.Value, Discount: d}, nil
}
