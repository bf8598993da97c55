package orders

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrTotalMismatch     = errors.New("order total mismatch")
	ErrPromoInvalid      = errors.New("invalid or expired promo code")
	ErrPromoUsageLimit   = errors.New("promo code usage limit reached")
	ErrPromoMinimum      = errors.New("minimum order amount not met")
	// ErrConflict marks a lost race with another checkout; the request can be retried.
	ErrConflict    = errors.New("conflict")
	ErrTransaction = errors.New("order transaction failed")
)

// ValidationError carries one message per offending request field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) empty() bool { return len(e.Fields) == 0 }

// StockError describes one line that cannot be served. It matches ErrInsufficientStock.
type StockError struct {
	ProductID int64
	SizeID    int64
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d size %d: requested %d, available %d",
		e.ProductID, e.SizeID, e.Requested, e.Available)
}

func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }

// MismatchError reports both totals. It matches ErrTotalMismatch.
type MismatchError struct {
	Server decimal.Decimal
	Client decimal.Decimal
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("order total mismatch: expected %s, got %s", e.Server.StringFixed(2), e.Client.StringFixed(2))
}

func (e *MismatchError) Is(target error) bool { return target == ErrTotalMismatch }
