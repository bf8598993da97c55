package orders

import "context"

// Store is the relational state the workflow reads and writes.
type Store interface {
	// StockEntries returns the entries that exist among keys.
	StockEntries(ctx context.Context, keys []StockKey) (map[StockKey]StockEntry, error)
	// PromoByCode matches case-insensitively and returns ErrNotFound for unknown codes.
	PromoByCode(ctx context.Context, code string) (*PromoCode, error)
	// OrderByNumber returns the order with its lines or ErrNotFound.
	OrderByNumber(ctx context.Context, number string) (*Order, error)
	// InTx runs fn in one transaction, committing only if fn returns nil.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the write side of a checkout. Every method is a single conditional statement
// so that concurrent checkouts cannot oversell, overuse a promo or duplicate a user.
type Tx interface {
	// EnsureUser inserts the user unless the email exists and returns the user id either way.
	EnsureUser(ctx context.Context, u NewUser) (id int64, created bool, err error)
	// InsertOrder stores the header and sets o.ID and o.CreatedAt. It returns false,
	// without error, when o.OrderNumber is already taken.
	InsertOrder(ctx context.Context, o *Order) (bool, error)
	InsertLine(ctx context.Context, l *OrderLine) error
	// Snapshot returns the current catalog names; empty strings for missing rows.
	Snapshot(ctx context.Context, productID, sizeID int64) (LineSnapshot, error)
	// DecrementStock subtracts qty only if at least qty is available.
	DecrementStock(ctx context.Context, productID, sizeID int64, qty int) (bool, error)
	// IncrementPromoUsage bumps the counter only while it is below the usage limit.
	IncrementPromoUsage(ctx context.Context, promoID int64) (bool, error)
	SubscribeNewsletter(ctx context.Context, email string) (bool, error)
}
