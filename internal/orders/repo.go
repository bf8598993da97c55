package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// sentinel date of birth for users created at checkout
var unknownBirthDate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repo is the Postgres Store.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

func (r *Repo) StockEntries(ctx context.Context, keys []StockKey) (map[StockKey]StockEntry, error) {
	return stockEntries(ctx, r.DB, keys)
}

func stockEntries(ctx context.Context, q querier, keys []StockKey) (map[StockKey]StockEntry, error) {
	out := make(map[StockKey]StockEntry, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	args := make([]any, 0, 2*len(keys))
	var params strings.Builder
	for i, k := range keys {
		if i > 0 {
			params.WriteString(",")
		}
		fmt.Fprintf(&params, "($%d::bigint,$%d::bigint)", 2*i+1, 2*i+2)
		args = append(args, k.ProductID, k.SizeID)
	}
	rows, err := q.Query(ctx, `
		SELECT product_id, size_id, stock_quantity, in_stock
		FROM product_sizes
		WHERE (product_id, size_id) IN (`+params.String()+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var e StockEntry
		if err := rows.Scan(&e.ProductID, &e.SizeID, &e.Quantity, &e.InStock); err != nil {
			return nil, err
		}
		out[StockKey{ProductID: e.ProductID, SizeID: e.SizeID}] = e
	}
	return out, rows.Err()
}

func (r *Repo) PromoByCode(ctx context.Context, code string) (*PromoCode, error) {
	var (
		p        PromoCode
		typ      string
		minOrder decimal.NullDecimal
		maxDisc  decimal.NullDecimal
	)
	err := r.DB.QueryRow(ctx, `
		SELECT id, code, discount_type, discount_value, min_order_amount, max_discount_amount,
		       starts_at, ends_at, is_active, usage_limit, usage_count
		FROM promo_codes WHERE upper(code) = upper($1)`, code).
		Scan(&p.ID, &p.Code, &typ, &p.Value, &minOrder, &maxDisc,
			&p.StartsAt, &p.EndsAt, &p.Active, &p.UsageLimit, &p.UsageCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Type = DiscountType(typ)
	if minOrder.Valid {
		p.MinOrder = &minOrder.Decimal
	}
	if maxDisc.Valid {
		p.MaxDiscount = &maxDisc.Decimal
	}
	return &p, nil
}

func (r *Repo) OrderByNumber(ctx context.Context, number string) (*Order, error) {
	var (
		o            Order
		status, pay  string
		promo, notes *string
	)
	err := r.DB.QueryRow(ctx, `
		SELECT id, order_number, user_id, status, payment_status,
		       subtotal, shipping_cost, tax_amount, discount_amount, total_amount,
		       shipping_option, promo_code, shipping_address, billing_address,
		       tracking_number, notes, created_at, shipped_at, delivered_at
		FROM orders WHERE order_number = $1`, number).
		Scan(&o.ID, &o.OrderNumber, &o.UserID, &status, &pay,
			&o.Subtotal, &o.Shipping, &o.Tax, &o.Discount, &o.Total,
			&o.ShippingOption, &promo, &o.ShippingAddress, &o.BillingAddress,
			&o.TrackingNumber, &notes, &o.CreatedAt, &o.ShippedAt, &o.DeliveredAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status, o.PaymentStatus = Status(status), PaymentStatus(pay)
	if promo != nil {
		o.PromoCode = *promo
	}
	if notes != nil {
		o.Notes = *notes
	}

	// image comes from the live catalog, everything else from the snapshot
	rows, err := r.DB.Query(ctx, `
		SELECT oi.id, oi.product_id, oi.size_id, oi.product_name, oi.color, oi.size_name,
		       oi.unit_price, oi.quantity, oi.line_total, COALESCE(img.url, '')
		FROM order_items oi
		LEFT JOIN LATERAL (
			SELECT url FROM product_images pi
			WHERE pi.product_id = oi.product_id
			ORDER BY pi.is_primary DESC, pi.sort_order, pi.id
			LIMIT 1
		) img ON true
		WHERE oi.order_id = $1
		ORDER BY oi.id`, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		l := OrderLine{OrderID: o.ID}
		if err := rows.Scan(&l.ID, &l.ProductID, &l.SizeID, &l.ProductName, &l.Color, &l.SizeName,
			&l.UnitPrice, &l.Quantity, &l.LineTotal, &l.ImageURL); err != nil {
			return nil, err
		}
		o.Lines = append(o.Lines, l)
	}
	return &o, rows.Err()
}

func (r *Repo) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTx{q: tx}); err != nil {
		return asConflict(err)
	}
	return asConflict(tx.Commit(ctx))
}

// asConflict marks deadlocks and serialization failures as ErrConflict; the checkout can be retried.
func asConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) &&
		(pgErr.Code == sqlStateDeadlockDetected || pgErr.Code == sqlStateSerializationFailure) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}

type pgTx struct{ q querier }

func (t *pgTx) EnsureUser(ctx context.Context, u NewUser) (int64, bool, error) {
	var id int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO users(first_name, last_name, email, phone, date_of_birth, is_verified, is_active)
		VALUES ($1, $2, $3, $4, $5, false, true)
		ON CONFLICT (email) DO NOTHING
		RETURNING id`, u.FirstName, u.LastName, u.Email, u.Phone, unknownBirthDate).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, err
	}
	err = t.q.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, u.Email).Scan(&id)
	return id, false, err
}

func (t *pgTx) InsertOrder(ctx context.Context, o *Order) (bool, error) {
	err := t.q.QueryRow(ctx, `
		INSERT INTO orders(order_number, user_id, status, payment_status,
		                   subtotal, shipping_cost, tax_amount, discount_amount, total_amount,
		                   shipping_option, promo_code, shipping_address, billing_address, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13, NULLIF($14, ''))
		ON CONFLICT (order_number) DO NOTHING
		RETURNING id, created_at`,
		o.OrderNumber, o.UserID, string(o.Status), string(o.PaymentStatus),
		o.Subtotal, o.Shipping, o.Tax, o.Discount, o.Total,
		o.ShippingOption, o.PromoCode, o.ShippingAddress, o.BillingAddress, o.Notes,
	).Scan(&o.ID, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (t *pgTx) InsertLine(ctx context.Context, l *OrderLine) error {
	return t.q.QueryRow(ctx, `
		INSERT INTO order_items(order_id, product_id, size_id, product_name, color, size_name,
		                        unit_price, quantity, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		l.OrderID, l.ProductID, l.SizeID, l.ProductName, l.Color, l.SizeName,
		l.UnitPrice, l.Quantity, l.LineTotal,
	).Scan(&l.ID)
}

func (t *pgTx) Snapshot(ctx context.Context, productID, sizeID int64) (LineSnapshot, error) {
	var s LineSnapshot
	err := t.q.QueryRow(ctx, `
		SELECT COALESCE((SELECT name FROM products WHERE id = $1), ''),
		       COALESCE((SELECT color FROM products WHERE id = $1), ''),
		       COALESCE((SELECT name FROM sizes WHERE id = $2), '')`,
		productID, sizeID).Scan(&s.ProductName, &s.Color, &s.SizeName)
	return s, err
}

func (t *pgTx) DecrementStock(ctx context.Context, productID, sizeID int64, qty int) (bool, error) {
	ct, err := t.q.Exec(ctx, `
		UPDATE product_sizes
		SET stock_quantity = stock_quantity - $3,
		    in_stock = stock_quantity - $3 > 0,
		    updated_at = now()
		WHERE product_id = $1 AND size_id = $2 AND stock_quantity >= $3`,
		productID, sizeID, qty)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (t *pgTx) IncrementPromoUsage(ctx context.Context, promoID int64) (bool, error) {
	ct, err := t.q.Exec(ctx, `
		UPDATE promo_codes SET usage_count = usage_count + 1
		WHERE id = $1 AND (usage_limit IS NULL OR usage_count < usage_limit)`, promoID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (t *pgTx) SubscribeNewsletter(ctx context.Context, email string) (bool, error) {
	ct, err := t.q.Exec(ctx, `
		INSERT INTO newsletter_subscriptions(email) VALUES ($1)
		ON CONFLICT (email) DO NOTHING`, email)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}
