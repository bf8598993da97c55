package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied statement by statement; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id             BIGSERIAL PRIMARY KEY,
		first_name     TEXT NOT NULL,
		last_name      TEXT NOT NULL,
		email          TEXT NOT NULL UNIQUE,
		phone          TEXT NOT NULL DEFAULT '',
		password_hash  TEXT,
		date_of_birth  DATE NOT NULL,
		is_verified    BOOLEAN NOT NULL DEFAULT false,
		is_active      BOOLEAN NOT NULL DEFAULT true,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id    BIGSERIAL PRIMARY KEY,
		name  TEXT NOT NULL,
		slug  TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id           BIGSERIAL PRIMARY KEY,
		category_id  BIGINT REFERENCES categories(id) ON DELETE SET NULL,
		name         TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		color        TEXT NOT NULL DEFAULT '',
		price        NUMERIC(10,2) NOT NULL,
		sale_price   NUMERIC(10,2),
		is_active    BOOLEAN NOT NULL DEFAULT true,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS sizes (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		sort_order  INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS product_sizes (
		product_id      BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		size_id         BIGINT NOT NULL REFERENCES sizes(id) ON DELETE CASCADE,
		stock_quantity  INT NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
		in_stock        BOOLEAN NOT NULL DEFAULT false,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (product_id, size_id)
	)`,
	`CREATE TABLE IF NOT EXISTS product_images (
		id          BIGSERIAL PRIMARY KEY,
		product_id  BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		url         TEXT NOT NULL,
		is_primary  BOOLEAN NOT NULL DEFAULT false,
		sort_order  INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS promo_codes (
		id                   BIGSERIAL PRIMARY KEY,
		code                 TEXT NOT NULL,
		discount_type        TEXT NOT NULL CHECK (discount_type IN ('Percentage', 'FixedAmount')),
		discount_value       NUMERIC(10,2) NOT NULL,
		min_order_amount     NUMERIC(10,2),
		max_discount_amount  NUMERIC(10,2),
		starts_at            TIMESTAMPTZ NOT NULL,
		ends_at              TIMESTAMPTZ NOT NULL,
		is_active            BOOLEAN NOT NULL DEFAULT true,
		usage_limit          INT,
		usage_count          INT NOT NULL DEFAULT 0,
		CHECK (usage_limit IS NULL OR usage_count <= usage_limit)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS promo_codes_code_upper ON promo_codes (upper(code))`,
	`CREATE TABLE IF NOT EXISTS orders (
		id               BIGSERIAL PRIMARY KEY,
		order_number     TEXT NOT NULL UNIQUE,
		user_id          BIGINT NOT NULL REFERENCES users(id),
		status           TEXT NOT NULL,
		payment_status   TEXT NOT NULL,
		subtotal         NUMERIC(10,2) NOT NULL,
		shipping_cost    NUMERIC(10,2) NOT NULL,
		tax_amount       NUMERIC(10,2) NOT NULL,
		discount_amount  NUMERIC(10,2) NOT NULL,
		total_amount     NUMERIC(10,2) NOT NULL,
		shipping_option  TEXT NOT NULL,
		promo_code       TEXT,
		shipping_address JSONB NOT NULL,
		billing_address  JSONB NOT NULL,
		tracking_number  TEXT,
		notes            TEXT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		shipped_at       TIMESTAMPTZ,
		delivered_at     TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS orders_user_id ON orders (user_id)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id            BIGSERIAL PRIMARY KEY,
		order_id      BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id    BIGINT NOT NULL,
		size_id       BIGINT NOT NULL,
		product_name  TEXT NOT NULL,
		color         TEXT NOT NULL DEFAULT '',
		size_name     TEXT NOT NULL,
		unit_price    NUMERIC(10,2) NOT NULL,
		quantity      INT NOT NULL CHECK (quantity > 0),
		line_total    NUMERIC(10,2) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS order_items_order_id ON order_items (order_id)`,
	`CREATE TABLE IF NOT EXISTS newsletter_subscriptions (
		id          BIGSERIAL PRIMARY KEY,
		email       TEXT NOT NULL UNIQUE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Migrate creates the tables the API needs.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}
