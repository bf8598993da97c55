package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNotFound = errors.New("product not found")

const (
	defaultLimit = 24
	maxLimit     = 100
)

// Open shares the pgx pool with gorm so the API keeps a single connection budget.
func Open(pool *pgxpool.Pool) (*gorm.DB, error) {
	sqlDB := stdlib.OpenDBFromPool(pool)
	return gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

type Repo struct{ DB *gorm.DB }

type Filter struct {
	CategorySlug string
	InStockOnly  bool
	Limit        int
	Offset       int
}

func (f Filter) Normalized() Filter {
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func imagesOrdered(db *gorm.DB) *gorm.DB {
	return db.Order("is_primary DESC, sort_order, id")
}

// ListProducts returns one page of active products and the total match count.
func (r *Repo) ListProducts(ctx context.Context, f Filter) ([]Product, int64, error) {
	f = f.Normalized()
	q := r.DB.WithContext(ctx).Model(&Product{}).Where("products.is_active = ?", true)
	if f.CategorySlug != "" {
		q = q.Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", f.CategorySlug)
	}
	if f.InStockOnly {
		q = q.Where("EXISTS (SELECT 1 FROM product_sizes ps WHERE ps.product_id = products.id AND ps.in_stock)")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []Product
	err := q.Preload("Images", imagesOrdered).
		Order("products.id").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&out).Error
	return out, total, err
}

func (r *Repo) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := r.DB.WithContext(ctx).
		Preload("Category").
		Preload("Images", imagesOrdered).
		Preload("Sizes", func(db *gorm.DB) *gorm.DB {
			return db.Order("(SELECT sort_order FROM sizes WHERE sizes.id = product_sizes.size_id)")
		}).
		Preload("Sizes.Size").
		Where("is_active = ?", true).
		First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// StockReport lists every stock entry, lowest quantity first.
func (r *Repo) StockReport(ctx context.Context, maxQty *int) ([]StockRow, error) {
	q := r.DB.WithContext(ctx).
		Table("product_sizes ps").
		Select("ps.product_id, p.name AS product_name, ps.size_id, s.name AS size_name, ps.stock_quantity, ps.in_stock").
		Joins("JOIN products p ON p.id = ps.product_id").
		Joins("JOIN sizes s ON s.id = ps.size_id")
	if maxQty != nil {
		q = q.Where("ps.stock_quantity <= ?", *maxQty)
	}
	var rows []StockRow
	err := q.Order("ps.stock_quantity, ps.product_id, s.sort_order").Scan(&rows).Error
	return rows, err
}
