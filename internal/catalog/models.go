package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID   int64  `gorm:"primaryKey" json:"id"`
	Name string `json:"name"`
	Slug string `gorm:"uniqueIndex" json:"slug"`
}

type Product struct {
	ID          int64               `gorm:"primaryKey" json:"id"`
	CategoryID  *int64              `json:"categoryId,omitempty"`
	Category    *Category           `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Color       string              `json:"color"`
	Price       decimal.Decimal     `gorm:"type:numeric(10,2)" json:"price"`
	SalePrice   decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"salePrice"`
	IsActive    bool                `json:"isActive"`
	Sizes       []ProductSize       `gorm:"foreignKey:ProductID" json:"sizes"`
	Images      []ProductImage      `gorm:"foreignKey:ProductID" json:"images"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

type Size struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sortOrder"`
}

// ProductSize is the stock entry of one product in one size.
type ProductSize struct {
	ProductID     int64     `gorm:"primaryKey;autoIncrement:false" json:"productId"`
	SizeID        int64     `gorm:"primaryKey;autoIncrement:false" json:"sizeId"`
	Size          Size      `gorm:"foreignKey:SizeID" json:"size"`
	StockQuantity int       `json:"stockQuantity"`
	InStock       bool      `json:"inStock"`
	UpdatedAt     time.Time `json:"-"`
}

type ProductImage struct {
	ID        int64  `gorm:"primaryKey" json:"id"`
	ProductID int64  `json:"productId"`
	URL       string `gorm:"column:url" json:"url"`
	IsPrimary bool   `json:"isPrimary"`
	SortOrder int    `json:"sortOrder"`
}

// StockRow is one line of the stock report.
type StockRow struct {
	ProductID     int64
	ProductName   string
	SizeID        int64
	SizeName      string
	StockQuantity int
	InStock       bool
}
