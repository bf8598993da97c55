package catalog

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type seedPromo struct {
	ID                int64 `gorm:"primaryKey"`
	Code              string
	DiscountType      string
	DiscountValue     decimal.Decimal
	MinOrderAmount    decimal.NullDecimal
	MaxDiscountAmount decimal.NullDecimal
	StartsAt          time.Time
	EndsAt            time.Time
	IsActive          bool
	UsageLimit        *int
}

func (seedPromo) TableName() string { return "promo_codes" }

// Seed inserts a small demo catalog and two promo codes. It does nothing when products exist.
func Seed(ctx context.Context, db *gorm.DB, now time.Time) (bool, error) {
	var n int64
	if err := db.WithContext(ctx).Model(&Product{}).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cats := []Category{
			{Name: "Dresses", Slug: "dresses"},
			{Name: "Knitwear", Slug: "knitwear"},
		}
		if err := tx.Create(&cats).Error; err != nil {
			return err
		}
		sizes := []Size{{Name: "S", SortOrder: 1}, {Name: "M", SortOrder: 2}, {Name: "L", SortOrder: 3}}
		if err := tx.Create(&sizes).Error; err != nil {
			return err
		}

		products := []Product{
			{CategoryID: &cats[0].ID, Name: "Linen Midi Dress", Color: "Sage", Price: decimal.RequireFromString("45.00"), IsActive: true},
			{CategoryID: &cats[0].ID, Name: "Wrap Dress", Color: "Navy", Price: decimal.RequireFromString("30.00"), IsActive: true},
			{CategoryID: &cats[1].ID, Name: "Merino Crew Jumper", Color: "Oatmeal", Price: decimal.RequireFromString("20.00"), IsActive: true},
		}
		if err := tx.Omit("Sizes", "Images", "Category").Create(&products).Error; err != nil {
			return err
		}

		var stock []ProductSize
		var images []ProductImage
		for i, p := range products {
			for j, s := range sizes {
				qty := 2 + (i+j)%4
				stock = append(stock, ProductSize{ProductID: p.ID, SizeID: s.ID, StockQuantity: qty, InStock: qty > 0})
			}
			images = append(images, ProductImage{ProductID: p.ID, URL: "/images/products/" + strconv.FormatInt(p.ID, 10) + ".jpg", IsPrimary: true})
		}
		if err := tx.Omit("Size").Create(&stock).Error; err != nil {
			return err
		}
		if err := tx.Create(&images).Error; err != nil {
			return err
		}

		limit := 100
		promos := []seedPromo{
			{
				Code:          "WELCOME10",
				DiscountType:  "Percentage",
				DiscountValue: decimal.NewFromInt(10),
				StartsAt:      now.AddDate(0, -1, 0),
				EndsAt:        now.AddDate(1, 0, 0),
				IsActive:      true,
			},
			{
				Code:           "TENOFF",
				DiscountType:   "FixedAmount",
				DiscountValue:  decimal.NewFromInt(10),
				MinOrderAmount: decimal.NewNullDecimal(decimal.NewFromInt(40)),
				StartsAt:       now.AddDate(0, -1, 0),
				EndsAt:         now.AddDate(0, 3, 0),
				IsActive:       true,
				UsageLimit:     &limit,
			},
		}
		return tx.Create(&promos).Error
	})
	return err == nil, err
}
