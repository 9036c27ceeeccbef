package domain

import (
	"time"
)

// CREATE TABLE public.products (
//     id               BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     product_skuid    BIGINT,
//     category_id      BIGINT NOT NULL DEFAULT 0,
//     is_green_tag     BOOLEAN,
//     product_name     TEXT,
//     product_category TEXT,
//     brand            TEXT,
//     unit             TEXT,
//     normal_price     NUMERIC,
//     sale_price       NUMERIC,
//     stock            BIGINT NOT NULL DEFAULT 0,
//     is_active        BOOLEAN NOT NULL DEFAULT TRUE,
//     return_eligible  BOOLEAN NOT NULL DEFAULT FALSE,
//     avg_rating       NUMERIC NOT NULL DEFAULT 0,
//     review_count     INT NOT NULL DEFAULT 0,
//     tags             JSONB,
//     created_at       TIMESTAMPTZ DEFAULT NOW()
// );

type Product struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductSKUID    uint64    `gorm:"column:product_skuid" json:"product_skuid"`
	CategoryID      uint64    `gorm:"column:category_id;default:0" json:"category_id"`
	IsGreenTag      bool      `gorm:"column:is_green_tag;default:false" json:"is_green_tag"`
	ProductName     string    `gorm:"column:product_name;type:text" json:"product_name"`
	ProductCategory string    `gorm:"column:product_category;type:text" json:"product_category"`
	Brand           string    `gorm:"column:brand;type:text" json:"brand"`
	Unit            string    `gorm:"column:unit;type:text" json:"unit"`
	NormalPrice     float64   `gorm:"column:normal_price;type:numeric" json:"normal_price"`
	SalePrice       float64   `gorm:"column:sale_price;type:numeric" json:"sale_price"`
	Stock           int64     `gorm:"column:stock;default:0" json:"stock"`
	IsActive        bool      `gorm:"column:is_active;default:true" json:"is_active"`
	ReturnEligible  bool      `gorm:"column:return_eligible;default:false" json:"return_eligible"`
	AvgRating       float64   `gorm:"column:avg_rating;type:numeric;default:0" json:"avg_rating"`
	ReviewCount     int       `gorm:"column:review_count;default:0" json:"review_count"`
	Tags            []string  `gorm:"column:tags;serializer:json" json:"tags"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Product) TableName() string {
	return "products"
}

// Price is what the shopper pays: the sale price when one is set.
func (p Product) Price() float64 {
	if p.SalePrice > 0 && p.SalePrice < p.NormalPrice {
		return p.SalePrice
	}
	return p.NormalPrice
}

// DiscountAmount is the absolute markdown in major units.
func (p Product) DiscountAmount() float64 {
	if p.SalePrice > 0 && p.SalePrice < p.NormalPrice {
		return p.NormalPrice - p.SalePrice
	}
	return 0
}

// ProductQuery filters catalog lookups. Zero values mean "no filter".
type ProductQuery struct {
	CategoryIDs        []uint64
	ExcludeCategoryIDs []uint64
	ExcludeProductIDs  []uint64
	MinPrice           float64
	MaxPrice           float64
	MaxStock           int64
	MinRating          float64
	MinReviews         int
	ReturnEligibleOnly bool
	InStockOnly        bool
	Limit              int
}
