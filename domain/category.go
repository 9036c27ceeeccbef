package domain

import (
	"time"
)

// CREATE TABLE public.categories (
//     category_id         BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     product_category    TEXT NOT NULL,
//     created_at          TIMESTAMPTZ DEFAULT NOW()
// );
//
// CREATE TABLE public.category_complements (
//     category_id    BIGINT NOT NULL REFERENCES categories(category_id),
//     complement_id  BIGINT NOT NULL REFERENCES categories(category_id),
//     PRIMARY KEY (category_id, complement_id)
// );

type Category struct {
	CategoryID      uint64    `gorm:"primaryKey;column:category_id;autoIncrement" json:"category_id"`
	ProductCategory string    `gorm:"column:product_category;type:text;not null" json:"product_category"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Category) TableName() string {
	return "categories"
}

// CategoryComplement says products of ComplementID go well with products of CategoryID.
type CategoryComplement struct {
	CategoryID   uint64 `gorm:"column:category_id;primaryKey"`
	ComplementID uint64 `gorm:"column:complement_id;primaryKey"`
}

func (CategoryComplement) TableName() string {
	return "category_complements"
}
