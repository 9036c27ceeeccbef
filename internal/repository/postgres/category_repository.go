package postgres

import (
	"context"
	"errors"
	"fmt"

	"smartCart/business/strategy"
	"smartCart/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CategoryRepository struct {
	DB *gorm.DB
}

var _ strategy.ComplementReader = (*CategoryRepository)(nil)

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{
		DB: db,
	}
}

func (r *CategoryRepository) FindByID(ctx context.Context, id uint64) (domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return domain.Category{}, fmt.Errorf("context error: %w", err)
	}

	var category domain.Category

	err := r.DB.WithContext(ctx).Where("category_id = ?", id).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Category{}, fmt.Errorf("category %d: %w", id, domain.ErrNotFound)
		}
		return domain.Category{}, fmt.Errorf("failed to find category: %w", err)
	}

	return category, nil
}

// Complements maps each of categoryIDs that has complements to its
// complementary categories, ascending.
func (r *CategoryRepository) Complements(ctx context.Context, categoryIDs []uint64) (map[uint64][]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	out := make(map[uint64][]uint64, len(categoryIDs))
	if len(categoryIDs) == 0 {
		return out, nil
	}

	var rows []domain.CategoryComplement
	err := r.DB.WithContext(ctx).
		Where("category_id IN ?", categoryIDs).
		Order("category_id ASC").
		Order("complement_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find category complements: %w", err)
	}

	for _, row := range rows {
		out[row.CategoryID] = append(out[row.CategoryID], row.ComplementID)
	}

	return out, nil
}

// AddComplement records that complementID pairs well with categoryID. Re-adding is a no-op.
func (r *CategoryRepository) AddComplement(ctx context.Context, categoryID, complementID uint64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	row := domain.CategoryComplement{CategoryID: categoryID, ComplementID: complementID}
	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to add category complement: %w", err)
	}

	return nil
}
