package repository

import (
	"context"
	"database/sql"

	"anjoman/internal/database"
	"anjoman/internal/models"
)

type DiscountRepository struct {
	db *database.DB
}

func NewDiscountRepository(db *database.DB) *DiscountRepository {
	return &DiscountRepository{db: db}
}

const discountColumns = `id, code, event_id, kind, value, max_discount, min_amount,
       usage_limit, used_count, starts_at, ends_at, is_active`

// GetByCode returns the discount code row regardless of scope or state;
// applicability rules are evaluated by the resolver, not the store.
func (r *DiscountRepository) GetByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	dc := &models.DiscountCode{}
	query := `SELECT ` + discountColumns + ` FROM discount_codes WHERE code = $1`

	err := r.db.QueryRowContext(ctx, query, code).Scan(
		&dc.ID,
		&dc.Code,
		&dc.EventID,
		&dc.Kind,
		&dc.Value,
		&dc.MaxDiscount,
		&dc.MinAmount,
		&dc.UsageLimit,
		&dc.UsedCount,
		&dc.StartsAt,
		&dc.EndsAt,
		&dc.IsActive,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return dc, err
}
