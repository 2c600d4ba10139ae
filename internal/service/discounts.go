package service

import (
	"context"
	"fmt"
	"time"

	apperrors "anjoman/internal/errors"
	"anjoman/internal/models"
	"anjoman/internal/repository"
)

// MinPayableAmount is the gateway's floor for non-zero charges (IRR). A
// discount that lands the final price strictly between zero and this floor
// is rejected rather than rounded.
const MinPayableAmount = 10_000

// Quote is the price computation for one (event, code) pair. Quoting has no
// side effects: the usage counter moves only at confirmation so a slow
// checkout never starves other holders of the code.
type Quote struct {
	BaseAmount     int64
	DiscountAmount int64
	FinalPrice     int64
	Code           *models.DiscountCode
}

type DiscountService struct {
	discountRepo *repository.DiscountRepository
}

func NewDiscountService(discountRepo *repository.DiscountRepository) *DiscountService {
	return &DiscountService{discountRepo: discountRepo}
}

// Quote validates the code against the event and computes the final price.
// A pure, reorderable, idempotent read.
func (s *DiscountService) Quote(ctx context.Context, event *models.Event, code string) (*Quote, error) {
	quote := &Quote{
		BaseAmount: event.Price,
		FinalPrice: event.Price,
	}

	if code == "" || event.Price == 0 {
		return quote, nil
	}

	dc, err := s.discountRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up discount code: %w", err)
	}
	if dc == nil || !dc.IsActive {
		return nil, apperrors.ErrInvalidCode
	}

	if dc.EventID != nil && *dc.EventID != event.ID {
		return nil, apperrors.ErrCodeNotApplicable
	}

	now := time.Now()
	if dc.StartsAt != nil && now.Before(*dc.StartsAt) {
		return nil, apperrors.ErrCodeExpired
	}
	if dc.EndsAt != nil && now.After(*dc.EndsAt) {
		return nil, apperrors.ErrCodeExpired
	}

	if dc.MinAmount != nil && event.Price < *dc.MinAmount {
		return nil, apperrors.ErrCodeNotApplicable
	}

	if dc.UsageLimit != nil && dc.UsedCount >= *dc.UsageLimit {
		return nil, apperrors.ErrCodeExhausted
	}

	var discount int64
	if dc.Kind == models.DiscountKindFixed {
		discount = dc.Value
		if discount > event.Price {
			discount = event.Price
		}
	} else {
		discount = event.Price * dc.Value / 100
		if dc.MaxDiscount != nil && discount > *dc.MaxDiscount {
			discount = *dc.MaxDiscount
		}
	}

	final := event.Price - discount
	if final < 0 {
		final = 0
	}

	if final > 0 && final < MinPayableAmount {
		return nil, apperrors.ErrAmountBelowMinimum
	}

	quote.DiscountAmount = discount
	quote.FinalPrice = final
	quote.Code = dc
	return quote, nil
}

// CodeID returns the applied code's id, or nil when no code applied.
func (q *Quote) CodeID() *int64 {
	if q.Code == nil {
		return nil
	}
	id := q.Code.ID
	return &id
}
