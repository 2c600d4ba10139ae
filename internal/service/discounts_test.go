package service

import (
	"context"
	"testing"
	"time"

	apperrors "anjoman/internal/errors"
	"anjoman/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discountCols = []string{
	"id", "code", "event_id", "kind", "value", "max_discount", "min_amount",
	"usage_limit", "used_count", "starts_at", "ends_at", "is_active",
}

func expectCode(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery("FROM discount_codes WHERE code").WillReturnRows(rows)
}

func testEvent(price int64) *models.Event {
	return &models.Event{ID: 7, Title: "Go Meetup", Price: price, Status: models.EventStatusPublished}
}

func TestQuoteNoCode(t *testing.T) {
	repos, _ := newMockRepos(t)
	svc := NewDiscountService(repos.Discounts)

	quote, err := svc.Quote(context.Background(), testEvent(100000), "")
	require.NoError(t, err)

	assert.Equal(t, int64(100000), quote.BaseAmount)
	assert.Equal(t, int64(0), quote.DiscountAmount)
	assert.Equal(t, int64(100000), quote.FinalPrice)
	assert.Nil(t, quote.CodeID())
}

func TestQuotePercentCapBinds(t *testing.T) {
	repos, mock := newMockRepos(t)
	svc := NewDiscountService(repos.Discounts)

	// OFF20: 20% off capped at 10000.
	expectCode(mock, sqlmock.NewRows(discountCols).
		AddRow(1, "OFF20", nil, models.DiscountKindPercent, 20, 10000, nil, nil, 0, nil, nil, true))

	quote, err := svc.Quote(context.Background(), testEvent(100000), "OFF20")
	require.NoError(t, err)

	assert.Equal(t, int64(10000), quote.DiscountAmount, "cap binds at 20%% of 100000")
	assert.Equal(t, int64(90000), quote.FinalPrice)
}

func TestQuotePercentBelowCap(t *testing.T) {
	repos, mock := newMockRepos(t)
	svc := NewDiscountService(repos.Discounts)

	expectCode(mock, sqlmock.NewRows(discountCols).
		AddRow(1, "OFF20", nil, models.DiscountKindPercent, 20, 10000, nil, nil, 0, nil, nil, true))

	quote, err := svc.Quote(context.Background(), testEvent(30000), "OFF20")
	require.NoError(t, err)

	assert.Equal(t, int64(6000), quote.DiscountAmount)
	assert.Equal(t, int64(24000), quote.FinalPrice)
}

func TestQuoteFixedClampedToBase(t *testing.T) {
	repos, mock := newMockRepos(t)
	svc := NewDiscountService(repos.Discounts)

	expectCode(mock, sqlmock.NewRows(discountCols).
		AddRow(2, "FULL", nil, models.DiscountKindFixed, 80000, nil, nil, nil, 0, nil, nil, true))

	quote, err := svc.Quote(context.Background(), testEvent(50000), "FULL")
	require.NoError(t, err)

	assert.Equal(t, int64(50000), quote.DiscountAmount)
	assert.Equal(t, int64(0), quote.FinalPrice)
}

func TestQuoteRejectsBelowGatewayMinimum(t *testing.T) {
	repos, mock := newMockRepos(t)
	svc := NewDiscountService(repos.Discounts)

	// 45000 off 50000 leaves 5000, under the 10000 IRR floor.
	expectCode(mock, sqlmock.NewRows(discountCols).
		AddRow(3, "ALMOST", nil, models.DiscountKindFixed, 45000, nil, nil, nil, 0, nil, nil, true))

	_, err := svc.Quote(context.Background(), testEvent(50000), "ALMOST")
	assert.ErrorIs(t, err, apperrors.ErrAmountBelowMinimum)
}

func TestQuoteUnknownCode(t *testing.T) {
	repos, mock := newMockRepos(t)
	svc := NewDiscountService(repos.Discounts)

	expectCode(mock, sqlmock.NewRows(discountCols))

	_, err := svc.Quote(context.Background(), testEvent(100000), "NOPE")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCode)
}

func TestQuoteInactiveCode(t *testing.T) {
	repos, mock := newMockRepos(t)
	svc := NewDiscountService(repos.Discounts)

	expectCode(mock, sqlmock.NewRows(discountCols).
		AddRow(4, "OLD", nil, models.DiscountKindPercent, 10, nil, nil, nil, 0, nil, nil, false))

	_, err := svc.Quote(context.Background(), testEvent(100000), "OLD")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCode)
}

func TestQuoteWrongEventScope(t *testing.T) {
	repos, mock := newMockRepos(t)
	svc := NewDiscountService(repos.Discounts)

	otherEvent := int64(99)
	expectCode(mock, sqlmock.NewRows(discountCols).
		AddRow(5, "SCOPED", otherEvent, models.DiscountKindPercent, 10, nil, nil, nil, 0, nil, nil, true))

	_, err := svc.Quote(context.Background(), testEvent(100000), "SCOPED")
	assert.ErrorIs(t, err, apperrors.ErrCodeNotApplicable)
}

func TestQuoteOutsideWindow(t *testing.T) {
	repos, mock := newMockRepos(t)
	svc := NewDiscountService(repos.Discounts)

	past := time.Now().Add(-time.Hour)
	expectCode(mock, sqlmock.NewRows(discountCols).
		AddRow(6, "EXPIRED", nil, models.DiscountKindPercent, 10, nil, nil, nil, 0, nil, past, true))

	_, err := svc.Quote(context.Background(), testEvent(100000), "EXPIRED")
	assert.ErrorIs(t, err, apperrors.ErrCodeExpired)
}

func TestQuoteUsageLimitReached(t *testing.T) {
	repos, mock := newMockRepos(t)
	svc := NewDiscountService(repos.Discounts)

	expectCode(mock, sqlmock.NewRows(discountCols).
		AddRow(7, "GONE", nil, models.DiscountKindPercent, 10, nil, nil, 50, 50, nil, nil, true))

	_, err := svc.Quote(context.Background(), testEvent(100000), "GONE")
	assert.ErrorIs(t, err, apperrors.ErrCodeExhausted)
}

func TestQuoteMinAmountNotMet(t *testing.T) {
	repos, mock := newMockRepos(t)
	svc := NewDiscountService(repos.Discounts)

	expectCode(mock, sqlmock.NewRows(discountCols).
		AddRow(8, "BIGONLY", nil, models.DiscountKindPercent, 10, nil, 200000, nil, 0, nil, nil, true))

	_, err := svc.Quote(context.Background(), testEvent(100000), "BIGONLY")
	assert.ErrorIs(t, err, apperrors.ErrCodeNotApplicable)
}

func TestQuoteFreeEventIgnoresCode(t *testing.T) {
	repos, _ := newMockRepos(t)
	svc := NewDiscountService(repos.Discounts)

	quote, err := svc.Quote(context.Background(), testEvent(0), "OFF20")
	require.NoError(t, err)
	assert.Equal(t, int64(0), quote.FinalPrice)
	assert.Nil(t, quote.Code)
}
