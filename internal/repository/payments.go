package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"anjoman/internal/database"
	"anjoman/internal/models"
)

type PaymentRepository struct {
	db *database.DB
}

func NewPaymentRepository(db *database.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, registration_id, user_id, event_id, base_amount,
       discount_amount, amount, status, authority, ref_id, verified_at,
       created_at, updated_at`

func scanPayment(row interface{ Scan(...interface{}) error }, p *models.Payment) error {
	return row.Scan(
		&p.ID,
		&p.RegistrationID,
		&p.UserID,
		&p.EventID,
		&p.BaseAmount,
		&p.DiscountAmount,
		&p.Amount,
		&p.Status,
		&p.Authority,
		&p.RefID,
		&p.VerifiedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

// Create inserts an INIT payment tied to a pending registration.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (registration_id, user_id, event_id, base_amount, discount_amount, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'INIT')
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		payment.RegistrationID,
		payment.UserID,
		payment.EventID,
		payment.BaseAmount,
		payment.DiscountAmount,
		payment.Amount,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
}

// MarkPending records the gateway session token on an INIT payment.
func (r *PaymentRepository) MarkPending(ctx context.Context, id int64, authority string) error {
	query := `UPDATE payments SET status = 'PENDING', authority = $2, updated_at = NOW()
	       WHERE id = $1 AND status = 'INIT'`
	_, err := r.db.ExecContext(ctx, query, id, authority)
	return err
}

// MarkSessionFailed closes an INIT payment whose gateway session could not be
// opened. The registration stays pending so the user can retry.
func (r *PaymentRepository) MarkSessionFailed(ctx context.Context, id int64) error {
	query := `UPDATE payments SET status = 'CANCELED', updated_at = NOW()
	       WHERE id = $1 AND status = 'INIT'`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	err := scanPayment(r.db.QueryRowContext(ctx, query, id), payment)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return payment, err
}

func (r *PaymentRepository) GetByRefID(ctx context.Context, refID string) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE ref_id = $1`

	err := scanPayment(r.db.QueryRowContext(ctx, query, refID), payment)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return payment, err
}

func (r *PaymentRepository) GetByAuthority(ctx context.Context, authority string) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE authority = $1`

	err := scanPayment(r.db.QueryRowContext(ctx, query, authority), payment)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return payment, err
}

// GetDetailByRefID returns the settlement snapshot with its event brief.
func (r *PaymentRepository) GetDetailByRefID(ctx context.Context, refID string) (*models.Payment, *models.EventBrief, error) {
	payment := &models.Payment{}
	brief := &models.EventBrief{}
	query := `
		SELECT p.id, p.registration_id, p.user_id, p.event_id, p.base_amount,
		       p.discount_amount, p.amount, p.status, p.authority, p.ref_id, p.verified_at,
		       p.created_at, p.updated_at,
		       e.id, e.title, e.slug, e.price, e.start_time, e.end_time
		FROM payments p
		JOIN events e ON e.id = p.event_id
		WHERE p.ref_id = $1`

	err := r.db.QueryRowContext(ctx, query, refID).Scan(
		&payment.ID,
		&payment.RegistrationID,
		&payment.UserID,
		&payment.EventID,
		&payment.BaseAmount,
		&payment.DiscountAmount,
		&payment.Amount,
		&payment.Status,
		&payment.Authority,
		&payment.RefID,
		&payment.VerifiedAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
		&brief.ID,
		&brief.Title,
		&brief.Slug,
		&brief.Price,
		&brief.StartTime,
		&brief.EndTime,
	)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	return payment, brief, nil
}

// SettleSuccess performs the success transition as one atomic unit: payment
// PENDING→PAID with its settlement reference, registration confirmed with
// its ticket, and the discount code consumed. The conditional update on
// status='PENDING' makes concurrent duplicate deliveries collapse to a
// single winner; losers see zero rows and re-read the terminal state.
func (r *PaymentRepository) SettleSuccess(ctx context.Context, paymentID int64, refID, ticketID string, verifiedAt time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin settlement: %w", err)
	}
	defer tx.Rollback()

	var registrationID int64
	var discountCodeID *int64
	payQuery := `
		UPDATE payments
		SET status = 'PAID', ref_id = $2, verified_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
		RETURNING registration_id`
	err = tx.QueryRowContext(ctx, payQuery, paymentID, refID, verifiedAt).Scan(&registrationID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("settle payment: %w", err)
	}

	regQuery := `
		UPDATE registrations
		SET status = 'confirmed', ticket_id = COALESCE(ticket_id, $2), updated_at = NOW()
		WHERE id = $1
		RETURNING discount_code_id`
	if err := tx.QueryRowContext(ctx, regQuery, registrationID, ticketID).Scan(&discountCodeID); err != nil {
		return false, fmt.Errorf("confirm registration: %w", err)
	}

	if discountCodeID != nil {
		useQuery := `UPDATE discount_codes SET used_count = used_count + 1 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, useQuery, *discountCodeID); err != nil {
			return false, fmt.Errorf("increment discount usage: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit settlement: %w", err)
	}

	return true, nil
}

// SettleFailure moves a PENDING payment to a terminal failure state. The
// registration stays pending: the seat is held until explicit cancellation,
// so the user can retry payment without losing it.
func (r *PaymentRepository) SettleFailure(ctx context.Context, paymentID int64, status string, refID *string) (bool, error) {
	query := `
		UPDATE payments
		SET status = $2, ref_id = COALESCE(ref_id, $3), updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'`

	res, err := r.db.ExecContext(ctx, query, paymentID, status, refID)
	if err != nil {
		return false, fmt.Errorf("settle payment failure: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CountActiveByDiscountCode counts payments consuming a code that are either
// settled-paid or still in flight; used to bound purchase-time usage between
// quote and confirmation.
func (r *PaymentRepository) CountActiveByDiscountCode(ctx context.Context, discountCodeID int64) (int64, error) {
	var count int64
	query := `
		SELECT COUNT(*) FROM payments p
		JOIN registrations r ON r.id = p.registration_id
		WHERE r.discount_code_id = $1 AND p.status IN ('PENDING', 'PAID')`

	err := r.db.QueryRowContext(ctx, query, discountCodeID).Scan(&count)
	return count, err
}
