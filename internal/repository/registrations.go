package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"anjoman/internal/database"
	apperrors "anjoman/internal/errors"
	"anjoman/internal/models"

	"github.com/lib/pq"
)

type RegistrationRepository struct {
	db *database.DB
}

func NewRegistrationRepository(db *database.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

const registrationColumns = `id, event_id, user_id, status, ticket_id,
       discount_code_id, discount_amount, final_price, registered_at, updated_at`

func scanRegistration(row interface{ Scan(...interface{}) error }, reg *models.Registration) error {
	return row.Scan(
		&reg.ID,
		&reg.EventID,
		&reg.UserID,
		&reg.Status,
		&reg.TicketID,
		&reg.DiscountCodeID,
		&reg.DiscountAmount,
		&reg.FinalPrice,
		&reg.RegisteredAt,
		&reg.UpdatedAt,
	)
}

// AdmitParams carries the precomputed admission decision into the atomic
// step. The quote (discount, final price) is resolved before the
// transaction; only the capacity and uniqueness checks need the lock.
type AdmitParams struct {
	EventID        int64
	UserID         int64
	DiscountCodeID *int64
	DiscountAmount int64
	FinalPrice     int64
	ConfirmNow     bool
	TicketID       *string
	Now            time.Time
}

// Admit performs the admission as a single atomic unit: it locks the event
// row, re-checks the registration window, the per-(event,user) uniqueness
// rule and the capacity bound, and inserts the registration. The row lock
// serialises concurrent admissions and cancellations for the same event, so
// counting non-cancelled registrations against capacity is race-free.
//
// Ties between concurrent attempts for the last seat are broken by whichever
// transaction acquires the lock first; the loser gets ErrCapacityExceeded.
func (r *RegistrationRepository) Admit(ctx context.Context, p AdmitParams) (*models.Registration, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin admission: %w", err)
	}
	defer tx.Rollback()

	event := &models.Event{}
	lockQuery := `SELECT status, price, capacity, registration_start_at, registration_end_at
	       FROM events WHERE id = $1 FOR UPDATE`
	err = tx.QueryRowContext(ctx, lockQuery, p.EventID).Scan(
		&event.Status,
		&event.Price,
		&event.Capacity,
		&event.RegistrationStartAt,
		&event.RegistrationEndAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock event row: %w", err)
	}

	if !event.IsRegistrationOpen(p.Now) {
		return nil, apperrors.ErrRegistrationClosed
	}

	var existing int
	dupQuery := `SELECT COUNT(*) FROM registrations
	       WHERE event_id = $1 AND user_id = $2 AND status <> 'cancelled'`
	if err := tx.QueryRowContext(ctx, dupQuery, p.EventID, p.UserID).Scan(&existing); err != nil {
		return nil, fmt.Errorf("check duplicate registration: %w", err)
	}
	if existing > 0 {
		return nil, apperrors.ErrAlreadyRegistered
	}

	if event.Capacity != nil {
		var taken int64
		countQuery := `SELECT COUNT(*) FROM registrations
		       WHERE event_id = $1 AND status <> 'cancelled'`
		if err := tx.QueryRowContext(ctx, countQuery, p.EventID).Scan(&taken); err != nil {
			return nil, fmt.Errorf("count registrations: %w", err)
		}
		if taken >= *event.Capacity {
			return nil, apperrors.ErrCapacityExceeded
		}
	}

	status := models.RegistrationStatusPending
	if p.ConfirmNow {
		status = models.RegistrationStatusConfirmed
	}

	reg := &models.Registration{
		EventID:        p.EventID,
		UserID:         p.UserID,
		Status:         status,
		TicketID:       p.TicketID,
		DiscountCodeID: p.DiscountCodeID,
		DiscountAmount: p.DiscountAmount,
		FinalPrice:     &p.FinalPrice,
	}

	insertQuery := `
		INSERT INTO registrations (event_id, user_id, status, ticket_id, discount_code_id, discount_amount, final_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, registered_at, updated_at`
	err = tx.QueryRowContext(ctx, insertQuery,
		reg.EventID, reg.UserID, reg.Status, reg.TicketID,
		reg.DiscountCodeID, reg.DiscountAmount, reg.FinalPrice,
	).Scan(&reg.ID, &reg.RegisteredAt, &reg.UpdatedAt)
	if err != nil {
		// The partial unique index is the backstop for admissions racing on
		// different connections before either lock is taken.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, apperrors.ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("insert registration: %w", err)
	}

	// Confirmed free registrations consume the discount code immediately;
	// paid ones consume it at settlement.
	if p.ConfirmNow && p.DiscountCodeID != nil {
		useQuery := `UPDATE discount_codes SET used_count = used_count + 1 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, useQuery, *p.DiscountCodeID); err != nil {
			return nil, fmt.Errorf("increment discount usage: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit admission: %w", err)
	}

	return reg, nil
}

// Cancel flips the caller's active registration to cancelled under the same
// event row lock admissions take, so a freed seat is immediately visible to
// the next admission attempt and never double-allocated.
func (r *RegistrationRepository) Cancel(ctx context.Context, eventID, userID int64) (*models.Registration, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin cancellation: %w", err)
	}
	defer tx.Rollback()

	lockQuery := `SELECT id FROM events WHERE id = $1 FOR UPDATE`
	var lockedID int64
	if err := tx.QueryRowContext(ctx, lockQuery, eventID).Scan(&lockedID); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}

	reg := &models.Registration{}
	updateQuery := `
		UPDATE registrations SET status = 'cancelled', updated_at = NOW()
		WHERE event_id = $1 AND user_id = $2 AND status <> 'cancelled'
		RETURNING ` + registrationColumns
	err = scanRegistration(tx.QueryRowContext(ctx, updateQuery, eventID, userID), reg)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrRegistrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cancel registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cancellation: %w", err)
	}

	return reg, nil
}

// GetActiveByEventAndUser returns the caller's non-cancelled registration.
func (r *RegistrationRepository) GetActiveByEventAndUser(ctx context.Context, eventID, userID int64) (*models.Registration, error) {
	reg := &models.Registration{}
	query := `SELECT ` + registrationColumns + ` FROM registrations
	       WHERE event_id = $1 AND user_id = $2 AND status <> 'cancelled'`

	err := scanRegistration(r.db.QueryRowContext(ctx, query, eventID, userID), reg)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return reg, err
}

func (r *RegistrationRepository) GetByID(ctx context.Context, id int64) (*models.Registration, error) {
	reg := &models.Registration{}
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`

	err := scanRegistration(r.db.QueryRowContext(ctx, query, id), reg)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return reg, err
}

// GetByTicketID resolves a ticket for verification, including the event title.
func (r *RegistrationRepository) GetByTicketID(ctx context.Context, ticketID string) (*models.Registration, string, error) {
	reg := &models.Registration{}
	var eventTitle string
	query := `
		SELECT r.id, r.event_id, r.user_id, r.status, r.ticket_id,
		       r.discount_code_id, r.discount_amount, r.final_price, r.registered_at, r.updated_at,
		       e.title
		FROM registrations r
		JOIN events e ON e.id = r.event_id
		WHERE r.ticket_id = $1`

	err := r.db.QueryRowContext(ctx, query, ticketID).Scan(
		&reg.ID,
		&reg.EventID,
		&reg.UserID,
		&reg.Status,
		&reg.TicketID,
		&reg.DiscountCodeID,
		&reg.DiscountAmount,
		&reg.FinalPrice,
		&reg.RegisteredAt,
		&reg.UpdatedAt,
		&eventTitle,
	)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}

	return reg, eventTitle, err
}

// ListByUser returns the user's registrations with event briefs, newest first.
func (r *RegistrationRepository) ListByUser(ctx context.Context, userID int64) ([]models.MyRegistrationItem, error) {
	query := `
		SELECT r.id, r.status, r.ticket_id, r.registered_at,
		       e.id, e.title, e.slug, e.price, e.start_time, e.end_time
		FROM registrations r
		JOIN events e ON e.id = r.event_id
		WHERE r.user_id = $1
		ORDER BY r.registered_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.MyRegistrationItem
	for rows.Next() {
		var item models.MyRegistrationItem
		var ticketID sql.NullString
		err := rows.Scan(
			&item.ID,
			&item.Status,
			&ticketID,
			&item.RegisteredAt,
			&item.Event.ID,
			&item.Event.Title,
			&item.Event.Slug,
			&item.Event.Price,
			&item.Event.StartTime,
			&item.Event.EndTime,
		)
		if err != nil {
			return nil, err
		}
		if ticketID.Valid {
			item.TicketID = ticketID.String
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// SetTicket assigns a ticket id to the registration unless one is already
// issued, and returns whichever id ends up on the row.
func (r *RegistrationRepository) SetTicket(ctx context.Context, id int64, ticketID string) (string, error) {
	var issued string
	query := `
		UPDATE registrations
		SET ticket_id = COALESCE(ticket_id, $2), updated_at = NOW()
		WHERE id = $1
		RETURNING ticket_id`

	err := r.db.QueryRowContext(ctx, query, id, ticketID).Scan(&issued)
	if err == sql.ErrNoRows {
		return "", apperrors.ErrRegistrationNotFound
	}
	if err != nil {
		return "", fmt.Errorf("issue ticket: %w", err)
	}
	return issued, nil
}

// IsConfirmed reports whether the user holds a confirmed or attended
// registration for the event.
func (r *RegistrationRepository) IsConfirmed(ctx context.Context, eventID, userID int64) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM registrations
	       WHERE event_id = $1 AND user_id = $2 AND status IN ('confirmed', 'attended')`

	if err := r.db.QueryRowContext(ctx, query, eventID, userID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateQuote refreshes the discount fields on a pending registration when
// the purchase-time quote differs from the admission-time one.
func (r *RegistrationRepository) UpdateQuote(ctx context.Context, id int64, discountCodeID *int64, discountAmount, finalPrice int64) error {
	query := `
		UPDATE registrations
		SET discount_code_id = $2, discount_amount = $3, final_price = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`

	_, err := r.db.ExecContext(ctx, query, id, discountCodeID, discountAmount, finalPrice)
	return err
}

// ConfirmWithTicket confirms a pending registration and issues its ticket in
// one atomic step, consuming the discount code if one applies. Used for the
// zero-amount-after-discount fast path where no gateway session exists.
func (r *RegistrationRepository) ConfirmWithTicket(ctx context.Context, id int64, ticketID string, discountCodeID *int64) (*models.Registration, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin confirmation: %w", err)
	}
	defer tx.Rollback()

	reg := &models.Registration{}
	// COALESCE keeps an already-issued ticket stable.
	query := `
		UPDATE registrations
		SET status = 'confirmed', ticket_id = COALESCE(ticket_id, $2), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + registrationColumns
	err = scanRegistration(tx.QueryRowContext(ctx, query, id, ticketID), reg)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrRegistrationNotPending
	}
	if err != nil {
		return nil, fmt.Errorf("confirm registration: %w", err)
	}

	if discountCodeID != nil {
		useQuery := `UPDATE discount_codes SET used_count = used_count + 1 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, useQuery, *discountCodeID); err != nil {
			return nil, fmt.Errorf("increment discount usage: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit confirmation: %w", err)
	}

	return reg, nil
}
