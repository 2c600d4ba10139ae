package repository

import (
	"context"
	"database/sql"
	"fmt"

	"anjoman/internal/database"
	"anjoman/internal/models"
)

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, title, slug, description, status, price, capacity,
       registration_start_at, registration_end_at, start_time, end_time,
       created_at, updated_at`

func scanEvent(row interface{ Scan(...interface{}) error }, e *models.Event) error {
	return row.Scan(
		&e.ID,
		&e.Title,
		&e.Slug,
		&e.Description,
		&e.Status,
		&e.Price,
		&e.Capacity,
		&e.RegistrationStartAt,
		&e.RegistrationEndAt,
		&e.StartTime,
		&e.EndTime,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	event := &models.Event{}
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	err := scanEvent(r.db.QueryRowContext(ctx, query, id), event)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return event, err
}

// List returns published-first events with optional status filter and
// title/description search, newest start time first.
func (r *EventRepository) List(ctx context.Context, status, search string, limit, offset int) ([]models.Event, error) {
	var events []models.Event
	var args []interface{}
	argIndex := 1

	query := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`

	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, status)
		argIndex++
	}

	if search != "" {
		query += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex)
		args = append(args, "%"+search+"%")
		argIndex++
	}

	query += ` ORDER BY (status = 'published') DESC, start_time DESC, id DESC`
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var e models.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}
