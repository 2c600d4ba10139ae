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

var eventCols = []string{
	"id", "title", "slug", "description", "status", "price", "capacity",
	"registration_start_at", "registration_end_at", "start_time", "end_time",
	"created_at", "updated_at",
}

func eventRow(id, price int64, capacity interface{}) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(eventCols).
		AddRow(id, "Go Meetup", "go-meetup", "monthly meetup", models.EventStatusPublished,
			price, capacity, nil, nil, now.Add(24*time.Hour), now.Add(26*time.Hour), now, now)
}

func lockedEventRow(price int64, capacity interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"status", "price", "capacity", "registration_start_at", "registration_end_at"}).
		AddRow(models.EventStatusPublished, price, capacity, nil, nil)
}

func newRegistrationService(t *testing.T) (*RegistrationService, sqlmock.Sqlmock, *fakePublisher) {
	t.Helper()
	repos, mock := newMockRepos(t)
	publisher := &fakePublisher{}
	discounts := NewDiscountService(repos.Discounts)
	tickets := NewTicketService(repos.Registrations)
	svc := NewRegistrationService(repos.Registrations, repos.Events, discounts, tickets, publisher)
	return svc, mock, publisher
}

func TestRegisterFreeEventConfirmsImmediately(t *testing.T) {
	svc, mock, publisher := newRegistrationService(t)
	now := time.Now()

	mock.ExpectQuery("SELECT id, title, slug").WillReturnRows(eventRow(7, 0, nil))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, price, capacity").WillReturnRows(lockedEventRow(0, nil))
	mock.ExpectQuery("FROM registrations").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("INSERT INTO registrations").
		WillReturnRows(sqlmock.NewRows([]string{"id", "registered_at", "updated_at"}).AddRow(41, now, now))
	mock.ExpectCommit()

	reg, err := svc.Register(context.Background(), 7, 12, "")
	require.NoError(t, err)

	assert.Equal(t, models.RegistrationStatusConfirmed, reg.Status)
	require.NotNil(t, reg.TicketID)
	assert.NotEmpty(t, *reg.TicketID)
	assert.Equal(t, 1, publisher.published(models.EventRegistrationConfirmed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterPricedEventStaysPending(t *testing.T) {
	svc, mock, publisher := newRegistrationService(t)
	now := time.Now()

	mock.ExpectQuery("SELECT id, title, slug").WillReturnRows(eventRow(7, 50000, int64(100)))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, price, capacity").WillReturnRows(lockedEventRow(50000, int64(100)))
	mock.ExpectQuery("FROM registrations").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("FROM registrations").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(17))
	mock.ExpectQuery("INSERT INTO registrations").
		WillReturnRows(sqlmock.NewRows([]string{"id", "registered_at", "updated_at"}).AddRow(42, now, now))
	mock.ExpectCommit()

	reg, err := svc.Register(context.Background(), 7, 12, "")
	require.NoError(t, err)

	assert.Equal(t, models.RegistrationStatusPending, reg.Status)
	assert.Nil(t, reg.TicketID)
	assert.Equal(t, 0, publisher.published(models.EventRegistrationConfirmed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterCapacityExceeded(t *testing.T) {
	svc, mock, _ := newRegistrationService(t)

	mock.ExpectQuery("SELECT id, title, slug").WillReturnRows(eventRow(7, 50000, int64(1)))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, price, capacity").WillReturnRows(lockedEventRow(50000, int64(1)))
	mock.ExpectQuery("FROM registrations").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("FROM registrations").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := svc.Register(context.Background(), 7, 12, "")
	assert.ErrorIs(t, err, apperrors.ErrCapacityExceeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterAlreadyRegistered(t *testing.T) {
	svc, mock, _ := newRegistrationService(t)

	mock.ExpectQuery("SELECT id, title, slug").WillReturnRows(eventRow(7, 50000, int64(100)))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, price, capacity").WillReturnRows(lockedEventRow(50000, int64(100)))
	mock.ExpectQuery("FROM registrations").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectRollback()

	_, err := svc.Register(context.Background(), 7, 12, "")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyRegistered)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterWindowClosed(t *testing.T) {
	svc, mock, _ := newRegistrationService(t)
	closed := time.Now().Add(-time.Hour)

	mock.ExpectQuery("SELECT id, title, slug").WillReturnRows(eventRow(7, 50000, int64(100)))

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status, price, capacity").
		WillReturnRows(sqlmock.NewRows([]string{"status", "price", "capacity", "registration_start_at", "registration_end_at"}).
			AddRow(models.EventStatusPublished, 50000, 100, nil, closed))
	mock.ExpectRollback()

	_, err := svc.Register(context.Background(), 7, 12, "")
	assert.ErrorIs(t, err, apperrors.ErrRegistrationClosed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterEventNotFound(t *testing.T) {
	svc, mock, _ := newRegistrationService(t)

	mock.ExpectQuery("SELECT id, title, slug").WillReturnRows(sqlmock.NewRows(eventCols))

	_, err := svc.Register(context.Background(), 404, 12, "")
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
}

func TestCancelPublishesEvent(t *testing.T) {
	svc, mock, publisher := newRegistrationService(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM events").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery("UPDATE registrations SET status").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "event_id", "user_id", "status", "ticket_id",
			"discount_code_id", "discount_amount", "final_price", "registered_at", "updated_at",
		}).AddRow(41, 7, 12, models.RegistrationStatusCancelled, nil, nil, 0, 50000, now, now))
	mock.ExpectCommit()

	err := svc.Cancel(context.Background(), 7, 12)
	require.NoError(t, err)
	assert.Equal(t, 1, publisher.published(models.EventRegistrationCancelled))
	assert.NoError(t, mock.ExpectationsWereMet())
}
