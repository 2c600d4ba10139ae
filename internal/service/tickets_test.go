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

func TestDisplayCode(t *testing.T) {
	assert.Equal(t, "D9B370D4", DisplayCode("d9b370d4-36c5-4e0f-92f1-a32d41fd4c80"))
	assert.Equal(t, "ABC", DisplayCode("abc"))
}

func TestNewTicketIDUnique(t *testing.T) {
	repos, _ := newMockRepos(t)
	svc := NewTicketService(repos.Registrations)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := svc.NewTicketID()
		require.False(t, seen[id], "ticket ids must be unique")
		seen[id] = true
	}
}

func TestIssueReturnsExistingTicket(t *testing.T) {
	repos, mock := newMockRepos(t)
	svc := NewTicketService(repos.Registrations)
	now := time.Now()

	mock.ExpectQuery("FROM registrations WHERE id").
		WillReturnRows(sqlmock.NewRows(registrationCols).
			AddRow(41, 7, 12, models.RegistrationStatusConfirmed, "t-existing", nil, 0, 0, now, now))

	ticketID, err := svc.Issue(context.Background(), 41)
	require.NoError(t, err)
	assert.Equal(t, "t-existing", ticketID, "no re-issuance once a ticket exists")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIssueAssignsTicketOnce(t *testing.T) {
	repos, mock := newMockRepos(t)
	svc := NewTicketService(repos.Registrations)
	now := time.Now()

	mock.ExpectQuery("FROM registrations WHERE id").
		WillReturnRows(sqlmock.NewRows(registrationCols).
			AddRow(41, 7, 12, models.RegistrationStatusConfirmed, nil, nil, 0, 0, now, now))
	// COALESCE keeps whatever a concurrent issuer already wrote.
	mock.ExpectQuery("UPDATE registrations").
		WillReturnRows(sqlmock.NewRows([]string{"ticket_id"}).AddRow("t-race-winner"))

	ticketID, err := svc.Issue(context.Background(), 41)
	require.NoError(t, err)
	assert.Equal(t, "t-race-winner", ticketID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyTicketOwnedByCaller(t *testing.T) {
	repos, mock := newMockRepos(t)
	svc := NewTicketService(repos.Registrations)
	now := time.Now()

	mock.ExpectQuery("FROM registrations").
		WillReturnRows(sqlmock.NewRows(append(registrationCols, "title")).
			AddRow(41, 7, 12, models.RegistrationStatusConfirmed,
				"d9b370d4-36c5-4e0f-92f1-a32d41fd4c80", nil, 0, 0, now, now, "Go Meetup"))

	resp, err := svc.Verify(context.Background(), "d9b370d4-36c5-4e0f-92f1-a32d41fd4c80", 12)
	require.NoError(t, err)

	assert.Equal(t, "Go Meetup", resp.EventTitle)
	assert.Equal(t, "D9B370D4", resp.DisplayCode)
	assert.Equal(t, models.RegistrationStatusConfirmed, resp.Status)
}

func TestVerifyTicketOtherUserNotFound(t *testing.T) {
	repos, mock := newMockRepos(t)
	svc := NewTicketService(repos.Registrations)
	now := time.Now()

	mock.ExpectQuery("FROM registrations").
		WillReturnRows(sqlmock.NewRows(append(registrationCols, "title")).
			AddRow(41, 7, 12, models.RegistrationStatusConfirmed, "t-123", nil, 0, 0, now, now, "Go Meetup"))

	_, err := svc.Verify(context.Background(), "t-123", 99)
	assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
}
