package service

import (
	"context"
	"fmt"
	"strings"

	apperrors "anjoman/internal/errors"
	"anjoman/internal/models"
	"anjoman/internal/repository"

	"github.com/google/uuid"
)

// TicketService mints and verifies ticket identifiers. A ticket is an
// opaque, globally unique token generated exactly once per registration;
// the store-level COALESCE guard keeps re-issuance attempts idempotent.
type TicketService struct {
	registrationRepo *repository.RegistrationRepository
}

func NewTicketService(registrationRepo *repository.RegistrationRepository) *TicketService {
	return &TicketService{registrationRepo: registrationRepo}
}

// NewTicketID generates a fresh opaque ticket identifier.
func (s *TicketService) NewTicketID() string {
	return uuid.NewString()
}

// DisplayCode shortens a ticket id to a human-friendly receipt prefix.
func DisplayCode(ticketID string) string {
	compact := strings.ReplaceAll(ticketID, "-", "")
	if len(compact) > 8 {
		compact = compact[:8]
	}
	return strings.ToUpper(compact)
}

// Issue assigns a ticket to the registration if it does not hold one yet and
// returns the ticket id either way.
func (s *TicketService) Issue(ctx context.Context, registrationID int64) (string, error) {
	reg, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		return "", fmt.Errorf("failed to load registration: %w", err)
	}
	if reg == nil {
		return "", apperrors.ErrRegistrationNotFound
	}
	if reg.TicketID != nil {
		return *reg.TicketID, nil
	}

	return s.registrationRepo.SetTicket(ctx, registrationID, s.NewTicketID())
}

// Verify resolves a ticket for its holder. Tickets are scoped to their
// owner; lookups by other users report not-found rather than leaking the
// registration's existence.
func (s *TicketService) Verify(ctx context.Context, ticketID string, userID int64) (*models.TicketVerifyResponse, error) {
	reg, eventTitle, err := s.registrationRepo.GetByTicketID(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up ticket: %w", err)
	}
	if reg == nil || reg.UserID != userID {
		return nil, apperrors.ErrTicketNotFound
	}

	return &models.TicketVerifyResponse{
		EventTitle:   eventTitle,
		TicketID:     *reg.TicketID,
		DisplayCode:  DisplayCode(*reg.TicketID),
		Status:       reg.Status,
		RegisteredAt: reg.RegisteredAt,
	}, nil
}
