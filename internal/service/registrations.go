package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "anjoman/internal/errors"
	"anjoman/internal/logger"
	"anjoman/internal/metrics"
	"anjoman/internal/models"
	"anjoman/internal/repository"
)

// RegistrationService admits users into events. Free-after-discount
// admissions confirm and issue a ticket immediately; priced ones stay
// pending until payment settles.
type RegistrationService struct {
	registrationRepo *repository.RegistrationRepository
	eventRepo        *repository.EventRepository
	discounts        *DiscountService
	tickets          *TicketService
	publisher        EventPublisher
}

func NewRegistrationService(
	registrationRepo *repository.RegistrationRepository,
	eventRepo *repository.EventRepository,
	discounts *DiscountService,
	tickets *TicketService,
	publisher EventPublisher,
) *RegistrationService {
	return &RegistrationService{
		registrationRepo: registrationRepo,
		eventRepo:        eventRepo,
		discounts:        discounts,
		tickets:          tickets,
		publisher:        publisher,
	}
}

// Register admits the user into the event. The quote is resolved up front;
// the capacity and uniqueness checks happen inside the atomic admission step
// under the event row lock.
func (s *RegistrationService) Register(ctx context.Context, eventID, userID int64, discountCode string) (*models.Registration, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}

	quote, err := s.discounts.Quote(ctx, event, discountCode)
	if err != nil {
		return nil, err
	}

	params := repository.AdmitParams{
		EventID:        eventID,
		UserID:         userID,
		DiscountCodeID: quote.CodeID(),
		DiscountAmount: quote.DiscountAmount,
		FinalPrice:     quote.FinalPrice,
		Now:            time.Now().UTC(),
	}

	if quote.FinalPrice == 0 {
		ticketID := s.tickets.NewTicketID()
		params.ConfirmNow = true
		params.TicketID = &ticketID
	}

	reg, err := s.registrationRepo.Admit(ctx, params)
	if err != nil {
		metrics.AdmissionsTotal.WithLabelValues(admissionOutcome(err)).Inc()
		return nil, err
	}

	metrics.AdmissionsTotal.WithLabelValues(reg.Status).Inc()

	if reg.Status == models.RegistrationStatusConfirmed {
		s.publishConfirmed(ctx, reg)
	}

	return reg, nil
}

// Cancel releases the caller's registration. The freed seat becomes visible
// to the next admission under the same event row lock.
func (s *RegistrationService) Cancel(ctx context.Context, eventID, userID int64) error {
	reg, err := s.registrationRepo.Cancel(ctx, eventID, userID)
	if err != nil {
		return err
	}

	if s.publisher != nil {
		event := models.RegistrationCancelledEvent{
			RegistrationID: reg.ID,
			EventID:        reg.EventID,
			UserID:         reg.UserID,
			Timestamp:      time.Now().UTC(),
		}
		if err := s.publisher.Publish(models.EventRegistrationCancelled, event); err != nil {
			logger.WithContext(ctx).Warn("Failed to publish cancellation event",
				"registration_id", reg.ID, "error", err)
		}
	}

	return nil
}

// IsRegistered reports whether the user holds a confirmed seat.
func (s *RegistrationService) IsRegistered(ctx context.Context, eventID, userID int64) (bool, error) {
	return s.registrationRepo.IsConfirmed(ctx, eventID, userID)
}

// MyRegistrations lists the caller's registrations, newest first.
func (s *RegistrationService) MyRegistrations(ctx context.Context, userID int64) ([]models.MyRegistrationItem, error) {
	return s.registrationRepo.ListByUser(ctx, userID)
}

func (s *RegistrationService) publishConfirmed(ctx context.Context, reg *models.Registration) {
	if s.publisher == nil {
		return
	}

	var ticketID string
	if reg.TicketID != nil {
		ticketID = *reg.TicketID
	}

	event := models.RegistrationConfirmedEvent{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		UserID:         reg.UserID,
		TicketID:       ticketID,
		Timestamp:      time.Now().UTC(),
	}
	if err := s.publisher.Publish(models.EventRegistrationConfirmed, event); err != nil {
		logger.WithContext(ctx).Warn("Failed to publish confirmation event",
			"registration_id", reg.ID, "error", err)
	}
}

func admissionOutcome(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, apperrors.ErrAlreadyRegistered):
		return "already_registered"
	case errors.Is(err, apperrors.ErrRegistrationClosed):
		return "closed"
	default:
		return "error"
	}
}
