package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	apperrors "anjoman/internal/errors"
	"anjoman/internal/logger"
	"anjoman/internal/metrics"
	"anjoman/internal/models"
	"anjoman/internal/repository"
)

// PaymentService orchestrates the purchase flow against the external gateway
// and reconciles its settlement reports. Settlement is idempotent per
// reference: duplicate deliveries of the same terminal report collapse to a
// no-op, conflicting ones are rejected for manual review.
type PaymentService struct {
	paymentRepo      *repository.PaymentRepository
	registrationRepo *repository.RegistrationRepository
	eventRepo        *repository.EventRepository
	discounts        *DiscountService
	tickets          *TicketService
	gateway          PaymentGateway
	publisher        EventPublisher
}

func NewPaymentService(
	paymentRepo *repository.PaymentRepository,
	registrationRepo *repository.RegistrationRepository,
	eventRepo *repository.EventRepository,
	discounts *DiscountService,
	tickets *TicketService,
	gateway PaymentGateway,
	publisher EventPublisher,
) *PaymentService {
	return &PaymentService{
		paymentRepo:      paymentRepo,
		registrationRepo: registrationRepo,
		eventRepo:        eventRepo,
		discounts:        discounts,
		tickets:          tickets,
		gateway:          gateway,
		publisher:        publisher,
	}
}

// CheckCoupon quotes a discount code against an event without side effects.
func (s *PaymentService) CheckCoupon(ctx context.Context, eventID int64, code string) (*models.CouponCheckResponse, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}

	quote, err := s.discounts.Quote(ctx, event, code)
	if err != nil {
		return nil, err
	}

	return &models.CouponCheckResponse{
		DiscountAmount: quote.DiscountAmount,
		FinalPrice:     quote.FinalPrice,
	}, nil
}

// Create opens a payment for the caller's pending registration. The quote is
// recomputed at purchase time, so a code that expired between admission and
// checkout is rejected here. A discount that zeroes the price confirms the
// registration immediately with no gateway session.
func (s *PaymentService) Create(ctx context.Context, userID int64, req *models.CreatePaymentRequest) (*models.CreatePaymentResponse, error) {
	event, err := s.eventRepo.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}

	reg, err := s.registrationRepo.GetActiveByEventAndUser(ctx, req.EventID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load registration: %w", err)
	}
	if reg == nil {
		return nil, apperrors.ErrRegistrationNotFound
	}
	if reg.Status != models.RegistrationStatusPending {
		return nil, apperrors.ErrRegistrationNotPending
	}

	quote, err := s.discounts.Quote(ctx, event, req.DiscountCode)
	if err != nil {
		return nil, err
	}

	// The usage counter only moves at confirmation, so bound the limit
	// against in-flight payments too or a burst of checkouts could oversell
	// the code between quote and settlement.
	if quote.Code != nil && quote.Code.UsageLimit != nil {
		inflight, err := s.paymentRepo.CountActiveByDiscountCode(ctx, quote.Code.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count discount usage in flight: %w", err)
		}
		if quote.Code.UsedCount+inflight >= *quote.Code.UsageLimit {
			return nil, apperrors.ErrCodeExhausted
		}
	}

	if err := s.registrationRepo.UpdateQuote(ctx, reg.ID, quote.CodeID(), quote.DiscountAmount, quote.FinalPrice); err != nil {
		return nil, fmt.Errorf("failed to update registration quote: %w", err)
	}

	resp := &models.CreatePaymentResponse{
		BaseAmount:     quote.BaseAmount,
		DiscountAmount: quote.DiscountAmount,
		Amount:         quote.FinalPrice,
	}

	if quote.FinalPrice == 0 {
		confirmed, err := s.registrationRepo.ConfirmWithTicket(ctx, reg.ID, s.tickets.NewTicketID(), quote.CodeID())
		if err != nil {
			return nil, err
		}
		metrics.GatewaySessionsTotal.WithLabelValues("skipped_zero_amount").Inc()
		s.publishRegistrationConfirmed(ctx, confirmed)
		return resp, nil
	}

	payment := &models.Payment{
		RegistrationID: reg.ID,
		UserID:         userID,
		EventID:        event.ID,
		BaseAmount:     quote.BaseAmount,
		DiscountAmount: quote.DiscountAmount,
		Amount:         quote.FinalPrice,
		Status:         models.PaymentStatusInit,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	session, err := s.gateway.RequestPayment(ctx, payment.Amount, req.Description, map[string]string{
		"payment_id": strconv.FormatInt(payment.ID, 10),
		"event_id":   strconv.FormatInt(event.ID, 10),
		"user_id":    strconv.FormatInt(userID, 10),
	})
	if err != nil {
		// Session failure closes the payment but keeps the registration
		// pending so the user can retry.
		if markErr := s.paymentRepo.MarkSessionFailed(ctx, payment.ID); markErr != nil {
			logger.WithContext(ctx).Error("Failed to close payment after gateway session failure",
				"payment_id", payment.ID, "error", markErr)
		}
		metrics.GatewaySessionsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := s.paymentRepo.MarkPending(ctx, payment.ID, session.Authority); err != nil {
		return nil, fmt.Errorf("failed to mark payment pending: %w", err)
	}
	metrics.GatewaySessionsTotal.WithLabelValues("ok").Inc()

	resp.StartPayURL = session.StartPayURL
	resp.Authority = session.Authority
	return resp, nil
}

// SettleInput is one settlement report, from either the gateway webhook or
// the redirect-callback verification.
type SettleInput struct {
	RefID     string
	Authority string
	Status    string // terminal payment status: PAID, FAILED or CANCELED
	Amount    int64  // 0 when the reporter does not echo the amount
}

// Settle applies a terminal settlement report. Lookup is by ref_id with an
// authority fallback for reporters that only carry the session token.
func (s *PaymentService) Settle(ctx context.Context, in SettleInput) (*models.Payment, error) {
	payment, err := s.lookup(ctx, in.RefID, in.Authority)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		metrics.SettlementsTotal.WithLabelValues("unknown_ref").Inc()
		return nil, apperrors.ErrUnknownReference
	}

	if models.IsTerminalPaymentStatus(payment.Status) {
		return s.reconcileTerminal(ctx, payment, in)
	}

	if in.Status == models.PaymentStatusPaid {
		if in.Amount != 0 && in.Amount != payment.Amount {
			metrics.SettlementsTotal.WithLabelValues("conflict").Inc()
			return nil, fmt.Errorf("%w: reported amount %d does not match payment %d",
				apperrors.ErrSettlementConflict, in.Amount, payment.Amount)
		}
		return s.settleSuccess(ctx, payment, in.RefID)
	}

	return s.settleFailure(ctx, payment, in.Status, in.RefID)
}

// HandleCallback processes the gateway redirect after the user leaves the
// payment page. A positive redirect is verified against the gateway before
// any state changes; the redirect alone proves nothing.
func (s *PaymentService) HandleCallback(ctx context.Context, authority string, ok bool) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByAuthority(ctx, authority)
	if err != nil {
		return nil, fmt.Errorf("failed to look up payment: %w", err)
	}
	if payment == nil {
		metrics.SettlementsTotal.WithLabelValues("unknown_ref").Inc()
		return nil, apperrors.ErrUnknownReference
	}

	// The webhook may have settled first; the callback just reads the result.
	if models.IsTerminalPaymentStatus(payment.Status) {
		metrics.SettlementsTotal.WithLabelValues("duplicate").Inc()
		return payment, nil
	}

	if !ok {
		return s.settleFailure(ctx, payment, models.PaymentStatusCanceled, "")
	}

	result, err := s.gateway.VerifyPayment(ctx, authority, payment.Amount)
	if err != nil {
		logger.WithContext(ctx).Warn("Gateway verification failed",
			"payment_id", payment.ID, "authority", authority, "error", err)
		return s.settleFailure(ctx, payment, models.PaymentStatusFailed, "")
	}

	return s.settleSuccess(ctx, payment, result.RefID)
}

// Detail returns the settlement snapshot for a reference.
func (s *PaymentService) Detail(ctx context.Context, refID string) (*models.PaymentDetailResponse, error) {
	payment, brief, err := s.paymentRepo.GetDetailByRefID(ctx, refID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment detail: %w", err)
	}
	if payment == nil {
		return nil, apperrors.ErrPaymentNotFound
	}

	resp := &models.PaymentDetailResponse{
		RefID:          refID,
		Status:         payment.Status,
		BaseAmount:     payment.BaseAmount,
		DiscountAmount: payment.DiscountAmount,
		Amount:         payment.Amount,
		VerifiedAt:     payment.VerifiedAt,
		Event:          *brief,
	}
	if payment.Authority != nil {
		resp.Authority = *payment.Authority
	}
	return resp, nil
}

func (s *PaymentService) lookup(ctx context.Context, refID, authority string) (*models.Payment, error) {
	if refID != "" {
		payment, err := s.paymentRepo.GetByRefID(ctx, refID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up payment: %w", err)
		}
		if payment != nil {
			return payment, nil
		}
	}

	if authority != "" {
		payment, err := s.paymentRepo.GetByAuthority(ctx, authority)
		if err != nil {
			return nil, fmt.Errorf("failed to look up payment: %w", err)
		}
		return payment, nil
	}

	return nil, nil
}

// reconcileTerminal handles a report against an already-settled payment:
// the same outcome again is a duplicate delivery, anything else a conflict.
func (s *PaymentService) reconcileTerminal(ctx context.Context, payment *models.Payment, in SettleInput) (*models.Payment, error) {
	sameRef := in.RefID == "" || payment.RefID == nil || *payment.RefID == in.RefID
	if payment.Status == in.Status && sameRef {
		metrics.SettlementsTotal.WithLabelValues("duplicate").Inc()
		return payment, nil
	}

	metrics.SettlementsTotal.WithLabelValues("conflict").Inc()
	logger.WithContext(ctx).Error("Conflicting settlement report",
		"payment_id", payment.ID,
		"recorded_status", payment.Status,
		"reported_status", in.Status,
		"reported_ref_id", in.RefID)
	return nil, fmt.Errorf("%w: payment %d already %s",
		apperrors.ErrSettlementConflict, payment.ID, payment.Status)
}

func (s *PaymentService) settleSuccess(ctx context.Context, payment *models.Payment, refID string) (*models.Payment, error) {
	won, err := s.paymentRepo.SettleSuccess(ctx, payment.ID, refID, s.tickets.NewTicketID(), time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !won {
		// A concurrent settlement got there first; reconcile against what it
		// wrote.
		current, err := s.paymentRepo.GetByID(ctx, payment.ID)
		if err != nil || current == nil {
			return nil, fmt.Errorf("failed to re-read settled payment %d: %w", payment.ID, err)
		}
		return s.reconcileTerminal(ctx, current, SettleInput{RefID: refID, Status: models.PaymentStatusPaid})
	}

	settled, err := s.paymentRepo.GetByID(ctx, payment.ID)
	if err != nil || settled == nil {
		return nil, fmt.Errorf("failed to re-read settled payment %d: %w", payment.ID, err)
	}

	metrics.SettlementsTotal.WithLabelValues("paid").Inc()
	s.publishSettled(ctx, settled)

	if reg, err := s.registrationRepo.GetByID(ctx, settled.RegistrationID); err == nil && reg != nil {
		s.publishRegistrationConfirmed(ctx, reg)
	}

	return settled, nil
}

func (s *PaymentService) settleFailure(ctx context.Context, payment *models.Payment, status, refID string) (*models.Payment, error) {
	var refPtr *string
	if refID != "" {
		refPtr = &refID
	}

	won, err := s.paymentRepo.SettleFailure(ctx, payment.ID, status, refPtr)
	if err != nil {
		return nil, err
	}
	if !won {
		current, err := s.paymentRepo.GetByID(ctx, payment.ID)
		if err != nil || current == nil {
			return nil, fmt.Errorf("failed to re-read settled payment %d: %w", payment.ID, err)
		}
		return s.reconcileTerminal(ctx, current, SettleInput{RefID: refID, Status: status})
	}

	settled, err := s.paymentRepo.GetByID(ctx, payment.ID)
	if err != nil || settled == nil {
		return nil, fmt.Errorf("failed to re-read settled payment %d: %w", payment.ID, err)
	}

	metrics.SettlementsTotal.WithLabelValues(settlementOutcome(status)).Inc()
	s.publishSettled(ctx, settled)
	return settled, nil
}

func (s *PaymentService) publishSettled(ctx context.Context, payment *models.Payment) {
	if s.publisher == nil {
		return
	}

	var refID string
	if payment.RefID != nil {
		refID = *payment.RefID
	}

	event := models.PaymentSettledEvent{
		PaymentID:      payment.ID,
		RegistrationID: payment.RegistrationID,
		RefID:          refID,
		Status:         payment.Status,
		Amount:         payment.Amount,
		Timestamp:      time.Now().UTC(),
	}
	if err := s.publisher.Publish(models.EventPaymentSettled, event); err != nil {
		logger.WithContext(ctx).Warn("Failed to publish settlement event",
			"payment_id", payment.ID, "error", err)
	}
}

func (s *PaymentService) publishRegistrationConfirmed(ctx context.Context, reg *models.Registration) {
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

func settlementOutcome(status string) string {
	switch status {
	case models.PaymentStatusFailed:
		return "failed"
	case models.PaymentStatusCanceled:
		return "canceled"
	default:
		return "paid"
	}
}
