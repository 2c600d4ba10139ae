package models

import "time"

// NATS subjects for domain events.
const (
	EventRegistrationConfirmed = "registration.confirmed"
	EventRegistrationCancelled = "registration.cancelled"
	EventPaymentSettled        = "payment.settled"
)

type RegistrationConfirmedEvent struct {
	RegistrationID int64     `json:"registration_id"`
	EventID        int64     `json:"event_id"`
	UserID         int64     `json:"user_id"`
	TicketID       string    `json:"ticket_id"`
	Timestamp      time.Time `json:"timestamp"`
}

type RegistrationCancelledEvent struct {
	RegistrationID int64     `json:"registration_id"`
	EventID        int64     `json:"event_id"`
	UserID         int64     `json:"user_id"`
	Timestamp      time.Time `json:"timestamp"`
}

type PaymentSettledEvent struct {
	PaymentID      int64     `json:"payment_id"`
	RegistrationID int64     `json:"registration_id"`
	RefID          string    `json:"ref_id,omitempty"`
	Status         string    `json:"status"`
	Amount         int64     `json:"amount"`
	Timestamp      time.Time `json:"timestamp"`
}
