// Package consumers runs the NATS subscribers that react to domain events
// out of band: confirmation notices, cancellation notices and settlement
// records for the finance export.
package consumers

import (
	"encoding/json"
	"log/slog"

	"anjoman/internal/messaging"
	"anjoman/internal/models"

	"github.com/nats-io/stan.go"
)

// Notifier delivers user-facing notices for registration and payment events.
// Delivery is decoupled from the request path; queue subscriptions with
// manual acks make each notice at-least-once.
type Notifier interface {
	RegistrationConfirmed(event models.RegistrationConfirmedEvent) error
	RegistrationCancelled(event models.RegistrationCancelledEvent) error
	PaymentSettled(event models.PaymentSettledEvent) error
}

// LogNotifier writes notices to the structured log. Stands in until the
// mailer integration lands.
type LogNotifier struct{}

func (LogNotifier) RegistrationConfirmed(event models.RegistrationConfirmedEvent) error {
	slog.Info("Registration confirmed notice",
		"registration_id", event.RegistrationID,
		"event_id", event.EventID,
		"user_id", event.UserID,
		"ticket_id", event.TicketID)
	return nil
}

func (LogNotifier) RegistrationCancelled(event models.RegistrationCancelledEvent) error {
	slog.Info("Registration cancelled notice",
		"registration_id", event.RegistrationID,
		"event_id", event.EventID,
		"user_id", event.UserID)
	return nil
}

func (LogNotifier) PaymentSettled(event models.PaymentSettledEvent) error {
	slog.Info("Payment settled record",
		"payment_id", event.PaymentID,
		"registration_id", event.RegistrationID,
		"ref_id", event.RefID,
		"status", event.Status,
		"amount", event.Amount)
	return nil
}

// Runner owns the subscriptions for one consumer process.
type Runner struct {
	nats     *messaging.NATSClient
	notifier Notifier
	subs     []stan.Subscription
}

func NewRunner(nats *messaging.NATSClient, notifier Notifier) *Runner {
	return &Runner{nats: nats, notifier: notifier}
}

// Start subscribes to all domain event subjects as the "notifications"
// queue group, so multiple consumer instances share the load.
func (r *Runner) Start() error {
	confirmed, err := r.nats.SubscribeQueue(models.EventRegistrationConfirmed, "notifications",
		handle(r.notifier.RegistrationConfirmed))
	if err != nil {
		return err
	}
	r.subs = append(r.subs, confirmed)

	cancelled, err := r.nats.SubscribeQueue(models.EventRegistrationCancelled, "notifications",
		handle(r.notifier.RegistrationCancelled))
	if err != nil {
		return err
	}
	r.subs = append(r.subs, cancelled)

	settled, err := r.nats.SubscribeQueue(models.EventPaymentSettled, "notifications",
		handle(r.notifier.PaymentSettled))
	if err != nil {
		return err
	}
	r.subs = append(r.subs, settled)

	return nil
}

// Stop closes the subscriptions; durable names keep the positions.
func (r *Runner) Stop() {
	for _, sub := range r.subs {
		if err := sub.Close(); err != nil {
			slog.Error("Failed to close subscription", "error", err)
		}
	}
	r.subs = nil
}

// handle decodes the payload and acks only after the notifier succeeds, so
// a failed delivery is redelivered after the ack wait.
func handle[T any](fn func(T) error) stan.MsgHandler {
	return func(msg *stan.Msg) {
		var event T
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.Error("Dropping undecodable event",
				"subject", msg.Subject, "error", err)
			_ = msg.Ack()
			return
		}

		if err := fn(event); err != nil {
			slog.Error("Event handler failed, leaving for redelivery",
				"subject", msg.Subject, "error", err)
			return
		}

		_ = msg.Ack()
	}
}
