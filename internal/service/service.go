// Package service holds the business logic between handlers and storage.
package service

import (
	"context"

	"anjoman/internal/auth"
	"anjoman/internal/cache"
	"anjoman/internal/external"
	"anjoman/internal/repository"
)

// PaymentGateway is the slice of the gateway client the payment flow needs.
type PaymentGateway interface {
	RequestPayment(ctx context.Context, amount int64, description string, metadata map[string]string) (*external.PaymentSession, error)
	VerifyPayment(ctx context.Context, authority string, amount int64) (*external.VerifyResult, error)
}

// EventPublisher emits domain events. Publishing is best-effort: a broker
// outage never fails the request that triggered the event.
type EventPublisher interface {
	Publish(subject string, data interface{}) error
}

// Services aggregates all business services.
type Services struct {
	Auth          *AuthService
	Events        *EventService
	Discounts     *DiscountService
	Registrations *RegistrationService
	Tickets       *TicketService
	Payments      *PaymentService
}

func NewServices(repos *repository.Repositories, authManager *auth.Manager, events *cache.Client, gateway PaymentGateway, publisher EventPublisher) *Services {
	discounts := NewDiscountService(repos.Discounts)
	tickets := NewTicketService(repos.Registrations)

	return &Services{
		Auth:          NewAuthService(repos.Users, repos.Tokens, authManager),
		Events:        NewEventService(repos.Events, events),
		Discounts:     discounts,
		Registrations: NewRegistrationService(repos.Registrations, repos.Events, discounts, tickets, publisher),
		Tickets:       tickets,
		Payments:      NewPaymentService(repos.Payments, repos.Registrations, repos.Events, discounts, tickets, gateway, publisher),
	}
}
