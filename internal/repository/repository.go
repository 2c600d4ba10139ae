package repository

import (
	"anjoman/internal/database"
)

// Repositories aggregates all repositories over the shared pool.
type Repositories struct {
	Users         *UserRepository
	Tokens        *TokenRepository
	Events        *EventRepository
	Discounts     *DiscountRepository
	Registrations *RegistrationRepository
	Payments      *PaymentRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(db),
		Tokens:        NewTokenRepository(db),
		Events:        NewEventRepository(db),
		Discounts:     NewDiscountRepository(db),
		Registrations: NewRegistrationRepository(db),
		Payments:      NewPaymentRepository(db),
	}
}
