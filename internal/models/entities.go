package models

import "time"

// Event status values. Events are owned by the content subsystem and are
// read-only to this service.
const (
	EventStatusDraft     = "draft"
	EventStatusPublished = "published"
	EventStatusCancelled = "cancelled"
	EventStatusCompleted = "completed"
)

type Event struct {
	ID                  int64      `json:"id"`
	Title               string     `json:"title"`
	Slug                string     `json:"slug"`
	Description         string     `json:"description"`
	Status              string     `json:"status"`
	Price               int64      `json:"price"`
	Capacity            *int64     `json:"capacity"` // nil = unlimited
	RegistrationStartAt *time.Time `json:"registration_start_at"`
	RegistrationEndAt   *time.Time `json:"registration_end_at"`
	StartTime           time.Time  `json:"start_time"`
	EndTime             time.Time  `json:"end_time"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// IsRegistrationOpen reports whether the registration window is open at now.
// A nil bound is unbounded on that side.
func (e *Event) IsRegistrationOpen(now time.Time) bool {
	if e.Status != EventStatusPublished {
		return false
	}
	if e.RegistrationStartAt != nil && now.Before(*e.RegistrationStartAt) {
		return false
	}
	if e.RegistrationEndAt != nil && now.After(*e.RegistrationEndAt) {
		return false
	}
	return true
}

// Registration status values.
const (
	RegistrationStatusPending   = "pending"
	RegistrationStatusConfirmed = "confirmed"
	RegistrationStatusCancelled = "cancelled"
	RegistrationStatusAttended  = "attended"
)

type Registration struct {
	ID             int64     `json:"id"`
	EventID        int64     `json:"event_id"`
	UserID         int64     `json:"user_id"`
	Status         string    `json:"status"`
	TicketID       *string   `json:"ticket_id,omitempty"`
	DiscountCodeID *int64    `json:"-"`
	DiscountAmount int64     `json:"discount_amount"`
	FinalPrice     *int64    `json:"final_price"`
	RegisteredAt   time.Time `json:"registered_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Payment status values, ordered as the gateway reports them.
const (
	PaymentStatusInit     = "INIT"
	PaymentStatusPending  = "PENDING"
	PaymentStatusPaid     = "PAID"
	PaymentStatusFailed   = "FAILED"
	PaymentStatusCanceled = "CANCELED"
)

// IsTerminalPaymentStatus reports whether a payment status can no longer change.
func IsTerminalPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusCanceled:
		return true
	}
	return false
}

type Payment struct {
	ID             int64      `json:"id"`
	RegistrationID int64      `json:"registration_id"`
	UserID         int64      `json:"user_id"`
	EventID        int64      `json:"event_id"`
	BaseAmount     int64      `json:"base_amount"`
	DiscountAmount int64      `json:"discount_amount"`
	Amount         int64      `json:"amount"`
	Status         string     `json:"status"`
	Authority      *string    `json:"authority,omitempty"`
	RefID          *string    `json:"ref_id,omitempty"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Discount code kinds.
const (
	DiscountKindPercent = "percent"
	DiscountKindFixed   = "fixed"
)

type DiscountCode struct {
	ID          int64      `json:"id"`
	Code        string     `json:"code"`
	EventID     *int64     `json:"event_id"` // nil = global scope
	Kind        string     `json:"kind"`
	Value       int64      `json:"value"`
	MaxDiscount *int64     `json:"max_discount"`
	MinAmount   *int64     `json:"min_amount"`
	UsageLimit  *int64     `json:"usage_limit"`
	UsedCount   int64      `json:"used_count"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	IsActive    bool       `json:"is_active"`
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	IsStaff      bool      `json:"is_staff"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}
