package models

import "time"

// Auth DTOs

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Registration DTOs

type RegisterRequest struct {
	DiscountCode string `json:"discount_code,omitempty"`
}

type RegistrationResponse struct {
	ID             int64     `json:"id"`
	EventID        int64     `json:"event_id"`
	Status         string    `json:"status"`
	TicketID       string    `json:"ticket_id,omitempty"`
	DiscountAmount int64     `json:"discount_amount"`
	FinalPrice     int64     `json:"final_price"`
	RegisteredAt   time.Time `json:"registered_at"`
}

type RegistrationStatusResponse struct {
	IsRegistered bool `json:"is_registered"`
}

type TicketVerifyResponse struct {
	EventTitle   string    `json:"event_title"`
	TicketID     string    `json:"ticket_id"`
	DisplayCode  string    `json:"display_code"`
	Status       string    `json:"status"`
	RegisteredAt time.Time `json:"registered_at"`
}

type MyRegistrationItem struct {
	ID           int64      `json:"id"`
	Status       string     `json:"status"`
	TicketID     string     `json:"ticket_id,omitempty"`
	RegisteredAt time.Time  `json:"registered_at"`
	Event        EventBrief `json:"event"`
}

type EventBrief struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Price     int64     `json:"price"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Payment DTOs

type CouponCheckRequest struct {
	EventID int64  `json:"event_id" binding:"required"`
	Code    string `json:"code" binding:"required"`
}

type CouponCheckResponse struct {
	DiscountAmount int64 `json:"discount_amount"`
	FinalPrice     int64 `json:"final_price"`
}

type CreatePaymentRequest struct {
	EventID      int64  `json:"event_id" binding:"required"`
	Description  string `json:"description" binding:"required"`
	DiscountCode string `json:"discount_code,omitempty"`
}

type CreatePaymentResponse struct {
	StartPayURL    string `json:"start_pay_url,omitempty"`
	Authority      string `json:"authority,omitempty"`
	BaseAmount     int64  `json:"base_amount"`
	DiscountAmount int64  `json:"discount_amount"`
	Amount         int64  `json:"amount"`
}

type PaymentDetailResponse struct {
	RefID          string     `json:"ref_id"`
	Authority      string     `json:"authority,omitempty"`
	Status         string     `json:"status"`
	BaseAmount     int64      `json:"base_amount"`
	DiscountAmount int64      `json:"discount_amount"`
	Amount         int64      `json:"amount"`
	VerifiedAt     *time.Time `json:"verified_at"`
	Event          EventBrief `json:"event"`
}

// PaymentNotificationPayload is the gateway webhook body. The gateway may
// deliver the same notification more than once and out of order with the
// redirect callback; both converge through the settlement path.
type PaymentNotificationPayload struct {
	RefID     string `json:"ref_id"`
	Authority string `json:"authority"`
	Status    string `json:"status" binding:"required"`
	Amount    int64  `json:"amount"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
