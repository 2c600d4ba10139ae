package errors

import "errors"

// Auth / session errors.
var ErrUnauthorized = errors.New("user is not authorized")
var ErrForbidden = errors.New("operation is forbidden for user")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrInvalidRefreshToken = errors.New("refresh token is invalid or revoked")

// Lookup errors.
var ErrEventNotFound = errors.New("event not found")
var ErrRegistrationNotFound = errors.New("registration not found")
var ErrPaymentNotFound = errors.New("payment not found")
var ErrTicketNotFound = errors.New("ticket not found")

// Discount code errors. Validation failures, never retried.
var ErrInvalidCode = errors.New("discount code is invalid or inactive")
var ErrCodeExpired = errors.New("discount code is outside its validity window")
var ErrCodeExhausted = errors.New("discount code usage limit reached")
var ErrCodeNotApplicable = errors.New("discount code is not applicable to this event")
var ErrAmountBelowMinimum = errors.New("final payable amount is below the gateway minimum")

// Admission conflicts. Terminal, user-facing, no retry.
var ErrRegistrationClosed = errors.New("registration window is not open")
var ErrCapacityExceeded = errors.New("event capacity exceeded")
var ErrAlreadyRegistered = errors.New("user already registered for this event")

// Payment / settlement errors.
var ErrRegistrationNotPending = errors.New("registration is not awaiting payment")
var ErrGatewaySession = errors.New("payment gateway session could not be created")
var ErrUnknownReference = errors.New("no payment matches the settlement reference")
var ErrSettlementConflict = errors.New("settlement status conflicts with recorded terminal state")
