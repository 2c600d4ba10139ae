// Package client is the Go client for the registration API. Authenticated
// calls share one session guard: a 401 response triggers a single-flight
// token refresh and exactly one retry with the new token.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"anjoman/internal/models"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	guard      *sessionGuard
}

type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRefreshTimeout bounds how long a caller waits on a token refresh
// before failing closed.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Client) { c.guard.timeout = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	c.guard = newSessionGuard(c.refreshTokens, 10*time.Second)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login authenticates and installs the token pair on the session guard.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var pair models.TokenPairResponse
	err := c.postJSON(ctx, "/api/auth/login", models.LoginRequest{Email: email, Password: password}, &pair)
	if err != nil {
		return err
	}

	c.guard.SetTokens(pair.AccessToken, pair.RefreshToken)
	return nil
}

// SetTokens installs an externally obtained token pair.
func (c *Client) SetTokens(access, refresh string) {
	c.guard.SetTokens(access, refresh)
}

// Register admits the caller into an event.
func (c *Client) Register(ctx context.Context, eventID int64, discountCode string) (*models.RegistrationResponse, error) {
	var resp models.RegistrationResponse
	path := fmt.Sprintf("/api/events/%d/register", eventID)
	if err := c.authed(ctx, http.MethodPost, path, models.RegisterRequest{DiscountCode: discountCode}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelRegistration releases the caller's seat.
func (c *Client) CancelRegistration(ctx context.Context, eventID int64) error {
	path := fmt.Sprintf("/api/events/%d/register", eventID)
	return c.authed(ctx, http.MethodDelete, path, nil, nil)
}

// IsRegistered reports whether the caller holds a confirmed seat.
func (c *Client) IsRegistered(ctx context.Context, eventID int64) (bool, error) {
	var resp models.RegistrationStatusResponse
	path := fmt.Sprintf("/api/events/%d/is-registered", eventID)
	if err := c.authed(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return false, err
	}
	return resp.IsRegistered, nil
}

// CheckCoupon quotes a discount code against an event.
func (c *Client) CheckCoupon(ctx context.Context, eventID int64, code string) (*models.CouponCheckResponse, error) {
	var resp models.CouponCheckResponse
	req := models.CouponCheckRequest{EventID: eventID, Code: code}
	if err := c.authed(ctx, http.MethodPost, "/api/payments/coupon/check", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreatePayment opens a gateway session for the caller's pending registration.
func (c *Client) CreatePayment(ctx context.Context, req models.CreatePaymentRequest) (*models.CreatePaymentResponse, error) {
	var resp models.CreatePaymentResponse
	if err := c.authed(ctx, http.MethodPost, "/api/payments/create", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PaymentByRef reads the settlement snapshot for a reference.
func (c *Client) PaymentByRef(ctx context.Context, refID string) (*models.PaymentDetailResponse, error) {
	var resp models.PaymentDetailResponse
	if err := c.getJSON(ctx, "/api/payments/by-ref/"+refID, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyTicket resolves one of the caller's tickets.
func (c *Client) VerifyTicket(ctx context.Context, ticketID string) (*models.TicketVerifyResponse, error) {
	var resp models.TicketVerifyResponse
	if err := c.authed(ctx, http.MethodGet, "/api/events/registrations/verify/"+ticketID, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MyRegistrations lists the caller's registrations.
func (c *Client) MyRegistrations(ctx context.Context) ([]models.MyRegistrationItem, error) {
	var resp struct {
		Registrations []models.MyRegistrationItem `json:"registrations"`
	}
	if err := c.authed(ctx, http.MethodGet, "/api/events/my-registrations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Registrations, nil
}

// authed performs one bearer-authenticated request. On a 401 it renews the
// token through the session guard and retries exactly once; a second 401
// surfaces as a session-expired error.
func (c *Client) authed(ctx context.Context, method, path string, body, out interface{}) error {
	token := c.guard.Token()

	status, err := c.do(ctx, method, path, token, body, out)
	if err != nil {
		return err
	}
	if status != http.StatusUnauthorized {
		return nil
	}

	token, err = c.guard.Renew(ctx, token)
	if err != nil {
		return err
	}

	status, err = c.do(ctx, method, path, token, body, out)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		return ErrSessionExpired
	}
	return nil
}

// refreshTokens is the guard's refresh operation.
func (c *Client) refreshTokens(ctx context.Context, refreshToken string) (string, string, error) {
	var pair models.TokenPairResponse
	err := c.postJSON(ctx, "/api/auth/refresh", models.RefreshRequest{RefreshToken: refreshToken}, &pair)
	if err != nil {
		return "", "", err
	}
	return pair.AccessToken, pair.RefreshToken, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	status, err := c.do(ctx, http.MethodPost, path, "", body, out)
	if err != nil {
		return err
	}
	if status >= 400 {
		return fmt.Errorf("request %s failed with status %d", path, status)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	status, err := c.do(ctx, http.MethodGet, path, "", nil, out)
	if err != nil {
		return err
	}
	if status >= 400 {
		return fmt.Errorf("request %s failed with status %d", path, status)
	}
	return nil
}

// do executes one HTTP round trip. Error statuses other than 401 are decoded
// into an APIError so callers see the server's message.
func (c *Client) do(ctx context.Context, method, path, token string, body, out interface{}) (int, error) {
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return 0, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return resp.StatusCode, nil
	}

	if resp.StatusCode >= 400 {
		var apiErr models.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return resp.StatusCode, &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

// APIError carries a non-401 error response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}
