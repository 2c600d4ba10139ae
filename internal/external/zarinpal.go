// Package external holds clients for collaborating services. The payment
// gateway (Zarinpal) is the only one the core depends on.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "anjoman/internal/errors"
)

type ZarinpalConfig struct {
	BaseURL     string
	MerchantID  string
	CallbackURL string
	Timeout     time.Duration
}

// ZarinpalClient talks to the Zarinpal v4 payment API. Session creation
// returns an authority token; verification exchanges it for a ref_id.
type ZarinpalClient struct {
	baseURL     string
	merchantID  string
	callbackURL string
	httpClient  *http.Client
}

func NewZarinpalClient(cfg ZarinpalConfig) *ZarinpalClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &ZarinpalClient{
		baseURL:     cfg.BaseURL,
		merchantID:  cfg.MerchantID,
		callbackURL: cfg.CallbackURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type paymentRequestBody struct {
	MerchantID  string            `json:"merchant_id"`
	Amount      int64             `json:"amount"`
	CallbackURL string            `json:"callback_url"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type paymentRequestResponse struct {
	Data struct {
		Code      int    `json:"code"`
		Authority string `json:"authority"`
	} `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

type paymentVerifyBody struct {
	MerchantID string `json:"merchant_id"`
	Amount     int64  `json:"amount"`
	Authority  string `json:"authority"`
}

type paymentVerifyResponse struct {
	Data struct {
		Code  int    `json:"code"`
		RefID int64  `json:"ref_id"`
		Card  string `json:"card_pan"`
	} `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

// PaymentSession is the result of opening a gateway session.
type PaymentSession struct {
	Authority   string
	StartPayURL string
}

// VerifyResult is the gateway's settlement confirmation.
type VerifyResult struct {
	RefID            string
	AlreadyConfirmed bool
}

// RequestPayment opens a payment session for the given amount. A non-100
// gateway code is a session failure; the caller keeps the registration
// pending so the user can retry.
func (zc *ZarinpalClient) RequestPayment(ctx context.Context, amount int64, description string, metadata map[string]string) (*PaymentSession, error) {
	body := paymentRequestBody{
		MerchantID:  zc.merchantID,
		Amount:      amount,
		CallbackURL: zc.callbackURL,
		Description: description,
		Metadata:    metadata,
	}

	var result paymentRequestResponse
	if err := zc.post(ctx, "/pg/v4/payment/request.json", body, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrGatewaySession, err)
	}

	if result.Data.Code != 100 {
		return nil, fmt.Errorf("%w: gateway code %d: %s",
			apperrors.ErrGatewaySession, result.Data.Code, string(result.Errors))
	}

	return &PaymentSession{
		Authority:   result.Data.Authority,
		StartPayURL: zc.baseURL + "/pg/StartPay/" + result.Data.Authority,
	}, nil
}

// VerifyPayment confirms a settled session. Code 100 is a fresh
// confirmation; 101 means the gateway already verified this authority,
// which the settlement path treats identically.
func (zc *ZarinpalClient) VerifyPayment(ctx context.Context, authority string, amount int64) (*VerifyResult, error) {
	body := paymentVerifyBody{
		MerchantID: zc.merchantID,
		Amount:     amount,
		Authority:  authority,
	}

	var result paymentVerifyResponse
	if err := zc.post(ctx, "/pg/v4/payment/verify.json", body, &result); err != nil {
		return nil, fmt.Errorf("failed to verify payment: %w", err)
	}

	switch result.Data.Code {
	case 100, 101:
		return &VerifyResult{
			RefID:            fmt.Sprintf("%d", result.Data.RefID),
			AlreadyConfirmed: result.Data.Code == 101,
		}, nil
	default:
		return nil, fmt.Errorf("gateway rejected verification with code %d: %s",
			result.Data.Code, string(result.Errors))
	}
}

func (zc *ZarinpalClient) post(ctx context.Context, path string, body, out interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, zc.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := zc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
