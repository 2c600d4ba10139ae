package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"anjoman/internal/models"
	"anjoman/internal/service"

	"github.com/gin-gonic/gin"
)

// CheckCoupon quotes a discount code without applying it.
// POST /api/payments/coupon/check
func (h *Handlers) CheckCoupon(c *gin.Context) {
	var req models.CouponCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	quote, err := h.services.Payments.CheckCoupon(c.Request.Context(), req.EventID, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, quote)
}

// CreatePayment opens a gateway session for the caller's pending registration.
// POST /api/payments/create
func (h *Handlers) CreatePayment(c *gin.Context) {
	var req models.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := h.services.Payments.Create(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// PaymentByRef returns the settlement snapshot for a reference.
// GET /api/payments/by-ref/:ref_id
func (h *Handlers) PaymentByRef(c *gin.Context) {
	detail, err := h.services.Payments.Detail(c.Request.Context(), c.Param("ref_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// PaymentCallback handles the gateway redirect after checkout. The gateway
// appends Authority and Status=OK|NOK; the handler verifies and forwards the
// user to the frontend result page.
// GET /api/payments/callback
func (h *Handlers) PaymentCallback(c *gin.Context) {
	authority := c.Query("Authority")
	if authority == "" {
		c.Redirect(http.StatusFound, h.resultURL("failed", ""))
		return
	}

	ok := c.Query("Status") == "OK"
	payment, err := h.services.Payments.HandleCallback(c.Request.Context(), authority, ok)
	if err != nil {
		c.Error(err)
		c.Redirect(http.StatusFound, h.resultURL("failed", ""))
		return
	}

	var refID string
	if payment.RefID != nil {
		refID = *payment.RefID
	}

	status := "failed"
	if payment.Status == models.PaymentStatusPaid {
		status = "success"
	}
	c.Redirect(http.StatusFound, h.resultURL(status, refID))
}

// PaymentNotification applies a gateway settlement webhook. Deliveries may
// repeat and arrive out of order with the redirect callback; both converge
// on the same settlement path.
// POST /api/payments/notifications
func (h *Handlers) PaymentNotification(c *gin.Context) {
	var payload models.PaymentNotificationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	status, ok := notificationStatus(payload.Status)
	if !ok {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("unknown settlement status %q", payload.Status)})
		return
	}

	payment, err := h.services.Payments.Settle(c.Request.Context(), service.SettleInput{
		RefID:     payload.RefID,
		Authority: payload.Authority,
		Status:    status,
		Amount:    payload.Amount,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment_id": payment.ID, "status": payment.Status})
}

func (h *Handlers) resultURL(status, refID string) string {
	q := url.Values{"status": {status}}
	if refID != "" {
		q.Set("ref_id", refID)
	}

	sep := "?"
	if strings.Contains(h.frontendCallbackURL, "?") {
		sep = "&"
	}
	return h.frontendCallbackURL + sep + q.Encode()
}

// notificationStatus maps the gateway's webhook vocabulary onto payment
// statuses.
func notificationStatus(reported string) (string, bool) {
	switch strings.ToUpper(reported) {
	case "PAID", "OK", "SUCCESS":
		return models.PaymentStatusPaid, true
	case "FAILED", "NOK":
		return models.PaymentStatusFailed, true
	case "CANCELED", "CANCELLED":
		return models.PaymentStatusCanceled, true
	}
	return "", false
}
