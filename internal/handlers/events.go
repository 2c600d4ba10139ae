package handlers

import (
	"net/http"
	"strconv"

	"anjoman/internal/models"

	"github.com/gin-gonic/gin"
)

// ListEvents returns the event catalog.
// GET /api/events?status=&search=&limit=&offset=
func (h *Handlers) ListEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	events, err := h.services.Events.List(c.Request.Context(),
		c.Query("status"), c.Query("search"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// GetEvent returns a single event.
// GET /api/events/:id
func (h *Handlers) GetEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid event id"})
		return
	}

	event, err := h.services.Events.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, event)
}

// Register admits the caller into an event.
// POST /api/events/:id/register
func (h *Handlers) Register(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid event id"})
		return
	}

	// Body is optional; registration without a code is the common case.
	var req models.RegisterRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
			return
		}
	}

	reg, err := h.services.Registrations.Register(c.Request.Context(), eventID, currentUserID(c), req.DiscountCode)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := models.RegistrationResponse{
		ID:             reg.ID,
		EventID:        reg.EventID,
		Status:         reg.Status,
		DiscountAmount: reg.DiscountAmount,
		RegisteredAt:   reg.RegisteredAt,
	}
	if reg.TicketID != nil {
		resp.TicketID = *reg.TicketID
	}
	if reg.FinalPrice != nil {
		resp.FinalPrice = *reg.FinalPrice
	}

	c.JSON(http.StatusCreated, resp)
}

// CancelRegistration releases the caller's seat.
// DELETE /api/events/:id/register
func (h *Handlers) CancelRegistration(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid event id"})
		return
	}

	if err := h.services.Registrations.Cancel(c.Request.Context(), eventID, currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// IsRegistered reports whether the caller holds a confirmed seat.
// GET /api/events/:id/is-registered
func (h *Handlers) IsRegistered(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid event id"})
		return
	}

	registered, err := h.services.Registrations.IsRegistered(c.Request.Context(), eventID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.RegistrationStatusResponse{IsRegistered: registered})
}

// MyRegistrations lists the caller's registrations.
// GET /api/events/my-registrations
func (h *Handlers) MyRegistrations(c *gin.Context) {
	items, err := h.services.Registrations.MyRegistrations(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"registrations": items, "count": len(items)})
}

// VerifyTicket resolves one of the caller's tickets.
// GET /api/events/registrations/verify/:ticket_id
func (h *Handlers) VerifyTicket(c *gin.Context) {
	ticket, err := h.services.Tickets.Verify(c.Request.Context(), c.Param("ticket_id"), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ticket)
}
