package handlers

import (
	"net/http"

	"anjoman/internal/models"

	"github.com/gin-gonic/gin"
)

// Login exchanges credentials for a token pair.
// POST /api/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	pair, err := h.services.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Refresh rotates a refresh token into a new token pair.
// POST /api/auth/refresh
func (h *Handlers) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	pair, err := h.services.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Logout revokes every refresh token the caller holds.
// POST /api/auth/logout
func (h *Handlers) Logout(c *gin.Context) {
	if err := h.services.Auth.Logout(c.Request.Context(), currentUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
