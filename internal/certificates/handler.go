package certificates

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"trainhub/admin-portal/admin-portal-backend/internal/auth"
	"trainhub/admin-portal/admin-portal-backend/internal/programs"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Verify handles the public verification endpoint. Anyone holding a
// certificate number (or scanning its QR) may call it, no auth.
func (h *Handler) Verify(c *gin.Context) {
	result, err := h.service.Verify(c.Request.Context(),
		c.Param("number"), c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

// RenderInfo returns the certificate plus its template field map so the
// public site can draw a preview without the stored PDF.
func (h *Handler) RenderInfo(c *gin.Context) {
	cert, fields, err := h.service.RenderInfo(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"certificate": cert,
		"fields":      fields,
	}})
}

type generateRequest struct {
	EnrollmentID uuid.UUID `json:"enrollment_id" binding:"required"`
}

func (h *Handler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cert, created, err := h.service.Issue(c.Request.Context(), req.EnrollmentID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	// The idempotent short-circuit returns the existing certificate with 200.
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": cert})
}

func (h *Handler) Download(c *gin.Context) {
	pdf, filename, err := h.service.Download(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *Handler) Rerender(c *gin.Context) {
	cert, err := h.service.Render(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cert})
}

func (h *Handler) Revoke(c *gin.Context) {
	adminID, ok := auth.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing caller identity"})
		return
	}

	cert, err := h.service.Revoke(c.Request.Context(), c.Param("number"), adminID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": cert})
}

func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "certificate not found"})
	case errors.Is(err, programs.ErrEnrollmentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "enrollment not found"})
	case errors.Is(err, ErrNotEligible):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "class has not concluded"})
	case errors.Is(err, ErrSignatoryMissing):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "template has no signatory configured"})
	case errors.Is(err, ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "status transition not allowed"})
	default:
		// Render/storage failures are operational problems; the cause (with
		// its stage) goes to the server log, never into the public body.
		h.logger.Error("certificate request failed",
			zap.String("certificate_number", c.Param("number")),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
