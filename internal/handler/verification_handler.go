package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rentflow/leasesign/internal/service"
	"github.com/rentflow/leasesign/pkg/response"
)

// VerificationHandler serves signed-document verification reports
type VerificationHandler struct {
	verification *service.VerificationService
}

// NewVerificationHandler creates a VerificationHandler
func NewVerificationHandler(verification *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{verification: verification}
}

// VerifyLease handles GET /leases/:id/verification
func (h *VerificationHandler) VerifyLease(c *gin.Context) {
	report, err := h.verification.VerifyLease(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(report))
}

// VerifyAddendum handles GET /addendums/:id/verification
func (h *VerificationHandler) VerifyAddendum(c *gin.Context) {
	report, err := h.verification.VerifyAddendum(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(report))
}
