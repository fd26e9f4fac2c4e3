package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rentflow/leasesign/internal/dto"
	"github.com/rentflow/leasesign/internal/service"
	"github.com/rentflow/leasesign/pkg/middleware"
	"github.com/rentflow/leasesign/pkg/response"
)

// SigningHandler serves the public, token-authenticated signing surface.
// These endpoints carry no session; the opaque token is the whole identity.
type SigningHandler struct {
	signing *service.SigningService
}

// NewSigningHandler creates a SigningHandler
func NewSigningHandler(signing *service.SigningService) *SigningHandler {
	return &SigningHandler{signing: signing}
}

// ResolveToken handles GET /sign/:token
// It resolves a signing link to the document view the signer sees.
func (h *SigningHandler) ResolveToken(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusNotFound, response.NotFound(""))
		return
	}

	page, err := h.signing.ResolveSigningToken(c.Request.Context(), token, clientInfo(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(page))
}

// SubmitSignature handles POST /sign/:token
// It records the signature, consumes the token and, on the final tenant
// signature, reports the completed lifecycle transition.
func (h *SigningHandler) SubmitSignature(c *gin.Context) {
	token := c.Param("token")
	if token == "" {
		c.JSON(http.StatusNotFound, response.NotFound(""))
		return
	}

	var sub dto.SignatureSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	result, err := h.signing.SubmitSignature(c.Request.Context(), token, &sub, clientInfo(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(result))
}

// clientInfo extracts the request evidence recorded alongside a signature
func clientInfo(c *gin.Context) service.ClientInfo {
	return service.ClientInfo{
		IPAddress: middleware.ClientIP(c),
		UserAgent: c.Request.UserAgent(),
	}
}
