package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rentflow/leasesign/internal/service"
	"github.com/rentflow/leasesign/pkg/logger"
	"github.com/rentflow/leasesign/pkg/response"
)

// handleServiceError maps workflow sentinel errors onto the response
// envelope. Token lookups deliberately collapse to NOT_FOUND so an attacker
// probing tokens learns nothing beyond existence.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrTokenNotFound):
		c.JSON(http.StatusNotFound, response.NotFound(""))
	case errors.Is(err, service.ErrTokenExpired):
		c.JSON(http.StatusGone, response.Error(response.ErrCodeTokenExpired, "This signing link has expired. Ask the sender for a new one."))
	case errors.Is(err, service.ErrAlreadySigned):
		c.JSON(http.StatusConflict, response.Error(response.ErrCodeAlreadySigned, "This document has already been signed by this party."))
	case errors.Is(err, service.ErrAlreadyCountersigned):
		c.JSON(http.StatusConflict, response.Error(response.ErrCodeAlreadyCountersigned, "This document has already been countersigned."))
	case errors.Is(err, service.ErrDocumentNotSignable):
		c.JSON(http.StatusUnprocessableEntity, response.Error(response.ErrCodeDocumentNotSignable, "This document is not accepting signatures."))
	case errors.Is(err, service.ErrInvalidLifecycleState):
		c.JSON(http.StatusUnprocessableEntity, response.Error(response.ErrCodeInvalidLifecycleState, "The requested operation is not valid in the document's current state."))
	default:
		logger.ErrorCtx(c.Request.Context(), "unhandled service error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, response.InternalError(""))
	}
}
