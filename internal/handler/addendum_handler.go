package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rentflow/leasesign/internal/domain"
	"github.com/rentflow/leasesign/internal/dto"
	"github.com/rentflow/leasesign/internal/service"
	"github.com/rentflow/leasesign/pkg/middleware"
	"github.com/rentflow/leasesign/pkg/response"
)

// AddendumHandler serves the authenticated addendum signing endpoints
type AddendumHandler struct {
	signing   *service.SigningService
	documents *service.DocumentService
}

// NewAddendumHandler creates an AddendumHandler
func NewAddendumHandler(signing *service.SigningService, documents *service.DocumentService) *AddendumHandler {
	return &AddendumHandler{signing: signing, documents: documents}
}

// Create handles POST /leases/:id/addendums
func (h *AddendumHandler) Create(c *gin.Context) {
	var req dto.CreateAddendumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}
	if req.Content == "" && req.UploadedFileURL == nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Either content or an uploaded file is required"))
		return
	}

	orgID, _ := middleware.GetOrgID(c)
	addendum, err := h.signing.CreateAddendum(c.Request.Context(), orgID, c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(addendum))
}

// Get handles GET /addendums/:id
func (h *AddendumHandler) Get(c *gin.Context) {
	addendum, err := h.signing.GetAddendum(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(addendum))
}

// Send handles POST /addendums/:id/send
func (h *AddendumHandler) Send(c *gin.Context) {
	actorID, _ := middleware.GetUserID(c)
	addendum, err := h.signing.SendAddendumForSignature(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(addendum))
}

// ResendLink handles POST /addendums/:id/resend
func (h *AddendumHandler) ResendLink(c *gin.Context) {
	var req dto.ResendLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	actorID, _ := middleware.GetUserID(c)
	if err := h.signing.ResendAddendumLink(c.Request.Context(), c.Param("id"), req.TenantID, actorID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(gin.H{"resent": true}))
}

// Sign handles POST /addendums/:id/sign
func (h *AddendumHandler) Sign(c *gin.Context) {
	var sub dto.SignatureSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	tenantID, _ := middleware.GetUserID(c)
	result, err := h.signing.SubmitAddendumSignatureAsTenant(c.Request.Context(), c.Param("id"), tenantID, &sub, clientInfo(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(result))
}

// Countersign handles POST /addendums/:id/countersign
func (h *AddendumHandler) Countersign(c *gin.Context) {
	var sub dto.SignatureSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	addendum, err := h.signing.CountersignAddendum(c.Request.Context(), c.Param("id"), landlordIdentity(c, sub.FullName), &sub, clientInfo(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(addendum))
}

// Void handles POST /addendums/:id/void
func (h *AddendumHandler) Void(c *gin.Context) {
	actorID, _ := middleware.GetUserID(c)
	if err := h.signing.VoidAddendum(c.Request.Context(), c.Param("id"), actorID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(gin.H{"status": domain.AddendumStatusVoid}))
}

// DownloadDocument handles GET /addendums/:id/document
func (h *AddendumHandler) DownloadDocument(c *gin.Context) {
	addendumID := c.Param("id")
	addendum, err := h.signing.GetAddendum(c.Request.Context(), addendumID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if addendum.DocumentHash == nil {
		c.JSON(http.StatusNotFound, response.NotFound("No document has been generated for this addendum"))
		return
	}

	content, err := h.documents.ReadArtifact(c.Request.Context(), domain.AuditEntityAddendum, addendumID, *addendum.DocumentHash)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	actorID, _ := middleware.GetUserID(c)
	h.signing.RecordDocumentDownload(c.Request.Context(), domain.AuditEntityAddendum, addendumID, addendum.OrgID, actorID, clientInfo(c))

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="addendum-%s.html"`, addendumID))
	c.Data(http.StatusOK, "text/html; charset=utf-8", content)
}

// DocumentHistory handles GET /addendums/:id/documents
func (h *AddendumHandler) DocumentHistory(c *gin.Context) {
	addendumID := c.Param("id")
	if _, err := h.signing.GetAddendum(c.Request.Context(), addendumID); err != nil {
		handleServiceError(c, err)
		return
	}

	artifacts, err := h.documents.History(c.Request.Context(), domain.AuditEntityAddendum, addendumID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(artifacts))
}
