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

// LeaseHandler serves the authenticated lease signing endpoints
type LeaseHandler struct {
	signing   *service.SigningService
	documents *service.DocumentService
}

// NewLeaseHandler creates a LeaseHandler
func NewLeaseHandler(signing *service.SigningService, documents *service.DocumentService) *LeaseHandler {
	return &LeaseHandler{signing: signing, documents: documents}
}

// Create handles POST /leases
func (h *LeaseHandler) Create(c *gin.Context) {
	var req dto.CreateLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	orgID, _ := middleware.GetOrgID(c)
	lease, err := h.signing.CreateLease(c.Request.Context(), orgID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(lease))
}

// Get handles GET /leases/:id
func (h *LeaseHandler) Get(c *gin.Context) {
	lease, err := h.signing.GetLease(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(lease))
}

// Send handles POST /leases/:id/send
func (h *LeaseHandler) Send(c *gin.Context) {
	actorID, _ := middleware.GetUserID(c)
	lease, err := h.signing.SendLeaseForSignature(c.Request.Context(), c.Param("id"), actorID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(lease))
}

// ResendLink handles POST /leases/:id/resend
func (h *LeaseHandler) ResendLink(c *gin.Context) {
	var req dto.ResendLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	actorID, _ := middleware.GetUserID(c)
	if err := h.signing.ResendLeaseLink(c.Request.Context(), c.Param("id"), req.TenantID, actorID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(gin.H{"resent": true}))
}

// Sign handles POST /leases/:id/sign
// The in-portal signing path for an authenticated tenant session.
func (h *LeaseHandler) Sign(c *gin.Context) {
	var sub dto.SignatureSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	tenantID, _ := middleware.GetUserID(c)
	result, err := h.signing.SubmitLeaseSignatureAsTenant(c.Request.Context(), c.Param("id"), tenantID, &sub, clientInfo(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(result))
}

// Countersign handles POST /leases/:id/countersign
func (h *LeaseHandler) Countersign(c *gin.Context) {
	var sub dto.SignatureSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
		return
	}

	lease, err := h.signing.CountersignLease(c.Request.Context(), c.Param("id"), landlordIdentity(c, sub.FullName), &sub, clientInfo(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(lease))
}

// Terminate handles POST /leases/:id/terminate
func (h *LeaseHandler) Terminate(c *gin.Context) {
	actorID, _ := middleware.GetUserID(c)
	if err := h.signing.TerminateLease(c.Request.Context(), c.Param("id"), actorID); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(gin.H{"status": domain.LeaseStatusTerminated}))
}

// Delete handles DELETE /leases/:id
func (h *LeaseHandler) Delete(c *gin.Context) {
	if err := h.signing.DeleteDraftLease(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(gin.H{"deleted": true}))
}

// DownloadDocument handles GET /leases/:id/document
// Serves the latest rendered artifact and records the download.
func (h *LeaseHandler) DownloadDocument(c *gin.Context) {
	leaseID := c.Param("id")
	lease, err := h.signing.GetLease(c.Request.Context(), leaseID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if lease.DocumentHash == nil {
		c.JSON(http.StatusNotFound, response.NotFound("No document has been generated for this lease"))
		return
	}

	content, err := h.documents.ReadArtifact(c.Request.Context(), domain.AuditEntityLease, leaseID, *lease.DocumentHash)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	actorID, _ := middleware.GetUserID(c)
	h.signing.RecordDocumentDownload(c.Request.Context(), domain.AuditEntityLease, leaseID, lease.OrgID, actorID, clientInfo(c))

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="lease-%s.html"`, leaseID))
	c.Data(http.StatusOK, "text/html; charset=utf-8", content)
}

// DocumentHistory handles GET /leases/:id/documents
// Returns the append-only artifact log, newest first.
func (h *LeaseHandler) DocumentHistory(c *gin.Context) {
	leaseID := c.Param("id")
	if _, err := h.signing.GetLease(c.Request.Context(), leaseID); err != nil {
		handleServiceError(c, err)
		return
	}

	artifacts, err := h.documents.History(c.Request.Context(), domain.AuditEntityLease, leaseID)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(artifacts))
}

// landlordIdentity builds the countersigner identity. The user id and email
// come from the session claims, not the request body; only the display name
// is taken from the submission.
func landlordIdentity(c *gin.Context, fullName string) service.LandlordIdentity {
	userID, _ := middleware.GetUserID(c)
	email, _ := middleware.GetEmail(c)
	return service.LandlordIdentity{
		UserID:   userID,
		FullName: fullName,
		Email:    email,
	}
}
