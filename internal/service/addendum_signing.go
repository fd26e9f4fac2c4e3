package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rentflow/leasesign/internal/domain"
	"github.com/rentflow/leasesign/internal/dto"
	"github.com/rentflow/leasesign/internal/notify"
	"github.com/rentflow/leasesign/internal/repository"
	"github.com/rentflow/leasesign/pkg/logger"
)

// CreateAddendum creates a draft addendum on an active lease with one
// signature slot per lease tenant
func (s *SigningService) CreateAddendum(ctx context.Context, orgID, leaseID string, req *dto.CreateAddendumRequest) (*domain.LeaseAddendum, error) {
	lease, err := s.GetLease(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if lease.Status != domain.LeaseStatusActive {
		return nil, ErrInvalidLifecycleState
	}

	now := time.Now()
	addendum := &domain.LeaseAddendum{
		ID:              uuid.New().String(),
		OrgID:           orgID,
		LeaseID:         leaseID,
		Status:          domain.AddendumStatusDraft,
		Title:           req.Title,
		Content:         req.Content,
		UploadedFileURL: req.UploadedFileURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.addendums.Create(ctx, addendum); err != nil {
		return nil, fmt.Errorf("failed to create addendum: %w", err)
	}

	slots := make([]*domain.AddendumSignature, 0, len(lease.Tenants))
	for _, t := range lease.Tenants {
		slots = append(slots, &domain.AddendumSignature{
			ID:         uuid.New().String(),
			AddendumID: addendum.ID,
			TenantID:   t.TenantID,
		})
	}
	if err := s.addendums.CreateSlots(ctx, slots); err != nil {
		return nil, fmt.Errorf("failed to create addendum slots: %w", err)
	}

	return s.GetAddendum(ctx, addendum.ID)
}

// GetAddendum retrieves an addendum with its signature slots
func (s *SigningService) GetAddendum(ctx context.Context, addendumID string) (*domain.LeaseAddendum, error) {
	addendum, err := s.addendums.GetByID(ctx, addendumID)
	if err != nil {
		return nil, err
	}
	if addendum == nil {
		return nil, ErrNotFound
	}
	return addendum, nil
}

// SendAddendumForSignature transitions a draft addendum to pending_signature,
// renders its document, issues tokens and dispatches signing links
func (s *SigningService) SendAddendumForSignature(ctx context.Context, addendumID, actorID string) (*domain.LeaseAddendum, error) {
	addendum, err := s.GetAddendum(ctx, addendumID)
	if err != nil {
		return nil, err
	}
	if !addendum.CanSend() || len(addendum.Signatures) == 0 {
		return nil, ErrInvalidLifecycleState
	}

	if _, _, err := s.documents.RegenerateAddendum(ctx, addendum); err != nil {
		return nil, err
	}

	for _, slot := range addendum.Signatures {
		token, expiresAt, err := s.tokens.Issue()
		if err != nil {
			return nil, err
		}
		if err := s.addendums.SetSlotToken(ctx, slot.ID, token, expiresAt); err != nil {
			return nil, err
		}
		s.dispatchSigningLink(ctx, slot.TenantName, slot.TenantEmail, "addendum", addendum.ID, token)
	}

	if err := s.addendums.UpdateStatus(ctx, addendum.ID, domain.AddendumStatusPendingSignature); err != nil {
		return nil, err
	}

	s.recorder.Record(&domain.AuditLogEntry{
		OrgID:      addendum.OrgID,
		ActorID:    actorID,
		Action:     domain.AuditActionAddendumSent,
		EntityType: domain.AuditEntityAddendum,
		EntityID:   addendum.ID,
		Changes:    map[string]interface{}{"signer_count": len(addendum.Signatures)},
	})

	return s.GetAddendum(ctx, addendumID)
}

// ResendAddendumLink re-issues one signer's token on a pending addendum
func (s *SigningService) ResendAddendumLink(ctx context.Context, addendumID, tenantID, actorID string) error {
	addendum, err := s.GetAddendum(ctx, addendumID)
	if err != nil {
		return err
	}
	if !addendum.IsSignable() {
		return ErrInvalidLifecycleState
	}

	var slot *domain.AddendumSignature
	for _, sig := range addendum.Signatures {
		if sig.TenantID == tenantID {
			slot = sig
			break
		}
	}
	if slot == nil {
		return ErrNotFound
	}
	if slot.HasSigned() {
		return ErrAlreadySigned
	}

	token, expiresAt, err := s.tokens.Issue()
	if err != nil {
		return err
	}
	if err := s.addendums.SetSlotToken(ctx, slot.ID, token, expiresAt); err != nil {
		return err
	}
	s.dispatchSigningLink(ctx, slot.TenantName, slot.TenantEmail, "addendum", addendum.ID, token)

	s.recorder.Record(&domain.AuditLogEntry{
		OrgID:      addendum.OrgID,
		ActorID:    actorID,
		Action:     domain.AuditActionSigningLinkResent,
		EntityType: domain.AuditEntityAddendum,
		EntityID:   addendum.ID,
		Changes:    map[string]interface{}{"tenant_id": tenantID},
	})

	return nil
}

func (s *SigningService) resolveAddendumToken(ctx context.Context, slot *domain.AddendumSignature, client ClientInfo) (*dto.SigningPageResponse, error) {
	if err := validateAddendumSlot(slot, true); err != nil {
		return nil, err
	}

	addendum, err := s.GetAddendum(ctx, slot.AddendumID)
	if err != nil {
		return nil, err
	}
	if !addendum.IsSignable() {
		return nil, ErrDocumentNotSignable
	}

	s.recorder.Record(&domain.AuditLogEntry{
		OrgID:      addendum.OrgID,
		ActorID:    slot.TenantID,
		Action:     domain.AuditActionSigningLinkOpened,
		EntityType: domain.AuditEntityAddendum,
		EntityID:   addendum.ID,
		IPAddress:  client.IPAddress,
	})

	return &dto.SigningPageResponse{
		DocumentKind:        "addendum",
		DocumentID:          addendum.ID,
		DocumentURL:         stringOrEmpty(addendum.DocumentURL),
		DocumentHash:        stringOrEmpty(addendum.DocumentHash),
		SignerName:          slot.TenantName,
		SignerEmail:         slot.TenantEmail,
		Status:              addendum.Status,
		RemainingSignatures: addendum.RemainingSignatures(),
		TokenExpiresAt:      slot.TokenExpiresAt,
	}, nil
}

// SubmitAddendumSignatureAsTenant submits a signature from an authenticated
// tenant portal session
func (s *SigningService) SubmitAddendumSignatureAsTenant(ctx context.Context, addendumID, tenantID string, sub *dto.SignatureSubmission, client ClientInfo) (*dto.SubmitSignatureResponse, error) {
	return s.submitAddendumSignature(ctx, addendumSlotLocator{addendumID: addendumID, tenantID: tenantID}, sub, client)
}

type addendumSlotLocator struct {
	token      string
	addendumID string
	tenantID   string
}

func (l addendumSlotLocator) viaToken() bool { return l.token != "" }

func (s *SigningService) submitAddendumSignature(ctx context.Context, loc addendumSlotLocator, sub *dto.SignatureSubmission, client ClientInfo) (*dto.SubmitSignatureResponse, error) {
	location := s.geo.Resolve(ctx, client.IPAddress)

	tx, err := s.db.BeginTx(ctx, serializableTx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var slot *domain.AddendumSignature
	if loc.viaToken() {
		slot, err = s.addendums.LockSlotByTokenTx(ctx, tx, loc.token)
	} else {
		slot, err = s.addendums.LockSlotByTenantTx(ctx, tx, loc.addendumID, loc.tenantID)
	}
	if err != nil {
		return nil, err
	}
	if slot == nil {
		if loc.viaToken() {
			return nil, ErrTokenNotFound
		}
		return nil, ErrNotFound
	}
	if err := validateAddendumSlot(slot, loc.viaToken()); err != nil {
		return nil, err
	}

	addendum, err := s.addendums.LockAddendumTx(ctx, tx, slot.AddendumID)
	if err != nil {
		return nil, err
	}
	if addendum == nil {
		return nil, ErrNotFound
	}
	if !addendum.IsSignable() {
		return nil, ErrDocumentNotSignable
	}

	signedAt := time.Now()
	data := buildSignatureData(sub, client, location, stringOrEmpty(addendum.DocumentHash), signedAt)
	data.Fingerprint = domain.ComputeFingerprint(slot.TenantID, sub.FullName, sub.Email, data.DocumentHash, signedAt)
	if loc.viaToken() {
		data.Token = loc.token
		data.TokenExpiresAt = slot.TokenExpiresAt
	}

	if err := s.addendums.WriteSlotSignatureTx(ctx, tx, slot.ID, signedAt, data); err != nil {
		return nil, err
	}

	remaining, err := s.addendums.CountUnsignedTx(ctx, tx, addendum.ID)
	if err != nil {
		return nil, err
	}

	completed := remaining == 0
	if completed {
		// The addendum cascade stops at its own status; units and tenants
		// only move on lease completion
		if err := s.addendums.MarkSignedTx(ctx, tx, addendum.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.recorder.Record(&domain.AuditLogEntry{
		OrgID:      addendum.OrgID,
		ActorID:    slot.TenantID,
		Action:     domain.AuditActionSignatureSubmitted,
		EntityType: domain.AuditEntityAddendum,
		EntityID:   addendum.ID,
		IPAddress:  client.IPAddress,
		Changes: map[string]interface{}{
			"email":       sub.Email,
			"full_name":   sub.FullName,
			"fingerprint": data.Fingerprint,
		},
	})

	s.confirmSignature(ctx, "addendum", addendum.ID, data)

	status := addendum.Status
	var documentURL string
	if completed {
		status = domain.AddendumStatusSigned
		s.recorder.Record(&domain.AuditLogEntry{
			OrgID:      addendum.OrgID,
			ActorID:    domain.SystemActor,
			Action:     domain.AuditActionAllPartiesSigned,
			EntityType: domain.AuditEntityAddendum,
			EntityID:   addendum.ID,
		})
	}

	if fresh, err := s.addendums.GetByID(ctx, addendum.ID); err == nil && fresh != nil {
		if url, _, err := s.documents.RegenerateAddendum(ctx, fresh); err == nil {
			documentURL = url
		} else {
			logger.ErrorCtx(ctx, "post-signature regeneration failed",
				zap.String("addendum_id", addendum.ID), zap.Error(err))
		}
		if completed {
			s.notifyAddendumCompletion(ctx, fresh, documentURL)
		}
	}

	return &dto.SubmitSignatureResponse{
		Completed:           completed,
		Status:              status,
		RemainingSignatures: remaining,
		DocumentURL:         documentURL,
		FingerprintID:       domain.FingerprintDisplayID(data.Fingerprint),
		SignedAt:            signedAt,
	}, nil
}

// CountersignAddendum writes the landlord countersignature on a signed
// addendum. The addendum status does not change.
func (s *SigningService) CountersignAddendum(ctx context.Context, addendumID string, landlord LandlordIdentity, sub *dto.SignatureSubmission, client ClientInfo) (*domain.LeaseAddendum, error) {
	addendum, err := s.GetAddendum(ctx, addendumID)
	if err != nil {
		return nil, err
	}
	if addendum.LandlordSignedAt != nil {
		return nil, ErrAlreadyCountersigned
	}
	if !addendum.CanCountersign() {
		return nil, ErrInvalidLifecycleState
	}

	location := s.geo.Resolve(ctx, client.IPAddress)
	signedAt := time.Now()
	data := buildSignatureData(sub, client, location, stringOrEmpty(addendum.DocumentHash), signedAt)
	data.FullName = landlord.FullName
	data.Email = landlord.Email
	data.Fingerprint = domain.ComputeFingerprint(landlord.UserID, landlord.FullName, landlord.Email, data.DocumentHash, signedAt)

	if err := s.addendums.SetLandlordSignature(ctx, addendumID, signedAt, data); err != nil {
		if errors.Is(err, repository.ErrAlreadyCountersigned) {
			return nil, ErrAlreadyCountersigned
		}
		return nil, err
	}

	s.recorder.Record(&domain.AuditLogEntry{
		OrgID:      addendum.OrgID,
		ActorID:    landlord.UserID,
		Action:     domain.AuditActionLandlordCountersigned,
		EntityType: domain.AuditEntityAddendum,
		EntityID:   addendum.ID,
		IPAddress:  client.IPAddress,
	})

	fresh, err := s.GetAddendum(ctx, addendumID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.documents.RegenerateAddendum(ctx, fresh); err != nil {
		logger.ErrorCtx(ctx, "post-countersignature regeneration failed",
			zap.String("addendum_id", addendumID), zap.Error(err))
	}

	return s.GetAddendum(ctx, addendumID)
}

// VoidAddendum moves a pending addendum to void. The status change kills
// every outstanding token at once, because token validation re-checks the
// addendum state. Signatures already captured stay on record.
func (s *SigningService) VoidAddendum(ctx context.Context, addendumID, actorID string) error {
	tx, err := s.db.BeginTx(ctx, serializableTx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	addendum, err := s.addendums.LockAddendumTx(ctx, tx, addendumID)
	if err != nil {
		return err
	}
	if addendum == nil {
		return ErrNotFound
	}
	if !addendum.CanVoid() {
		return ErrInvalidLifecycleState
	}

	if err := s.addendums.VoidTx(ctx, tx, addendumID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.recorder.Record(&domain.AuditLogEntry{
		OrgID:      addendum.OrgID,
		ActorID:    actorID,
		Action:     domain.AuditActionAddendumVoided,
		EntityType: domain.AuditEntityAddendum,
		EntityID:   addendumID,
	})

	return nil
}

func validateAddendumSlot(slot *domain.AddendumSignature, viaToken bool) error {
	if viaToken && slot.TokenExpiresAt != nil && time.Now().After(*slot.TokenExpiresAt) {
		return ErrTokenExpired
	}
	if slot.HasSigned() {
		return ErrAlreadySigned
	}
	return nil
}

func (s *SigningService) notifyAddendumCompletion(ctx context.Context, addendum *domain.LeaseAddendum, documentURL string) {
	for _, slot := range addendum.Signatures {
		notice := &notify.CompletionNotice{
			DocumentKind:   "addendum",
			DocumentID:     addendum.ID,
			DocumentURL:    documentURL,
			RecipientEmail: slot.TenantEmail,
		}
		if err := s.notifier.SendCompletionNotice(ctx, notice); err != nil {
			logger.WarnCtx(ctx, "failed to dispatch completion notice",
				zap.String("recipient", slot.TenantEmail), zap.Error(err))
		}
	}
}
