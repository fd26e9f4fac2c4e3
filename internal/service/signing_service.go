package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/rentflow/leasesign/internal/audit"
	"github.com/rentflow/leasesign/internal/domain"
	"github.com/rentflow/leasesign/internal/dto"
	"github.com/rentflow/leasesign/internal/geo"
	"github.com/rentflow/leasesign/internal/notify"
	"github.com/rentflow/leasesign/internal/repository"
	"github.com/rentflow/leasesign/pkg/logger"
)

// TxBeginner starts database transactions. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// ClientInfo carries request-derived evidence the handler extracts
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// LandlordIdentity identifies the countersigning staff user from the session
type LandlordIdentity struct {
	UserID   string
	FullName string
	Email    string
}

// SigningService owns the signing state machine for leases and addendums.
// Every signature submission runs as one serializable transaction covering
// the precondition checks, the signature write and, when it is the final
// tenant signature, the completion cascade. Audit writes, notifications and
// document regeneration happen after commit.
type SigningService struct {
	db        TxBeginner
	leases    repository.LeaseRepository
	addendums repository.AddendumRepository
	documents *DocumentService
	tokens    *TokenIssuer
	recorder  *audit.Recorder
	notifier  notify.Notifier
	geo       geo.Resolver
	baseURL   string
}

// NewSigningService creates a SigningService
func NewSigningService(
	db TxBeginner,
	leases repository.LeaseRepository,
	addendums repository.AddendumRepository,
	documents *DocumentService,
	tokens *TokenIssuer,
	recorder *audit.Recorder,
	notifier notify.Notifier,
	geoResolver geo.Resolver,
	baseURL string,
) *SigningService {
	return &SigningService{
		db:        db,
		leases:    leases,
		addendums: addendums,
		documents: documents,
		tokens:    tokens,
		recorder:  recorder,
		notifier:  notifier,
		geo:       geoResolver,
		baseURL:   baseURL,
	}
}

var serializableTx = pgx.TxOptions{IsoLevel: pgx.Serializable}

// CreateLease creates a draft lease with one signing slot per tenant
func (s *SigningService) CreateLease(ctx context.Context, orgID string, req *dto.CreateLeaseRequest) (*domain.Lease, error) {
	now := time.Now()
	lease := &domain.Lease{
		ID:          uuid.New().String(),
		OrgID:       orgID,
		UnitID:      req.UnitID,
		Status:      domain.LeaseStatusDraft,
		Terms:       req.Terms,
		MonthlyRent: req.MonthlyRent,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	primary := req.PrimaryTenantID
	if primary == "" {
		primary = req.TenantIDs[0]
	}
	for _, tenantID := range req.TenantIDs {
		lease.Tenants = append(lease.Tenants, &domain.LeaseTenant{
			ID:        uuid.New().String(),
			LeaseID:   lease.ID,
			TenantID:  tenantID,
			IsPrimary: tenantID == primary,
		})
	}

	if err := s.leases.Create(ctx, lease); err != nil {
		return nil, fmt.Errorf("failed to create lease: %w", err)
	}

	return s.leases.GetByID(ctx, lease.ID)
}

// GetLease retrieves a lease with its signing slots
func (s *SigningService) GetLease(ctx context.Context, leaseID string) (*domain.Lease, error) {
	lease, err := s.leases.GetByID(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if lease == nil {
		return nil, ErrNotFound
	}
	return lease, nil
}

// SendLeaseForSignature transitions a draft lease to pending_signature,
// renders the document the tenants will see, issues one signing token per
// tenant and dispatches the signing links.
func (s *SigningService) SendLeaseForSignature(ctx context.Context, leaseID, actorID string) (*domain.Lease, error) {
	lease, err := s.GetLease(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if !lease.CanSend() || len(lease.Tenants) == 0 {
		return nil, ErrInvalidLifecycleState
	}

	if _, _, err := s.documents.RegenerateLease(ctx, lease); err != nil {
		return nil, err
	}

	for _, slot := range lease.Tenants {
		token, expiresAt, err := s.tokens.Issue()
		if err != nil {
			return nil, err
		}
		if err := s.leases.SetSlotToken(ctx, slot.ID, token, expiresAt); err != nil {
			return nil, err
		}
		s.dispatchSigningLink(ctx, slot.TenantName, slot.TenantEmail, "lease", lease.ID, token)
	}

	if err := s.leases.UpdateStatus(ctx, lease.ID, domain.LeaseStatusPendingSignature); err != nil {
		return nil, err
	}

	s.recorder.Record(&domain.AuditLogEntry{
		OrgID:      lease.OrgID,
		ActorID:    actorID,
		Action:     domain.AuditActionLeaseSent,
		EntityType: domain.AuditEntityLease,
		EntityID:   lease.ID,
		Changes:    map[string]interface{}{"signer_count": len(lease.Tenants)},
	})

	return s.GetLease(ctx, leaseID)
}

// ResendLeaseLink re-issues one tenant's signing token. The previous token
// is overwritten and therefore dead immediately.
func (s *SigningService) ResendLeaseLink(ctx context.Context, leaseID, tenantID, actorID string) error {
	lease, err := s.GetLease(ctx, leaseID)
	if err != nil {
		return err
	}
	if !lease.IsSignable() {
		return ErrInvalidLifecycleState
	}

	var slot *domain.LeaseTenant
	for _, t := range lease.Tenants {
		if t.TenantID == tenantID {
			slot = t
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
	if err := s.leases.SetSlotToken(ctx, slot.ID, token, expiresAt); err != nil {
		return err
	}
	s.dispatchSigningLink(ctx, slot.TenantName, slot.TenantEmail, "lease", lease.ID, token)

	s.recorder.Record(&domain.AuditLogEntry{
		OrgID:      lease.OrgID,
		ActorID:    actorID,
		Action:     domain.AuditActionSigningLinkResent,
		EntityType: domain.AuditEntityLease,
		EntityID:   lease.ID,
		Changes:    map[string]interface{}{"tenant_id": tenantID},
	})

	return nil
}

// ResolveSigningToken resolves a token to its signing page view. Resolution
// is read-only apart from the audit record of the link being opened; leases
// are tried first, then addendums.
func (s *SigningService) ResolveSigningToken(ctx context.Context, token string, client ClientInfo) (*dto.SigningPageResponse, error) {
	slot, err := s.leases.FindSlotByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if slot != nil {
		return s.resolveLeaseToken(ctx, slot, client)
	}

	addendumSlot, err := s.addendums.FindSlotByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if addendumSlot != nil {
		return s.resolveAddendumToken(ctx, addendumSlot, client)
	}

	return nil, ErrTokenNotFound
}

func (s *SigningService) resolveLeaseToken(ctx context.Context, slot *domain.LeaseTenant, client ClientInfo) (*dto.SigningPageResponse, error) {
	if err := validateLeaseSlot(slot, true); err != nil {
		return nil, err
	}

	lease, err := s.GetLease(ctx, slot.LeaseID)
	if err != nil {
		return nil, err
	}
	if !lease.IsSignable() {
		return nil, ErrDocumentNotSignable
	}

	s.recorder.Record(&domain.AuditLogEntry{
		OrgID:      lease.OrgID,
		ActorID:    slot.TenantID,
		Action:     domain.AuditActionSigningLinkOpened,
		EntityType: domain.AuditEntityLease,
		EntityID:   lease.ID,
		IPAddress:  client.IPAddress,
	})

	return &dto.SigningPageResponse{
		DocumentKind:        "lease",
		DocumentID:          lease.ID,
		DocumentURL:         stringOrEmpty(lease.DocumentURL),
		DocumentHash:        stringOrEmpty(lease.DocumentHash),
		SignerName:          slot.TenantName,
		SignerEmail:         slot.TenantEmail,
		Status:              lease.Status,
		RemainingSignatures: lease.RemainingSignatures(),
		TokenExpiresAt:      slot.TokenExpiresAt,
	}, nil
}

// SubmitSignature submits a token-authenticated signature. The token routes
// to either a lease or an addendum slot.
func (s *SigningService) SubmitSignature(ctx context.Context, token string, sub *dto.SignatureSubmission, client ClientInfo) (*dto.SubmitSignatureResponse, error) {
	slot, err := s.leases.FindSlotByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if slot != nil {
		return s.submitLeaseSignature(ctx, leaseSlotLocator{token: token}, sub, client)
	}

	addendumSlot, err := s.addendums.FindSlotByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if addendumSlot != nil {
		return s.submitAddendumSignature(ctx, addendumSlotLocator{token: token}, sub, client)
	}

	return nil, ErrTokenNotFound
}

// SubmitLeaseSignatureAsTenant submits a signature from an authenticated
// tenant portal session. No token is involved and no expiry applies; the
// session proves identity instead.
func (s *SigningService) SubmitLeaseSignatureAsTenant(ctx context.Context, leaseID, tenantID string, sub *dto.SignatureSubmission, client ClientInfo) (*dto.SubmitSignatureResponse, error) {
	return s.submitLeaseSignature(ctx, leaseSlotLocator{leaseID: leaseID, tenantID: tenantID}, sub, client)
}

// leaseSlotLocator identifies the slot being signed, either by opaque token
// or by (lease, tenant) from an authenticated session
type leaseSlotLocator struct {
	token    string
	leaseID  string
	tenantID string
}

func (l leaseSlotLocator) viaToken() bool { return l.token != "" }

func (s *SigningService) submitLeaseSignature(ctx context.Context, loc leaseSlotLocator, sub *dto.SignatureSubmission, client ClientInfo) (*dto.SubmitSignatureResponse, error) {
	// Resolve coarse location outside the transaction; it is slow, untrusted
	// evidence and must not hold row locks
	location := s.geo.Resolve(ctx, client.IPAddress)

	tx, err := s.db.BeginTx(ctx, serializableTx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var slot *domain.LeaseTenant
	if loc.viaToken() {
		slot, err = s.leases.LockSlotByTokenTx(ctx, tx, loc.token)
	} else {
		slot, err = s.leases.LockSlotByTenantTx(ctx, tx, loc.leaseID, loc.tenantID)
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
	if err := validateLeaseSlot(slot, loc.viaToken()); err != nil {
		return nil, err
	}

	lease, err := s.leases.LockLeaseTx(ctx, tx, slot.LeaseID)
	if err != nil {
		return nil, err
	}
	if lease == nil {
		return nil, ErrNotFound
	}
	if !lease.IsSignable() {
		return nil, ErrDocumentNotSignable
	}

	signedAt := time.Now()
	data := buildSignatureData(sub, client, location, stringOrEmpty(lease.DocumentHash), signedAt)
	data.Fingerprint = domain.ComputeFingerprint(slot.TenantID, sub.FullName, sub.Email, data.DocumentHash, signedAt)
	if loc.viaToken() {
		data.Token = loc.token
		data.TokenExpiresAt = slot.TokenExpiresAt
	}

	if err := s.leases.WriteSlotSignatureTx(ctx, tx, slot.ID, signedAt, data); err != nil {
		return nil, err
	}

	remaining, err := s.leases.CountUnsignedTx(ctx, tx, lease.ID)
	if err != nil {
		return nil, err
	}

	completed := remaining == 0
	if completed {
		// Completion cascade: the lease, its unit and its tenants all move
		// in the same transaction as the final signature
		if err := s.leases.ActivateLeaseTx(ctx, tx, lease.ID); err != nil {
			return nil, err
		}
		if err := s.leases.OccupyUnitTx(ctx, tx, lease.UnitID); err != nil {
			return nil, err
		}
		if err := s.leases.ActivateLeaseTenantsTx(ctx, tx, lease.ID, lease.UnitID, lease.StartDate); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.recorder.Record(&domain.AuditLogEntry{
		OrgID:      lease.OrgID,
		ActorID:    slot.TenantID,
		Action:     domain.AuditActionSignatureSubmitted,
		EntityType: domain.AuditEntityLease,
		EntityID:   lease.ID,
		IPAddress:  client.IPAddress,
		Changes: map[string]interface{}{
			"email":       sub.Email,
			"full_name":   sub.FullName,
			"fingerprint": data.Fingerprint,
		},
	})

	s.confirmSignature(ctx, "lease", lease.ID, data)

	status := lease.Status
	var documentURL string
	if completed {
		status = domain.LeaseStatusActive
		s.recorder.Record(&domain.AuditLogEntry{
			OrgID:      lease.OrgID,
			ActorID:    domain.SystemActor,
			Action:     domain.AuditActionAllPartiesSigned,
			EntityType: domain.AuditEntityLease,
			EntityID:   lease.ID,
		})
	}

	// Regenerate so the stored document reflects the new signature. A render
	// failure here is logged, not surfaced; the signature is already durable.
	if fresh, err := s.leases.GetByID(ctx, lease.ID); err == nil && fresh != nil {
		if url, _, err := s.documents.RegenerateLease(ctx, fresh); err == nil {
			documentURL = url
		} else {
			logger.ErrorCtx(ctx, "post-signature regeneration failed",
				zap.String("lease_id", lease.ID), zap.Error(err))
		}
		if completed {
			s.notifyLeaseCompletion(ctx, fresh, documentURL)
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

// CountersignLease writes the landlord countersignature on an active lease.
// The lease status does not change; countersigning completes the document,
// not the lifecycle.
func (s *SigningService) CountersignLease(ctx context.Context, leaseID string, landlord LandlordIdentity, sub *dto.SignatureSubmission, client ClientInfo) (*domain.Lease, error) {
	lease, err := s.GetLease(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if lease.LandlordSignedAt != nil {
		return nil, ErrAlreadyCountersigned
	}
	if !lease.CanCountersign() {
		return nil, ErrInvalidLifecycleState
	}

	location := s.geo.Resolve(ctx, client.IPAddress)
	signedAt := time.Now()
	data := buildSignatureData(sub, client, location, stringOrEmpty(lease.DocumentHash), signedAt)
	data.FullName = landlord.FullName
	data.Email = landlord.Email
	data.Fingerprint = domain.ComputeFingerprint(landlord.UserID, landlord.FullName, landlord.Email, data.DocumentHash, signedAt)

	if err := s.leases.SetLandlordSignature(ctx, leaseID, signedAt, data); err != nil {
		// Losing the guarded update means a countersignature already landed;
		// any other failure surfaces as-is
		if errors.Is(err, repository.ErrAlreadyCountersigned) {
			return nil, ErrAlreadyCountersigned
		}
		return nil, err
	}

	s.recorder.Record(&domain.AuditLogEntry{
		OrgID:      lease.OrgID,
		ActorID:    landlord.UserID,
		Action:     domain.AuditActionLandlordCountersigned,
		EntityType: domain.AuditEntityLease,
		EntityID:   lease.ID,
		IPAddress:  client.IPAddress,
	})

	fresh, err := s.GetLease(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.documents.RegenerateLease(ctx, fresh); err != nil {
		logger.ErrorCtx(ctx, "post-countersignature regeneration failed",
			zap.String("lease_id", leaseID), zap.Error(err))
	}

	return s.GetLease(ctx, leaseID)
}

// TerminateLease moves a pending or active lease to terminated. Outstanding
// tokens die with the status change: token validation re-checks the lease
// state, so a surviving token resolves only to DocumentNotSignable.
func (s *SigningService) TerminateLease(ctx context.Context, leaseID, actorID string) error {
	tx, err := s.db.BeginTx(ctx, serializableTx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	lease, err := s.leases.LockLeaseTx(ctx, tx, leaseID)
	if err != nil {
		return err
	}
	if lease == nil {
		return ErrNotFound
	}
	if !lease.CanTerminate() {
		return ErrInvalidLifecycleState
	}

	if err := s.leases.UpdateStatusTx(ctx, tx, leaseID, domain.LeaseStatusTerminated); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	s.recorder.Record(&domain.AuditLogEntry{
		OrgID:      lease.OrgID,
		ActorID:    actorID,
		Action:     domain.AuditActionLeaseTerminated,
		EntityType: domain.AuditEntityLease,
		EntityID:   leaseID,
		Changes:    map[string]interface{}{"previous_status": lease.Status},
	})

	return nil
}

// DeleteDraftLease hard-deletes a draft lease with no signing activity
func (s *SigningService) DeleteDraftLease(ctx context.Context, leaseID string) error {
	lease, err := s.GetLease(ctx, leaseID)
	if err != nil {
		return err
	}
	if !lease.CanDelete() {
		return ErrInvalidLifecycleState
	}
	return s.leases.Delete(ctx, leaseID)
}

// RecordDocumentDownload notes a signed-document download in the audit trail
func (s *SigningService) RecordDocumentDownload(ctx context.Context, entityType, entityID, orgID, actorID string, client ClientInfo) {
	s.recorder.Record(&domain.AuditLogEntry{
		OrgID:      orgID,
		ActorID:    actorID,
		Action:     domain.AuditActionSignedDocumentDownloaded,
		EntityType: entityType,
		EntityID:   entityID,
		IPAddress:  client.IPAddress,
	})
}

// validateLeaseSlot applies the shared slot gate. Expiry only applies on the
// token path; a portal session does not ride on a token's validity window.
func validateLeaseSlot(slot *domain.LeaseTenant, viaToken bool) error {
	if viaToken && slot.TokenExpiresAt != nil && time.Now().After(*slot.TokenExpiresAt) {
		return ErrTokenExpired
	}
	if slot.HasSigned() {
		return ErrAlreadySigned
	}
	return nil
}

func (s *SigningService) dispatchSigningLink(ctx context.Context, name, email, kind, documentID, token string) {
	req := &notify.SigningRequest{
		RecipientName:  name,
		RecipientEmail: email,
		DocumentKind:   kind,
		DocumentID:     documentID,
		SigningURL:     fmt.Sprintf("%s/sign/%s", s.baseURL, token),
	}
	if err := s.notifier.SendSigningRequest(ctx, req); err != nil {
		logger.WarnCtx(ctx, "failed to dispatch signing link",
			zap.String("recipient", email), zap.Error(err))
	}
}

// confirmSignature acknowledges a captured signature to the party who
// produced it. Runs after commit; the signature is already durable.
func (s *SigningService) confirmSignature(ctx context.Context, kind, documentID string, data *domain.SignatureData) {
	conf := &notify.SignatureConfirmation{
		RecipientName:  data.FullName,
		RecipientEmail: data.Email,
		DocumentKind:   kind,
		DocumentID:     documentID,
		FingerprintID:  domain.FingerprintDisplayID(data.Fingerprint),
		SignedAt:       data.SignedAt,
	}
	if err := s.notifier.SendSignatureConfirmation(ctx, conf); err != nil {
		logger.WarnCtx(ctx, "failed to dispatch signature confirmation",
			zap.String("recipient", data.Email), zap.Error(err))
	}
}

func (s *SigningService) notifyLeaseCompletion(ctx context.Context, lease *domain.Lease, documentURL string) {
	for _, slot := range lease.Tenants {
		notice := &notify.CompletionNotice{
			DocumentKind:   "lease",
			DocumentID:     lease.ID,
			DocumentURL:    documentURL,
			RecipientEmail: slot.TenantEmail,
		}
		if err := s.notifier.SendCompletionNotice(ctx, notice); err != nil {
			logger.WarnCtx(ctx, "failed to dispatch completion notice",
				zap.String("recipient", slot.TenantEmail), zap.Error(err))
		}
	}
}

// buildSignatureData assembles the evidence record common to all paths. The
// caller fills the fingerprint and any token provenance afterwards.
func buildSignatureData(sub *dto.SignatureSubmission, client ClientInfo, location, documentHash string, signedAt time.Time) *domain.SignatureData {
	return &domain.SignatureData{
		FullName:             sub.FullName,
		Email:                sub.Email,
		IPAddress:            client.IPAddress,
		Location:             location,
		UserAgent:            client.UserAgent,
		ScreenSize:           sub.ScreenSize,
		Timezone:             sub.Timezone,
		Locale:               sub.Locale,
		PageOpenedAt:         sub.PageOpenedAt,
		DocumentViewedAt:     sub.DocumentViewedAt,
		ScrolledToBottomAt:   sub.ScrolledToBottomAt,
		ConsentCheckedAt:     sub.ConsentCheckedAt,
		NameTypedAt:          sub.NameTypedAt,
		SignedAt:             signedAt,
		TotalViewTimeSeconds: sub.TotalViewTimeSeconds,
		DocumentHash:         documentHash,
		SignatureImage:       sub.SignatureImage,
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
