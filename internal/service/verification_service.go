package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rentflow/leasesign/internal/domain"
	"github.com/rentflow/leasesign/internal/dto"
	"github.com/rentflow/leasesign/internal/render"
	"github.com/rentflow/leasesign/internal/repository"
)

// shortViewThresholdSeconds flags signatures where the signer spent less
// time on the document than a plausible read takes
const shortViewThresholdSeconds = 30

// VerificationService builds integrity reports for signed documents. Hash
// verification fails closed: any error reading or hashing the stored
// artifact reports as unverified, never as an error to the caller.
type VerificationService struct {
	leases    repository.LeaseRepository
	addendums repository.AddendumRepository
	auditLog  repository.AuditLogRepository
	documents *DocumentService
}

// NewVerificationService creates a VerificationService
func NewVerificationService(
	leases repository.LeaseRepository,
	addendums repository.AddendumRepository,
	auditLog repository.AuditLogRepository,
	documents *DocumentService,
) *VerificationService {
	return &VerificationService{
		leases:    leases,
		addendums: addendums,
		auditLog:  auditLog,
		documents: documents,
	}
}

// VerifyLease builds the verification report for a lease
func (s *VerificationService) VerifyLease(ctx context.Context, leaseID string) (*dto.VerificationReport, error) {
	lease, err := s.leases.GetByID(ctx, leaseID)
	if err != nil {
		return nil, err
	}
	if lease == nil {
		return nil, ErrNotFound
	}

	report := &dto.VerificationReport{
		EntityType:   domain.AuditEntityLease,
		EntityID:     lease.ID,
		Status:       leaseVerificationStatus(lease),
		DocumentHash: stringOrEmpty(lease.DocumentHash),
		HashVerified: s.verifyHash(ctx, domain.AuditEntityLease, lease.ID, lease.DocumentHash),
		GeneratedAt:  time.Now(),
	}

	for _, slot := range lease.Tenants {
		report.Signers = append(report.Signers, signerReport("Tenant", slot.TenantName, slot.TenantEmail, slot.SignedAt, slot.SignatureData))
	}
	report.Signers = append(report.Signers, landlordReport(lease.LandlordSignedAt, lease.LandlordSignatureData))

	if err := s.attachTrailAndAnomalies(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// VerifyAddendum builds the verification report for an addendum
func (s *VerificationService) VerifyAddendum(ctx context.Context, addendumID string) (*dto.VerificationReport, error) {
	addendum, err := s.addendums.GetByID(ctx, addendumID)
	if err != nil {
		return nil, err
	}
	if addendum == nil {
		return nil, ErrNotFound
	}

	report := &dto.VerificationReport{
		EntityType:   domain.AuditEntityAddendum,
		EntityID:     addendum.ID,
		Status:       addendumVerificationStatus(addendum),
		DocumentHash: stringOrEmpty(addendum.DocumentHash),
		HashVerified: s.verifyHash(ctx, domain.AuditEntityAddendum, addendum.ID, addendum.DocumentHash),
		GeneratedAt:  time.Now(),
	}

	for _, slot := range addendum.Signatures {
		report.Signers = append(report.Signers, signerReport("Tenant", slot.TenantName, slot.TenantEmail, slot.SignedAt, slot.SignatureData))
	}
	report.Signers = append(report.Signers, landlordReport(addendum.LandlordSignedAt, addendum.LandlordSignatureData))

	if err := s.attachTrailAndAnomalies(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// verifyHash re-reads the stored artifact, re-hashes it and compares against
// the recorded pointer. Anything unexpected reports as unverified.
func (s *VerificationService) verifyHash(ctx context.Context, entityType, entityID string, recorded *string) bool {
	if recorded == nil || *recorded == "" {
		return false
	}
	content, err := s.documents.ReadArtifact(ctx, entityType, entityID, *recorded)
	if err != nil {
		return false
	}
	return render.HashBytes(content) == *recorded
}

func (s *VerificationService) attachTrailAndAnomalies(ctx context.Context, report *dto.VerificationReport) error {
	entries, err := s.auditLog.ListByEntity(ctx, report.EntityType, report.EntityID)
	if err != nil {
		return err
	}

	report.AuditTrail = make([]dto.AuditEvent, 0, len(entries))
	for _, e := range entries {
		report.AuditTrail = append(report.AuditTrail, dto.AuditEvent{
			Action:    e.Action,
			ActorID:   e.ActorID,
			IPAddress: e.IPAddress,
			Changes:   e.Changes,
			CreatedAt: e.CreatedAt,
		})
	}

	report.Anomalies = detectAnomalies(report.Signers, entries)
	return nil
}

// detectAnomalies runs the anomaly detectors over the signer roster and the
// audit trail. Anomalies are advisory; they never invalidate a signature.
func detectAnomalies(signers []dto.SignerReport, entries []*domain.AuditLogEntry) []dto.Anomaly {
	anomalies := make([]dto.Anomaly, 0)

	for _, signer := range signers {
		if !signer.Signed {
			continue
		}
		if signer.ViewTimeSeconds < shortViewThresholdSeconds {
			anomalies = append(anomalies, dto.Anomaly{
				Type:       dto.AnomalyShortView,
				SignerName: signer.Name,
				Detail: fmt.Sprintf("%s viewed the document for %d seconds before signing",
					signer.Name, signer.ViewTimeSeconds),
			})
		}
	}

	// Repeated submission attempts: more than one SIGNATURE_SUBMITTED audit
	// entry for the same asserted email means someone kept trying
	attempts := make(map[string]int)
	names := make(map[string]string)
	for _, e := range entries {
		if e.Action != domain.AuditActionSignatureSubmitted {
			continue
		}
		email, _ := e.Changes["email"].(string)
		if email == "" {
			continue
		}
		attempts[email]++
		if name, ok := e.Changes["full_name"].(string); ok {
			names[email] = name
		}
	}
	for email, count := range attempts {
		if count > 1 {
			anomalies = append(anomalies, dto.Anomaly{
				Type:       dto.AnomalyRepeatedAttempt,
				SignerName: names[email],
				Detail:     fmt.Sprintf("%d signature submissions recorded for %s", count, email),
			})
		}
	}

	return anomalies
}

// Complete means every party signed, countersignature included. An active
// lease still waiting on the landlord reports pending.
func leaseVerificationStatus(lease *domain.Lease) string {
	switch {
	case lease.IsTerminal():
		return dto.VerificationStatusExpired
	case lease.Status == domain.LeaseStatusActive && lease.LandlordSignedAt != nil:
		return dto.VerificationStatusComplete
	default:
		return dto.VerificationStatusPending
	}
}

func addendumVerificationStatus(addendum *domain.LeaseAddendum) string {
	switch {
	case addendum.IsTerminal():
		return dto.VerificationStatusExpired
	case addendum.Status == domain.AddendumStatusSigned && addendum.LandlordSignedAt != nil:
		return dto.VerificationStatusComplete
	default:
		return dto.VerificationStatusPending
	}
}

func signerReport(role, name, email string, signedAt *time.Time, data *domain.SignatureData) dto.SignerReport {
	report := dto.SignerReport{
		Role:   role,
		Name:   name,
		Email:  email,
		Signed: signedAt != nil,
	}
	if signedAt != nil && data != nil {
		report.SignedAt = signedAt
		report.FingerprintID = domain.FingerprintDisplayID(data.Fingerprint)
		report.IPAddress = data.IPAddress
		report.Location = data.Location
		report.ViewTimeSeconds = data.TotalViewTimeSeconds
	}
	return report
}

func landlordReport(signedAt *time.Time, data *domain.SignatureData) dto.SignerReport {
	name, email := "", ""
	if data != nil {
		name = data.FullName
		email = data.Email
	}
	return signerReport("Landlord", name, email, signedAt, data)
}
