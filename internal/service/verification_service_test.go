package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rentflow/leasesign/internal/domain"
	"github.com/rentflow/leasesign/internal/dto"
)

func TestVerifyLease_Complete(t *testing.T) {
	f := newSigningFixture(t)
	ctx := context.Background()

	lease := f.sentLease(t, [2]string{"Jane Doe", "jane@example.com"})
	if _, err := f.svc.SubmitSignature(ctx, f.leaseToken(t, lease.ID, "tenant-1"), submission("Jane Doe", "jane@example.com", 95), testClient); err != nil {
		t.Fatalf("submission failed: %v", err)
	}

	report, err := f.verify.VerifyLease(ctx, lease.ID)
	if err != nil {
		t.Fatalf("VerifyLease failed: %v", err)
	}

	// All tenants signed but the landlord has not countersigned: the lease
	// is active yet the document is still incomplete
	if report.Status != dto.VerificationStatusPending {
		t.Errorf("status before countersignature = %s, want %s", report.Status, dto.VerificationStatusPending)
	}
	if !report.HashVerified {
		t.Error("untampered artifact reported as unverified")
	}

	// Tenant roster plus the landlord line
	if len(report.Signers) != 2 {
		t.Fatalf("expected 2 signers, got %d", len(report.Signers))
	}
	tenant := report.Signers[0]
	if !tenant.Signed || tenant.Name != "Jane Doe" {
		t.Errorf("tenant report = %+v, want signed Jane Doe", tenant)
	}
	if tenant.Location != "Austin, TX, US" {
		t.Errorf("tenant location = %q, want resolver output", tenant.Location)
	}
	if tenant.FingerprintID == "" {
		t.Error("tenant report missing fingerprint id")
	}
	if landlord := report.Signers[1]; landlord.Role != "Landlord" || landlord.Signed {
		t.Errorf("landlord report = %+v, want unsigned Landlord", landlord)
	}

	if len(report.Anomalies) != 0 {
		t.Errorf("unexpected anomalies: %+v", report.Anomalies)
	}

	landlordID := LandlordIdentity{UserID: "staff-1", FullName: "Pat Property", Email: "pat@rentflow.example"}
	if _, err := f.svc.CountersignLease(ctx, lease.ID, landlordID, submission("Pat Property", "pat@rentflow.example", 45), testClient); err != nil {
		t.Fatalf("CountersignLease failed: %v", err)
	}

	report, err = f.verify.VerifyLease(ctx, lease.ID)
	if err != nil {
		t.Fatalf("VerifyLease failed: %v", err)
	}
	if report.Status != dto.VerificationStatusComplete {
		t.Errorf("status after countersignature = %s, want %s", report.Status, dto.VerificationStatusComplete)
	}
	if landlord := report.Signers[1]; !landlord.Signed || landlord.Name != "Pat Property" {
		t.Errorf("landlord report = %+v, want signed Pat Property", landlord)
	}
}

func TestVerifyLease_TamperedArtifact(t *testing.T) {
	f := newSigningFixture(t)
	ctx := context.Background()

	lease := f.sentLease(t, [2]string{"Jane Doe", "jane@example.com"})
	if _, err := f.svc.SubmitSignature(ctx, f.leaseToken(t, lease.ID, "tenant-1"), submission("Jane Doe", "jane@example.com", 95), testClient); err != nil {
		t.Fatalf("submission failed: %v", err)
	}

	stored, _ := f.leases.GetByID(ctx, lease.ID)
	key := fmt.Sprintf("%s/%s/%s.html", domain.AuditEntityLease, lease.ID, *stored.DocumentHash)
	f.blobs.tamper(key, []byte("<html>altered after signing</html>"))

	report, err := f.verify.VerifyLease(ctx, lease.ID)
	if err != nil {
		t.Fatalf("VerifyLease failed: %v", err)
	}
	if report.HashVerified {
		t.Error("tampered artifact reported as verified")
	}
	// Verification fails closed on the hash but the roster survives
	if len(report.Signers) != 2 || !report.Signers[0].Signed {
		t.Error("signer roster lost on hash failure")
	}
}

func TestVerifyLease_StatusMapping(t *testing.T) {
	f := newSigningFixture(t)
	ctx := context.Background()

	pending := f.sentLease(t, [2]string{"Jane Doe", "jane@example.com"})
	report, err := f.verify.VerifyLease(ctx, pending.ID)
	if err != nil {
		t.Fatalf("VerifyLease failed: %v", err)
	}
	if report.Status != dto.VerificationStatusPending {
		t.Errorf("pending lease: status = %s, want %s", report.Status, dto.VerificationStatusPending)
	}

	if err := f.svc.TerminateLease(ctx, pending.ID, "staff-1"); err != nil {
		t.Fatalf("TerminateLease failed: %v", err)
	}
	report, err = f.verify.VerifyLease(ctx, pending.ID)
	if err != nil {
		t.Fatalf("VerifyLease failed: %v", err)
	}
	if report.Status != dto.VerificationStatusExpired {
		t.Errorf("terminated lease: status = %s, want %s", report.Status, dto.VerificationStatusExpired)
	}
}

func TestVerifyLease_NotFound(t *testing.T) {
	f := newSigningFixture(t)
	if _, err := f.verify.VerifyLease(context.Background(), "no-such-lease"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestVerifyLease_ShortViewAnomaly(t *testing.T) {
	f := newSigningFixture(t)
	ctx := context.Background()

	lease := f.sentLease(t, [2]string{"Jane Doe", "jane@example.com"}, [2]string{"John Roe", "john@example.com"})
	if _, err := f.svc.SubmitSignature(ctx, f.leaseToken(t, lease.ID, "tenant-1"), submission("Jane Doe", "jane@example.com", 12), testClient); err != nil {
		t.Fatalf("submission failed: %v", err)
	}
	if _, err := f.svc.SubmitSignature(ctx, f.leaseToken(t, lease.ID, "tenant-2"), submission("John Roe", "john@example.com", 45), testClient); err != nil {
		t.Fatalf("submission failed: %v", err)
	}

	report, err := f.verify.VerifyLease(ctx, lease.ID)
	if err != nil {
		t.Fatalf("VerifyLease failed: %v", err)
	}

	var flagged []string
	for _, a := range report.Anomalies {
		if a.Type == dto.AnomalyShortView {
			flagged = append(flagged, a.SignerName)
		}
	}
	if len(flagged) != 1 || flagged[0] != "Jane Doe" {
		t.Errorf("short-view flags = %v, want only Jane Doe", flagged)
	}
}

func TestVerifyLease_RepeatedAttemptAnomaly(t *testing.T) {
	f := newSigningFixture(t)
	ctx := context.Background()

	lease := f.sentLease(t, [2]string{"Jane Doe", "jane@example.com"})
	if _, err := f.svc.SubmitSignature(ctx, f.leaseToken(t, lease.ID, "tenant-1"), submission("Jane Doe", "jane@example.com", 95), testClient); err != nil {
		t.Fatalf("submission failed: %v", err)
	}

	// The trail shows the same asserted email submitting twice
	base := time.Now().Add(-time.Minute)
	err := f.audits.InsertBatch(ctx, []*domain.AuditLogEntry{
		{
			ID: "a1", OrgID: "org-1", ActorID: "tenant-1",
			Action: domain.AuditActionSignatureSubmitted, EntityType: domain.AuditEntityLease, EntityID: lease.ID,
			Changes:   map[string]interface{}{"email": "jane@example.com", "full_name": "Jane Doe"},
			CreatedAt: base,
		},
		{
			ID: "a2", OrgID: "org-1", ActorID: "tenant-1",
			Action: domain.AuditActionSignatureSubmitted, EntityType: domain.AuditEntityLease, EntityID: lease.ID,
			Changes:   map[string]interface{}{"email": "jane@example.com", "full_name": "Jane Doe"},
			CreatedAt: base.Add(10 * time.Second),
		},
		{
			ID: "a3", OrgID: "org-1", ActorID: "tenant-1",
			Action: domain.AuditActionSigningLinkOpened, EntityType: domain.AuditEntityLease, EntityID: lease.ID,
			CreatedAt: base.Add(-time.Minute),
		},
	})
	if err != nil {
		t.Fatalf("seed audit trail failed: %v", err)
	}

	report, err := f.verify.VerifyLease(ctx, lease.ID)
	if err != nil {
		t.Fatalf("VerifyLease failed: %v", err)
	}

	found := false
	for _, a := range report.Anomalies {
		if a.Type == dto.AnomalyRepeatedAttempt && a.SignerName == "Jane Doe" {
			found = true
		}
	}
	if !found {
		t.Errorf("repeated-attempt anomaly not detected, got %+v", report.Anomalies)
	}
	if len(report.AuditTrail) != 3 {
		t.Errorf("audit trail length = %d, want 3", len(report.AuditTrail))
	}
	// Trail is ascending by time
	if report.AuditTrail[0].Action != domain.AuditActionSigningLinkOpened {
		t.Errorf("trail not ascending, first action = %s", report.AuditTrail[0].Action)
	}
}

func TestVerifyAddendum(t *testing.T) {
	f := newSigningFixture(t)
	ctx := context.Background()

	lease := f.seedActiveLease(t, [2]string{"Jane Doe", "jane@example.com"})
	addendum := f.sentAddendum(t, lease.ID)

	report, err := f.verify.VerifyAddendum(ctx, addendum.ID)
	if err != nil {
		t.Fatalf("VerifyAddendum failed: %v", err)
	}
	if report.Status != dto.VerificationStatusPending {
		t.Errorf("pending addendum: status = %s, want %s", report.Status, dto.VerificationStatusPending)
	}
	if !report.HashVerified {
		t.Error("sent addendum artifact should verify")
	}

	if _, err := f.svc.SubmitSignature(ctx, f.addendumToken(t, addendum.ID, "tenant-1"), submission("Jane Doe", "jane@example.com", 80), testClient); err != nil {
		t.Fatalf("submission failed: %v", err)
	}

	// Signed by every tenant, not yet countersigned
	report, err = f.verify.VerifyAddendum(ctx, addendum.ID)
	if err != nil {
		t.Fatalf("VerifyAddendum failed: %v", err)
	}
	if report.Status != dto.VerificationStatusPending {
		t.Errorf("signed addendum without countersignature: status = %s, want %s", report.Status, dto.VerificationStatusPending)
	}

	landlordID := LandlordIdentity{UserID: "staff-1", FullName: "Pat Property", Email: "pat@rentflow.example"}
	if _, err := f.svc.CountersignAddendum(ctx, addendum.ID, landlordID, submission("Pat Property", "pat@rentflow.example", 45), testClient); err != nil {
		t.Fatalf("CountersignAddendum failed: %v", err)
	}

	report, err = f.verify.VerifyAddendum(ctx, addendum.ID)
	if err != nil {
		t.Fatalf("VerifyAddendum failed: %v", err)
	}
	if report.Status != dto.VerificationStatusComplete {
		t.Errorf("countersigned addendum: status = %s, want %s", report.Status, dto.VerificationStatusComplete)
	}
}

func TestVerifyAddendum_Void(t *testing.T) {
	f := newSigningFixture(t)
	ctx := context.Background()

	lease := f.seedActiveLease(t, [2]string{"Jane Doe", "jane@example.com"}, [2]string{"John Roe", "john@example.com"})
	addendum := f.sentAddendum(t, lease.ID)
	if err := f.svc.VoidAddendum(ctx, addendum.ID, "staff-1"); err != nil {
		t.Fatalf("VoidAddendum failed: %v", err)
	}

	report, err := f.verify.VerifyAddendum(ctx, addendum.ID)
	if err != nil {
		t.Fatalf("VerifyAddendum failed: %v", err)
	}
	if report.Status != dto.VerificationStatusExpired {
		t.Errorf("void addendum: status = %s, want %s", report.Status, dto.VerificationStatusExpired)
	}
}
