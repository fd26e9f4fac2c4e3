package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rentflow/leasesign/internal/audit"
	"github.com/rentflow/leasesign/internal/domain"
	"github.com/rentflow/leasesign/internal/dto"
	"github.com/rentflow/leasesign/internal/render"
)

type signingFixture struct {
	svc       *SigningService
	docs      *DocumentService
	verify    *VerificationService
	leases    *memLeaseRepo
	addendums *memAddendumRepo
	audits    *memAuditRepo
	artifacts *memArtifactRepo
	blobs     *memBlobStore
	notifier  *captureNotifier
	recorder  *audit.Recorder
}

func newSigningFixture(t *testing.T) *signingFixture {
	t.Helper()

	f := &signingFixture{
		leases:    newMemLeaseRepo(),
		addendums: newMemAddendumRepo(),
		audits:    &memAuditRepo{},
		artifacts: &memArtifactRepo{},
		blobs:     newMemBlobStore(),
		notifier:  &captureNotifier{},
	}

	f.recorder = audit.NewRecorder(f.audits, nil)
	f.recorder.SetTestMode(true)
	t.Cleanup(func() { _ = f.recorder.Close() })

	f.docs = NewDocumentService(render.NewRenderer(), f.blobs, f.artifacts, f.leases, f.addendums, f.recorder)
	f.svc = NewSigningService(&fakeDB{}, f.leases, f.addendums, f.docs, NewTokenIssuer(72*time.Hour),
		f.recorder, f.notifier, staticGeo{location: "Austin, TX, US"}, "https://sign.example")
	f.verify = NewVerificationService(f.leases, f.addendums, f.audits, f.docs)

	return f
}

// seedDraftLease stores a draft lease with named tenant slots, the shape the
// joined repository queries produce
func (f *signingFixture) seedDraftLease(t *testing.T, tenants ...[2]string) *domain.Lease {
	t.Helper()

	now := time.Now()
	lease := &domain.Lease{
		ID:          uuid.New().String(),
		OrgID:       "org-1",
		UnitID:      "unit-1",
		Status:      domain.LeaseStatusDraft,
		Terms:       "No smoking. Rent due on the first.",
		MonthlyRent: 1500,
		StartDate:   time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, pair := range tenants {
		lease.Tenants = append(lease.Tenants, &domain.LeaseTenant{
			ID:          uuid.New().String(),
			LeaseID:     lease.ID,
			TenantID:    fmt.Sprintf("tenant-%d", i+1),
			IsPrimary:   i == 0,
			TenantName:  pair[0],
			TenantEmail: pair[1],
		})
	}
	if err := f.leases.Create(context.Background(), lease); err != nil {
		t.Fatalf("seed lease failed: %v", err)
	}
	return lease
}

func (f *signingFixture) sentLease(t *testing.T, tenants ...[2]string) *domain.Lease {
	t.Helper()
	lease := f.seedDraftLease(t, tenants...)
	sent, err := f.svc.SendLeaseForSignature(context.Background(), lease.ID, "staff-1")
	if err != nil {
		t.Fatalf("SendLeaseForSignature failed: %v", err)
	}
	return sent
}

func (f *signingFixture) leaseToken(t *testing.T, leaseID, tenantID string) string {
	t.Helper()
	lease, err := f.leases.GetByID(context.Background(), leaseID)
	if err != nil || lease == nil {
		t.Fatalf("lease %s not found: %v", leaseID, err)
	}
	for _, slot := range lease.Tenants {
		if slot.TenantID == tenantID {
			if slot.SigningToken == nil {
				t.Fatalf("slot for %s has no token", tenantID)
			}
			return *slot.SigningToken
		}
	}
	t.Fatalf("no slot for tenant %s", tenantID)
	return ""
}

// expireLeaseToken rewrites the slot's expiry into the past, keeping the
// token itself
func (f *signingFixture) expireLeaseToken(t *testing.T, leaseID, tenantID string) {
	t.Helper()
	lease, err := f.leases.GetByID(context.Background(), leaseID)
	if err != nil || lease == nil {
		t.Fatalf("lease %s not found: %v", leaseID, err)
	}
	for _, slot := range lease.Tenants {
		if slot.TenantID == tenantID {
			if err := f.leases.SetSlotToken(context.Background(), slot.ID, *slot.SigningToken, time.Now().Add(-time.Hour)); err != nil {
				t.Fatalf("SetSlotToken failed: %v", err)
			}
			return
		}
	}
	t.Fatalf("no slot for tenant %s", tenantID)
}

func submission(name, email string, viewSeconds int) *dto.SignatureSubmission {
	return &dto.SignatureSubmission{
		FullName:             name,
		Email:                email,
		ScreenSize:           "1440x900",
		Timezone:             "America/Chicago",
		Locale:               "en-US",
		TotalViewTimeSeconds: viewSeconds,
	}
}

var testClient = ClientInfo{IPAddress: "203.0.113.7", UserAgent: "test-agent/1.0"}

func countAction(entries []*domain.AuditLogEntry, action string) int {
	count := 0
	for _, e := range entries {
		if e.Action == action {
			count++
		}
	}
	return count
}

func TestSendLeaseForSignature(t *testing.T) {
	f := newSigningFixture(t)
	ctx := context.Background()

	lease := f.seedDraftLease(t, [2]string{"Jane Doe", "jane@example.com"}, [2]string{"John Roe", "john@example.com"})

	sent, err := f.svc.SendLeaseForSignature(ctx, lease.ID, "staff-1")
	if err != nil {
		t.Fatalf("SendLeaseForSignature failed: %v", err)
	}

	if sent.Status != domain.LeaseStatusPendingSignature {
		t.Errorf("status = %s, want %s", sent.Status, domain.LeaseStatusPendingSignature)
	}
	if sent.DocumentHash == nil || *sent.DocumentHash == "" {
		t.Error("document pointer not set on send")
	}
	for _, slot := range sent.Tenants {
		if slot.SigningToken == nil || slot.TokenExpiresAt == nil {
			t.Errorf("slot for %s missing token or expiry", slot.TenantID)
		}
	}

	requests := f.notifier.signingRequests()
	if len(requests) != 2 {
		t.Fatalf("expected 2 signing requests, got %d", len(requests))
	}
	for _, req := range requests {
		if req.SigningURL == "" {
			t.Error("signing request missing URL")
		}
	}

	if n := countAction(f.recorder.TestEntries(), domain.AuditActionLeaseSent); n != 1 {
		t.Errorf("LEASE_SENT recorded %d times, want 1", n)
	}

	// A second send is illegal: the lease already left draft
	if _, err := f.svc.SendLeaseForSignature(ctx, lease.ID, "staff-1"); !errors.Is(err, ErrInvalidLifecycleState) {
		t.Errorf("second send: err = %v, want ErrInvalidLifecycleState", err)
	}
}

func TestSendLeaseForSignature_NoTenants(t *testing.T) {
	f := newSigningFixture(t)

	lease := f.seedDraftLease(t)
	if _, err := f.svc.SendLeaseForSignature(context.Background(), lease.ID, "staff-1"); !errors.Is(err, ErrInvalidLifecycleState) {
		t.Errorf("err = %v, want ErrInvalidLifecycleState", err)
	}
}

func TestSubmitSignature_MultiTenantCompletion(t *testing.T) {
	f := newSigningFixture(t)
	ctx := context.Background()

	lease := f.sentLease(t, [2]string{"Jane Doe", "jane@example.com"}, [2]string{"John Roe", "john@example.com"})

	first, err := f.svc.SubmitSignature(ctx, f.leaseToken(t, lease.ID, "tenant-1"), submission("Jane Doe", "jane@example.com", 95), testClient)
	if err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
	if first.Completed {
		t.Error("lease reported complete with a signature outstanding")
	}
	if first.RemainingSignatures != 1 {
		t.Errorf("RemainingSignatures = %d, want 1", first.RemainingSignatures)
	}
	if first.Status != domain.LeaseStatusPendingSignature {
		t.Errorf("status = %s, want %s", first.Status, domain.LeaseStatusPendingSignature)
	}
	if len(first.FingerprintID) != 12 {
		t.Errorf("FingerprintID = %q, want 12 chars", first.FingerprintID)
	}
	// A non-final signature still confirms to its signer right away
	if n := len(f.notifier.signatureConfirmations()); n != 1 {
		t.Errorf("confirmations after first signature = %d, want 1", n)
	}
	if n := len(f.notifier.completionNotices()); n != 0 {
		t.Errorf("completion notices after first signature = %d, want 0", n)
	}

	second, err := f.svc.SubmitSignature(ctx, f.leaseToken(t, lease.ID, "tenant-2"), submission("John Roe", "john@example.com", 140), testClient)
	if err != nil {
		t.Fatalf("second submission failed: %v", err)
	}
	if !second.Completed {
		t.Fatal("final signature did not complete the lease")
	}
	if second.Status != domain.LeaseStatusActive {
		t.Errorf("status = %s, want %s", second.Status, domain.LeaseStatusActive)
	}
	if second.DocumentURL == "" {
		t.Error("completion receipt missing document URL")
	}

	// Completion cascade
	stored, _ := f.leases.GetByID(ctx, lease.ID)
	if stored.Status != domain.LeaseStatusActive {
		t.Errorf("stored status = %s, want active", stored.Status)
	}
	if f.leases.unitStatus["unit-1"] != "occupied" {
		t.Error("unit not marked occupied on completion")
	}
	if len(f.leases.activations) != 1 {
		t.Fatalf("expected 1 tenant activation, got %d", len(f.leases.activations))
	}
	if !f.leases.activations[0].MoveInDate.Equal(lease.StartDate) {
		t.Errorf("move-in date = %v, want lease start %v", f.leases.activations[0].MoveInDate, lease.StartDate)
	}

	entries := f.recorder.TestEntries()
	if n := countAction(entries, domain.AuditActionSignatureSubmitted); n != 2 {
		t.Errorf("SIGNATURE_SUBMITTED recorded %d times, want 2", n)
	}
	if n := countAction(entries, domain.AuditActionAllPartiesSigned); n != 1 {
		t.Errorf("ALL_PARTIES_SIGNED recorded %d times, want 1", n)
	}

	// Each signer gets an immediate confirmation, completion notices on top
	confirmations := f.notifier.signatureConfirmations()
	if len(confirmations) != 2 {
		t.Fatalf("expected 2 signature confirmations, got %d", len(confirmations))
	}
	if confirmations[0].RecipientEmail != "jane@example.com" {
		t.Errorf("first confirmation went to %s, want jane@example.com", confirmations[0].RecipientEmail)
	}
	if confirmations[1].RecipientEmail != "john@example.com" {
		t.Errorf("second confirmation went to %s, want john@example.com", confirmations[1].RecipientEmail)
	}
	if confirmations[0].FingerprintID != first.FingerprintID {
		t.Errorf("confirmation fingerprint = %s, want %s", confirmations[0].FingerprintID, first.FingerprintID)
	}

	if len(f.notifier.completionNotices()) != 2 {
		t.Errorf("expected 2 completion notices, got %d", len(f.notifier.completionNotices()))
	}
}

func TestSubmitSignature_TokenReuse(t *testing.T) {
	f := newSigningFixture(t)
	ctx := context.Background()

	lease := f.sentLease(t, [2]string{"Jane Doe", "jane@example.com"}, [2]string{"John Roe", "john@example.com"})
	token := f.leaseToken(t, lease.ID, "tenant-1")

	if _, err := f.svc.SubmitSignature(ctx, token, submission("Jane Doe", "jane@example.com", 90), testClient); err != nil {
		t.Fatalf("first submission failed: %v", err)
	}

	// The consumed token still resolves to its slot; the slot's signature
	// turns the replay into a conflict, not a dead link
	if _, err := f.svc.SubmitSignature(ctx, token, submission("Jane Doe", "jane@example.com", 90), testClient); !errors.Is(err, ErrAlreadySigned) {
		t.Errorf("reused token: err = %v, want ErrAlreadySigned", err)
	}
}

func TestSubmitSignature_ExpiredToken(t *testing.T) {
	f := newSigningFixture(t)
	ctx := context.Background()

	lease := f.sentLease(t, [2]string{"Jane Doe", "jane@example.com"})
	token := f.leaseToken(t, lease.ID, "tenant-1")
	f.expireLeaseToken(t, lease.ID, "tenant-1")

	if _, err := f.svc.SubmitSignature(ctx, token, submission("Jane Doe", "jane@example.com", 90), testClient); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
	if _, err := f.svc.ResolveSigningToken(ctx, token, testClient); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("resolve: err = %v, want ErrTokenExpired", err)
	}
}

func TestSubmitSignature_UnknownToken(t *testing.T) {
	f := newSigningFixture(t)

	if _, err := f.svc.SubmitSignature(context.Background(), "no-such-token", submission("X", "x@example.com", 60), testClient); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("err = %v, want ErrTokenNotFound", err)
	}
}

func TestSubmitSignature_TerminatedLease(t *testing.T) {
	f := newSigningFixture(t)
	ctx := context.Background()

	lease := f.sentLease(t, [2]string{"Jane Doe", "jane@example.com"})
	token := f.leaseToken(t, lease.ID, "tenant-1")

	if err := f.svc.TerminateLease(ctx, lease.ID, "staff-1"); err != nil {
		t.Fatalf("TerminateLease failed: %v", err)
	}

	// The token row survives termination; the status gate is what kills it
	if _, err := f.svc.SubmitSignature(ctx, token, submission("Jane Doe", "jane@example.com", 90), testClient); !errors.Is(err, ErrDocumentNotSignable) {
		t.Errorf("err = %v, want ErrDocumentNotSignable", err)
	}
}

func TestSubmitSignature_PortalPathIgnoresExpiry(t *testing.T) {
	f := newSigningFixture(t)
	ctx := context.Background()

	lease := f.sentLease(t, [2]string{"Jane Doe", "jane@example.com"})
	f.expireLeaseToken(t, lease.ID, "tenant-1")

	// An authenticated portal session proves identity; the dead token is
	// irrelevant on that path
	resp, err := f.svc.SubmitLeaseSignatureAsTenant(ctx, lease.ID, "tenant-1", submission("Jane Doe", "jane@example.com", 90), testClient)
	if err != nil {
		t.Fatalf("portal submission failed: %v", err)
	}
	if !resp.Completed {
		t.Error("single-tenant lease not completed by its only signature")
	}
}

func TestSubmitSignature_ConcurrentSameSlot(t *testing.T) {
	f := newSigningFixture(t)
	ctx := context.Background()

	lease := f.sentLease(t, [2]string{"Jane Doe", "jane@example.com"})
	token := f.leaseToken(t, lease.ID, "tenant-1")

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := f.svc.SubmitSignature(ctx, token, submission("Jane Doe", "jane@example.com", 90), testClient)
			results <- err
		}()
	}

	var succeeded, conflicted int
	for i := 0; i < 2; i++ {
		switch err := <-results; {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrAlreadySigned):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || conflicted != 1 {
		t.Errorf("got %d successes and %d conflicts, want exactly one of each", succeeded, conflicted)
	}

	if n := countAction(f.recorder.TestEntries(), domain.AuditActionAllPartiesSigned); n != 1 {
		t.Errorf("ALL_PARTIES_SIGNED recorded %d times, want 1", n)
	}
	stored, _ := f.leases.GetByID(ctx, lease.ID)
	if stored.Status != domain.LeaseStatusActive {
		t.Errorf("stored status = %s, want active", stored.Status)
	}
}

func TestCountersignLease(t *testing.T) {
	f := newSigningFixture(t)
	ctx := context.Background()

	lease := f.sentLease(t, [2]string{"Jane Doe", "jane@example.com"})
	landlord := LandlordIdentity{UserID: "staff-1", FullName: "Pat Property", Email: "pat@rentflow.example"}

	// Countersigning before the tenants finish is illegal
	if _, err := f.svc.CountersignLease(ctx, lease.ID, landlord, submission("Pat Property", "pat@rentflow.example", 30), testClient); !errors.Is(err, ErrInvalidLifecycleState) {
		t.Errorf("premature countersign: err = %v, want ErrInvalidLifecycleState", err)
	}

	if _, err := f.svc.SubmitSignature(ctx, f.leaseToken(t, lease.ID, "tenant-1"), submission("Jane Doe", "jane@example.com", 90), testClient); err != nil {
		t.Fatalf("submission failed: %v", err)
	}

	signed, err := f.svc.CountersignLease(ctx, lease.ID, landlord, submission("Pat Property", "pat@rentflow.example", 30), testClient)
	if err != nil {
		t.Fatalf("CountersignLease failed: %v", err)
	}
	if signed.LandlordSignedAt == nil {
		t.Fatal("landlord signature not recorded")
	}
	if signed.LandlordSignatureData.FullName != "Pat Property" {
		t.Errorf("landlord name = %q, want Pat Property", signed.LandlordSignatureData.FullName)
	}
	// Countersigning completes the document, not the lifecycle
	if signed.Status != domain.LeaseStatusActive {
		t.Errorf("status = %s, want active", signed.Status)
	}

	if _, err := f.svc.CountersignLease(ctx, lease.ID, landlord, submission("Pat Property", "pat@rentflow.example", 30), testClient); !errors.Is(err, ErrAlreadyCountersigned) {
		t.Errorf("second countersign: err = %v, want ErrAlreadyCountersigned", err)
	}
}

func TestCountersignLease_RepositoryFailure(t *testing.T) {
	f := newSigningFixture(t)
	ctx := context.Background()

	lease := f.sentLease(t, [2]string{"Jane Doe", "jane@example.com"})
	if _, err := f.svc.SubmitSignature(ctx, f.leaseToken(t, lease.ID, "tenant-1"), submission("Jane Doe", "jane@example.com", 90), testClient); err != nil {
		t.Fatalf("submission failed: %v", err)
	}

	// A database failure is not a countersign conflict and must not be
	// reported to staff as one
	dbErr := errors.New("connection reset by peer")
	f.leases.landlordErr = dbErr

	landlord := LandlordIdentity{UserID: "staff-1", FullName: "Pat Property", Email: "pat@rentflow.example"}
	_, err := f.svc.CountersignLease(ctx, lease.ID, landlord, submission("Pat Property", "pat@rentflow.example", 30), testClient)
	if errors.Is(err, ErrAlreadyCountersigned) {
		t.Fatal("repository failure surfaced as ErrAlreadyCountersigned")
	}
	if !errors.Is(err, dbErr) {
		t.Errorf("err = %v, want the repository failure", err)
	}

	// Once the failure clears, the countersignature goes through
	f.leases.landlordErr = nil
	if _, err := f.svc.CountersignLease(ctx, lease.ID, landlord, submission("Pat Property", "pat@rentflow.example", 30), testClient); err != nil {
		t.Errorf("retry after repository failure: %v", err)
	}
}

func TestResolveSigningToken(t *testing.T) {
	f := newSigningFixture(t)
	ctx := context.Background()

	lease := f.sentLease(t, [2]string{"Jane Doe", "jane@example.com"}, [2]string{"John Roe", "john@example.com"})
	token := f.leaseToken(t, lease.ID, "tenant-1")

	page, err := f.svc.ResolveSigningToken(ctx, token, testClient)
	if err != nil {
		t.Fatalf("ResolveSigningToken failed: %v", err)
	}
	if page.DocumentKind != "lease" || page.DocumentID != lease.ID {
		t.Errorf("resolved to %s %s, want lease %s", page.DocumentKind, page.DocumentID, lease.ID)
	}
	if page.SignerName != "Jane Doe" {
		t.Errorf("SignerName = %q, want Jane Doe", page.SignerName)
	}
	if page.RemainingSignatures != 2 {
		t.Errorf("RemainingSignatures = %d, want 2", page.RemainingSignatures)
	}
	if page.DocumentHash == "" {
		t.Error("signing page missing document hash")
	}

	if n := countAction(f.recorder.TestEntries(), domain.AuditActionSigningLinkOpened); n != 1 {
		t.Errorf("SIGNING_LINK_OPENED recorded %d times, want 1", n)
	}

	if _, err := f.svc.ResolveSigningToken(ctx, "bogus", testClient); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("unknown token: err = %v, want ErrTokenNotFound", err)
	}
}

func TestResendLeaseLink(t *testing.T) {
	f := newSigningFixture(t)
	ctx := context.Background()

	lease := f.sentLease(t, [2]string{"Jane Doe", "jane@example.com"}, [2]string{"John Roe", "john@example.com"})
	oldToken := f.leaseToken(t, lease.ID, "tenant-1")

	if err := f.svc.ResendLeaseLink(ctx, lease.ID, "tenant-1", "staff-1"); err != nil {
		t.Fatalf("ResendLeaseLink failed: %v", err)
	}

	newToken := f.leaseToken(t, lease.ID, "tenant-1")
	if newToken == oldToken {
		t.Fatal("resend did not rotate the token")
	}

	// The overwritten token no longer references any slot
	if _, err := f.svc.SubmitSignature(ctx, oldToken, submission("Jane Doe", "jane@example.com", 90), testClient); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("old token: err = %v, want ErrTokenNotFound", err)
	}
	if _, err := f.svc.SubmitSignature(ctx, newToken, submission("Jane Doe", "jane@example.com", 90), testClient); err != nil {
		t.Errorf("new token rejected: %v", err)
	}

	if err := f.svc.ResendLeaseLink(ctx, lease.ID, "tenant-1", "staff-1"); !errors.Is(err, ErrAlreadySigned) {
		t.Errorf("resend after signing: err = %v, want ErrAlreadySigned", err)
	}
	if err := f.svc.ResendLeaseLink(ctx, lease.ID, "tenant-404", "staff-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown tenant: err = %v, want ErrNotFound", err)
	}
}

func TestTerminateLease(t *testing.T) {
	f := newSigningFixture(t)
	ctx := context.Background()

	draft := f.seedDraftLease(t, [2]string{"Jane Doe", "jane@example.com"})
	if err := f.svc.TerminateLease(ctx, draft.ID, "staff-1"); !errors.Is(err, ErrInvalidLifecycleState) {
		t.Errorf("terminate draft: err = %v, want ErrInvalidLifecycleState", err)
	}

	lease := f.sentLease(t, [2]string{"John Roe", "john@example.com"})
	if err := f.svc.TerminateLease(ctx, lease.ID, "staff-1"); err != nil {
		t.Fatalf("TerminateLease failed: %v", err)
	}

	stored, _ := f.leases.GetByID(ctx, lease.ID)
	if stored.Status != domain.LeaseStatusTerminated {
		t.Errorf("status = %s, want terminated", stored.Status)
	}
	if n := countAction(f.recorder.TestEntries(), domain.AuditActionLeaseTerminated); n != 1 {
		t.Errorf("LEASE_TERMINATED recorded %d times, want 1", n)
	}

	if err := f.svc.TerminateLease(ctx, lease.ID, "staff-1"); !errors.Is(err, ErrInvalidLifecycleState) {
		t.Errorf("second terminate: err = %v, want ErrInvalidLifecycleState", err)
	}
}

func TestDeleteDraftLease(t *testing.T) {
	f := newSigningFixture(t)
	ctx := context.Background()

	draft := f.seedDraftLease(t, [2]string{"Jane Doe", "jane@example.com"})
	if err := f.svc.DeleteDraftLease(ctx, draft.ID); err != nil {
		t.Fatalf("DeleteDraftLease failed: %v", err)
	}
	if _, err := f.svc.GetLease(ctx, draft.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted lease still resolves: err = %v", err)
	}

	sent := f.sentLease(t, [2]string{"John Roe", "john@example.com"})
	if err := f.svc.DeleteDraftLease(ctx, sent.ID); !errors.Is(err, ErrInvalidLifecycleState) {
		t.Errorf("delete sent lease: err = %v, want ErrInvalidLifecycleState", err)
	}
}

func TestSendLeaseForSignature_ArtifactHistory(t *testing.T) {
	f := newSigningFixture(t)
	ctx := context.Background()

	lease := f.sentLease(t, [2]string{"Jane Doe", "jane@example.com"})
	if _, err := f.svc.SubmitSignature(ctx, f.leaseToken(t, lease.ID, "tenant-1"), submission("Jane Doe", "jane@example.com", 90), testClient); err != nil {
		t.Fatalf("submission failed: %v", err)
	}

	history, err := f.docs.History(ctx, domain.AuditEntityLease, lease.ID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	// One artifact from send, one from the post-signature regeneration
	if len(history) < 2 {
		t.Fatalf("expected at least 2 artifacts, got %d", len(history))
	}

	stored, _ := f.leases.GetByID(ctx, lease.ID)
	if history[0].Hash != *stored.DocumentHash {
		t.Error("lease pointer does not reference the newest artifact")
	}
	if history[0].Hash == history[len(history)-1].Hash {
		t.Error("regeneration after signing produced an identical artifact")
	}
}
