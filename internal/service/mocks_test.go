package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rentflow/leasesign/internal/domain"
	"github.com/rentflow/leasesign/internal/notify"
	"github.com/rentflow/leasesign/internal/repository"
)

// fakeDB hands out transactions that serialize against each other, so
// concurrent submissions observe each other's commits the way serializable
// row locking makes them do against a real database.
type fakeDB struct {
	mu sync.Mutex
}

func (db *fakeDB) BeginTx(_ context.Context, _ pgx.TxOptions) (pgx.Tx, error) {
	db.mu.Lock()
	return &fakeTx{db: db}, nil
}

type fakeTx struct {
	db   *fakeDB
	once sync.Once
}

func (t *fakeTx) release() {
	t.once.Do(func() { t.db.mu.Unlock() })
}

func (t *fakeTx) Begin(_ context.Context) (pgx.Tx, error) { return t, nil }
func (t *fakeTx) Commit(_ context.Context) error          { t.release(); return nil }
func (t *fakeTx) Rollback(_ context.Context) error        { t.release(); return nil }

func (t *fakeTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *fakeTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }
func (t *fakeTx) LargeObjects() pgx.LargeObjects                             { return pgx.LargeObjects{} }
func (t *fakeTx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *fakeTx) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (t *fakeTx) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return nil, nil }
func (t *fakeTx) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row        { return nil }
func (t *fakeTx) Conn() *pgx.Conn                                               { return nil }

// tenantActivation records an ActivateLeaseTenantsTx call
type tenantActivation struct {
	LeaseID    string
	UnitID     string
	MoveInDate time.Time
}

// memLeaseRepo is an in-memory LeaseRepository. Tx-suffixed methods ignore
// the transaction handle; fakeDB's serialization stands in for row locking.
type memLeaseRepo struct {
	mu          sync.Mutex
	leases      map[string]*domain.Lease
	unitStatus  map[string]string
	activations []tenantActivation
	landlordErr error
}

func newMemLeaseRepo() *memLeaseRepo {
	return &memLeaseRepo{
		leases:     make(map[string]*domain.Lease),
		unitStatus: make(map[string]string),
	}
}

func cloneLease(l *domain.Lease) *domain.Lease {
	out := *l
	out.Tenants = make([]*domain.LeaseTenant, 0, len(l.Tenants))
	for _, t := range l.Tenants {
		slot := *t
		out.Tenants = append(out.Tenants, &slot)
	}
	return &out
}

func (r *memLeaseRepo) Create(_ context.Context, lease *domain.Lease) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leases[lease.ID] = cloneLease(lease)
	return nil
}

func (r *memLeaseRepo) GetByID(_ context.Context, id string) (*domain.Lease, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lease, ok := r.leases[id]
	if !ok {
		return nil, nil
	}
	return cloneLease(lease), nil
}

func (r *memLeaseRepo) FindSlotByToken(_ context.Context, token string) (*domain.LeaseTenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findSlotByToken(token), nil
}

func (r *memLeaseRepo) findSlotByToken(token string) *domain.LeaseTenant {
	for _, lease := range r.leases {
		for _, slot := range lease.Tenants {
			if slot.SigningToken != nil && *slot.SigningToken == token {
				out := *slot
				return &out
			}
		}
	}
	return nil
}

func (r *memLeaseRepo) slot(slotID string) *domain.LeaseTenant {
	for _, lease := range r.leases {
		for _, slot := range lease.Tenants {
			if slot.ID == slotID {
				return slot
			}
		}
	}
	return nil
}

func (r *memLeaseRepo) UpdateStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lease, ok := r.leases[id]
	if !ok {
		return fmt.Errorf("lease %s not found", id)
	}
	lease.Status = status
	return nil
}

func (r *memLeaseRepo) SetSlotToken(_ context.Context, slotID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot := r.slot(slotID)
	if slot == nil {
		return fmt.Errorf("slot %s not found", slotID)
	}
	slot.SigningToken = &token
	slot.TokenExpiresAt = &expiresAt
	return nil
}

func (r *memLeaseRepo) SetLandlordSignature(_ context.Context, leaseID string, signedAt time.Time, data *domain.SignatureData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.landlordErr != nil {
		return r.landlordErr
	}
	lease, ok := r.leases[leaseID]
	if !ok {
		return repository.ErrAlreadyCountersigned
	}
	if lease.LandlordSignedAt != nil {
		return repository.ErrAlreadyCountersigned
	}
	lease.LandlordSignedAt = &signedAt
	lease.LandlordSignatureData = data
	return nil
}

func (r *memLeaseRepo) UpdateDocumentPointer(_ context.Context, leaseID, url, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lease, ok := r.leases[leaseID]
	if !ok {
		return fmt.Errorf("lease %s not found", leaseID)
	}
	lease.DocumentURL = &url
	lease.DocumentHash = &hash
	return nil
}

func (r *memLeaseRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.leases, id)
	return nil
}

func (r *memLeaseRepo) LockLeaseTx(ctx context.Context, _ pgx.Tx, leaseID string) (*domain.Lease, error) {
	return r.GetByID(ctx, leaseID)
}

func (r *memLeaseRepo) UpdateStatusTx(ctx context.Context, _ pgx.Tx, id, status string) error {
	return r.UpdateStatus(ctx, id, status)
}

func (r *memLeaseRepo) LockSlotByTokenTx(ctx context.Context, _ pgx.Tx, token string) (*domain.LeaseTenant, error) {
	return r.FindSlotByToken(ctx, token)
}

func (r *memLeaseRepo) LockSlotByTenantTx(_ context.Context, _ pgx.Tx, leaseID, tenantID string) (*domain.LeaseTenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lease, ok := r.leases[leaseID]
	if !ok {
		return nil, nil
	}
	for _, slot := range lease.Tenants {
		if slot.TenantID == tenantID {
			out := *slot
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memLeaseRepo) WriteSlotSignatureTx(_ context.Context, _ pgx.Tx, slotID string, signedAt time.Time, data *domain.SignatureData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot := r.slot(slotID)
	if slot == nil {
		return fmt.Errorf("slot %s not found", slotID)
	}
	if slot.SignedAt != nil {
		return fmt.Errorf("slot %s already signed", slotID)
	}
	slot.SignedAt = &signedAt
	slot.SignatureData = data
	return nil
}

func (r *memLeaseRepo) CountUnsignedTx(_ context.Context, _ pgx.Tx, leaseID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lease, ok := r.leases[leaseID]
	if !ok {
		return 0, fmt.Errorf("lease %s not found", leaseID)
	}
	count := 0
	for _, slot := range lease.Tenants {
		if slot.SignedAt == nil {
			count++
		}
	}
	return count, nil
}

func (r *memLeaseRepo) ActivateLeaseTx(ctx context.Context, _ pgx.Tx, leaseID string) error {
	return r.UpdateStatus(ctx, leaseID, domain.LeaseStatusActive)
}

func (r *memLeaseRepo) OccupyUnitTx(_ context.Context, _ pgx.Tx, unitID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unitStatus[unitID] = "occupied"
	return nil
}

func (r *memLeaseRepo) ActivateLeaseTenantsTx(_ context.Context, _ pgx.Tx, leaseID, unitID string, moveInDate time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activations = append(r.activations, tenantActivation{LeaseID: leaseID, UnitID: unitID, MoveInDate: moveInDate})
	return nil
}

// memAddendumRepo is an in-memory AddendumRepository
type memAddendumRepo struct {
	mu          sync.Mutex
	addendums   map[string]*domain.LeaseAddendum
	landlordErr error
}

func newMemAddendumRepo() *memAddendumRepo {
	return &memAddendumRepo{addendums: make(map[string]*domain.LeaseAddendum)}
}

func cloneAddendum(a *domain.LeaseAddendum) *domain.LeaseAddendum {
	out := *a
	out.Signatures = make([]*domain.AddendumSignature, 0, len(a.Signatures))
	for _, s := range a.Signatures {
		slot := *s
		out.Signatures = append(out.Signatures, &slot)
	}
	return &out
}

func (r *memAddendumRepo) Create(_ context.Context, addendum *domain.LeaseAddendum) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addendums[addendum.ID] = cloneAddendum(addendum)
	return nil
}

func (r *memAddendumRepo) GetByID(_ context.Context, id string) (*domain.LeaseAddendum, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	addendum, ok := r.addendums[id]
	if !ok {
		return nil, nil
	}
	return cloneAddendum(addendum), nil
}

func (r *memAddendumRepo) CreateSlots(_ context.Context, slots []*domain.AddendumSignature) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range slots {
		addendum, ok := r.addendums[s.AddendumID]
		if !ok {
			return fmt.Errorf("addendum %s not found", s.AddendumID)
		}
		slot := *s
		addendum.Signatures = append(addendum.Signatures, &slot)
	}
	return nil
}

func (r *memAddendumRepo) FindSlotByToken(_ context.Context, token string) (*domain.AddendumSignature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, addendum := range r.addendums {
		for _, slot := range addendum.Signatures {
			if slot.SigningToken != nil && *slot.SigningToken == token {
				out := *slot
				return &out, nil
			}
		}
	}
	return nil, nil
}

func (r *memAddendumRepo) slot(slotID string) *domain.AddendumSignature {
	for _, addendum := range r.addendums {
		for _, slot := range addendum.Signatures {
			if slot.ID == slotID {
				return slot
			}
		}
	}
	return nil
}

func (r *memAddendumRepo) UpdateStatus(_ context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	addendum, ok := r.addendums[id]
	if !ok {
		return fmt.Errorf("addendum %s not found", id)
	}
	addendum.Status = status
	return nil
}

func (r *memAddendumRepo) SetSlotToken(_ context.Context, slotID, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot := r.slot(slotID)
	if slot == nil {
		return fmt.Errorf("slot %s not found", slotID)
	}
	slot.SigningToken = &token
	slot.TokenExpiresAt = &expiresAt
	return nil
}

func (r *memAddendumRepo) SetLandlordSignature(_ context.Context, addendumID string, signedAt time.Time, data *domain.SignatureData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.landlordErr != nil {
		return r.landlordErr
	}
	addendum, ok := r.addendums[addendumID]
	if !ok {
		return repository.ErrAlreadyCountersigned
	}
	if addendum.LandlordSignedAt != nil {
		return repository.ErrAlreadyCountersigned
	}
	addendum.LandlordSignedAt = &signedAt
	addendum.LandlordSignatureData = data
	return nil
}

func (r *memAddendumRepo) UpdateDocumentPointer(_ context.Context, addendumID, url, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	addendum, ok := r.addendums[addendumID]
	if !ok {
		return fmt.Errorf("addendum %s not found", addendumID)
	}
	addendum.DocumentURL = &url
	addendum.DocumentHash = &hash
	return nil
}

func (r *memAddendumRepo) LockAddendumTx(ctx context.Context, _ pgx.Tx, addendumID string) (*domain.LeaseAddendum, error) {
	return r.GetByID(ctx, addendumID)
}

func (r *memAddendumRepo) LockSlotByTokenTx(ctx context.Context, _ pgx.Tx, token string) (*domain.AddendumSignature, error) {
	return r.FindSlotByToken(ctx, token)
}

func (r *memAddendumRepo) LockSlotByTenantTx(_ context.Context, _ pgx.Tx, addendumID, tenantID string) (*domain.AddendumSignature, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	addendum, ok := r.addendums[addendumID]
	if !ok {
		return nil, nil
	}
	for _, slot := range addendum.Signatures {
		if slot.TenantID == tenantID {
			out := *slot
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memAddendumRepo) WriteSlotSignatureTx(_ context.Context, _ pgx.Tx, slotID string, signedAt time.Time, data *domain.SignatureData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot := r.slot(slotID)
	if slot == nil {
		return fmt.Errorf("slot %s not found", slotID)
	}
	if slot.SignedAt != nil {
		return fmt.Errorf("slot %s already signed", slotID)
	}
	slot.SignedAt = &signedAt
	slot.SignatureData = data
	return nil
}

func (r *memAddendumRepo) CountUnsignedTx(_ context.Context, _ pgx.Tx, addendumID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	addendum, ok := r.addendums[addendumID]
	if !ok {
		return 0, fmt.Errorf("addendum %s not found", addendumID)
	}
	count := 0
	for _, slot := range addendum.Signatures {
		if slot.SignedAt == nil {
			count++
		}
	}
	return count, nil
}

func (r *memAddendumRepo) MarkSignedTx(ctx context.Context, _ pgx.Tx, addendumID string) error {
	return r.UpdateStatus(ctx, addendumID, domain.AddendumStatusSigned)
}

func (r *memAddendumRepo) VoidTx(ctx context.Context, _ pgx.Tx, addendumID string) error {
	return r.UpdateStatus(ctx, addendumID, domain.AddendumStatusVoid)
}

// memAuditRepo is an in-memory AuditLogRepository
type memAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLogEntry
}

func (r *memAuditRepo) InsertBatch(_ context.Context, entries []*domain.AuditLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *memAuditRepo) ListByEntity(_ context.Context, entityType, entityID string) ([]*domain.AuditLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.AuditLogEntry, 0)
	for _, e := range r.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// memArtifactRepo is an in-memory ArtifactRepository
type memArtifactRepo struct {
	mu        sync.Mutex
	artifacts []*domain.DocumentArtifact
}

func (r *memArtifactRepo) Insert(_ context.Context, artifact *domain.DocumentArtifact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts = append(r.artifacts, artifact)
	return nil
}

func (r *memArtifactRepo) ListByEntity(_ context.Context, entityType, entityID string) ([]*domain.DocumentArtifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.DocumentArtifact, 0)
	for i := len(r.artifacts) - 1; i >= 0; i-- {
		a := r.artifacts[i]
		if a.EntityType == entityType && a.EntityID == entityID {
			out = append(out, a)
		}
	}
	return out, nil
}

// memBlobStore is an in-memory BlobStore. Tests tamper with stored bytes
// directly to exercise hash verification.
type memBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{blobs: make(map[string][]byte)}
}

func (s *memBlobStore) Save(_ context.Context, key string, content []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		stored := make([]byte, len(content))
		copy(stored, content)
		s.blobs[key] = stored
	}
	return "mem://" + key, nil
}

func (s *memBlobStore) Read(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", key)
	}
	out := make([]byte, len(content))
	copy(out, content)
	return out, nil
}

func (s *memBlobStore) tamper(key string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = content
}

// captureNotifier records dispatched notifications
type captureNotifier struct {
	mu            sync.Mutex
	requests      []*notify.SigningRequest
	confirmations []*notify.SignatureConfirmation
	completions   []*notify.CompletionNotice
}

func (n *captureNotifier) SendSigningRequest(_ context.Context, req *notify.SigningRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, req)
	return nil
}

func (n *captureNotifier) SendSignatureConfirmation(_ context.Context, conf *notify.SignatureConfirmation) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations = append(n.confirmations, conf)
	return nil
}

func (n *captureNotifier) SendCompletionNotice(_ context.Context, notice *notify.CompletionNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completions = append(n.completions, notice)
	return nil
}

func (n *captureNotifier) signingRequests() []*notify.SigningRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*notify.SigningRequest, len(n.requests))
	copy(out, n.requests)
	return out
}

func (n *captureNotifier) signatureConfirmations() []*notify.SignatureConfirmation {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*notify.SignatureConfirmation, len(n.confirmations))
	copy(out, n.confirmations)
	return out
}

func (n *captureNotifier) completionNotices() []*notify.CompletionNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*notify.CompletionNotice, len(n.completions))
	copy(out, n.completions)
	return out
}

// staticGeo resolves every IP to a fixed location
type staticGeo struct {
	location string
}

func (g staticGeo) Resolve(_ context.Context, _ string) string { return g.location }
