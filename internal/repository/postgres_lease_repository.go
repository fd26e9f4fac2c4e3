package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentflow/leasesign/internal/domain"
)

// PostgresLeaseRepository implements LeaseRepository using PostgreSQL
type PostgresLeaseRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresLeaseRepository creates a new PostgresLeaseRepository
func NewPostgresLeaseRepository(pool *pgxpool.Pool) *PostgresLeaseRepository {
	return &PostgresLeaseRepository{pool: pool}
}

const leaseColumns = `
	id, org_id, unit_id, status, terms, monthly_rent, start_date, end_date,
	document_url, document_hash, landlord_signed_at, landlord_signature_data,
	created_at, updated_at
`

const slotColumns = `
	lt.id, lt.lease_id, lt.tenant_id, lt.is_primary,
	t.full_name, t.email,
	lt.signed_at, lt.signature_data, lt.signing_token, lt.token_expires_at
`

// Create creates a new draft lease with its tenant slots
func (r *PostgresLeaseRepository) Create(ctx context.Context, lease *domain.Lease) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO leases (id, org_id, unit_id, status, terms, monthly_rent, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = tx.Exec(ctx, query,
		lease.ID,
		lease.OrgID,
		lease.UnitID,
		lease.Status,
		lease.Terms,
		lease.MonthlyRent,
		lease.StartDate,
		lease.EndDate,
		lease.CreatedAt,
		lease.UpdatedAt,
	)
	if err != nil {
		return err
	}

	slotQuery := `
		INSERT INTO lease_tenants (id, lease_id, tenant_id, is_primary)
		VALUES ($1, $2, $3, $4)
	`
	for _, slot := range lease.Tenants {
		if _, err := tx.Exec(ctx, slotQuery, slot.ID, slot.LeaseID, slot.TenantID, slot.IsPrimary); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a lease with tenant slots joined
func (r *PostgresLeaseRepository) GetByID(ctx context.Context, id string) (*domain.Lease, error) {
	query := fmt.Sprintf(`SELECT %s FROM leases WHERE id = $1`, leaseColumns)

	lease, err := scanLease(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	slotQuery := fmt.Sprintf(`
		SELECT %s
		FROM lease_tenants lt
		JOIN tenants t ON t.id = lt.tenant_id
		WHERE lt.lease_id = $1
		ORDER BY lt.is_primary DESC, t.full_name ASC
	`, slotColumns)

	rows, err := r.pool.Query(ctx, slotQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		slot, err := scanLeaseSlot(rows)
		if err != nil {
			return nil, err
		}
		lease.Tenants = append(lease.Tenants, slot)
	}

	return lease, rows.Err()
}

// FindSlotByToken resolves a signing token to its slot, or nil
func (r *PostgresLeaseRepository) FindSlotByToken(ctx context.Context, token string) (*domain.LeaseTenant, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM lease_tenants lt
		JOIN tenants t ON t.id = lt.tenant_id
		WHERE lt.signing_token = $1
	`, slotColumns)

	slot, err := scanLeaseSlot(r.pool.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return slot, nil
}

// UpdateStatus sets the lease status
func (r *PostgresLeaseRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE leases SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id, status, time.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("lease not found")
	}
	return nil
}

// SetSlotToken overwrites the slot's signing token and expiry
func (r *PostgresLeaseRepository) SetSlotToken(ctx context.Context, slotID, token string, expiresAt time.Time) error {
	query := `
		UPDATE lease_tenants
		SET signing_token = $2, token_expires_at = $3
		WHERE id = $1 AND signed_at IS NULL
	`
	result, err := r.pool.Exec(ctx, query, slotID, token, expiresAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("slot not found or already signed")
	}
	return nil
}

// SetLandlordSignature writes the landlord countersignature
func (r *PostgresLeaseRepository) SetLandlordSignature(ctx context.Context, leaseID string, signedAt time.Time, data *domain.SignatureData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	query := `
		UPDATE leases
		SET landlord_signed_at = $2, landlord_signature_data = $3, updated_at = $4
		WHERE id = $1 AND landlord_signed_at IS NULL
	`
	result, err := r.pool.Exec(ctx, query, leaseID, signedAt, payload, time.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrAlreadyCountersigned
	}
	return nil
}

// UpdateDocumentPointer repoints the lease at its latest rendered artifact
func (r *PostgresLeaseRepository) UpdateDocumentPointer(ctx context.Context, leaseID, url, hash string) error {
	query := `UPDATE leases SET document_url = $2, document_hash = $3, updated_at = $4 WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, leaseID, url, hash, time.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("lease not found")
	}
	return nil
}

// Delete hard-deletes a draft lease and its slots
func (r *PostgresLeaseRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM lease_tenants WHERE lease_id = $1`, id); err != nil {
		return err
	}
	result, err := tx.Exec(ctx, `DELETE FROM leases WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("lease not found")
	}

	return tx.Commit(ctx)
}

// LockLeaseTx locks the lease row and returns its status
func (r *PostgresLeaseRepository) LockLeaseTx(ctx context.Context, tx pgx.Tx, leaseID string) (*domain.Lease, error) {
	query := fmt.Sprintf(`SELECT %s FROM leases WHERE id = $1 FOR UPDATE`, leaseColumns)

	lease, err := scanLease(tx.QueryRow(ctx, query, leaseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return lease, nil
}

// UpdateStatusTx sets the lease status inside a caller-owned transaction
func (r *PostgresLeaseRepository) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id, status string) error {
	query := `UPDATE leases SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := tx.Exec(ctx, query, id, status, time.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("lease not found")
	}
	return nil
}

// LockSlotByTokenTx locks the slot referencing the token, or returns nil
func (r *PostgresLeaseRepository) LockSlotByTokenTx(ctx context.Context, tx pgx.Tx, token string) (*domain.LeaseTenant, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM lease_tenants lt
		JOIN tenants t ON t.id = lt.tenant_id
		WHERE lt.signing_token = $1
		FOR UPDATE OF lt
	`, slotColumns)

	slot, err := scanLeaseSlot(tx.QueryRow(ctx, query, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return slot, nil
}

// LockSlotByTenantTx locks the slot for a tenant on a lease, or returns nil
func (r *PostgresLeaseRepository) LockSlotByTenantTx(ctx context.Context, tx pgx.Tx, leaseID, tenantID string) (*domain.LeaseTenant, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM lease_tenants lt
		JOIN tenants t ON t.id = lt.tenant_id
		WHERE lt.lease_id = $1 AND lt.tenant_id = $2
		FOR UPDATE OF lt
	`, slotColumns)

	slot, err := scanLeaseSlot(tx.QueryRow(ctx, query, leaseID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return slot, nil
}

// WriteSlotSignatureTx writes the evidence record and sets signed_at in one
// guarded statement. The token column is left in place so a reused token
// still resolves to its slot and reports the signature that consumed it; the
// signed_at guard is what makes the token dead.
func (r *PostgresLeaseRepository) WriteSlotSignatureTx(ctx context.Context, tx pgx.Tx, slotID string, signedAt time.Time, data *domain.SignatureData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	query := `
		UPDATE lease_tenants
		SET signed_at = $2, signature_data = $3
		WHERE id = $1 AND signed_at IS NULL
	`
	result, err := tx.Exec(ctx, query, slotID, signedAt, payload)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("slot not found or already signed")
	}
	return nil
}

// CountUnsignedTx counts slots on the lease still waiting for a signature
func (r *PostgresLeaseRepository) CountUnsignedTx(ctx context.Context, tx pgx.Tx, leaseID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM lease_tenants WHERE lease_id = $1 AND signed_at IS NULL`
	err := tx.QueryRow(ctx, query, leaseID).Scan(&count)
	return count, err
}

// ActivateLeaseTx transitions the lease to active
func (r *PostgresLeaseRepository) ActivateLeaseTx(ctx context.Context, tx pgx.Tx, leaseID string) error {
	query := `UPDATE leases SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := tx.Exec(ctx, query, leaseID, domain.LeaseStatusActive, time.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("lease not found")
	}
	return nil
}

// OccupyUnitTx marks the unit occupied
func (r *PostgresLeaseRepository) OccupyUnitTx(ctx context.Context, tx pgx.Tx, unitID string) error {
	query := `UPDATE units SET status = $2, updated_at = $3 WHERE id = $1`
	result, err := tx.Exec(ctx, query, unitID, domain.UnitStatusOccupied, time.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("unit not found")
	}
	return nil
}

// ActivateLeaseTenantsTx activates every tenant on the lease
func (r *PostgresLeaseRepository) ActivateLeaseTenantsTx(ctx context.Context, tx pgx.Tx, leaseID, unitID string, moveInDate time.Time) error {
	query := `
		UPDATE tenants
		SET status = $2, current_unit_id = $3, move_in_date = $4, updated_at = $5
		WHERE id IN (SELECT tenant_id FROM lease_tenants WHERE lease_id = $1)
	`
	result, err := tx.Exec(ctx, query, leaseID, domain.TenantStatusActive, unitID, moveInDate, time.Now())
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("no tenants on lease")
	}
	return nil
}

// --- row scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLease(row rowScanner) (*domain.Lease, error) {
	lease := &domain.Lease{}
	var landlordData []byte
	err := row.Scan(
		&lease.ID,
		&lease.OrgID,
		&lease.UnitID,
		&lease.Status,
		&lease.Terms,
		&lease.MonthlyRent,
		&lease.StartDate,
		&lease.EndDate,
		&lease.DocumentURL,
		&lease.DocumentHash,
		&lease.LandlordSignedAt,
		&landlordData,
		&lease.CreatedAt,
		&lease.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(landlordData) > 0 {
		lease.LandlordSignatureData = &domain.SignatureData{}
		if err := json.Unmarshal(landlordData, lease.LandlordSignatureData); err != nil {
			return nil, err
		}
	}
	return lease, nil
}

func scanLeaseSlot(row rowScanner) (*domain.LeaseTenant, error) {
	slot := &domain.LeaseTenant{}
	var sigData []byte
	err := row.Scan(
		&slot.ID,
		&slot.LeaseID,
		&slot.TenantID,
		&slot.IsPrimary,
		&slot.TenantName,
		&slot.TenantEmail,
		&slot.SignedAt,
		&sigData,
		&slot.SigningToken,
		&slot.TokenExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	if len(sigData) > 0 {
		slot.SignatureData = &domain.SignatureData{}
		if err := json.Unmarshal(sigData, slot.SignatureData); err != nil {
			return nil, err
		}
	}
	return slot, nil
}
